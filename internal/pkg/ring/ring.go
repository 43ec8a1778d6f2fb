package ring

import (
	"encoding/binary"
	"sync/atomic"
	"time"
)

// MaxEventSize bounds a single record payload. Nothing on a MIDI wire
// legitimately exceeds it, larger writes are a producer bug and get
// rejected outright.
const MaxEventSize = 1024

const (
	prefixSize = 4  // the u32 total that precedes every frame
	headerSize = 16 // u64 timestamp + u32 data length + u32 name length
)

// Record is one observed wire message with its capture timestamp and
// the name of the device it came from.
type Record struct {
	Data      []byte
	Timestamp uint64 // microseconds
	Device    string
}

// Now returns the timestamp records are stamped with, microseconds
// since the unix epoch.
func Now() uint64 {
	return uint64(time.Now().UnixMicro())
}

// Buffer is a single-producer single-consumer framed ring over a plain
// byte region. Frames are little-endian:
//
//	[u32 total][u64 timestamp][u32 len(data)][data][u32 len(name)][name]
//
// total covers everything after its own four bytes. One slot always
// stays unused, so equal cursors mean an empty buffer. Exactly one
// goroutine may call Write and exactly one may call Read, there is no
// locking inside.
type Buffer struct {
	region   []byte
	capacity uint32
	owned    bool

	writePos uint32
	readPos  uint32
}

// New allocates a buffer with its own backing region.
func New(capacity int) *Buffer {
	if capacity < prefixSize+headerSize+2 {
		panic("ring: capacity too small to hold a single frame")
	}
	return &Buffer{
		region:   make([]byte, capacity),
		capacity: uint32(capacity),
		owned:    true,
	}
}

// Wrap builds a buffer over a caller-provided region. The region stays
// owned by the caller, Close hands it back untouched.
func Wrap(region []byte) *Buffer {
	if len(region) < prefixSize+headerSize+2 {
		panic("ring: region too small to hold a single frame")
	}
	return &Buffer{
		region:   region,
		capacity: uint32(len(region)),
		owned:    false,
	}
}

// Close detaches the buffer from its region. An owned region is zeroed
// before it goes to the collector, a wrapped one is left for its owner
// as is. Both sides must be done with the buffer first.
func (b *Buffer) Close() {
	if b.owned {
		for i := range b.region {
			b.region[i] = 0
		}
	}
	b.region = nil
}

func (b *Buffer) Capacity() int {
	return int(b.capacity)
}

// Used reports how many bytes are currently buffered, frame overhead
// included. Safe to call from either side.
func (b *Buffer) Used() int {
	w := atomic.LoadUint32(&b.writePos)
	r := atomic.LoadUint32(&b.readPos)
	return int((w + b.capacity - r) % b.capacity)
}

// Write frames rec into the buffer. It reports false when the payload
// is empty or oversized or when the frame does not fit into the free
// space, the buffer is left untouched in every failure case.
func (b *Buffer) Write(rec Record) bool {
	if len(rec.Data) == 0 || len(rec.Data) > MaxEventSize {
		return false
	}

	total := uint32(headerSize + len(rec.Data) + len(rec.Device))

	w := atomic.LoadUint32(&b.writePos)
	r := atomic.LoadUint32(&b.readPos)

	used := (w + b.capacity - r) % b.capacity
	free := b.capacity - used - 1
	if prefixSize+total > free {
		return false
	}

	pos := b.putUint32(w, total)
	pos = b.putUint64(pos, rec.Timestamp)
	pos = b.putUint32(pos, uint32(len(rec.Data)))
	pos = b.copyIn(pos, rec.Data)
	pos = b.putUint32(pos, uint32(len(rec.Device)))
	pos = b.copyIn(pos, []byte(rec.Device))

	atomic.StoreUint32(&b.writePos, pos)
	return true
}

// Read takes the oldest record out of the buffer. It reports false when
// the buffer is empty. A frame whose inner lengths disagree with its
// total is skipped by that total, one whose total cannot be valid at
// all flushes the buffer, both also report false.
func (b *Buffer) Read() (Record, bool) {
	r := atomic.LoadUint32(&b.readPos)
	w := atomic.LoadUint32(&b.writePos)
	if r == w {
		return Record{}, false
	}

	total, pos := b.uint32At(r)
	if total < headerSize || prefixSize+total > b.capacity-1 {
		atomic.StoreUint32(&b.readPos, w)
		return Record{}, false
	}
	next := (r + prefixSize + total) % b.capacity

	timestamp, pos := b.uint64At(pos)

	dataLen, pos := b.uint32At(pos)
	if dataLen > total-headerSize {
		atomic.StoreUint32(&b.readPos, next)
		return Record{}, false
	}
	data := make([]byte, dataLen)
	pos = b.copyOut(pos, data)

	nameLen, pos := b.uint32At(pos)
	if headerSize+dataLen+nameLen != total {
		atomic.StoreUint32(&b.readPos, next)
		return Record{}, false
	}
	name := make([]byte, nameLen)
	b.copyOut(pos, name)

	atomic.StoreUint32(&b.readPos, next)
	return Record{Data: data, Timestamp: timestamp, Device: string(name)}, true
}

func (b *Buffer) copyIn(pos uint32, src []byte) uint32 {
	n := copy(b.region[pos:], src)
	if n < len(src) {
		copy(b.region, src[n:])
	}
	return (pos + uint32(len(src))) % b.capacity
}

func (b *Buffer) copyOut(pos uint32, dst []byte) uint32 {
	n := copy(dst, b.region[pos:])
	if n < len(dst) {
		copy(dst[n:], b.region)
	}
	return (pos + uint32(len(dst))) % b.capacity
}

func (b *Buffer) putUint32(pos uint32, v uint32) uint32 {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], v)
	return b.copyIn(pos, scratch[:])
}

func (b *Buffer) putUint64(pos uint32, v uint64) uint32 {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], v)
	return b.copyIn(pos, scratch[:])
}

func (b *Buffer) uint32At(pos uint32) (uint32, uint32) {
	var scratch [4]byte
	next := b.copyOut(pos, scratch[:])
	return binary.LittleEndian.Uint32(scratch[:]), next
}

func (b *Buffer) uint64At(pos uint32) (uint64, uint32) {
	var scratch [8]byte
	next := b.copyOut(pos, scratch[:])
	return binary.LittleEndian.Uint64(scratch[:]), next
}
