package driver

// Tap is a live MIDI source under observation. Implementations deliver
// raw wire bytes on the receive channel, one complete message per
// slice, from Open until Close. A tap never sends anything back to the
// observed device.
type Tap interface {
	Name() string
	Open() error
	Close() error
	ReceiveChannel() <-chan []byte
}
