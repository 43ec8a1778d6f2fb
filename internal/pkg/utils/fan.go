package utils

import (
	"fmt"
	"math"
	"sync"
)

// FanOut duplicates one channel into two, both buffered like the
// input. Both outputs have to be drained, a stuck consumer stalls its
// sibling.
func FanOut[T any](input <-chan T) (<-chan T, <-chan T) {
	size := cap(input)
	if size == 0 {
		// at least 1 to keep the outputs from blocking each other
		size = 1
	}
	var output1 = make(chan T, size)
	var output2 = make(chan T, size)

	go func() {
		for v := range input {
			output1 <- v
			output2 <- v
		}
		close(output1)
		close(output2)
	}()
	return output1, output2
}

// DynamicFanOut duplicates one channel into any number of outputs that
// can come and go at runtime.
type DynamicFanOut[T any] struct {
	input    <-chan T
	inputCap int

	closed  bool
	mutex   sync.Mutex
	outputs map[int64]chan T
}

func NewDynamicFanOut[T any](input <-chan T) *DynamicFanOut[T] {
	f := DynamicFanOut[T]{
		input:    input,
		inputCap: cap(input),
		outputs:  make(map[int64]chan T),
	}
	go f.run()
	return &f
}

func (f *DynamicFanOut[T]) run() {
	for e := range f.input {
		f.mutex.Lock()
		for _, o := range f.outputs {
			o <- e
		}
		f.mutex.Unlock()
	}

	f.mutex.Lock()
	for id, o := range f.outputs {
		close(o)
		delete(f.outputs, id)
	}
	f.closed = true
	f.mutex.Unlock()
}

// SpawnOutput creates a new output channel along with an ID for later
// despawning. The output is buffered like the input, with at least
// capacity 1.
func (f *DynamicFanOut[T]) SpawnOutput() (int64, <-chan T, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.closed {
		return 0, nil, fmt.Errorf("input channel is closed")
	}

	ocap := f.inputCap
	if ocap == 0 {
		ocap = 1
	}

	var id int64
	var found bool
	for id = 0; id < math.MaxInt64; id++ {
		if _, ok := f.outputs[id]; !ok {
			found = true
			break
		}
	}
	if !found {
		return 0, nil, fmt.Errorf("no space available")
	}

	f.outputs[id] = make(chan T, ocap)
	return id, f.outputs[id], nil
}

// DespawnOutput closes and removes the output channel with the given
// ID.
func (f *DynamicFanOut[T]) DespawnOutput(id int64) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	c, ok := f.outputs[id]
	if !ok {
		return fmt.Errorf("output id %d not found", id)
	}
	close(c)
	delete(f.outputs, id)

	return nil
}
