package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFanOut(t *testing.T) {
	input := make(chan int, 4)
	out1, out2 := FanOut(input)

	for i := 0; i < 4; i++ {
		input <- i
	}
	close(input)

	for i := 0; i < 4; i++ {
		assert.Equal(t, i, <-out1)
		assert.Equal(t, i, <-out2)
	}

	_, ok := <-out1
	assert.False(t, ok)
	_, ok = <-out2
	assert.False(t, ok)
}

func TestDynamicFanOut(t *testing.T) {
	input := make(chan string, 4)
	fan := NewDynamicFanOut(input)

	id1, out1, err := fan.SpawnOutput()
	assert.Equal(t, nil, err)
	_, out2, err := fan.SpawnOutput()
	assert.Equal(t, nil, err)

	input <- "hello"
	assert.Equal(t, "hello", <-out1)
	assert.Equal(t, "hello", <-out2)

	assert.Equal(t, nil, fan.DespawnOutput(id1))
	_, ok := <-out1
	assert.False(t, ok)

	input <- "world"
	assert.Equal(t, "world", <-out2)

	assert.Error(t, fan.DespawnOutput(id1))

	close(input)
	_, ok = <-out2
	assert.False(t, ok)
}
