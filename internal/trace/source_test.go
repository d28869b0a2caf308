package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSource_FireReachesSinksInOrder(t *testing.T) {
	src := NewSource[int]("app-tx")
	var got []string

	src.Connect(func(v int) { got = append(got, "a") })
	src.Connect(func(v int) { got = append(got, "b") })
	src.Fire(7)

	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 2, src.Sinks())
	assert.Equal(t, "app-tx", src.Name())
}

func TestSource_FireWithoutSinks(t *testing.T) {
	src := NewSource[struct{}]("idle")
	assert.NotPanics(t, func() { src.Fire(struct{}{}) })
}
