package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitter_DeliversInSubscriptionOrder(t *testing.T) {
	e := NewEmitter[int]()

	var got []string
	e.Subscribe(func(v int) { got = append(got, "a") })
	e.Subscribe(func(v int) { got = append(got, "b") })
	e.Subscribe(func(v int) { got = append(got, "c") })

	e.Emit(1)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestEmitter_Unsubscribe(t *testing.T) {
	e := NewEmitter[string]()

	var got []string
	unsub := e.Subscribe(func(v string) { got = append(got, "first:"+v) })
	e.Subscribe(func(v string) { got = append(got, "second:"+v) })

	e.Emit("x")
	unsub()
	unsub() // double unsubscribe is a no-op
	e.Emit("y")

	assert.Equal(t, []string{"first:x", "second:x", "second:y"}, got)
}

func TestEmitter_EmitWithoutSubscribers(t *testing.T) {
	e := NewEmitter[struct{}]()
	assert.NotPanics(t, func() { e.Emit(struct{}{}) })
}
