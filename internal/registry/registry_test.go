package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/magicd/internal/lambda"
)

// countingHandler records how many distinct instances were created and how
// often each was signalled.
type countingHandler struct {
	signals int
}

func (h *countingHandler) Signal(ctx context.Context, args *lambda.Node) error {
	h.signals++
	return nil
}

func TestRegisterAndSignal(t *testing.T) {
	reg := New()
	var received *lambda.Node
	reg.RegisterSlot("spy", &RegisteredSlot{
		New: func() Handler {
			return HandlerFunc(func(ctx context.Context, args *lambda.Node) error {
				received = args
				return nil
			})
		},
	})
	reg.Freeze()

	args := lambda.New("args")
	require.NoError(t, reg.Signal(context.Background(), "spy", args))
	assert.Same(t, args, received)
}

func TestSignalUnknownSlotIsError(t *testing.T) {
	reg := New()
	reg.Freeze()

	err := reg.Signal(context.Background(), "nope", lambda.New(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestSignalPropagatesHandlerError(t *testing.T) {
	reg := New()
	boom := errors.New("boom")
	reg.RegisterSlot("failer", &RegisteredSlot{
		New: func() Handler {
			return HandlerFunc(func(ctx context.Context, args *lambda.Node) error { return boom })
		},
	})
	reg.Freeze()

	err := reg.Signal(context.Background(), "failer", lambda.New(""))
	assert.ErrorIs(t, err, boom)
}

func TestSignalCreatesFreshHandlerPerDispatch(t *testing.T) {
	reg := New()
	var created []*countingHandler
	reg.RegisterSlot("fresh", &RegisteredSlot{
		New: func() Handler {
			h := &countingHandler{}
			created = append(created, h)
			return h
		},
	})
	reg.Freeze()

	require.NoError(t, reg.Signal(context.Background(), "fresh", lambda.New("")))
	require.NoError(t, reg.Signal(context.Background(), "fresh", lambda.New("")))

	require.Len(t, created, 2)
	assert.Equal(t, 1, created[0].signals)
	assert.Equal(t, 1, created[1].signals)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := New()
	slot := &RegisteredSlot{New: func() Handler {
		return HandlerFunc(func(context.Context, *lambda.Node) error { return nil })
	}}
	reg.RegisterSlot("dup", slot)

	assert.Panics(t, func() { reg.RegisterSlot("dup", slot) })
}

func TestRegistrationAfterFreezePanics(t *testing.T) {
	reg := New()
	reg.Freeze()

	assert.Panics(t, func() {
		reg.RegisterSlot("late", &RegisteredSlot{New: func() Handler {
			return HandlerFunc(func(context.Context, *lambda.Node) error { return nil })
		}})
	})
}

func TestRegistrationWithoutFactoryPanics(t *testing.T) {
	reg := New()
	assert.Panics(t, func() { reg.RegisterSlot("empty", &RegisteredSlot{}) })
}

func TestSlotsAreSorted(t *testing.T) {
	reg := New()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		reg.RegisterSlot(name, &RegisteredSlot{New: func() Handler {
			return HandlerFunc(func(context.Context, *lambda.Node) error { return nil })
		}})
	}
	reg.Freeze()

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Slots())
	assert.True(t, reg.Has("alpha"))
	assert.False(t, reg.Has("omega"))
}

func TestSignalBackgroundDoesNotBlock(t *testing.T) {
	reg := New()
	done := make(chan struct{})
	reg.RegisterSlot("bg", &RegisteredSlot{
		New: func() Handler {
			return HandlerFunc(func(ctx context.Context, args *lambda.Node) error {
				close(done)
				return nil
			})
		},
	})
	reg.Freeze()

	reg.SignalBackground(context.Background(), "bg", lambda.New(""))
	<-done
}
