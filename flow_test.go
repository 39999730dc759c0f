package http2

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowConsumeExpand(t *testing.T) {
	w := NewWindow(100)

	require.Equal(t, int32(100), w.Available())
	require.False(t, w.Limited())
	require.False(t, w.Exhausted())

	w.Consume(30)
	require.Equal(t, int32(70), w.Available())
	require.True(t, w.Limited())
	require.False(t, w.Exhausted())

	require.NoError(t, w.Expand(30))
	require.Equal(t, int32(100), w.Available())
	require.False(t, w.Limited())
}

func TestWindowGoesNegative(t *testing.T) {
	w := NewWindow(10)

	w.Consume(25)

	require.Equal(t, int32(-15), w.Available())
	require.True(t, w.Exhausted())

	require.NoError(t, w.Expand(15))
	require.Equal(t, int32(0), w.Available())
	require.False(t, w.Exhausted())
}

func TestWindowExpandOverflow(t *testing.T) {
	w := NewWindow(maxWindowSize)

	err := w.Expand(1)
	require.Error(t, err)
	require.True(t, errors.Is(err, NewError(FlowControlError, "")))

	// the window is left unchanged
	require.Equal(t, int32(maxWindowSize), w.Available())
}

func TestWindowSetCapacity(t *testing.T) {
	w := NewWindow(100)
	w.Consume(40)

	require.NoError(t, w.SetCapacity(50))
	require.Equal(t, int32(50), w.Capacity())
	require.Equal(t, int32(10), w.Available())

	require.NoError(t, w.SetCapacity(200))
	require.Equal(t, int32(160), w.Available())
}
