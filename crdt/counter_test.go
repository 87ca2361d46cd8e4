package crdt

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCounterOverflowInt32(t *testing.T) {
	a := uuid.New()
	c := NewCounterInt32(math.MaxInt32, mustTicket(1, a))
	err := c.Increase(int32(1))
	require.NoError(t, err)
	require.Equal(t, int32(math.MinInt32), c.Value())
}

func TestCounterIncreaseTypeMismatch(t *testing.T) {
	a := uuid.New()
	c := NewCounterInt32(0, mustTicket(1, a))
	err := c.Increase(int64(1))
	require.ErrorIs(t, err, ErrTypeError)
}

func TestCounterInt64AcceptsInt32Delta(t *testing.T) {
	a := uuid.New()
	c := NewCounterInt64(10, mustTicket(1, a))
	require.NoError(t, c.Increase(int32(5)))
	require.Equal(t, int64(15), c.Value())
}
