package random

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntn(t *testing.T) {
	require.Equal(t, 0, Intn(NewSequence(0), 5))
	require.Equal(t, 2, Intn(NewSequence(0.5), 5))
	require.Equal(t, 4, Intn(NewSequence(0.999), 5))
	require.Equal(t, 0, Intn(NewSequence(0.7), 0))
}

func TestBetween(t *testing.T) {
	require.InDelta(t, 0.3, Between(NewSequence(0.5), 0.1, 0.5), 1e-9)
}

func TestSequenceWraps(t *testing.T) {
	seq := NewSequence(0.1, 0.2)
	require.Equal(t, 0.1, seq.Float64())
	require.Equal(t, 0.2, seq.Float64())
	require.Equal(t, 0.1, seq.Float64())

	require.Equal(t, 0.0, NewSequence().Float64())
}

func TestNewIsInRange(t *testing.T) {
	src := New(42)
	for i := 0; i < 1000; i++ {
		v := src.Float64()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}
