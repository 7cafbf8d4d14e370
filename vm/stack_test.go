package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuntimeStackPushPopRoundTrip(t *testing.T) {
	s := NewRuntimeStack()
	require.NoError(t, s.Push(NumberValue(42)))
	top, err := s.Top()
	require.NoError(t, err)
	require.Equal(t, float64(42), top.Num)

	v, err := s.Pop()
	require.NoError(t, err)
	require.Equal(t, float64(42), v.Num)
	require.Equal(t, -1, s.SP())
}

func TestRuntimeStackPopUnderflow(t *testing.T) {
	s := NewRuntimeStack()
	_, err := s.Pop()
	require.Error(t, err)
	require.Equal(t, KindStackUnderflow, KindOf(err))
}

func TestRuntimeStackUndefinedByDefault(t *testing.T) {
	s := NewRuntimeStack()
	v, err := s.Read(5)
	require.NoError(t, err)
	require.Equal(t, KindUndefined, v.Kind)
}

func TestRuntimeStackMoveSPGrowsAndFreesSlots(t *testing.T) {
	s := NewRuntimeStack()
	require.NoError(t, s.MoveSP(3))
	require.Equal(t, 2, s.SP())

	v, err := s.Read(0)
	require.NoError(t, err)
	require.Equal(t, KindUndefined, v.Kind)

	require.NoError(t, s.Insert(1, NumberValue(7)))
	require.NoError(t, s.MoveSP(-3))
	require.Equal(t, -1, s.SP())
}

func TestRuntimeStackGrowsAcrossChunkBoundary(t *testing.T) {
	s := NewRuntimeStack()
	require.NoError(t, s.MoveSP(stackAllocStep+10))
	require.NoError(t, s.Insert(stackAllocStep+5, StringValue("far")))
	v, err := s.Read(stackAllocStep + 5)
	require.NoError(t, err)
	require.Equal(t, "far", v.Str)
}

func TestRuntimeStackOverflow(t *testing.T) {
	s := NewRuntimeStack()
	err := s.grow(maxStackSlots)
	require.Error(t, err)
	require.Equal(t, KindStackOverflow, KindOf(err))
}
