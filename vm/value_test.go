package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueStringConversion(t *testing.T) {
	require.Equal(t, "Nil", NilValue().String())
	require.Equal(t, "true", BoolValue(true).String())
	require.Equal(t, "false", BoolValue(false).String())
	require.Equal(t, "3", NumberValue(3).String())
	require.Equal(t, "3.5", NumberValue(3.5).String())
	require.Equal(t, "hi", StringValue("hi").String())
	require.Equal(t, "Undefined", UndefinedValue().String())
}

func TestValueTypeCode(t *testing.T) {
	require.Equal(t, float64(0), NilValue().TypeCode())
	require.Equal(t, float64(1), BoolValue(true).TypeCode())
	require.Equal(t, float64(3), NumberValue(1).TypeCode())
	require.Equal(t, float64(8), StringValue("x").TypeCode())
}

func TestValueCopyDeepCopiesRange(t *testing.T) {
	from := 1.0
	original := RangeValue(&from, nil)
	copied := original.Copy()

	*copied.Ran.From = 99

	require.Equal(t, 1.0, *original.Ran.From)
	require.NotSame(t, original.Ran, copied.Ran)
}
