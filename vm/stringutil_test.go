package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareStrings(t *testing.T) {
	require.Equal(t, 0, compareStrings("abc", "abc"))
	require.Less(t, compareStrings("abc", "abd"), 0)
	require.Greater(t, compareStrings("abd", "abc"), 0)
}

func TestFindSubstring(t *testing.T) {
	require.Equal(t, 0, findSubstring("hello", ""))
	require.Equal(t, -1, findSubstring("hello", "z"))
	require.Equal(t, 2, findSubstring("hello", "ll"))
}

func TestSortBytes(t *testing.T) {
	require.Equal(t, "abc", sortBytes("cba"))
	require.Equal(t, "", sortBytes(""))
}

func TestSortBytesIdempotent(t *testing.T) {
	s := "the quick brown fox"
	require.Equal(t, sortBytes(s), sortBytes(sortBytes(s)))
}
