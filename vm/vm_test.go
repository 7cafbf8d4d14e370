package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func runSource(t *testing.T, source, stdin string) (string, error) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	var out bytes.Buffer
	m := New(log)
	err := m.Run(source, strings.NewReader(stdin), &out)
	return out.String(), err
}

func TestEndToEndArithmeticPrecedence(t *testing.T) {
	out, err := runSource(t, "a = 1 + 2 * 3\nprint(a)\n", "")
	require.NoError(t, err)
	require.Equal(t, "7", out)
}

func TestEndToEndFunctionCall(t *testing.T) {
	out, err := runSource(t, "function f(x,y)\nreturn x - y\nend\nprint(f(10,3))\n", "")
	require.NoError(t, err)
	require.Equal(t, "7", out)
}

func TestEndToEndStringRepeatAndLen(t *testing.T) {
	out, err := runSource(t, `s = "ab" * 3
print(s, len(s))
`, "")
	require.NoError(t, err)
	require.Equal(t, "ababab6", out)
}

func TestEndToEndIfElse(t *testing.T) {
	out, err := runSource(t, `if 0
print("t")
else
print("f")
end
`, "")
	require.NoError(t, err)
	require.Equal(t, "f", out)
}

func TestEndToEndWhileLoop(t *testing.T) {
	out, err := runSource(t, `i = 0
while i < 3
print(i)
i = i + 1
end
`, "")
	require.NoError(t, err)
	require.Equal(t, "012", out)
}

func TestEndToEndDivisionByZeroExitCode(t *testing.T) {
	_, err := runSource(t, "print(1/0)\n", "")
	require.Error(t, err)
	require.Equal(t, KindRuntimeZeroDivision, KindOf(err))
}

func TestEndToEndUndefinedVariableIsSemanticError(t *testing.T) {
	_, err := runSource(t, "print(missing)\n", "")
	require.Error(t, err)
	require.Equal(t, KindSemanticsUndefinedVariable, KindOf(err))
}

func TestEndToEndUndefinedFunctionIsSemanticError(t *testing.T) {
	_, err := runSource(t, "doesNotExist(1)\n", "")
	require.Error(t, err)
	require.Equal(t, KindSemanticsUndefinedFunction, KindOf(err))
}

func TestEndToEndPowZeroToZeroIsOne(t *testing.T) {
	out, err := runSource(t, "print(0^0)\n", "")
	require.NoError(t, err)
	require.Equal(t, "1", out)
}

func TestEndToEndInputEchoed(t *testing.T) {
	out, err := runSource(t, "line = input()\nprint(line)\n", "hello\n")
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestEndToEndInputImmediateEOFErrors(t *testing.T) {
	_, err := runSource(t, "line = input()\nprint(line)\n", "")
	require.Error(t, err)
	require.Equal(t, KindRuntimeOther, KindOf(err))
}

func TestEndToEndSubstringBoundaries(t *testing.T) {
	out, err := runSource(t, `s = "hello"
print(s[:])
print(s[1:1])
print(s[2:1000])
`, "")
	require.NoError(t, err)
	require.Equal(t, "hellollo", out)
}
