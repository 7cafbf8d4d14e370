package vm

import (
	"testing"
)

func TestBuiltinNumericConvertsTrimmedString(t *testing.T) {
	out, err := runSource(t, `n = numeric("  42")
print(n + 1)
`, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "43" {
		t.Fatalf("got %q", out)
	}
}

func TestBuiltinNumericRejectsGarbage(t *testing.T) {
	_, err := runSource(t, `n = numeric("abc")
print(n)
`, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindRuntimeNumericConversion {
		t.Fatalf("got kind %v", KindOf(err))
	}
}

func TestBuiltinTypeOfDistinguishesKinds(t *testing.T) {
	out, err := runSource(t, `print(typeOf(1))
print(typeOf("s"))
print(typeOf(true))
print(typeOf(nil))
`, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "3810" {
		t.Fatalf("got %q", out)
	}
}

func TestBuiltinFindLocatesSubstring(t *testing.T) {
	out, err := runSource(t, `print(find("hello world", "world"))
`, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "6" {
		t.Fatalf("got %q", out)
	}
}

func TestBuiltinFindNotFoundReturnsNegativeOne(t *testing.T) {
	out, err := runSource(t, `print(find("hello", "z"))
`, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "-1" {
		t.Fatalf("got %q", out)
	}
}

func TestBuiltinSortOrdersBytes(t *testing.T) {
	out, err := runSource(t, `print(sort("dcba"))
`, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "abcd" {
		t.Fatalf("got %q", out)
	}
}

func TestBuiltinLenOfNonStringIsZero(t *testing.T) {
	out, err := runSource(t, `print(len(42))
`, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "0" {
		t.Fatalf("got %q", out)
	}
}

func TestBuiltinPrintMultipleArgsOrderPreserved(t *testing.T) {
	out, err := runSource(t, `print("a", "b", "c")
`, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "abc" {
		t.Fatalf("got %q", out)
	}
}
