package trace

import "testing"

func TestAddfOrder(t *testing.T) {
	tr := New()
	tr.Addf("first %d", 1)
	tr.Addf("second")
	lines := tr.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "first 1" || lines[1] != "second" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet([]byte("short"), 10); got != "short" {
		t.Fatalf("expected untouched body, got %q", got)
	}
	if got := Snippet([]byte("0123456789abcdef"), 10); got != "0123456789..." {
		t.Fatalf("expected truncated body, got %q", got)
	}
}
