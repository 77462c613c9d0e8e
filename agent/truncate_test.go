package agent

import (
	"strings"
	"testing"
)

func TestTruncateOutputUnderLimitUntouched(t *testing.T) {
	out := TruncateOutput("short", 100, TruncateHeadTail)
	if out != "short" {
		t.Errorf("got %q, want unchanged input", out)
	}
}

func TestTruncateOutputHeadTailKeepsBothEnds(t *testing.T) {
	input := strings.Repeat("a", 50) + strings.Repeat("z", 50)
	out := TruncateOutput(input, 20, TruncateHeadTail)

	if !strings.HasPrefix(out, strings.Repeat("a", 10)) {
		t.Errorf("head not preserved: %q", out[:20])
	}
	if !strings.HasSuffix(out, strings.Repeat("z", 10)) {
		t.Errorf("tail not preserved: %q", out[len(out)-20:])
	}
	if !strings.Contains(out, "truncated") {
		t.Error("missing truncation marker")
	}
}

func TestTruncateOutputTailKeepsEnd(t *testing.T) {
	input := strings.Repeat("a", 50) + strings.Repeat("z", 50)
	out := TruncateOutput(input, 20, TruncateTail)

	if !strings.HasSuffix(out, strings.Repeat("z", 20)) {
		t.Errorf("tail not preserved: %q", out)
	}
	if strings.Contains(strings.TrimPrefix(out, "[WARNING"), "aaaa") {
		t.Errorf("head should be dropped in tail mode: %q", out)
	}
}

func TestTruncateToolOutputUsesPerToolLimits(t *testing.T) {
	input := strings.Repeat("x", 2000)
	out := TruncateToolOutput(input, "write_file", nil)
	if len(out) >= len(input) {
		t.Errorf("write_file output not truncated at its limit: %d chars", len(out))
	}

	// read_file allows far more.
	if got := TruncateToolOutput(input, "read_file", nil); got != input {
		t.Error("read_file output truncated below its limit")
	}
}

func TestTruncateToolOutputOverrideLimits(t *testing.T) {
	input := strings.Repeat("x", 100)
	out := TruncateToolOutput(input, "read_file", map[string]int{"read_file": 10})
	if len(out) >= 100 {
		t.Errorf("override limit ignored: %d chars", len(out))
	}
}

func TestTruncateForRecord(t *testing.T) {
	if got := truncateForRecord("abc", 10); got != "abc" {
		t.Errorf("short input changed: %q", got)
	}
	got := truncateForRecord(strings.Repeat("x", 600), 500)
	if !strings.HasSuffix(got, "... [truncated]") {
		t.Errorf("missing record truncation suffix: %q", got[len(got)-30:])
	}
	if len(got) != 500+len("... [truncated]") {
		t.Errorf("unexpected length %d", len(got))
	}
}

func TestTruncateWithMarker(t *testing.T) {
	if got := truncateWithMarker("abc", 10); got != "abc" {
		t.Errorf("short input changed: %q", got)
	}
	got := truncateWithMarker(strings.Repeat("x", 100), 10)
	if !strings.Contains(got, "10 of 100 bytes shown") {
		t.Errorf("marker missing byte counts: %q", got)
	}
}
