package buffers

import "testing"

func TestEscapeAwareBufferSplitCSI(t *testing.T) {
	var buf EscapeAwareBuffer

	first := buf.Push("content\x1b[")
	if first != "content" {
		t.Fatalf("got %q want %q", first, "content")
	}

	second := buf.Push("Cmore")
	if second != "\x1b[Cmore" {
		t.Fatalf("got %q want %q", second, "\x1b[Cmore")
	}
}

func TestEscapeAwareBufferRoundTrip(t *testing.T) {
	whole := "plain \x1b[31mred\x1b[0m \x1b]0;title\x07 done"
	for split := 0; split <= len(whole); split++ {
		var buf EscapeAwareBuffer
		out := buf.Push(whole[:split]) + buf.Push(whole[split:]) + buf.Flush()
		if out != whole {
			t.Fatalf("split at %d: got %q want %q", split, out, whole)
		}
	}
}

func TestEscapeAwareBufferOversizedCarryEmitsRaw(t *testing.T) {
	var buf EscapeAwareBuffer
	junk := "\x1b[" + string(make([]byte, maxEscapeCarry+10))
	out := buf.Push(junk)
	if out != junk {
		t.Fatalf("expected oversized unterminated sequence emitted raw")
	}
	if buf.Flush() != "" {
		t.Fatalf("expected no carry left after raw emission")
	}
}
