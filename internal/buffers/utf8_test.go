package buffers

import "testing"

func TestUtf8ReadBufferSplitRune(t *testing.T) {
	var buf Utf8ReadBuffer

	first := buf.Push([]byte{0xE2})
	if first != "" {
		t.Fatalf("expected empty prefix, got %q", first)
	}

	second := buf.Push([]byte{0x82, 0xAC})
	if second != "€" {
		t.Fatalf("expected euro sign, got %q", second)
	}

	if buf.Flush() != "" {
		t.Fatalf("expected no residue after a complete rune")
	}
}

func TestUtf8ReadBufferConcatenation(t *testing.T) {
	whole := "hello € world \U0001F600!"
	var direct Utf8ReadBuffer
	want := direct.Push([]byte(whole))

	for split := 0; split <= len(whole); split++ {
		var buf Utf8ReadBuffer
		got := buf.Push([]byte(whole[:split])) + buf.Push([]byte(whole[split:]))
		if got != want {
			t.Fatalf("split at %d: got %q want %q", split, got, want)
		}
	}
}

func TestUtf8ReadBufferInvalidByte(t *testing.T) {
	var buf Utf8ReadBuffer
	got := buf.Push([]byte{'a', 0xFF, 'b'})
	want := "a�b"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestUtf8ReadBufferNeverPanics(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0x80},
		{0xC0},
		{0xED, 0xA0, 0x80},
		{0xF4, 0x90, 0x80, 0x80},
	}
	for _, in := range inputs {
		var buf Utf8ReadBuffer
		buf.Push(in)
		buf.Flush()
	}
}
