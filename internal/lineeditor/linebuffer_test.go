package lineeditor

import "testing"

func feedString(b *InputLineBuffer, s string) []InputAction {
	return b.FeedBytes([]byte(s))
}

func TestInputLineBufferEmitsLineOnEnter(t *testing.T) {
	b := New()
	actions := feedString(b, "hello\r")
	if len(actions) != 1 || actions[0].Kind != ActionLine || actions[0].Line != "hello" {
		t.Fatalf("got %+v", actions)
	}
	if b.Cursor() != 0 || len(b.Chars()) != 0 {
		t.Fatalf("expected buffer reset after Line, cursor=%d chars=%v", b.Cursor(), b.Chars())
	}
}

func TestInputLineBufferInterruptClearsBuffer(t *testing.T) {
	b := New()
	feedString(b, "partial")
	actions := feedString(b, "\x03")
	if len(actions) != 1 || actions[0].Kind != ActionInterrupt {
		t.Fatalf("got %+v", actions)
	}
	if b.Cursor() != 0 || len(b.Chars()) != 0 {
		t.Fatalf("expected reset after interrupt")
	}
}

func TestInputLineBufferBackspaceAndCursorMotion(t *testing.T) {
	b := New()
	feedString(b, "abcd")
	feedString(b, "\x02\x02") // Ctrl-B twice: cursor at 2
	feedString(b, "\x7f")     // backspace: removes 'b'
	actions := feedString(b, "\r")
	if actions[0].Line != "acd" {
		t.Fatalf("got line %q", actions[0].Line)
	}
}

func TestInputLineBufferShiftEnterInsertsNewline(t *testing.T) {
	b := New()
	actions := feedString(b, "ab\x1b[13;2ucd\r")
	if len(actions) != 1 || actions[0].Line != "ab\ncd" {
		t.Fatalf("got %+v", actions)
	}
}

func TestInputLineBufferCtrlWDeletesWordBackward(t *testing.T) {
	b := New()
	feedString(b, "git commit")
	feedString(b, "\x17") // Ctrl-W: delete "commit"
	actions := feedString(b, "\r")
	if actions[0].Line != "git " {
		t.Fatalf("got %q", actions[0].Line)
	}
}

func TestInputLineBufferHomeEnd(t *testing.T) {
	b := New()
	feedString(b, "hello")
	feedString(b, "\x01") // Ctrl-A: home
	if b.Cursor() != 0 {
		t.Fatalf("expected cursor 0, got %d", b.Cursor())
	}
	feedString(b, "\x05") // Ctrl-E: end
	if b.Cursor() != 5 {
		t.Fatalf("expected cursor 5, got %d", b.Cursor())
	}
}
