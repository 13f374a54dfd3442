// Package lineeditor reconstructs user input from raw keystrokes the way an
// agent session's stdin replay needs it: readline-style editing state
// without ever echoing to a real terminal.
package lineeditor

import (
	"strings"
	"unicode"
)

// ActionKind enumerates the actions InputLineBuffer.Feed can emit.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionLine
	ActionInterrupt
)

// InputAction is a zero-or-more-per-feed result of InputLineBuffer.Feed.
type InputAction struct {
	Kind ActionKind
	Line string
}

type escState int

const (
	stateNormal escState = iota
	stateEsc
	stateCsi
	stateSs3
)

// InputLineBuffer replays keystrokes into a current line + cursor, emitting
// InputAction values as lines are submitted or interrupted.
type InputLineBuffer struct {
	chars  []rune
	cursor int

	state      escState
	csiParams  strings.Builder
}

// New returns an empty InputLineBuffer.
func New() *InputLineBuffer {
	return &InputLineBuffer{}
}

// Feed processes one byte and returns zero or more actions.
func (b *InputLineBuffer) Feed(c byte) []InputAction {
	switch b.state {
	case stateEsc:
		return b.feedEsc(c)
	case stateCsi:
		return b.feedCsi(c)
	case stateSs3:
		return b.feedSs3(c)
	default:
		return b.feedNormal(c)
	}
}

// FeedBytes processes a byte slice in order, concatenating all actions.
func (b *InputLineBuffer) FeedBytes(bs []byte) []InputAction {
	var out []InputAction
	for _, c := range bs {
		out = append(out, b.Feed(c)...)
	}
	return out
}

// Cursor returns the current cursor index (character, not byte).
func (b *InputLineBuffer) Cursor() int { return b.cursor }

// Chars returns a copy of the current line's characters.
func (b *InputLineBuffer) Chars() []rune {
	out := make([]rune, len(b.chars))
	copy(out, b.chars)
	return out
}

func (b *InputLineBuffer) resetLine() {
	b.chars = nil
	b.cursor = 0
}

func (b *InputLineBuffer) insert(r rune) {
	b.chars = append(b.chars, 0)
	copy(b.chars[b.cursor+1:], b.chars[b.cursor:])
	b.chars[b.cursor] = r
	b.cursor++
}

func (b *InputLineBuffer) backspace() {
	if b.cursor == 0 {
		return
	}
	b.chars = append(b.chars[:b.cursor-1], b.chars[b.cursor:]...)
	b.cursor--
}

func (b *InputLineBuffer) deleteAtCursor() {
	if b.cursor >= len(b.chars) {
		return
	}
	b.chars = append(b.chars[:b.cursor], b.chars[b.cursor+1:]...)
}

func (b *InputLineBuffer) killToEnd() {
	b.chars = b.chars[:b.cursor]
}

func (b *InputLineBuffer) killToStart() {
	b.chars = append([]rune(nil), b.chars[b.cursor:]...)
	b.cursor = 0
}

func (b *InputLineBuffer) transpose() {
	n := len(b.chars)
	if n < 2 {
		return
	}
	i := b.cursor
	if i >= n {
		i = n - 1
	}
	if i < 1 {
		return
	}
	b.chars[i-1], b.chars[i] = b.chars[i], b.chars[i-1]
	if b.cursor < n {
		b.cursor++
	}
}

func (b *InputLineBuffer) deleteWordBackward() {
	i := b.cursor
	for i > 0 && unicode.IsSpace(b.chars[i-1]) {
		i--
	}
	for i > 0 && !unicode.IsSpace(b.chars[i-1]) {
		i--
	}
	b.chars = append(b.chars[:i], b.chars[b.cursor:]...)
	b.cursor = i
}

func (b *InputLineBuffer) deleteWordForward() {
	i := b.cursor
	n := len(b.chars)
	for i < n && unicode.IsSpace(b.chars[i]) {
		i++
	}
	for i < n && !unicode.IsSpace(b.chars[i]) {
		i++
	}
	b.chars = append(b.chars[:b.cursor], b.chars[i:]...)
}

func (b *InputLineBuffer) moveWordBackward() {
	i := b.cursor
	for i > 0 && unicode.IsSpace(b.chars[i-1]) {
		i--
	}
	for i > 0 && !unicode.IsSpace(b.chars[i-1]) {
		i--
	}
	b.cursor = i
}

func (b *InputLineBuffer) moveWordForward() {
	i := b.cursor
	n := len(b.chars)
	for i < n && unicode.IsSpace(b.chars[i]) {
		i++
	}
	for i < n && !unicode.IsSpace(b.chars[i]) {
		i++
	}
	b.cursor = i
}

func (b *InputLineBuffer) feedNormal(c byte) []InputAction {
	switch c {
	case '\r', '\n':
		line := string(b.chars)
		b.resetLine()
		return []InputAction{{Kind: ActionLine, Line: line}}
	case 0x7F, 0x08: // DEL / Ctrl+H
		b.backspace()
	case 0x01: // Ctrl+A
		b.cursor = 0
	case 0x05: // Ctrl+E
		b.cursor = len(b.chars)
	case 0x02: // Ctrl+B
		if b.cursor > 0 {
			b.cursor--
		}
	case 0x06: // Ctrl+F
		if b.cursor < len(b.chars) {
			b.cursor++
		}
	case 0x03: // Ctrl+C
		b.resetLine()
		return []InputAction{{Kind: ActionInterrupt}}
	case 0x04: // Ctrl+D
		b.deleteAtCursor()
	case 0x0B: // Ctrl+K
		b.killToEnd()
	case 0x15: // Ctrl+U
		b.killToStart()
	case 0x14: // Ctrl+T
		b.transpose()
	case 0x17: // Ctrl+W
		b.deleteWordBackward()
	case 0x0C: // Ctrl+L
		// noop: screen clear, buffer persists
	case 0x19, 0x0E, 0x10, 0x12, 0x13, 0x09: // Ctrl+Y/N/P/R/S/Tab
		// noop
	case 0x1B:
		b.state = stateEsc
	default:
		if c >= 0x20 {
			b.insert(rune(c))
		}
	}
	return nil
}

func (b *InputLineBuffer) feedEsc(c byte) []InputAction {
	b.state = stateNormal
	switch c {
	case '[':
		b.state = stateCsi
		b.csiParams.Reset()
	case 'O':
		b.state = stateSs3
	case '\r':
		b.insert('\n')
	case 'b':
		b.moveWordBackward()
	case 'f':
		b.moveWordForward()
	case 'd':
		b.deleteWordForward()
	case 0x7F:
		b.deleteWordBackward()
	default:
		// noop
	}
	return nil
}

func (b *InputLineBuffer) feedCsi(c byte) []InputAction {
	if (c >= '0' && c <= '9') || c == ';' {
		b.csiParams.WriteByte(c)
		return nil
	}

	params := b.csiParams.String()
	b.csiParams.Reset()
	b.state = stateNormal

	switch c {
	case 'A', 'B':
		// history navigation: source can't track replacement
	case 'C':
		if params == "1;5" || params == "1;3" {
			b.moveWordForward()
		} else {
			if b.cursor < len(b.chars) {
				b.cursor++
			}
		}
	case 'D':
		if params == "1;5" || params == "1;3" {
			b.moveWordBackward()
		} else if b.cursor > 0 {
			b.cursor--
		}
	case 'H':
		b.cursor = 0
	case 'F':
		b.cursor = len(b.chars)
	case '~':
		switch params {
		case "1":
			b.cursor = 0
		case "3":
			b.deleteAtCursor()
		case "4":
			b.cursor = len(b.chars)
		case "5", "6", "2":
			// noop
		}
	case 'u':
		codepoint := 0
		for _, p := range strings.Split(params, ";") {
			if p == "" {
				continue
			}
			n := 0
			for _, d := range p {
				if d < '0' || d > '9' {
					n = -1
					break
				}
				n = n*10 + int(d-'0')
			}
			codepoint = n
			break
		}
		switch codepoint {
		case 13:
			b.insert('\n')
		case 127:
			b.backspace()
		case 27, 9:
			// noop
		}
	}
	return nil
}

func (b *InputLineBuffer) feedSs3(c byte) []InputAction {
	b.state = stateNormal
	switch c {
	case 'C':
		if b.cursor < len(b.chars) {
			b.cursor++
		}
	case 'D':
		if b.cursor > 0 {
			b.cursor--
		}
	case 'H':
		b.cursor = 0
	case 'F':
		b.cursor = len(b.chars)
	case 'A', 'B':
		// noop
	}
	return nil
}
