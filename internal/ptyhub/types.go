// Package ptyhub owns every PTY session: the concurrent session store, the
// spawn/reader/silence-timer orchestration, and flow control.
package ptyhub

import (
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sstraus/tuicommander/internal/buffers"
)

// MaxConcurrentSessions is the admission cap on live PTY sessions.
const MaxConcurrentSessions = 50

// WorktreeBinding is the subset of worktree info a session may be bound to,
// used for best-effort cleanup on close.
type WorktreeBinding struct {
	Name string
	Path string
}

// Session is one PTY-backed process: its master handle, child process, and
// the output plumbing hung off of it.
type Session struct {
	ID uuid.UUID

	pty   *os.File
	cmd   *exec.Cmd
	rows  int
	cols  int

	paused atomic.Bool

	Worktree *WorktreeBinding
	Cwd      string

	Ring *buffers.OutputRingBuffer

	mu        sync.Mutex
	wsClients map[uint64]chan []byte
	nextWsID  uint64

	silence *silenceState

	done     chan struct{}
	waitDone chan struct{}
}

// IsPaused reports whether the session's reader loop is currently paused.
func (s *Session) IsPaused() bool {
	return s.paused.Load()
}

// Metrics are process-wide atomic counters.
type Metrics struct {
	TotalSpawned    atomic.Int64
	FailedSpawns    atomic.Int64
	ActiveSessions  atomic.Int64
	BytesEmitted    atomic.Int64
	PausesTriggered atomic.Int64
}

const (
	silenceCheckInterval     = 1 * time.Second
	silenceQuestionThreshold = 5 * time.Second
)

// silenceState implements the "silence-based question detector" shared
// between a session's reader goroutine and its timer goroutine.
type silenceState struct {
	mu           sync.Mutex
	lastOutputAt time.Time
	pending      string
	hasPending   bool
	emitted      bool
}

func (s *silenceState) onChunk(regexFoundQuestion bool, lastQuestionLine string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOutputAt = time.Now()
	switch {
	case regexFoundQuestion:
		s.hasPending = false
		s.emitted = true
	case lastQuestionLine != "":
		s.pending = lastQuestionLine
		s.hasPending = true
		s.emitted = false
	default:
		s.hasPending = false
	}
}

// checkSilence returns (line, true) exactly once per pending question, when
// the silence threshold has elapsed.
func (s *silenceState) checkSilence() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasPending && !s.emitted && time.Since(s.lastOutputAt) >= silenceQuestionThreshold {
		s.emitted = true
		return s.pending, true
	}
	return "", false
}
