package ptyhub

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/sstraus/tuicommander/internal/buffers"
	"github.com/sstraus/tuicommander/internal/outputparser"
)

// Orchestrator spawns and supervises PTY sessions against a Store.
type Orchestrator struct {
	store  *Store
	logger *slog.Logger

	// RawOutput, if set, is called with every decoded output chunk for a
	// session (the webview event-bus fan-out in spec.md §4.F).
	RawOutput func(id uuid.UUID, data string)

	// StructuredEvent is called with each parsed event (§4.C).
	StructuredEvent func(id uuid.UUID, ev outputparser.Event)

	// Question is called when the silence timer fires a question event.
	Question func(id uuid.UUID, promptText string)

	// Exit is called when a session's reader observes EOF/error.
	Exit func(id uuid.UUID)
}

// NewOrchestrator returns an orchestrator bound to store.
func NewOrchestrator(store *Store, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{store: store, logger: logger}
}

// SpawnConfig describes a shell or agent spawn request.
type SpawnConfig struct {
	Command string
	Args    []string
	Cwd     string
	Rows    int
	Cols    int
	Env     []string

	Worktree *WorktreeBinding
}

// resolveShell mirrors the teacher's shell-resolution order: explicit
// override, then $SHELL/$COMSPEC, then a platform default.
func resolveShell(explicit string) (string, []string) {
	if explicit != "" {
		return explicit, nil
	}
	if runtime.GOOS == "windows" {
		if c := os.Getenv("COMSPEC"); c != "" {
			return c, nil
		}
		return "powershell.exe", nil
	}
	if s := os.Getenv("SHELL"); s != "" {
		return s, []string{"-l"}
	}
	return "/bin/bash", []string{"-l"}
}

func defaultEnv() []string {
	env := os.Environ()
	set := func(key, val string) {
		for _, kv := range env {
			if strings.HasPrefix(kv, key+"=") {
				return
			}
		}
		env = append(env, key+"="+val)
	}
	set("TERM", "xterm-256color")
	set("COLORTERM", "truecolor")
	set("LANG", "en_US.UTF-8")
	if runtime.GOOS == "darwin" {
		env = append(env, "TERM_PROGRAM=tuicommander")
	}
	return env
}

func clampSize(rows, cols int) (int, int) {
	if rows < 24 {
		rows = 24
	}
	if cols < 80 {
		cols = 80
	}
	return rows, cols
}

// SpawnShell opens a PTY running the resolved shell.
func (o *Orchestrator) SpawnShell(cfg SpawnConfig) (*Session, error) {
	cmdName, defaultArgs := resolveShell(cfg.Command)
	args := cfg.Args
	if len(args) == 0 {
		args = defaultArgs
	}
	return o.spawn(cmdName, args, cfg)
}

// SpawnAgent opens a PTY running the resolved agent binary.
func (o *Orchestrator) SpawnAgent(agentPath string, cfg SpawnConfig) (*Session, error) {
	return o.spawn(agentPath, cfg.Args, cfg)
}

func (o *Orchestrator) spawn(command string, args []string, cfg SpawnConfig) (*Session, error) {
	if err := o.store.CheckAdmission(); err != nil {
		return nil, err
	}

	rows, cols := clampSize(cfg.Rows, cfg.Cols)

	var ptmx *os.File
	var cmd *exec.Cmd
	var err error

	for attempt := 0; attempt < 3; attempt++ {
		cmd = exec.Command(command, args...)
		cmd.Dir = cfg.Cwd
		cmd.Env = append(defaultEnv(), cfg.Env...)

		ptmx, err = pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
		if err == nil {
			break
		}
		if attempt < 2 {
			time.Sleep(time.Duration(100*(attempt+1)) * time.Millisecond)
		}
	}
	if err != nil {
		o.store.Metrics.FailedSpawns.Add(1)
		return nil, fmt.Errorf("spawn %s: %w", command, err)
	}

	sess := &Session{
		ID:        uuid.New(),
		pty:       ptmx,
		cmd:       cmd,
		rows:      rows,
		cols:      cols,
		Worktree:  cfg.Worktree,
		Cwd:       cfg.Cwd,
		Ring:      buffers.NewOutputRingBuffer(buffers.DefaultRingCapacity),
		wsClients: make(map[uint64]chan []byte),
		silence:   &silenceState{},
		done:      make(chan struct{}),
		waitDone:  make(chan struct{}),
	}

	o.store.insert(sess)
	go func() {
		_ = cmd.Wait()
		close(sess.waitDone)
	}()
	go o.readerLoop(sess)
	go o.silenceTimer(sess)

	return sess, nil
}

func (o *Orchestrator) readerLoop(sess *Session) {
	scratch := make([]byte, 4096)
	var utf8Buf buffers.Utf8ReadBuffer
	var escBuf buffers.EscapeAwareBuffer

	defer func() {
		remainder := utf8Buf.Flush()
		tail := escBuf.Push(remainder) + escBuf.Flush()
		if tail != "" {
			o.publish(sess, tail)
		}
		o.store.remove(sess.ID)
		close(sess.done)
		if o.Exit != nil {
			o.Exit(sess.ID)
		}
	}()

	for {
		for sess.paused.Load() {
			time.Sleep(10 * time.Millisecond)
		}

		n, err := sess.pty.Read(scratch)
		if n > 0 {
			o.store.Metrics.BytesEmitted.Add(int64(n))
			decoded := utf8Buf.Push(scratch[:n])
			data := escBuf.Push(decoded)
			if data != "" {
				o.publish(sess, data)
			}
		}
		if err != nil {
			return
		}
		if n == 0 {
			return
		}
	}
}

func (o *Orchestrator) publish(sess *Session, data string) {
	clean, kittyActions := buffers.StripKittySequences(data)
	_ = kittyActions // kitty keyboard-protocol actions are stripped and discarded; no per-session kitty state is kept.

	sess.Ring.Write([]byte(clean))

	// Sends happen under sess.mu so an unsubscribe or store removal cannot
	// close a channel mid-send; the sends never block.
	sess.mu.Lock()
	for _, ch := range sess.wsClients {
		select {
		case ch <- []byte(clean):
		default:
			// slow subscriber: drop rather than block the reader.
		}
	}
	sess.mu.Unlock()

	events := outputparser.Parse(clean)
	hasQuestion := false
	lastQuestionLine := ""
	for _, ev := range events {
		if o.StructuredEvent != nil {
			o.StructuredEvent(sess.ID, ev)
		}
		if ev.Kind == outputparser.EventQuestion {
			hasQuestion = true
			lastQuestionLine = ev.PromptText
		}
	}
	sess.silence.onChunk(hasQuestion, lastQuestionLine)

	if o.RawOutput != nil {
		o.RawOutput(sess.ID, clean)
	}
}

func (o *Orchestrator) silenceTimer(sess *Session) {
	ticker := time.NewTicker(silenceCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sess.done:
			return
		case <-ticker.C:
			if line, ok := sess.silence.checkSilence(); ok {
				if o.Question != nil {
					o.Question(sess.ID, line)
				}
			}
		}
	}
}

// Write sends input bytes to the PTY master.
func (o *Orchestrator) Write(sess *Session, data []byte) (int, error) {
	return sess.pty.Write(data)
}

// Resize validates bounds and resizes the PTY.
func (o *Orchestrator) Resize(sess *Session, rows, cols int) error {
	if rows < 1 || rows > 500 || cols < 1 || cols > 500 {
		return fmt.Errorf("invalid terminal size %dx%d", rows, cols)
	}
	sess.rows, sess.cols = rows, cols
	return pty.Setsize(sess.pty, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Pause sets the paused flag observed by the reader loop before every read.
func (o *Orchestrator) Pause(sess *Session) {
	if !sess.paused.Swap(true) {
		o.store.Metrics.PausesTriggered.Add(1)
	}
}

// Resume clears the paused flag.
func (o *Orchestrator) Resume(sess *Session) {
	sess.paused.Store(false)
}

// Subscribe registers a WS subscriber channel and returns it along with an
// unsubscribe function.
func (o *Orchestrator) Subscribe(sess *Session) (<-chan []byte, func()) {
	sess.mu.Lock()
	id := sess.nextWsID
	sess.nextWsID++
	ch := make(chan []byte, 64)
	sess.wsClients[id] = ch
	sess.mu.Unlock()

	return ch, func() {
		sess.mu.Lock()
		if existing, ok := sess.wsClients[id]; ok {
			delete(sess.wsClients, id)
			close(existing)
		}
		sess.mu.Unlock()
	}
}

// Close ends the session: writes Ctrl-C, waits up to 100 ms for exit, kills
// the child if it is still running, then closes the PTY. Best-effort
// worktree cleanup is left to the caller, which has access to the worktree
// engine.
func (o *Orchestrator) Close(sess *Session) {
	_, _ = sess.pty.Write([]byte{0x03})

	select {
	case <-sess.waitDone:
	case <-time.After(100 * time.Millisecond):
		if sess.cmd.Process != nil {
			_ = sess.cmd.Process.Kill()
		}
	}
	_ = sess.pty.Close()
}
