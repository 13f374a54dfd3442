package ptyhub

import (
	"os/exec"
	"runtime"
	"strings"
)

// knownAgents is the whitelist foreground process names are classified
// against.
var knownAgents = map[string]bool{
	"claude": true, "gemini": true, "opencode": true, "aider": true, "codex": true,
}

// ForegroundAgent returns the classified agent name running in the
// foreground of sess's PTY, or "" if none is recognized.
func (o *Orchestrator) ForegroundAgent(sess *Session) string {
	name := o.foregroundProcessName(sess)
	if name == "" {
		return ""
	}
	if knownAgents[strings.ToLower(name)] {
		return strings.ToLower(name)
	}
	return ""
}

func (o *Orchestrator) foregroundProcessName(sess *Session) string {
	if runtime.GOOS == "windows" {
		return foregroundProcessNameWindows(sess)
	}
	return foregroundProcessNameUnix(sess)
}

func foregroundProcessNameUnix(sess *Session) string {
	pgid, err := foregroundPgid(sess)
	if err != nil || pgid <= 0 {
		return ""
	}
	out, err := exec.Command("ps", "-p", itoa(pgid), "-o", "comm=").Output()
	if err != nil {
		return ""
	}
	line := firstNonEmptyLine(string(out))
	// strip any leading path components
	if idx := strings.LastIndexByte(line, '/'); idx >= 0 {
		line = line[idx+1:]
	}
	return line
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
