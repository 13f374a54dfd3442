// Package outputparser scans decoded PTY output for structured events:
// questions, rate-limit warnings, status lines, PR urls, progress
// notifications, and usage-limit warnings.
package outputparser

import (
	"regexp"
	"strconv"
	"strings"
)

// EventKind identifies the tagged-union variant of an Event.
type EventKind string

const (
	EventPlanFile   EventKind = "plan_file"
	EventRateLimit  EventKind = "rate_limit"
	EventStatusLine EventKind = "status_line"
	EventPrURL      EventKind = "pr_url"
	EventProgress   EventKind = "progress"
	EventQuestion   EventKind = "question"
	EventUsageLimit EventKind = "usage_limit"
)

// Event is one structured event emitted by the parser.
type Event struct {
	Kind EventKind

	// PlanFile
	Path string

	// RateLimit
	PatternName   string
	MatchedText   string
	RetryAfterMs  int

	// StatusLine
	TaskName string
	FullLine string
	TimeInfo string
	HasTime  bool
	TokenInfo string
	HasTokens bool

	// PrURL
	Number   int
	URL      string
	Platform string

	// Progress
	State int
	Value int

	// Question
	PromptText string

	// UsageLimit
	Percentage int
	LimitType  string
}

var (
	planFileRe = regexp.MustCompile(`(?i)(?:^|[\s"'(])((?:plans?|\.\w+/plans)/[\w./-]+\.md)`)

	rateLimitPatterns = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"claude-http-429", regexp.MustCompile(`\b429\b`)},
		{"overloaded", regexp.MustCompile(`(?i)overloaded`)},
		{"openai-429", regexp.MustCompile(`(?i)rate limit`)},
		{"cursor", regexp.MustCompile(`(?i)cursor.{0,20}rate.?limit`)},
		{"gemini-resource-exhausted", regexp.MustCompile(`ResourceExhausted`)},
		{"retry-after", regexp.MustCompile(`(?i)retry-after`)},
	}

	statusLineRe = regexp.MustCompile(`(?m)^(?:[✢✳✶✻·*]\s*)?([A-Z][\w\s]{1,40}?)(?:\.{3}|…)\s*(?:\(([\d.]+s)?\s*(?:·\s*)?(↓?\d+k?\s*tokens)?\s*\))?\s*$`)

	prURLRe = regexp.MustCompile(`github\.com/([\w.-]+)/([\w.-]+)/pull/(\d+)|gitlab\.[\w.-]+/([\w./-]+)/-/merge_requests/(\d+)`)

	usageLimitRe = regexp.MustCompile(`(?i)(\d{1,3})%\s+of\s+(weekly|session)\s+usage`)

	questionRe = regexp.MustCompile(`(?m)^.{0,200}\?\s*$`)
)

// Parse scans s and returns the events it finds. Parse does not strip ANSI
// escape sequences, and the orchestrator passes it output with only kitty
// keyboard sequences removed; the progress rule reads OSC 9;4 sequences
// from s. Events are grouped by rule, not in input order: plan files, rate
// limits (first match per pattern), status lines, PR urls, progress, usage
// limits, then questions, each group in input order.
func Parse(s string) []Event {
	var events []Event

	for _, m := range planFileRe.FindAllStringSubmatch(s, -1) {
		events = append(events, Event{Kind: EventPlanFile, Path: m[1]})
	}

	for _, p := range rateLimitPatterns {
		if loc := p.re.FindStringIndex(s); loc != nil {
			events = append(events, Event{
				Kind:         EventRateLimit,
				PatternName:  p.name,
				MatchedText:  s[loc[0]:loc[1]],
				RetryAfterMs: 60000,
			})
		}
	}

	for _, m := range statusLineRe.FindAllStringSubmatch(s, -1) {
		ev := Event{Kind: EventStatusLine, TaskName: strings.TrimSpace(m[1]), FullLine: m[0]}
		if m[2] != "" {
			ev.TimeInfo, ev.HasTime = m[2], true
		}
		if m[3] != "" {
			ev.TokenInfo, ev.HasTokens = m[3], true
		}
		events = append(events, ev)
	}

	for _, m := range prURLRe.FindAllStringSubmatch(s, -1) {
		if m[3] != "" {
			n, _ := strconv.Atoi(m[3])
			events = append(events, Event{Kind: EventPrURL, Number: n, URL: m[0], Platform: "github"})
		} else if m[5] != "" {
			n, _ := strconv.Atoi(m[5])
			events = append(events, Event{Kind: EventPrURL, Number: n, URL: m[0], Platform: "gitlab"})
		}
	}

	for _, ev := range parseProgress(s) {
		events = append(events, ev)
	}

	for _, m := range usageLimitRe.FindAllStringSubmatch(s, -1) {
		pct, _ := strconv.Atoi(m[1])
		events = append(events, Event{Kind: EventUsageLimit, Percentage: pct, LimitType: m[2]})
	}

	for _, m := range questionRe.FindAllString(s, -1) {
		events = append(events, Event{Kind: EventQuestion, PromptText: strings.TrimSpace(m)})
	}

	return events
}

// parseProgress scans for OSC 9;4 progress sequences:
// ESC ] 9 ; 4 ; <state> ; <value> BEL|ST
func parseProgress(data string) []Event {
	var events []Event
	i := 0
	for i < len(data) {
		if i+1 < len(data) && data[i] == 0x1b && data[i+1] == ']' {
			start := i + 2
			end := -1
			for j := start; j < len(data); j++ {
				if data[j] == 0x07 {
					end = j
					break
				}
				if j+1 < len(data) && data[j] == 0x1b && data[j+1] == '\\' {
					end = j
					break
				}
			}
			if end != -1 {
				content := data[start:end]
				if strings.HasPrefix(content, "9;4;") {
					parts := strings.Split(content, ";")
					if len(parts) >= 4 {
						state, _ := strconv.Atoi(parts[2])
						value, _ := strconv.Atoi(parts[3])
						events = append(events, Event{Kind: EventProgress, State: state, Value: value})
					}
				}
				i = end + 1
				continue
			}
		}
		i++
	}
	return events
}
