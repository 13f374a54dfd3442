// Package worktree implements the git worktree engine: name generation,
// create/remove/archive/merge, and orphan detection (spec.md §4.G).
package worktree

import (
	"fmt"
	"strings"
	"time"
)

var adjectives = [...]string{
	"brave", "calm", "dark", "eager", "fair", "glad", "happy", "keen",
	"lush", "mild", "neat", "proud", "quick", "rare", "safe", "tall",
	"vast", "warm", "wise", "bold", "cool", "deep", "fast", "gold",
	"huge", "iron", "jade", "kind", "lean", "mint", "nova", "open",
	"pale", "red", "slim", "tidy", "ultra", "vivid", "wild", "zen",
}

var sciFiNames = [...]string{
	"neo", "ripley", "deckard", "morpheus", "trinity", "cypher", "nexus", "cortex",
	"tron", "hal", "skynet", "muad", "atreides", "harkonnen", "seldon", "daneel",
	"solaris", "neuro", "winter", "armitage", "molly", "case", "hiro", "kovacs",
	"takeshi", "quell", "pris", "batty", "zhora", "gaff", "tyrell", "gibson",
	"asimov", "vance", "rama", "ender", "bean", "valentine", "petra", "revan",
}

// SanitizeName keeps ASCII alphanumerics, '-' and '_'; everything else
// (including Unicode letters) becomes '-'. The result is lowercased.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return strings.ToLower(b.String())
}

func contains(existing []string, name string) bool {
	for _, e := range existing {
		if e == name {
			return true
		}
	}
	return false
}

// GenerateWorktreeName draws an adjective and a sci-fi-character noun plus a
// 0-999 index, retrying up to 100 times against existing before falling back
// to a timestamp-seeded name.
func GenerateWorktreeName(existing []string) string {
	seed := uint64(time.Now().UnixNano())
	for attempt := uint64(0); attempt < 100; attempt++ {
		adjIdx := (seed + attempt*7) % uint64(len(adjectives))
		nameIdx := (seed + attempt*13 + 3) % uint64(len(sciFiNames))
		num := (seed + attempt*31) % 1000
		name := fmt.Sprintf("%s-%s-%03d", adjectives[adjIdx], sciFiNames[nameIdx], num)
		if !contains(existing, name) {
			return name
		}
	}
	return fmt.Sprintf("worktree-%d", seed%10000)
}

// GenerateCloneBranchName builds "{sanitize(source)}--{random}", retrying up
// to 100 times against existing, falling back to a timestamp suffix. The
// double-dash separator lets the UI later split the source branch back out.
func GenerateCloneBranchName(sourceBranch string, existing []string) string {
	sanitized := SanitizeName(sourceBranch)
	for i := 0; i < 100; i++ {
		random := GenerateWorktreeName(existing)
		name := sanitized + "--" + random
		if !contains(existing, name) {
			return name
		}
	}
	ts := uint64(time.Now().UnixMilli())
	return fmt.Sprintf("%s--wt-%d", sanitized, ts%100000)
}
