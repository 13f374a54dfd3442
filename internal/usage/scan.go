package usage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ProjectsDir returns ~/.claude/projects, the directory Claude Code writes
// session transcripts under.
func ProjectsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "projects"), nil
}

// ResolveSlugToPath reconstructs a filesystem path from a Claude Code project
// slug. Claude Code builds slugs by replacing `/`, `.`, `_` and other special
// characters in the original working directory path with `-`, which is
// ambiguous to invert — so this greedily matches runs of atoms against real
// directories on disk, preferring the longest match at each step and falling
// back to a single dash-joined atom (even if it no longer exists) when
// nothing on disk matches.
func ResolveSlugToPath(slug string) string {
	raw := strings.TrimPrefix(slug, "-")
	atoms := strings.Split(raw, "-")
	if len(atoms) == 0 || (len(atoms) == 1 && atoms[0] == "") {
		return ""
	}

	path := "/"
	i := 0
	for i < len(atoms) {
		found := false
		maxLen := len(atoms) - i
		if maxLen > 8 {
			maxLen = 8
		}

		for length := maxLen; length >= 1; length-- {
			segment := atoms[i : i+length]
			for _, sep := range []string{"-", ".", "_"} {
				candidate := strings.Join(segment, sep)
				candidatePath := filepath.Join(path, candidate)
				if _, err := os.Stat(candidatePath); err == nil {
					path = candidatePath
					i += length
					found = true
					break
				}
			}
			if found {
				break
			}
			if length == 1 {
				// Single-atom fallback: accept even if it doesn't exist,
				// since it may be the final segment or a deleted directory.
				path = filepath.Join(path, atoms[i])
				i++
				found = true
				break
			}
		}

		if !found {
			// Unreachable given the length==1 fallback above, kept for safety.
			path = filepath.Join(path, atoms[i])
			i++
		}
	}

	return path
}

// Scan lists scope-matching project directories under the Claude Code
// projects dir, incrementally parses any grown/new JSONL transcripts, prunes
// deleted projects/files from the cache, persists the cache if it changed,
// and returns aggregated stats. scope is "all" for every project or a
// specific project slug.
func (c *Cache) Scan(scope string) (*SessionStats, error) {
	projectsDir, err := ProjectsDir()
	if err != nil {
		return nil, err
	}

	result := newSessionStats()
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("read projects dir: %w", err)
	}

	existingSlugs := make(map[string]bool, len(entries))
	var projectDirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		existingSlugs[e.Name()] = true
		projectDirs = append(projectDirs, e.Name())
	}

	cache := c.snapshot()
	dirty := false

	for slug := range cache {
		if !existingSlugs[slug] {
			delete(cache, slug)
			dirty = true
		}
	}

	var filtered []string
	for _, slug := range projectDirs {
		if scope == "all" || scope == slug {
			filtered = append(filtered, slug)
		}
	}

	for _, slug := range filtered {
		dir := filepath.Join(projectsDir, slug)
		projectFiles, ok := cache[slug]
		if !ok {
			projectFiles = make(map[string]*FileStats)
			cache[slug] = projectFiles
		}

		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		existingFiles := make(map[string]bool, len(dirEntries))
		var jsonlFiles []string
		for _, de := range dirEntries {
			if de.IsDir() || filepath.Ext(de.Name()) != ".jsonl" {
				continue
			}
			existingFiles[de.Name()] = true
			jsonlFiles = append(jsonlFiles, de.Name())
		}

		for name := range projectFiles {
			if !existingFiles[name] {
				delete(projectFiles, name)
				dirty = true
			}
		}

		for _, name := range jsonlFiles {
			path := filepath.Join(dir, name)
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			currentSize := info.Size()

			cached := projectFiles[name]
			// A file that has messages but no hourly data predates hourly
			// bucketing — force a full reparse so hourly_tokens backfills.
			needsMigration := cached != nil && cached.AssistantMessageCount > 0 && len(cached.HourlyTokens) == 0

			switch {
			case cached != nil && int64(cached.FileSize) == currentSize && !needsMigration:
				continue
			case cached != nil && currentSize > int64(cached.FileSize) && !needsMigration:
				if _, err := parseJSONLFileFromOffset(path, int64(cached.FileSize), cached); err != nil {
					c.logger.Warn("error parsing transcript", "path", path, "error", err)
					continue
				}
				dirty = true
			default:
				// New file, or the existing file shrank/was rewritten —
				// full reparse from scratch either way.
				stats := newFileStats()
				if _, err := parseJSONLFileFromOffset(path, 0, stats); err != nil {
					c.logger.Warn("error parsing transcript", "path", path, "error", err)
					continue
				}
				projectFiles[name] = stats
				dirty = true
			}
		}
	}

	if dirty {
		c.replace(cache)
	}

	allActiveHours := make(map[string]struct{})

	for _, slug := range filtered {
		projectFiles, ok := cache[slug]
		if !ok {
			continue
		}
		proj := &ProjectStats{}
		projectSessions := make(map[string]struct{})

		for _, fs := range projectFiles {
			result.TotalInputTokens += fs.TotalInputTokens
			result.TotalOutputTokens += fs.TotalOutputTokens
			result.TotalCacheCreationTokens += fs.TotalCacheCreationTokens
			result.TotalCacheReadTokens += fs.TotalCacheReadTokens
			result.TotalAssistantMessages += fs.AssistantMessageCount
			result.TotalUserMessages += fs.UserMessageCount

			proj.InputTokens += fs.TotalInputTokens
			proj.OutputTokens += fs.TotalOutputTokens
			proj.AssistantMessageCount += fs.AssistantMessageCount
			proj.UserMessageCount += fs.UserMessageCount

			for model, tokens := range fs.ModelUsage {
				entry := result.ModelUsage[model]
				if entry == nil {
					entry = &ModelTokens{}
					result.ModelUsage[model] = entry
				}
				entry.InputTokens += tokens.InputTokens
				entry.OutputTokens += tokens.OutputTokens
				entry.CacheCreationTokens += tokens.CacheCreationTokens
				entry.CacheReadTokens += tokens.CacheReadTokens
				entry.MessageCount += tokens.MessageCount
			}

			for date, day := range fs.DailyActivity {
				entry := result.DailyActivity[date]
				if entry == nil {
					entry = &DayStats{}
					result.DailyActivity[date] = entry
				}
				entry.InputTokens += day.InputTokens
				entry.OutputTokens += day.OutputTokens
				entry.MessageCount += day.MessageCount

				projDaily, ok := result.PerProjectDaily[slug]
				if !ok {
					projDaily = make(map[string]*DayStats)
					result.PerProjectDaily[slug] = projDaily
				}
				pd := projDaily[date]
				if pd == nil {
					pd = &DayStats{}
					projDaily[date] = pd
				}
				pd.InputTokens += day.InputTokens
				pd.OutputTokens += day.OutputTokens
				pd.MessageCount += day.MessageCount
			}

			for hour := range fs.HourlyTokens {
				allActiveHours[hour] = struct{}{}
			}
			for sid := range fs.SessionIDs {
				projectSessions[sid] = struct{}{}
			}
		}

		proj.SessionCount = uint32(len(projectSessions))
		result.PerProject[slug] = proj
	}

	for _, proj := range result.PerProject {
		result.TotalSessions += proj.SessionCount
	}
	result.ActiveHours = uint32(len(allActiveHours))

	return result, nil
}

// Timeline aggregates hourly token usage across scope-matching projects for
// the trailing `days` window (default 7 when days <= 0).
func (c *Cache) Timeline(scope string, days int, now time.Time) []TimelinePoint {
	if days <= 0 {
		days = 7
	}
	cutoffKey := now.Add(-time.Duration(days) * 24 * time.Hour).UTC().Format("2006-01-02T15")

	cache := c.snapshot()
	hourly := make(map[string][2]uint64)

	for slug, files := range cache {
		if scope != "all" && scope != slug {
			continue
		}
		for _, fs := range files {
			for hour, tokens := range fs.HourlyTokens {
				if hour < cutoffKey {
					continue
				}
				entry := hourly[hour]
				entry[0] += tokens.InputTokens
				entry[1] += tokens.OutputTokens
				hourly[hour] = entry
			}
		}
	}

	points := make([]TimelinePoint, 0, len(hourly))
	for hour, tokens := range hourly {
		points = append(points, TimelinePoint{Hour: hour, InputTokens: tokens[0], OutputTokens: tokens[1]})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Hour < points[j].Hour })
	return points
}

// ProjectList lists every project slug with at least one JSONL transcript,
// sorted by session count descending, for the scope-selector dropdown.
func ProjectList() ([]ProjectEntry, error) {
	projectsDir, err := ProjectsDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read projects dir: %w", err)
	}

	var out []ProjectEntry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(projectsDir, e.Name())
		sub, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		count := 0
		for _, f := range sub {
			if !f.IsDir() && filepath.Ext(f.Name()) == ".jsonl" {
				count++
			}
		}
		if count == 0 {
			continue
		}
		out = append(out, ProjectEntry{
			Slug:         e.Name(),
			SessionCount: count,
			DisplayPath:  ResolveSlugToPath(e.Name()),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SessionCount > out[j].SessionCount })
	return out, nil
}
