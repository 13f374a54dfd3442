package usage

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"
)

// parseJSONLLine parses a single JSONL transcript line and accumulates its
// contribution into stats. It returns a lineInfo so the caller can correlate
// an assistant line's token counts with the timestamp on the next
// system/turn_duration line — assistant lines don't carry their own
// timestamp.
func parseJSONLLine(line string, stats *FileStats) lineInfo {
	// Fast pre-filter: anything this short can't carry useful data.
	if len(line) < 10 {
		return lineInfo{}
	}

	var v map[string]any
	if err := json.Unmarshal([]byte(line), &v); err != nil {
		return lineInfo{}
	}
	lineType, _ := v["type"].(string)

	switch lineType {
	case "assistant":
		message, ok := v["message"].(map[string]any)
		if !ok {
			return lineInfo{}
		}
		model, _ := message["model"].(string)
		if model == "" {
			model = "unknown"
		}
		usage, ok := message["usage"].(map[string]any)
		if !ok {
			return lineInfo{}
		}
		input := asUint64(usage["input_tokens"])
		output := asUint64(usage["output_tokens"])
		cacheCreation := asUint64(usage["cache_creation_input_tokens"])
		cacheRead := asUint64(usage["cache_read_input_tokens"])

		stats.TotalInputTokens += input
		stats.TotalOutputTokens += output
		stats.TotalCacheCreationTokens += cacheCreation
		stats.TotalCacheReadTokens += cacheRead
		stats.AssistantMessageCount++

		entry := stats.ModelUsage[model]
		if entry == nil {
			entry = &ModelTokens{}
			stats.ModelUsage[model] = entry
		}
		entry.InputTokens += input
		entry.OutputTokens += output
		entry.CacheCreationTokens += cacheCreation
		entry.CacheReadTokens += cacheRead
		entry.MessageCount++

		return lineInfo{assistantTokens: [2]uint64{input, output}, hasAssistantTokens: true}

	case "user":
		stats.UserMessageCount++
		return lineInfo{}

	case "system":
		subtype, _ := v["subtype"].(string)
		timestamp, hasTimestamp := v["timestamp"].(string)

		if subtype == "turn_duration" && hasTimestamp {
			date := dateFromTimestamp(timestamp)
			if date != "" {
				day := dayEntry(stats, date)
				day.MessageCount++
			}

			if sid, ok := v["sessionId"].(string); ok && sid != "" {
				if _, seen := stats.SessionIDs[sid]; !seen {
					stats.SessionIDs[sid] = struct{}{}
					if date != "" {
						dayEntry(stats, date).SessionCount++
					}
				}
			}
		}

		if hasTimestamp {
			if stats.FirstTimestamp == "" || timestamp < stats.FirstTimestamp {
				stats.FirstTimestamp = timestamp
			}
			if stats.LastTimestamp == "" || timestamp > stats.LastTimestamp {
				stats.LastTimestamp = timestamp
			}
			return lineInfo{timestamp: timestamp, hasTimestamp: true}
		}
		return lineInfo{}

	default:
		// "progress", "file-history-snapshot", etc. carry nothing useful.
		return lineInfo{}
	}
}

func asUint64(v any) uint64 {
	f, ok := v.(float64)
	if !ok || f < 0 {
		return 0
	}
	return uint64(f)
}

func dateFromTimestamp(ts string) string {
	if len(ts) < 10 {
		return ""
	}
	return ts[:10]
}

func hourKeyFromTimestamp(ts string) string {
	if len(ts) < 13 {
		return ""
	}
	return ts[:13]
}

func dayEntry(stats *FileStats, date string) *DayStats {
	d := stats.DailyActivity[date]
	if d == nil {
		d = &DayStats{}
		stats.DailyActivity[date] = d
	}
	return d
}

func hourEntry(stats *FileStats, hour string) *HourlyTokens {
	h := stats.HourlyTokens[hour]
	if h == nil {
		h = &HourlyTokens{}
		stats.HourlyTokens[hour] = h
	}
	return h
}

func assignPendingTokens(stats *FileStats, ts string, input, output uint64) {
	if hour := hourKeyFromTimestamp(ts); hour != "" {
		h := hourEntry(stats, hour)
		h.InputTokens += input
		h.OutputTokens += output
		h.MessageCount++
	}
	if date := dateFromTimestamp(ts); date != "" {
		d := dayEntry(stats, date)
		d.InputTokens += input
		d.OutputTokens += output
	}
}

// parseJSONLFileFromOffset parses a transcript file starting at byte offset,
// accumulating into stats, and returns the file's final size.
//
// Assistant lines don't carry a timestamp of their own, so their token
// counts are stashed as "pending" until the next line with a timestamp is
// seen (normally a system/turn_duration line), at which point they're
// assigned to that timestamp's hour/day buckets. Any tokens still pending at
// EOF (an in-progress session with no trailing turn_duration yet) are
// flushed against the file's last known timestamp.
func parseJSONLFileFromOffset(path string, offset int64, stats *FileStats) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	fileSize := info.Size()

	if offset >= fileSize {
		return fileSize, nil
	}

	if offset > 0 {
		if _, err := f.Seek(offset-1, io.SeekStart); err != nil {
			return 0, err
		}
		var b [1]byte
		if _, err := io.ReadFull(f, b[:]); err != nil {
			return 0, err
		}
		if b[0] != '\n' {
			// Landed mid-line — discard the partial line's remainder.
			r := bufio.NewReader(f)
			if _, err := r.ReadString('\n'); err != nil && err != io.EOF {
				return 0, err
			}
			return finishParse(r, stats, fileSize)
		}
	} else if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	return finishParse(bufio.NewReader(f), stats, fileSize)
}

func finishParse(r *bufio.Reader, stats *FileStats, fileSize int64) (int64, error) {
	var pending [2]uint64
	hasPending := false

	for {
		line, err := r.ReadString('\n')
		if line != "" {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" {
				info := parseJSONLLine(trimmed, stats)
				if info.hasAssistantTokens {
					pending = info.assistantTokens
					hasPending = true
				}
				if info.hasTimestamp && hasPending {
					assignPendingTokens(stats, info.timestamp, pending[0], pending[1])
					hasPending = false
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, err
		}
	}

	// Orphan pending tokens: the session is still active and the final
	// assistant message(s) have no following turn_duration line yet.
	if hasPending && stats.LastTimestamp != "" {
		assignPendingTokens(stats, stats.LastTimestamp, pending[0], pending[1])
	}

	stats.FileSize = uint64(fileSize)
	return fileSize, nil
}
