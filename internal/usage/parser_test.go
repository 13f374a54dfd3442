package usage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestParseAssistantLine(t *testing.T) {
	line := `{"type":"assistant","message":{"model":"claude-opus-4-6","usage":{"input_tokens":100,"output_tokens":50,"cache_creation_input_tokens":200,"cache_read_input_tokens":300}}}`
	stats := newFileStats()
	info := parseJSONLLine(line, stats)

	if !info.hasAssistantTokens || info.assistantTokens != [2]uint64{100, 50} {
		t.Fatalf("assistantTokens = %v, %v", info.assistantTokens, info.hasAssistantTokens)
	}
	if info.hasTimestamp {
		t.Error("assistant line should not carry a timestamp")
	}
	if stats.TotalInputTokens != 100 || stats.TotalOutputTokens != 50 {
		t.Errorf("totals = %d/%d", stats.TotalInputTokens, stats.TotalOutputTokens)
	}
	if stats.TotalCacheCreationTokens != 200 || stats.TotalCacheReadTokens != 300 {
		t.Errorf("cache totals = %d/%d", stats.TotalCacheCreationTokens, stats.TotalCacheReadTokens)
	}
	if stats.AssistantMessageCount != 1 || len(stats.ModelUsage) != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	model := stats.ModelUsage["claude-opus-4-6"]
	if model == nil || model.InputTokens != 100 || model.MessageCount != 1 {
		t.Errorf("model = %+v", model)
	}
}

func TestParseUserLine(t *testing.T) {
	stats := newFileStats()
	parseJSONLLine(`{"type":"user","message":"hello"}`, stats)
	if stats.UserMessageCount != 1 || stats.AssistantMessageCount != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestParseTurnDurationLine(t *testing.T) {
	line := `{"type":"system","subtype":"turn_duration","timestamp":"2026-02-04T23:22:42.546Z","sessionId":"abc-123","durationMs":5000}`
	stats := newFileStats()
	info := parseJSONLLine(line, stats)

	if !info.hasTimestamp || info.timestamp != "2026-02-04T23:22:42.546Z" {
		t.Fatalf("info = %+v", info)
	}
	if info.hasAssistantTokens {
		t.Error("system line should not carry assistant tokens")
	}
	if _, ok := stats.SessionIDs["abc-123"]; !ok || len(stats.SessionIDs) != 1 {
		t.Errorf("sessionIDs = %v", stats.SessionIDs)
	}
	day := stats.DailyActivity["2026-02-04"]
	if day == nil || day.SessionCount != 1 {
		t.Errorf("day = %+v", day)
	}
}

func TestParseProgressLineIsSkipped(t *testing.T) {
	stats := newFileStats()
	parseJSONLLine(`{"type":"progress","content":"tool_use"}`, stats)
	if stats.AssistantMessageCount != 0 || stats.UserMessageCount != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestParseInvalidJSONIsSkipped(t *testing.T) {
	stats := newFileStats()
	parseJSONLLine("not valid json {{{", stats)
	if stats.AssistantMessageCount != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestParseMultipleAssistantLinesAccumulate(t *testing.T) {
	stats := newFileStats()
	parseJSONLLine(`{"type":"assistant","message":{"model":"claude-opus-4-6","usage":{"input_tokens":100,"output_tokens":50,"cache_creation_input_tokens":0,"cache_read_input_tokens":0}}}`, stats)
	parseJSONLLine(`{"type":"assistant","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":200,"output_tokens":100,"cache_creation_input_tokens":0,"cache_read_input_tokens":0}}}`, stats)
	parseJSONLLine(`{"type":"assistant","message":{"model":"claude-opus-4-6","usage":{"input_tokens":50,"output_tokens":25,"cache_creation_input_tokens":0,"cache_read_input_tokens":0}}}`, stats)

	if stats.TotalInputTokens != 350 || stats.TotalOutputTokens != 175 || stats.AssistantMessageCount != 3 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(stats.ModelUsage) != 2 {
		t.Fatalf("model_usage = %v", stats.ModelUsage)
	}
	opus := stats.ModelUsage["claude-opus-4-6"]
	if opus.InputTokens != 150 || opus.MessageCount != 2 {
		t.Errorf("opus = %+v", opus)
	}
	sonnet := stats.ModelUsage["claude-sonnet-4-6"]
	if sonnet.InputTokens != 200 || sonnet.MessageCount != 1 {
		t.Errorf("sonnet = %+v", sonnet)
	}
}

func TestDuplicateSessionIDNotDoubleCounted(t *testing.T) {
	stats := newFileStats()
	parseJSONLLine(`{"type":"system","subtype":"turn_duration","timestamp":"2026-02-04T10:00:00Z","sessionId":"sess-1","durationMs":1000}`, stats)
	parseJSONLLine(`{"type":"system","subtype":"turn_duration","timestamp":"2026-02-04T10:05:00Z","sessionId":"sess-1","durationMs":2000}`, stats)

	if len(stats.SessionIDs) != 1 {
		t.Fatalf("sessionIDs = %v", stats.SessionIDs)
	}
	day := stats.DailyActivity["2026-02-04"]
	if day.SessionCount != 1 || day.MessageCount != 2 {
		t.Errorf("day = %+v", day)
	}
}

func TestFirstLastTimestampTracking(t *testing.T) {
	stats := newFileStats()
	parseJSONLLine(`{"type":"system","subtype":"turn_duration","timestamp":"2026-02-04T23:22:42.546Z","sessionId":"s1","durationMs":1000}`, stats)
	parseJSONLLine(`{"type":"system","subtype":"turn_duration","timestamp":"2026-02-01T10:00:00.000Z","sessionId":"s2","durationMs":1000}`, stats)
	parseJSONLLine(`{"type":"system","subtype":"turn_duration","timestamp":"2026-02-10T08:00:00.000Z","sessionId":"s3","durationMs":1000}`, stats)

	if stats.FirstTimestamp != "2026-02-01T10:00:00.000Z" {
		t.Errorf("first = %q", stats.FirstTimestamp)
	}
	if stats.LastTimestamp != "2026-02-10T08:00:00.000Z" {
		t.Errorf("last = %q", stats.LastTimestamp)
	}
}

func TestStopHookSummaryFlushesPendingTokens(t *testing.T) {
	stats := newFileStats()
	info1 := parseJSONLLine(`{"type":"assistant","message":{"model":"claude-opus-4-6","usage":{"input_tokens":100,"output_tokens":50,"cache_creation_input_tokens":0,"cache_read_input_tokens":0}}}`, stats)
	if !info1.hasAssistantTokens {
		t.Fatal("expected assistant tokens")
	}
	info2 := parseJSONLLine(`{"type":"system","subtype":"stop_hook_summary","timestamp":"2026-02-25T15:30:00Z","sessionId":"s1"}`, stats)
	if !info2.hasTimestamp || info2.timestamp != "2026-02-25T15:30:00Z" {
		t.Fatalf("info2 = %+v", info2)
	}
}

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	return path
}

func TestParseJSONLFileFromOffset(t *testing.T) {
	content := `{"type":"user","message":"hello"}
{"type":"assistant","message":{"model":"claude-opus-4-6","usage":{"input_tokens":100,"output_tokens":50,"cache_creation_input_tokens":0,"cache_read_input_tokens":0}}}
{"type":"progress","content":"working"}
{"type":"system","subtype":"turn_duration","timestamp":"2026-02-04T10:00:00Z","sessionId":"s1","durationMs":5000}
`
	path := writeTestFile(t, content)
	stats := newFileStats()
	finalSize, err := parseJSONLFileFromOffset(path, 0, stats)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if finalSize != int64(len(content)) {
		t.Errorf("finalSize = %d, want %d", finalSize, len(content))
	}
	if stats.UserMessageCount != 1 || stats.AssistantMessageCount != 1 || stats.TotalInputTokens != 100 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(stats.SessionIDs) != 1 {
		t.Fatalf("sessionIDs = %v", stats.SessionIDs)
	}
	if len(stats.HourlyTokens) != 1 {
		t.Fatalf("hourlyTokens = %v", stats.HourlyTokens)
	}
	hourly := stats.HourlyTokens["2026-02-04T10"]
	if hourly.InputTokens != 100 || hourly.OutputTokens != 50 || hourly.MessageCount != 1 {
		t.Errorf("hourly = %+v", hourly)
	}
	day := stats.DailyActivity["2026-02-04"]
	if day.InputTokens != 100 || day.OutputTokens != 50 {
		t.Errorf("day = %+v", day)
	}

	append := `{"type":"assistant","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":200,"output_tokens":100,"cache_creation_input_tokens":0,"cache_read_input_tokens":0}}}
{"type":"system","subtype":"turn_duration","timestamp":"2026-02-04T14:00:00Z","sessionId":"s1","durationMs":3000}
`
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString(append); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	newSize, err := parseJSONLFileFromOffset(path, finalSize, stats)
	if err != nil {
		t.Fatalf("parse incremental: %v", err)
	}
	if stats.AssistantMessageCount != 2 || stats.TotalInputTokens != 300 {
		t.Fatalf("stats after append = %+v", stats)
	}
	if newSize <= finalSize {
		t.Errorf("newSize = %d, want > %d", newSize, finalSize)
	}
	if len(stats.HourlyTokens) != 2 {
		t.Fatalf("hourlyTokens after append = %v", stats.HourlyTokens)
	}
	hourly14 := stats.HourlyTokens["2026-02-04T14"]
	if hourly14.InputTokens != 200 || hourly14.OutputTokens != 100 {
		t.Errorf("hourly14 = %+v", hourly14)
	}
}

func TestOrphanPendingTokensFlushedToLastKnownHour(t *testing.T) {
	content := `{"type":"user","message":"hello"}
{"type":"assistant","message":{"model":"claude-opus-4-6","usage":{"input_tokens":100,"output_tokens":50,"cache_creation_input_tokens":0,"cache_read_input_tokens":0}}}
{"type":"system","subtype":"turn_duration","timestamp":"2026-02-25T10:00:00Z","sessionId":"s1","durationMs":5000}
{"type":"user","message":"do more"}
{"type":"assistant","message":{"model":"claude-opus-4-6","usage":{"input_tokens":200,"output_tokens":80,"cache_creation_input_tokens":0,"cache_read_input_tokens":0}}}
{"type":"system","subtype":"stop_hook_summary","timestamp":"2026-02-25T10:05:00Z","sessionId":"s1"}
{"type":"user","message":"and more"}
{"type":"assistant","message":{"model":"claude-opus-4-6","usage":{"input_tokens":150,"output_tokens":60,"cache_creation_input_tokens":0,"cache_read_input_tokens":0}}}
`
	path := writeTestFile(t, content)
	stats := newFileStats()
	if _, err := parseJSONLFileFromOffset(path, 0, stats); err != nil {
		t.Fatalf("parse: %v", err)
	}

	h10 := stats.HourlyTokens["2026-02-25T10"]
	if h10 == nil {
		t.Fatal("missing hour 10 bucket")
	}
	if h10.InputTokens != 100+200+150 {
		t.Errorf("input = %d, want %d", h10.InputTokens, 100+200+150)
	}
	if h10.OutputTokens != 50+80+60 {
		t.Errorf("output = %d, want %d", h10.OutputTokens, 50+80+60)
	}
}

func TestOrphanTokensAtEOFUseLastTimestamp(t *testing.T) {
	content := `{"type":"assistant","message":{"model":"claude-opus-4-6","usage":{"input_tokens":100,"output_tokens":50,"cache_creation_input_tokens":0,"cache_read_input_tokens":0}}}
{"type":"system","subtype":"turn_duration","timestamp":"2026-02-25T14:00:00Z","sessionId":"s1","durationMs":5000}
{"type":"assistant","message":{"model":"claude-opus-4-6","usage":{"input_tokens":300,"output_tokens":120,"cache_creation_input_tokens":0,"cache_read_input_tokens":0}}}
`
	path := writeTestFile(t, content)
	stats := newFileStats()
	if _, err := parseJSONLFileFromOffset(path, 0, stats); err != nil {
		t.Fatalf("parse: %v", err)
	}

	h14 := stats.HourlyTokens["2026-02-25T14"]
	if h14 == nil {
		t.Fatal("missing hour 14 bucket")
	}
	if h14.InputTokens != 100+300 || h14.OutputTokens != 50+120 {
		t.Errorf("h14 = %+v", h14)
	}
}

func TestResolveSlugHandlesEmpty(t *testing.T) {
	if got := ResolveSlugToPath(""); got != "" && got != "/" {
		t.Errorf("ResolveSlugToPath(\"\") = %q", got)
	}
}

func TestUsageAPIResponseToleratesExtraFields(t *testing.T) {
	body := `{"five_hour":{"utilization":0.5,"resets_at":"2026-02-23T12:00:00Z"},"new_field":"ignored","seven_day":null}`
	var parsed APIResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.FiveHour == nil {
		t.Fatal("expected five_hour to be present")
	}
	if parsed.FiveHour.Utilization < 0.499 || parsed.FiveHour.Utilization > 0.501 {
		t.Errorf("utilization = %v", parsed.FiveHour.Utilization)
	}
}
