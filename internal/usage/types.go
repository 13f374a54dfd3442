// Package usage reconstructs token-usage statistics from Claude Code session
// transcripts (spec.md §3/§4.O). It keeps a persistent, file-size-watermarked
// cache so restarts don't require a full rescan of every JSONL transcript.
package usage

// RateBucket is a single rate-limit window reported by the Anthropic OAuth
// usage API.
type RateBucket struct {
	Utilization float64 `json:"utilization"`
	ResetsAt    string  `json:"resets_at"`
}

// ExtraUsage describes pay-as-you-go spend beyond the plan's included quota.
type ExtraUsage struct {
	Enabled          bool   `json:"enabled"`
	SpendLimitCents  *uint64 `json:"spend_limit_cents,omitempty"`
	CurrentSpendCents *uint64 `json:"current_spend_cents,omitempty"`
}

// APIResponse is the response body from the Anthropic OAuth usage endpoint.
// Unknown fields are tolerated since the API evolves independently of this
// client.
type APIResponse struct {
	FiveHour        *RateBucket `json:"five_hour,omitempty"`
	SevenDay        *RateBucket `json:"seven_day,omitempty"`
	SevenDayOpus    *RateBucket `json:"seven_day_opus,omitempty"`
	SevenDaySonnet  *RateBucket `json:"seven_day_sonnet,omitempty"`
	SevenDayCowork  *RateBucket `json:"seven_day_cowork,omitempty"`
	ExtraUsage      *ExtraUsage `json:"extra_usage,omitempty"`
}

// HourlyTokens is an hourly token-usage bucket, stored per-file in the cache.
type HourlyTokens struct {
	InputTokens   uint64 `json:"input_tokens"`
	OutputTokens  uint64 `json:"output_tokens"`
	MessageCount  uint32 `json:"message_count"`
}

// TimelinePoint is one aggregated point on the usage timeline chart.
type TimelinePoint struct {
	// Hour is an "YYYY-MM-DDTHH" key, e.g. "2026-02-04T10".
	Hour         string `json:"hour"`
	InputTokens  uint64 `json:"input_tokens"`
	OutputTokens uint64 `json:"output_tokens"`
}

// lineInfo carries cross-line correlation data extracted from a single JSONL
// line: an assistant line's token counts have no timestamp of their own, and
// must be paired with the timestamp on the system/turn_duration line that
// follows.
type lineInfo struct {
	timestamp        string
	hasTimestamp     bool
	assistantTokens  [2]uint64 // input, output
	hasAssistantTokens bool
}

// ModelTokens aggregates token usage for a single model.
type ModelTokens struct {
	InputTokens         uint64 `json:"input_tokens"`
	OutputTokens        uint64 `json:"output_tokens"`
	CacheCreationTokens uint64 `json:"cache_creation_tokens"`
	CacheReadTokens     uint64 `json:"cache_read_tokens"`
	MessageCount        uint32 `json:"message_count"`
}

// DayStats aggregates token/message/session counts for a single calendar day.
type DayStats struct {
	InputTokens  uint64 `json:"input_tokens"`
	OutputTokens uint64 `json:"output_tokens"`
	MessageCount uint32 `json:"message_count"`
	SessionCount uint32 `json:"session_count"`
}

// FileStats is the per-file cached stats stored in the persistent cache.
type FileStats struct {
	FileSize                  uint64                  `json:"file_size"`
	TotalInputTokens          uint64                  `json:"total_input_tokens"`
	TotalOutputTokens         uint64                  `json:"total_output_tokens"`
	TotalCacheCreationTokens  uint64                  `json:"total_cache_creation_tokens"`
	TotalCacheReadTokens      uint64                  `json:"total_cache_read_tokens"`
	AssistantMessageCount     uint32                  `json:"assistant_message_count"`
	UserMessageCount          uint32                  `json:"user_message_count"`
	ModelUsage                map[string]*ModelTokens `json:"model_usage"`
	DailyActivity             map[string]*DayStats    `json:"daily_activity"`
	// SessionIDs holds the unique session IDs seen in this file.
	SessionIDs map[string]struct{} `json:"session_ids"`
	FirstTimestamp string `json:"first_timestamp,omitempty"`
	LastTimestamp  string `json:"last_timestamp,omitempty"`
	// HourlyTokens buckets token usage by "YYYY-MM-DDTHH" hour key.
	HourlyTokens map[string]*HourlyTokens `json:"hourly_tokens"`
}

func newFileStats() *FileStats {
	return &FileStats{
		ModelUsage:     make(map[string]*ModelTokens),
		DailyActivity:  make(map[string]*DayStats),
		SessionIDs:     make(map[string]struct{}),
		HourlyTokens:   make(map[string]*HourlyTokens),
	}
}

// SessionStats is the aggregated view returned to API callers.
type SessionStats struct {
	TotalSessions             uint32                  `json:"total_sessions"`
	TotalAssistantMessages    uint32                  `json:"total_assistant_messages"`
	TotalUserMessages         uint32                  `json:"total_user_messages"`
	TotalInputTokens          uint64                  `json:"total_input_tokens"`
	TotalOutputTokens         uint64                  `json:"total_output_tokens"`
	TotalCacheCreationTokens  uint64                  `json:"total_cache_creation_tokens"`
	TotalCacheReadTokens      uint64                  `json:"total_cache_read_tokens"`
	ModelUsage                map[string]*ModelTokens `json:"model_usage"`
	DailyActivity             map[string]*DayStats    `json:"daily_activity"`
	PerProject                map[string]*ProjectStats `json:"per_project"`
	// PerProjectDaily is project_slug -> date -> DayStats, used by the
	// heatmap tooltip to show top projects per day.
	PerProjectDaily map[string]map[string]*DayStats `json:"per_project_daily"`
	// ActiveHours is the number of distinct hours with activity.
	ActiveHours uint32 `json:"active_hours"`
}

func newSessionStats() *SessionStats {
	return &SessionStats{
		ModelUsage:      make(map[string]*ModelTokens),
		DailyActivity:   make(map[string]*DayStats),
		PerProject:      make(map[string]*ProjectStats),
		PerProjectDaily: make(map[string]map[string]*DayStats),
	}
}

// ProjectStats aggregates stats for a single project slug.
type ProjectStats struct {
	SessionCount          uint32 `json:"session_count"`
	AssistantMessageCount uint32 `json:"assistant_message_count"`
	UserMessageCount      uint32 `json:"user_message_count"`
	InputTokens           uint64 `json:"input_tokens"`
	OutputTokens          uint64 `json:"output_tokens"`
}

// ProjectEntry describes one project slug for the scope dropdown.
type ProjectEntry struct {
	Slug         string `json:"slug"`
	SessionCount int    `json:"session_count"`
	// DisplayPath is the resolved filesystem path, if it could be
	// reconstructed from the slug.
	DisplayPath string `json:"display_path,omitempty"`
}
