package config

// Filenames for each of the twelve named configuration schemas. The usage
// cache filename lives in the usage package since that's the only thing
// that writes it; it's listed here in the doc comment for completeness:
// claude-usage-cache.json.
const (
	AppConfigFile       = "config.json"
	NotificationsFile   = "notifications.json"
	UIPrefsFile         = "ui-prefs.json"
	RepoSettingsFile    = "repo-settings.json"
	RepoDefaultsFile    = "repo-defaults.json"
	RepositoriesFile    = "repositories.json"
	NotesFile           = "notes.json"
	KeybindingsFile     = "keybindings.json"
	AgentsFile          = "agents.json"
	ActivityFile        = "activity.json"
	PromptLibraryFile   = "prompt-library.json"
)

// AppConfig holds the hub's core settings: the remote-access bind policy,
// worktree base directory, and session limits.
type AppConfig struct {
	RemoteAccessEnabled      bool   `json:"remote_access_enabled"`
	RemoteAccessPort         int    `json:"remote_access_port"`
	RemoteAccessUsername     string `json:"remote_access_username,omitempty"`
	RemoteAccessPasswordHash string `json:"remote_access_password_hash,omitempty"`
	WorktreeBase             string `json:"worktree_base"`
	MaxSessions              int    `json:"max_sessions"`
	AgentTimeoutSeconds      uint64 `json:"agent_timeout_seconds"`
	PollIntervalSeconds      uint64 `json:"poll_interval_seconds"`

	// RemoteAccessMode selects the listener the bind policy uses when remote
	// access is enabled: RemoteModeDirect (0.0.0.0:RemoteAccessPort, Basic
	// Auth) or RemoteModeTailnet (join a tailnet and listen there instead,
	// no public port opened at all). Empty is treated as RemoteModeDirect.
	RemoteAccessMode    string `json:"remote_access_mode,omitempty"`
	TailnetHeadscaleURL string `json:"tailnet_headscale_url,omitempty"`
	TailnetAuthKey      string `json:"tailnet_auth_key,omitempty"`
}

const (
	RemoteModeDirect  = "direct"
	RemoteModeTailnet = "tailnet"
)

// DefaultAppConfig returns an AppConfig with a loopback-only, unauthenticated
// bind policy (spec.md §4.L's default when remote access is disabled).
func DefaultAppConfig() AppConfig {
	return AppConfig{
		RemoteAccessEnabled: false,
		RemoteAccessPort:    0,
		MaxSessions:         20,
		AgentTimeoutSeconds: 3600,
		PollIntervalSeconds: 5,
	}
}

// NotificationsConfig controls desktop notification behavior.
type NotificationsConfig struct {
	Enabled           bool   `json:"enabled"`
	Sound             string `json:"sound"`
	NotifyOnDone      bool   `json:"notify_on_done"`
	NotifyOnQuestion  bool   `json:"notify_on_question"`
	NotifyOnError     bool   `json:"notify_on_error"`
	NotifyOnRateLimit bool   `json:"notify_on_rate_limit"`
}

func DefaultNotificationsConfig() NotificationsConfig {
	return NotificationsConfig{
		Enabled:           true,
		Sound:             "default",
		NotifyOnDone:      true,
		NotifyOnQuestion:  true,
		NotifyOnError:     true,
		NotifyOnRateLimit: true,
	}
}

// UIPrefsConfig holds frontend presentation preferences.
type UIPrefsConfig struct {
	Theme          string             `json:"theme"`
	SplitTabMode   string             `json:"split_tab_mode"` // "horizontal" | "vertical" | "tabs"
	PanelSizes     map[string]float64 `json:"panel_sizes"`
	ShowLineNumbers bool              `json:"show_line_numbers"`
}

func DefaultUIPrefsConfig() UIPrefsConfig {
	return UIPrefsConfig{
		Theme:        "system",
		SplitTabMode: "tabs",
		PanelSizes:   map[string]float64{},
	}
}

// RepoSetting is a single repository's overrides for copy/init/teardown
// behavior when creating a worktree.
type RepoSetting struct {
	DefaultBranch    string   `json:"default_branch,omitempty"`
	CopyPatterns     []string `json:"copy_patterns,omitempty"`
	InitCommands     []string `json:"init_commands,omitempty"`
	TeardownCommands []string `json:"teardown_commands,omitempty"`
}

// RepoSettingsConfig maps a repo's absolute path to its overrides.
type RepoSettingsConfig struct {
	Repos map[string]RepoSetting `json:"repos"`
}

func DefaultRepoSettingsConfig() RepoSettingsConfig {
	return RepoSettingsConfig{Repos: map[string]RepoSetting{}}
}

// RepoDefaultsConfig holds the fallback policy applied when a repo has no
// RepoSetting of its own.
type RepoDefaultsConfig struct {
	WorktreeStorage string `json:"worktree_storage"` // "sibling" | "app-dir" | "inside-repo"
	OrphanCleanup   string `json:"orphan_cleanup"`   // "ask" | "auto" | "never"
	AfterMerge      string `json:"after_merge"`      // "archive" | "delete" | "ask"
	PRMergeStrategy string `json:"pr_merge_strategy"` // "merge" | "squash" | "rebase"
}

func DefaultRepoDefaultsConfig() RepoDefaultsConfig {
	return RepoDefaultsConfig{
		WorktreeStorage: "sibling",
		OrphanCleanup:   "ask",
		AfterMerge:      "ask",
		PRMergeStrategy: "squash",
	}
}

// RepositoryEntry is one repository known to the hub.
type RepositoryEntry struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	LastOpened string `json:"last_opened,omitempty"`
}

// RepositoriesConfig is the list of repositories the user has opened.
type RepositoriesConfig struct {
	Repositories []RepositoryEntry `json:"repositories"`
}

func DefaultRepositoriesConfig() RepositoriesConfig {
	return RepositoriesConfig{}
}

// NotesConfig stores free-form notes keyed by session or worktree id.
type NotesConfig struct {
	Notes map[string]string `json:"notes"`
}

func DefaultNotesConfig() NotesConfig {
	return NotesConfig{Notes: map[string]string{}}
}

// KeybindingsConfig maps a logical action name to its key combination.
type KeybindingsConfig struct {
	Bindings map[string]string `json:"bindings"`
}

func DefaultKeybindingsConfig() KeybindingsConfig {
	return KeybindingsConfig{Bindings: map[string]string{}}
}

// AgentEntry is one agent CLI's configured invocation.
type AgentEntry struct {
	BinaryPath  string   `json:"binary_path,omitempty"`
	DefaultArgs []string `json:"default_args,omitempty"`
}

// AgentsConfig maps an agent name ("claude", "codex", ...) to its entry.
type AgentsConfig struct {
	Agents map[string]AgentEntry `json:"agents"`
}

func DefaultAgentsConfig() AgentsConfig {
	return AgentsConfig{Agents: map[string]AgentEntry{}}
}

// ActivityEntry records one recent session for the activity feed.
type ActivityEntry struct {
	SessionID    string `json:"session_id"`
	RepoPath     string `json:"repo_path"`
	StartedAt    string `json:"started_at"`
	LastActiveAt string `json:"last_active_at"`
}

// ActivityConfig is the recent-session activity feed.
type ActivityConfig struct {
	Recent []ActivityEntry `json:"recent"`
}

func DefaultActivityConfig() ActivityConfig {
	return ActivityConfig{}
}

// PromptEntry is one saved prompt in the prompt library.
type PromptEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PromptLibraryConfig is the user's saved prompt library.
type PromptLibraryConfig struct {
	Prompts []PromptEntry `json:"prompts"`
}

func DefaultPromptLibraryConfig() PromptLibraryConfig {
	return PromptLibraryConfig{}
}
