// Package hubcore holds the business logic shared by the HTTP transport
// (internal/httpserver) and the MCP tool dispatcher (internal/mcpserver):
// session spawn/control, repo/worktree queries, and config access. Neither
// transport package implements these operations itself, so REST and MCP
// can never drift in behavior (spec.md §4.L: "MCP tools ... call the same
// internal functions used by the REST handlers").
package hubcore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sstraus/tuicommander/internal/agentdiscovery"
	"github.com/sstraus/tuicommander/internal/config"
	"github.com/sstraus/tuicommander/internal/gitfacade"
	"github.com/sstraus/tuicommander/internal/plugins"
	"github.com/sstraus/tuicommander/internal/ptyhub"
	"github.com/sstraus/tuicommander/internal/ttlcache"
	"github.com/sstraus/tuicommander/internal/usage"
	"github.com/sstraus/tuicommander/internal/watch"
	"github.com/sstraus/tuicommander/internal/worktree"
)

// repoCacheTTL matches spec.md §4.I's TTL-cache component feeding /repo/info
// and /repo/github.
const repoCacheTTL = 5 * time.Second

// KnownAgentNames lists the agent CLIs the hub knows how to detect/spawn.
var KnownAgentNames = []string{"claude", "gemini", "opencode", "aider", "codex"}

// Deps bundles every collaborator the HTTP and MCP transports dispatch into.
type Deps struct {
	Orchestrator *ptyhub.Orchestrator
	Sessions     *ptyhub.Store
	Config       *config.Store
	Worktrees    *worktree.Engine
	GitHub       *gitfacade.Client
	Plugins      *plugins.Sandbox
	Usage        *usage.Cache
	Version      string
	Logger       *slog.Logger

	repoInfoCache     *ttlcache.Cache[*gitfacade.RepoInfo]
	githubStatusCache *ttlcache.Cache[[]gitfacade.PullRequest]

	watchMu      sync.Mutex
	headWatchers map[string]chan struct{}
}

// NewDeps wires the collaborators into a Deps ready for Server/mcpserver use.
func NewDeps(orch *ptyhub.Orchestrator, sessions *ptyhub.Store, cfg *config.Store, wt *worktree.Engine, gh *gitfacade.Client, sandbox *plugins.Sandbox, uc *usage.Cache, logger *slog.Logger, version string) *Deps {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deps{
		Orchestrator:      orch,
		Sessions:          sessions,
		Config:            cfg,
		Worktrees:         wt,
		GitHub:            gh,
		Plugins:           sandbox,
		Usage:             uc,
		Version:           version,
		Logger:            logger,
		repoInfoCache:     ttlcache.New[*gitfacade.RepoInfo](),
		githubStatusCache: ttlcache.New[[]gitfacade.PullRequest](),
		headWatchers:      make(map[string]chan struct{}),
	}
}

// ensureHeadWatch starts a debounced .git/HEAD watcher for path the first
// time it's seen, invalidating the repo caches on branch switch (spec.md
// §4.K: "head-changed event to invalidate branch-sensitive UI state").
// Best-effort: a watcher that fails to start (e.g. path isn't a repo yet)
// just means branch changes fall back to the TTL cache's natural expiry.
func (d *Deps) ensureHeadWatch(path string) {
	d.watchMu.Lock()
	defer d.watchMu.Unlock()
	if _, ok := d.headWatchers[path]; ok {
		return
	}
	watcher, err := watch.NewHeadWatcher(path, d.Logger)
	if err != nil {
		d.headWatchers[path] = nil
		return
	}
	stop := make(chan struct{})
	d.headWatchers[path] = stop
	go watcher.Run(stop, func() { d.InvalidateRepo(path) })
}

// StartPluginWatcher begins watching the plugin directory for changes,
// logging the set of plugin ids whose files changed (spec.md §4.K's
// "plugin-changed" event). Call once at server startup.
func (d *Deps) StartPluginWatcher(pluginDir string, stop <-chan struct{}) error {
	watcher, err := watch.NewPluginWatcher(pluginDir, d.Logger)
	if err != nil {
		return fmt.Errorf("start plugin watcher: %w", err)
	}
	go watcher.Run(stop, func(pluginIDs []string) {
		d.Logger.Info("plugin files changed", "plugins", pluginIDs)
	})
	return nil
}

// SessionSummary is the wire shape of one PTY session.
type SessionSummary struct {
	ID            string `json:"id"`
	Cwd           string `json:"cwd"`
	WorktreeName  string `json:"worktree_name,omitempty"`
	WorktreePath  string `json:"worktree_path,omitempty"`
	Paused        bool   `json:"paused"`
	Foreground    string `json:"foreground,omitempty"`
	BytesBuffered uint64 `json:"bytes_buffered"`
}

func (d *Deps) summarize(sess *ptyhub.Session) SessionSummary {
	s := SessionSummary{
		ID:         sess.ID.String(),
		Cwd:        sess.Cwd,
		Paused:     sess.IsPaused(),
		Foreground: d.Orchestrator.ForegroundAgent(sess),
	}
	if sess.Worktree != nil {
		s.WorktreeName = sess.Worktree.Name
		s.WorktreePath = sess.Worktree.Path
	}
	_, total := sess.Ring.ReadLast(0)
	s.BytesBuffered = total
	return s
}

// ErrSessionNotFound is returned by every per-session Deps method when the
// id isn't live.
var ErrSessionNotFound = fmt.Errorf("session not found")

func (d *Deps) lookup(id uuid.UUID) (*ptyhub.Session, error) {
	sess, ok := d.Sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// ListSessions returns a summary of every live session.
func (d *Deps) ListSessions() []SessionSummary {
	ids := d.Sessions.List()
	out := make([]SessionSummary, 0, len(ids))
	for _, id := range ids {
		if sess, ok := d.Sessions.Get(id); ok {
			out = append(out, d.summarize(sess))
		}
	}
	return out
}

// SpawnShellRequest is the body of POST /sessions.
type SpawnShellRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Cwd     string   `json:"cwd"`
	Rows    int      `json:"rows"`
	Cols    int      `json:"cols"`
	Env     []string `json:"env"`
}

// SpawnShell opens a plain shell session.
func (d *Deps) SpawnShell(req SpawnShellRequest) (SessionSummary, error) {
	sess, err := d.Orchestrator.SpawnShell(ptyhub.SpawnConfig{
		Command: req.Command, Args: req.Args, Cwd: req.Cwd,
		Rows: req.Rows, Cols: req.Cols, Env: req.Env,
	})
	if err != nil {
		return SessionSummary{}, err
	}
	return d.summarize(sess), nil
}

// SpawnAgentRequest is the body of POST /sessions/agent.
type SpawnAgentRequest struct {
	Agent string   `json:"agent"`
	Args  []string `json:"args"`
	Cwd   string   `json:"cwd"`
	Rows  int      `json:"rows"`
	Cols  int      `json:"cols"`
	Env   []string `json:"env"`
}

// SpawnAgent resolves req.Agent to a binary (the configured agents.json
// override's binary path when set, otherwise agentdiscovery) and spawns it.
func (d *Deps) SpawnAgent(req SpawnAgentRequest) (SessionSummary, error) {
	binPath := req.Agent
	if agentsCfg, err := config.LoadSchema(d.Config, config.AgentsFile, config.DefaultAgentsConfig()); err == nil {
		if entry, ok := agentsCfg.Agents[req.Agent]; ok && entry.BinaryPath != "" {
			binPath = entry.BinaryPath
		}
	}
	if binPath == req.Agent {
		det := agentdiscovery.DetectAgentBinary(req.Agent)
		if det.Path == "" {
			return SessionSummary{}, fmt.Errorf("agent binary %q not found", req.Agent)
		}
		binPath = det.Path
	}

	sess, err := d.Orchestrator.SpawnAgent(binPath, ptyhub.SpawnConfig{
		Args: req.Args, Cwd: req.Cwd, Rows: req.Rows, Cols: req.Cols, Env: req.Env,
	})
	if err != nil {
		return SessionSummary{}, err
	}
	return d.summarize(sess), nil
}

// SpawnWorktreeRequest is the body of POST /sessions/worktree.
type SpawnWorktreeRequest struct {
	TaskName     string `json:"task_name"`
	BaseRepo     string `json:"base_repo"`
	Branch       string `json:"branch"`
	CreateBranch bool   `json:"create_branch"`
	BaseRef      string `json:"base_ref"`
	Strategy     string `json:"storage_strategy"`
	Agent        string `json:"agent"`
	Rows         int    `json:"rows"`
	Cols         int    `json:"cols"`
}

// SpawnWorktreeSession creates (or reuses) a worktree for the task, then
// spawns a shell or agent session rooted in it.
func (d *Deps) SpawnWorktreeSession(req SpawnWorktreeRequest) (SessionSummary, error) {
	strategy := worktree.StorageStrategy(req.Strategy)
	if strategy == "" {
		strategy = worktree.Sibling
	}
	dir := d.Worktrees.ResolveWorktreeDir(req.BaseRepo, strategy)
	branch := req.Branch
	if branch == "" {
		existing, _ := d.Worktrees.ListLocalBranches(req.BaseRepo)
		branch = worktree.GenerateWorktreeName(existing)
		req.CreateBranch = true
	}

	info, err := d.Worktrees.CreateWorktree(dir, worktree.Config{
		TaskName: req.TaskName, BaseRepo: req.BaseRepo, Branch: branch, CreateBranch: req.CreateBranch,
	}, req.BaseRef)
	if err != nil {
		return SessionSummary{}, err
	}

	binding := &ptyhub.WorktreeBinding{Name: info.Name, Path: info.Path}
	var sess *ptyhub.Session
	if req.Agent != "" {
		det := agentdiscovery.DetectAgentBinary(req.Agent)
		if det.Path == "" {
			return SessionSummary{}, fmt.Errorf("agent binary %q not found", req.Agent)
		}
		sess, err = d.Orchestrator.SpawnAgent(det.Path, ptyhub.SpawnConfig{
			Cwd: info.Path, Rows: req.Rows, Cols: req.Cols, Worktree: binding,
		})
	} else {
		sess, err = d.Orchestrator.SpawnShell(ptyhub.SpawnConfig{
			Cwd: info.Path, Rows: req.Rows, Cols: req.Cols, Worktree: binding,
		})
	}
	if err != nil {
		return SessionSummary{}, err
	}
	return d.summarize(sess), nil
}

// Write sends data to a session's PTY.
func (d *Deps) Write(id uuid.UUID, data []byte) error {
	sess, err := d.lookup(id)
	if err != nil {
		return err
	}
	_, err = d.Orchestrator.Write(sess, data)
	return err
}

// Resize resizes a session's PTY.
func (d *Deps) Resize(id uuid.UUID, rows, cols int) error {
	sess, err := d.lookup(id)
	if err != nil {
		return err
	}
	return d.Orchestrator.Resize(sess, rows, cols)
}

// Pause pauses a session's reader loop.
func (d *Deps) Pause(id uuid.UUID) error {
	sess, err := d.lookup(id)
	if err != nil {
		return err
	}
	d.Orchestrator.Pause(sess)
	return nil
}

// Resume resumes a session's reader loop.
func (d *Deps) Resume(id uuid.UUID) error {
	sess, err := d.lookup(id)
	if err != nil {
		return err
	}
	d.Orchestrator.Resume(sess)
	return nil
}

// Output returns the last limit bytes of a session's ring buffer.
func (d *Deps) Output(id uuid.UUID, limit int) ([]byte, uint64, error) {
	sess, err := d.lookup(id)
	if err != nil {
		return nil, 0, err
	}
	data, total := sess.Ring.ReadLast(limit)
	return data, total, nil
}

// Foreground returns the classified foreground agent name for a session.
func (d *Deps) Foreground(id uuid.UUID) (string, error) {
	sess, err := d.lookup(id)
	if err != nil {
		return "", err
	}
	return d.Orchestrator.ForegroundAgent(sess), nil
}

// Close ends a session.
func (d *Deps) Close(id uuid.UUID) error {
	sess, err := d.lookup(id)
	if err != nil {
		return err
	}
	d.Orchestrator.Close(sess)
	return nil
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	ActiveSessions int   `json:"active_sessions"`
	TotalSpawned   int64 `json:"total_spawned"`
	FailedSpawns   int64 `json:"failed_spawns"`
	BytesEmitted   int64 `json:"bytes_emitted"`
	PausesTriggered int64 `json:"pauses_triggered"`
	MaxSessions    int   `json:"max_sessions"`
}

// Stats reports the session store's live counters.
func (d *Deps) Stats() StatsResponse {
	return StatsResponse{
		ActiveSessions:  d.Sessions.Len(),
		TotalSpawned:    d.Sessions.Metrics.TotalSpawned.Load(),
		FailedSpawns:    d.Sessions.Metrics.FailedSpawns.Load(),
		BytesEmitted:    d.Sessions.Metrics.BytesEmitted.Load(),
		PausesTriggered: d.Sessions.Metrics.PausesTriggered.Load(),
		MaxSessions:     ptyhub.MaxConcurrentSessions,
	}
}

// RepoInfo resolves repo info for path, through the §4.I TTL cache.
func (d *Deps) RepoInfo(path string) (*gitfacade.RepoInfo, error) {
	if v, ok := d.repoInfoCache.Get(path, repoCacheTTL); ok {
		return v, nil
	}
	info, err := gitfacade.DetectRepo(path)
	if err != nil {
		return nil, err
	}
	d.repoInfoCache.Set(path, info)
	d.ensureHeadWatch(info.Path)
	return info, nil
}

// InvalidateRepo drops both TTL-cache entries for path (§4.I per-repo
// invalidation).
func (d *Deps) InvalidateRepo(path string) {
	d.repoInfoCache.Delete(path)
	d.githubStatusCache.Delete(path)
}

// RepoPRs fetches (and caches) the PR list for the repo rooted at path.
func (d *Deps) RepoPRs(ctx context.Context, path string) ([]gitfacade.PullRequest, error) {
	if v, ok := d.githubStatusCache.Get(path, repoCacheTTL); ok {
		return v, nil
	}
	info, err := d.RepoInfo(path)
	if err != nil {
		return nil, err
	}
	owner, repo, ok := gitfacade.ParseRemoteURL(info.Name)
	if !ok {
		// info.Name is already "owner/repo" when a GitHub remote was found.
		parts := splitOwnerRepo(info.Name)
		if parts == nil {
			return nil, fmt.Errorf("repo %s has no GitHub remote", path)
		}
		owner, repo = parts[0], parts[1]
	}
	prs, err := d.GitHub.FetchRepoPRs(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	d.githubStatusCache.Set(path, prs)
	return prs, nil
}

func splitOwnerRepo(name string) []string {
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			return []string{name[:i], name[i+1:]}
		}
	}
	return nil
}

// RepoDiff returns the unified diff for path (or the whole tree if empty)
// against base.
func (d *Deps) RepoDiff(repoPath, base, path string) (string, error) {
	return gitfacade.Diff(repoPath, base, path)
}

// RepoFiles returns the parsed `git status --porcelain -z` entries.
func (d *Deps) RepoFiles(repoPath string) ([]gitfacade.StatusEntry, error) {
	return gitfacade.StatusEntries(repoPath)
}

// RepoBranches returns the remote default branch first, then every other
// local branch.
func (d *Deps) RepoBranches(repoPath string) ([]string, error) {
	return d.Worktrees.ListBaseRefOptions(repoPath)
}

// RepoDiffStats returns `git diff --stat` against base.
func (d *Deps) RepoDiffStats(repoPath, base string) (string, error) {
	return gitfacade.DiffStat(repoPath, base)
}

// RepoCurrentBranch reads the checked-out branch from .git/HEAD.
func (d *Deps) RepoCurrentBranch(repoPath string) (string, error) {
	return gitfacade.ReadHeadRef(repoPath)
}

// ConfigSchemaNames lists every sibling schema name besides the main app
// config: the same names the httpserver GET/PUT /config/{schema} routes
// register. Those routes and the MCP config tool name their schemas
// themselves and do not read this variable.
var ConfigSchemaNames = []string{
	"notifications", "ui-prefs", "repo-settings", "repo-defaults",
	"repositories", "notes", "keybindings", "agents", "activity", "prompt-library",
}

// UsageScan scans session transcripts for scope ("all" or a project slug)
// and returns the aggregated stats.
func (d *Deps) UsageScan(scope string) (*usage.SessionStats, error) {
	return d.Usage.Scan(scope)
}

// UsageTimeline aggregates hourly token usage across scope-matching projects
// for the trailing days window.
func (d *Deps) UsageTimeline(scope string, days int) []usage.TimelinePoint {
	return d.Usage.Timeline(scope, days, time.Now())
}

// UsageProjects lists every project with a session transcript, for a
// scope-selector.
func (d *Deps) UsageProjects() ([]usage.ProjectEntry, error) {
	return usage.ProjectList()
}

// UsageAPI fetches rate-limit usage from the Anthropic OAuth API using the
// locally cached Claude Code credentials.
func (d *Deps) UsageAPI(ctx context.Context) (*usage.APIResponse, error) {
	return usage.FetchAPIUsage(ctx)
}

// ConfigGet loads the app config and scrubs the password hash and the
// tailnet auth key (spec.md
// §4.L's "Response scrubbing").
func (d *Deps) ConfigGet() (map[string]any, error) {
	cfg, err := d.Config.App()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	delete(m, "remote_access_password_hash")
	delete(m, "tailnet_auth_key")
	return m, nil
}

// ConfigSave merges patch into the current app config and saves it.
func (d *Deps) ConfigSave(patch map[string]any) (map[string]any, error) {
	cfg, err := d.Config.App()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for k, v := range patch {
		m[k] = v
	}
	merged, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var newCfg config.AppConfig
	if err := json.Unmarshal(merged, &newCfg); err != nil {
		return nil, err
	}
	if err := d.Config.SaveApp(newCfg); err != nil {
		return nil, err
	}
	return d.ConfigGet()
}
