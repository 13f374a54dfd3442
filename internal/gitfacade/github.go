package gitfacade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	graphqlURL   = "https://api.github.com/graphql"
	userAgent    = "tui-commander"
	keyringService = "tuicommander"
	keyringUser    = "github-token"
)

// ResolveGitHubToken follows the resolution order: $GH_TOKEN, $GITHUB_TOKEN,
// `~/.config/gh/hosts.yml`, and finally the OS keyring. Empty strings at any
// tier are skipped. Returns "" if nothing is found.
func ResolveGitHubToken() string {
	if t := os.Getenv("GH_TOKEN"); t != "" {
		return t
	}
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		return t
	}
	if t := tokenFromGhHosts(); t != "" {
		return t
	}
	if t, err := keyring.Get(keyringService, keyringUser); err == nil && t != "" {
		return t
	}
	return ""
}

// tokenFromGhHosts does a minimal parse of the gh CLI's hosts.yml, returning
// the first non-empty "oauth_token:" value in the file. Host blocks are not
// distinguished: the token may belong to a host other than github.com.
func tokenFromGhHosts() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(home, ".config", "gh", "hosts.yml"))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "oauth_token:") {
			tok := strings.TrimSpace(strings.TrimPrefix(trimmed, "oauth_token:"))
			tok = strings.Trim(tok, `"'`)
			if tok != "" {
				return tok
			}
		}
	}
	return ""
}

// Client is a GitHub GraphQL client gated by a CircuitBreaker.
type Client struct {
	token   string
	http    *http.Client
	Breaker *CircuitBreaker
}

// NewClient returns a client using token for auth. If token is empty, calls
// will still be attempted unauthenticated (subject to GitHub's lower rate
// limits).
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		Breaker: NewCircuitBreaker(),
	}
}

// graphQLRequest is the GraphQL request body: a query and its variables.
type graphQLRequest struct {
	Query     string `json:"query"`
	Variables any    `json:"variables"`
}

// Query executes a GraphQL query and returns the decoded response body,
// after checking `errors[]` for a top-level GraphQL failure. The breaker
// gates the call: if open, Query returns an error without hitting the
// network.
func (c *Client) Query(ctx context.Context, query string, variables any) (map[string]any, error) {
	if !c.Breaker.Allow() {
		return nil, fmt.Errorf("github circuit breaker open: too many recent failures")
	}

	result, err := c.doQuery(ctx, query, variables)
	if err != nil {
		c.Breaker.RecordFailure()
		return nil, err
	}
	c.Breaker.RecordSuccess()
	return result, nil
}

func (c *Client) doQuery(ctx context.Context, query string, variables any) (map[string]any, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, graphqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graphql request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := "unknown error"
		if m, ok := parsed["message"].(string); ok {
			msg = m
		}
		return nil, fmt.Errorf("github api error (%d): %s", resp.StatusCode, msg)
	}

	if errs, ok := parsed["errors"].([]any); ok && len(errs) > 0 {
		msg := "unknown graphql error"
		if first, ok := errs[0].(map[string]any); ok {
			if m, ok := first["message"].(string); ok {
				msg = m
			}
		}
		return nil, fmt.Errorf("graphql error: %s", msg)
	}

	return parsed, nil
}

// StateLabel is a pre-computed display label/css-class pair for the UI.
type StateLabel struct {
	Label    string
	CSSClass string
}

// ClassifyMergeState derives the merge-readiness label. A CONFLICTING
// mergeable value always wins over mergeStateStatus.
func ClassifyMergeState(mergeable, mergeStateStatus string) (StateLabel, bool) {
	if mergeable == "CONFLICTING" {
		return StateLabel{Label: "Conflicts", CSSClass: "conflicting"}, true
	}
	switch mergeStateStatus {
	case "CLEAN":
		return StateLabel{Label: "Ready to merge", CSSClass: "clean"}, true
	case "BEHIND":
		return StateLabel{Label: "Behind base", CSSClass: "behind"}, true
	case "BLOCKED":
		return StateLabel{Label: "Blocked", CSSClass: "blocked"}, true
	case "UNSTABLE":
		return StateLabel{Label: "Unstable", CSSClass: "blocked"}, true
	case "DRAFT":
		return StateLabel{Label: "Draft", CSSClass: "behind"}, true
	case "DIRTY":
		return StateLabel{Label: "Conflicts", CSSClass: "conflicting"}, true
	default:
		return StateLabel{}, false
	}
}

// ClassifyReviewState derives the review-decision display label.
func ClassifyReviewState(reviewDecision string) (StateLabel, bool) {
	switch reviewDecision {
	case "APPROVED":
		return StateLabel{Label: "Approved", CSSClass: "approved"}, true
	case "CHANGES_REQUESTED":
		return StateLabel{Label: "Changes requested", CSSClass: "changes-requested"}, true
	case "REVIEW_REQUIRED":
		return StateLabel{Label: "Review required", CSSClass: "review-required"}, true
	default:
		return StateLabel{}, false
	}
}

// HexToRGBA converts a 6-hex-digit color to an rgba() CSS string.
func HexToRGBA(hex string, alpha float64) string {
	r, g, b := hexRGB(hex)
	return fmt.Sprintf("rgba(%d, %d, %d, %v)", r, g, b, alpha)
}

// IsLightColor reports whether hex needs dark text on top of it, using
// BT.601 luma.
func IsLightColor(hex string) bool {
	r, g, b := hexRGB(hex)
	luma := (uint32(r)*299 + uint32(g)*587 + uint32(b)*114) / 1000
	return luma > 128
}

func hexRGB(hex string) (r, g, b uint8) {
	parse := func(s string) uint8 {
		v, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return 0
		}
		return uint8(v)
	}
	if len(hex) < 6 {
		return 0, 0, 0
	}
	return parse(hex[0:2]), parse(hex[2:4]), parse(hex[4:6])
}

// CheckSummary aggregates CI check-run states.
type CheckSummary struct {
	Passed, Failed, Pending, Total uint32
}

// Label is a PR label with pre-computed display colors.
type Label struct {
	Name, Color, TextColor, BackgroundColor string
}

// PullRequest is one entry of the batch PR query result.
type PullRequest struct {
	Branch          string
	Number          int
	Title           string
	State           string
	URL             string
	Additions       int
	Deletions       int
	Checks          CheckSummary
	Author          string
	Commits         int
	Mergeable       string
	MergeStateStatus string
	ReviewDecision  string
	Labels          []Label
	IsDraft         bool
	BaseRefName     string
	CreatedAt       string
	UpdatedAt       string
	MergeStateLabel *StateLabel
	ReviewStateLabel *StateLabel
}

func asString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func asInt(m map[string]any, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func countsByState(contexts map[string]any, key string, passedStates, failedStates map[string]bool) (passed, failed, pending uint32) {
	for _, raw := range asSlice(contexts[key]) {
		entry := asMap(raw)
		count := uint32(asInt(entry, "count"))
		state := asString(entry, "state")
		switch {
		case passedStates[state]:
			passed += count
		case failedStates[state]:
			failed += count
		default:
			pending += count
		}
	}
	return
}

var checkRunPassed = map[string]bool{"SUCCESS": true, "NEUTRAL": true, "SKIPPED": true}
var checkRunFailed = map[string]bool{"FAILURE": true, "ERROR": true, "TIMED_OUT": true, "CANCELLED": true, "STARTUP_FAILURE": true}
var statusContextPassed = map[string]bool{"SUCCESS": true}
var statusContextFailed = map[string]bool{"FAILURE": true, "ERROR": true}

// parsePRNode converts one GraphQL pullRequests.nodes[] entry into a
// PullRequest. Returns false if the node is missing headRefName/number.
func parsePRNode(v map[string]any) (PullRequest, bool) {
	branch := asString(v, "headRefName")
	if branch == "" {
		return PullRequest{}, false
	}
	numberRaw, ok := v["number"].(float64)
	if !ok {
		return PullRequest{}, false
	}

	commits := asMap(v["commits"])
	nodes := asSlice(commits["nodes"])
	var contexts map[string]any
	if len(nodes) > 0 {
		node0 := asMap(nodes[0])
		contexts = asMap(asMap(asMap(node0["commit"])["statusCheckRollup"])["contexts"])
	}

	var passed, failed, pending uint32
	if contexts != nil {
		p1, f1, pd1 := countsByState(contexts, "checkRunCountsByState", checkRunPassed, checkRunFailed)
		p2, f2, pd2 := countsByState(contexts, "statusContextCountsByState", statusContextPassed, statusContextFailed)
		passed, failed, pending = p1+p2, f1+f2, pd1+pd2
	}

	mergeable := asString(v, "mergeable")
	if mergeable == "" {
		mergeable = "UNKNOWN"
	}
	mergeState := asString(v, "mergeStateStatus")
	if mergeState == "" {
		mergeState = "UNKNOWN"
	}
	reviewDecision := asString(v, "reviewDecision")

	var labels []Label
	for _, raw := range asSlice(asMap(v["labels"])["nodes"]) {
		l := asMap(raw)
		name := asString(l, "name")
		if name == "" {
			continue
		}
		color := asString(l, "color")
		var textColor, bgColor string
		if len(color) == 6 {
			if IsLightColor(color) {
				textColor = "#1e1e1e"
			} else {
				textColor = "#e5e5e5"
			}
			bgColor = HexToRGBA(color, 0.3)
		}
		labels = append(labels, Label{Name: name, Color: color, TextColor: textColor, BackgroundColor: bgColor})
	}

	pr := PullRequest{
		Branch:           branch,
		Number:           int(numberRaw),
		Title:            asString(v, "title"),
		State:            asString(v, "state"),
		URL:              asString(v, "url"),
		Additions:        asInt(v, "additions"),
		Deletions:        asInt(v, "deletions"),
		Checks:           CheckSummary{Passed: passed, Failed: failed, Pending: pending, Total: passed + failed + pending},
		Author:           asString(asMap(v["author"]), "login"),
		Commits:          asInt(commits, "totalCount"),
		Mergeable:        mergeable,
		MergeStateStatus: mergeState,
		ReviewDecision:   reviewDecision,
		Labels:           labels,
		IsDraft:          v["isDraft"] == true,
		BaseRefName:      asString(v, "baseRefName"),
		CreatedAt:        asString(v, "createdAt"),
		UpdatedAt:        asString(v, "updatedAt"),
	}

	if label, ok := ClassifyMergeState(mergeable, mergeState); ok {
		pr.MergeStateLabel = &label
	}
	if reviewDecision != "" {
		if label, ok := ClassifyReviewState(reviewDecision); ok {
			pr.ReviewStateLabel = &label
		}
	}

	return pr, true
}

// ParseGraphQLPRs extracts PullRequest entries from a full GraphQL batch
// response (`data.repository.pullRequests.nodes`).
func ParseGraphQLPRs(response map[string]any) []PullRequest {
	data := asMap(response["data"])
	repository := asMap(data["repository"])
	prs := asMap(repository["pullRequests"])
	nodes := asSlice(prs["nodes"])

	out := make([]PullRequest, 0, len(nodes))
	for _, raw := range nodes {
		if pr, ok := parsePRNode(asMap(raw)); ok {
			out = append(out, pr)
		}
	}
	return out
}

// BatchPRQuery is the GraphQL query retrieving the 50 most-recently-updated
// PRs with CI check summary counts via the efficient
// checkRunCountsByState/statusContextCountsByState aggregation.
const BatchPRQuery = `
query RepoPRs($owner: String!, $repo: String!, $first: Int!) {
  repository(owner: $owner, name: $repo) {
    pullRequests(first: $first, states: [OPEN, CLOSED, MERGED],
                 orderBy: {field: UPDATED_AT, direction: DESC}) {
      nodes {
        number title state url headRefName baseRefName isDraft
        additions deletions mergeable mergeStateStatus reviewDecision
        createdAt updatedAt
        author { login }
        labels(first: 10) { nodes { name color } }
        commits(last: 1) {
          totalCount
          nodes {
            commit {
              statusCheckRollup {
                contexts {
                  checkRunCountsByState { state count }
                  statusContextCountsByState { state count }
                }
              }
            }
          }
        }
      }
    }
  }
  rateLimit { cost remaining resetAt }
}
`

// FetchRepoPRs queries the 50 most-recently-updated PRs for owner/repo.
func (c *Client) FetchRepoPRs(ctx context.Context, owner, repo string) ([]PullRequest, error) {
	result, err := c.Query(ctx, BatchPRQuery, map[string]any{
		"owner": owner,
		"repo":  repo,
		"first": 50,
	})
	if err != nil {
		return nil, err
	}
	return ParseGraphQLPRs(result), nil
}
