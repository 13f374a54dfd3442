package worktree

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func setupTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	run("init", "-b", "main")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0644); err != nil {
		t.Fatalf("write README: %v", err)
	}
	run("add", ".")
	run("commit", "-m", "initial commit")
	return dir
}

func TestResolveWorktreeDir(t *testing.T) {
	e := NewEngine("/app/worktrees", nil)
	repo := "/home/user/projects/myrepo"

	if got, want := e.ResolveWorktreeDir(repo, Sibling), "/home/user/projects/myrepo__wt"; got != want {
		t.Errorf("Sibling: got %q, want %q", got, want)
	}
	if got, want := e.ResolveWorktreeDir(repo, AppDir), "/app/worktrees/myrepo"; got != want {
		t.Errorf("AppDir: got %q, want %q", got, want)
	}
	if got, want := e.ResolveWorktreeDir(repo, InsideRepo), "/home/user/projects/myrepo/.worktrees"; got != want {
		t.Errorf("InsideRepo: got %q, want %q", got, want)
	}
}

func TestParseOrphanWorktrees(t *testing.T) {
	porcelain := "worktree /repo\n" +
		"HEAD abc123\n" +
		"branch refs/heads/main\n\n" +
		"worktree /repo/.worktrees/feat-x\n" +
		"HEAD def456\n" +
		"detached\n\n" +
		"worktree /repo/.worktrees/feat-y\n" +
		"HEAD ghi789\n" +
		"branch refs/heads/feat-y\n"

	orphans := parseOrphanWorktrees(porcelain)
	if len(orphans) != 1 || orphans[0] != "/repo/.worktrees/feat-x" {
		t.Fatalf("parseOrphanWorktrees = %v, want [/repo/.worktrees/feat-x]", orphans)
	}
}

func TestParseOrphanWorktreesIgnoresDetachedMainWorktree(t *testing.T) {
	porcelain := "worktree /repo\nHEAD abc123\ndetached\n"
	orphans := parseOrphanWorktrees(porcelain)
	if len(orphans) != 0 {
		t.Fatalf("parseOrphanWorktrees = %v, want empty (main worktree always skipped)", orphans)
	}
}

func TestParseOrphanWorktreesAllHaveBranches(t *testing.T) {
	porcelain := "worktree /repo\nHEAD abc123\nbranch refs/heads/main\n\n" +
		"worktree /repo/wt\nHEAD def456\nbranch refs/heads/feat\n"
	orphans := parseOrphanWorktrees(porcelain)
	if len(orphans) != 0 {
		t.Fatalf("parseOrphanWorktrees = %v, want empty", orphans)
	}
}

func TestCreateAndRemoveWorktree(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	repo := setupTestRepo(t)
	worktreesDir := filepath.Join(t.TempDir(), "wt")
	e := NewEngine(t.TempDir(), nil)

	info, err := e.CreateWorktree(worktreesDir, Config{
		TaskName: "Feat X", BaseRepo: repo, Branch: "feat-x", CreateBranch: true,
	}, "")
	if err != nil {
		t.Fatalf("CreateWorktree: %v", err)
	}
	if info.Name != "feat-x" {
		t.Errorf("info.Name = %q, want feat-x", info.Name)
	}
	if _, err := os.Stat(info.Path); err != nil {
		t.Fatalf("worktree path does not exist: %v", err)
	}

	// Idempotent: second call with same task name returns the existing info
	// without invoking git again.
	info2, err := e.CreateWorktree(worktreesDir, Config{
		TaskName: "Feat X", BaseRepo: repo, Branch: "feat-x", CreateBranch: true,
	}, "")
	if err != nil {
		t.Fatalf("CreateWorktree (idempotent): %v", err)
	}
	if info2.Path != info.Path {
		t.Errorf("idempotent create returned different path: %q vs %q", info2.Path, info.Path)
	}

	if err := e.RemoveWorktree(info); err != nil {
		t.Fatalf("RemoveWorktree: %v", err)
	}
	if _, err := os.Stat(info.Path); !os.IsNotExist(err) {
		t.Fatalf("worktree path still exists after removal")
	}
}

func TestMergeAndArchiveWorktree(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	repo := setupTestRepo(t)
	worktreesDir := filepath.Join(t.TempDir(), "wt")
	e := NewEngine(t.TempDir(), nil)

	info, err := e.CreateWorktree(worktreesDir, Config{
		TaskName: "feat-x", BaseRepo: repo, Branch: "feat-x", CreateBranch: true,
	}, "")
	if err != nil {
		t.Fatalf("CreateWorktree: %v", err)
	}

	if err := os.WriteFile(filepath.Join(info.Path, "feature.txt"), []byte("feature\n"), 0644); err != nil {
		t.Fatalf("write feature file: %v", err)
	}
	run := func(dir string, args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	run(info.Path, "add", ".")
	run(info.Path, "commit", "-m", "add feature")

	result, err := e.MergeAndArchiveWorktree(repo, "feat-x", "main", AfterMergeArchive)
	if err != nil {
		t.Fatalf("MergeAndArchiveWorktree: %v", err)
	}
	if !result.Merged || result.Action != "archived" {
		t.Fatalf("result = %+v, want merged=true action=archived", result)
	}
	if _, err := os.Stat(info.Path); !os.IsNotExist(err) {
		t.Fatalf("original worktree path still exists after archive")
	}
	if _, err := os.Stat(result.ArchivePath); err != nil {
		t.Fatalf("archive path does not exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(result.ArchivePath, "feature.txt")); err != nil {
		t.Fatalf("archived worktree missing feature.txt: %v", err)
	}
}
