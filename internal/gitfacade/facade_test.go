package gitfacade

import "testing"

func TestParseRemoteURLHTTPS(t *testing.T) {
	tests := []struct {
		url        string
		owner, repo string
	}{
		{"https://github.com/owner/repo.git", "owner", "repo"},
		{"https://github.com/owner/repo", "owner", "repo"},
		{"http://github.com/owner/repo.git", "owner", "repo"},
	}
	for _, tt := range tests {
		owner, repo, ok := ParseRemoteURL(tt.url)
		if !ok || owner != tt.owner || repo != tt.repo {
			t.Errorf("ParseRemoteURL(%q) = (%q, %q, %v), want (%q, %q, true)", tt.url, owner, repo, ok, tt.owner, tt.repo)
		}
	}
}

func TestParseRemoteURLSSH(t *testing.T) {
	owner, repo, ok := ParseRemoteURL("git@github.com:owner/repo.git")
	if !ok || owner != "owner" || repo != "repo" {
		t.Fatalf("ParseRemoteURL(ssh) = (%q, %q, %v)", owner, repo, ok)
	}
}

func TestParseRemoteURLWithTrailingNewline(t *testing.T) {
	owner, repo, ok := ParseRemoteURL("git@github.com:owner/repo.git\n")
	if !ok || owner != "owner" || repo != "repo" {
		t.Fatalf("ParseRemoteURL(trailing newline) = (%q, %q, %v)", owner, repo, ok)
	}
}

func TestParseRemoteURLNotGitHub(t *testing.T) {
	if _, _, ok := ParseRemoteURL("https://gitlab.com/owner/repo.git"); ok {
		t.Fatal("expected ParseRemoteURL to reject a non-GitHub host")
	}
}

func TestParseRemoteURLEmpty(t *testing.T) {
	if _, _, ok := ParseRemoteURL(""); ok {
		t.Fatal("expected ParseRemoteURL(\"\") to fail")
	}
}

func TestParseStatusPorcelainZ(t *testing.T) {
	data := "M  foo.go\x00?? bar.go\x00R  new.go\x00old.go\x00"
	entries := ParseStatusPorcelainZ(data)
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].Code != "M " || entries[0].Path != "foo.go" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[2].Code != "R " || entries[2].Path != "new.go" || entries[2].From != "old.go" {
		t.Errorf("entries[2] = %+v, want rename new.go<-old.go", entries[2])
	}
}

func TestValidateBranchName(t *testing.T) {
	valid := []string{"feature/foo", "main", "bug-123"}
	for _, n := range valid {
		if err := ValidateBranchName(n); err != nil {
			t.Errorf("ValidateBranchName(%q) = %v, want nil", n, err)
		}
	}
	invalid := []string{"", "has space", "-leading-dash", "has..dots", "ends.lock"}
	for _, n := range invalid {
		if err := ValidateBranchName(n); err == nil {
			t.Errorf("ValidateBranchName(%q) = nil, want error", n)
		}
	}
}
