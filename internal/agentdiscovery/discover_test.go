package agentdiscovery

import "testing"

func TestFirstNonEmptyLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"\n\nhello\nworld\n", "hello"},
		{"", ""},
		{"  \n solo ", "solo"},
	}
	for _, tt := range tests {
		if got := firstNonEmptyLine(tt.in); got != tt.want {
			t.Errorf("firstNonEmptyLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectAgentBinaryMissing(t *testing.T) {
	d := DetectAgentBinary("definitely-not-a-real-binary-xyz")
	if d.Path != "" {
		t.Errorf("expected no path for a nonexistent binary, got %q", d.Path)
	}
}

func TestDetectInstalledIDEsAlwaysIncludesSystemUtilities(t *testing.T) {
	ides := DetectInstalledIDEs()
	has := func(id string) bool {
		for _, v := range ides {
			if v == id {
				return true
			}
		}
		return false
	}
	if !has("terminal") || !has("finder") {
		t.Errorf("DetectInstalledIDEs() = %v, want terminal and finder always present", ides)
	}
}

func TestDetectInstalledIDEsNoDuplicates(t *testing.T) {
	ides := DetectInstalledIDEs()
	seen := make(map[string]bool)
	for _, id := range ides {
		if seen[id] {
			t.Errorf("DetectInstalledIDEs() returned duplicate id %q", id)
		}
		seen[id] = true
	}
}
