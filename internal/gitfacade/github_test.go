package gitfacade

import "testing"

func TestClassifyMergeStateConflictingOverridesStatus(t *testing.T) {
	label, ok := ClassifyMergeState("CONFLICTING", "CLEAN")
	if !ok || label.Label != "Conflicts" || label.CSSClass != "conflicting" {
		t.Fatalf("ClassifyMergeState(CONFLICTING, CLEAN) = %+v, %v", label, ok)
	}
}

func TestClassifyMergeStateClean(t *testing.T) {
	label, ok := ClassifyMergeState("MERGEABLE", "CLEAN")
	if !ok || label.Label != "Ready to merge" {
		t.Fatalf("got %+v, %v", label, ok)
	}
}

func TestClassifyMergeStateUnknownReturnsNone(t *testing.T) {
	if _, ok := ClassifyMergeState("UNKNOWN", "UNKNOWN"); ok {
		t.Fatal("expected ClassifyMergeState(UNKNOWN, UNKNOWN) to have no label")
	}
}

func TestClassifyReviewState(t *testing.T) {
	if label, ok := ClassifyReviewState("APPROVED"); !ok || label.Label != "Approved" {
		t.Fatalf("got %+v, %v", label, ok)
	}
	if _, ok := ClassifyReviewState(""); ok {
		t.Fatal("expected empty review decision to have no label")
	}
}

func TestIsLightColor(t *testing.T) {
	if IsLightColor("000000") {
		t.Error("black should not be light")
	}
	if !IsLightColor("ffffff") {
		t.Error("white should be light")
	}
}

func TestHexToRGBA(t *testing.T) {
	got := HexToRGBA("ff0000", 0.5)
	want := "rgba(255, 0, 0, 0.5)"
	if got != want {
		t.Errorf("HexToRGBA = %q, want %q", got, want)
	}
}

func TestParseGraphQLPRsBasic(t *testing.T) {
	response := map[string]any{
		"data": map[string]any{
			"repository": map[string]any{
				"pullRequests": map[string]any{
					"nodes": []any{
						map[string]any{
							"number":           float64(42),
							"title":            "Add feature",
							"state":            "OPEN",
							"url":              "https://github.com/o/r/pull/42",
							"headRefName":      "feat-x",
							"baseRefName":      "main",
							"additions":        float64(10),
							"deletions":        float64(2),
							"mergeable":        "MERGEABLE",
							"mergeStateStatus": "CLEAN",
							"author":           map[string]any{"login": "alice"},
							"commits":          map[string]any{"totalCount": float64(3)},
						},
					},
				},
			},
		},
	}

	prs := ParseGraphQLPRs(response)
	if len(prs) != 1 {
		t.Fatalf("len(prs) = %d, want 1", len(prs))
	}
	pr := prs[0]
	if pr.Number != 42 || pr.Branch != "feat-x" || pr.Commits != 3 {
		t.Errorf("pr = %+v", pr)
	}
	if pr.MergeStateLabel == nil || pr.MergeStateLabel.Label != "Ready to merge" {
		t.Errorf("pr.MergeStateLabel = %+v", pr.MergeStateLabel)
	}
}

func TestParseGraphQLPRsMissingBranchSkips(t *testing.T) {
	response := map[string]any{
		"data": map[string]any{
			"repository": map[string]any{
				"pullRequests": map[string]any{
					"nodes": []any{
						map[string]any{"number": float64(1)},
					},
				},
			},
		},
	}
	if prs := ParseGraphQLPRs(response); len(prs) != 0 {
		t.Fatalf("len(prs) = %d, want 0", len(prs))
	}
}

func TestParseGraphQLPRsNoData(t *testing.T) {
	if prs := ParseGraphQLPRs(map[string]any{}); len(prs) != 0 {
		t.Fatalf("len(prs) = %d, want 0", len(prs))
	}
}
