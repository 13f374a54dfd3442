package outputparser

import "testing"

func TestParsePlanFile(t *testing.T) {
	events := Parse("see plans/2026-launch.md for details")
	found := false
	for _, e := range events {
		if e.Kind == EventPlanFile && e.Path == "plans/2026-launch.md" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a plan_file event, got %+v", events)
	}
}

func TestParseRateLimit(t *testing.T) {
	events := Parse("error: HTTP 429 received")
	found := false
	for _, e := range events {
		if e.Kind == EventRateLimit && e.PatternName == "claude-http-429" && e.RetryAfterMs == 60000 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a rate_limit event, got %+v", events)
	}
}

func TestParsePrURL(t *testing.T) {
	events := Parse("merged https://github.com/acme/widget/pull/42 already")
	found := false
	for _, e := range events {
		if e.Kind == EventPrURL && e.Number == 42 && e.Platform == "github" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a pr_url event, got %+v", events)
	}
}

func TestParseProgress(t *testing.T) {
	events := Parse("before\x1b]9;4;1;42\x07after")
	found := false
	for _, e := range events {
		if e.Kind == EventProgress && e.State == 1 && e.Value == 42 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a progress event, got %+v", events)
	}
}

func TestParseUsageLimit(t *testing.T) {
	events := Parse("You have used 80% of weekly usage")
	found := false
	for _, e := range events {
		if e.Kind == EventUsageLimit && e.Percentage == 80 && e.LimitType == "weekly" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a usage_limit event, got %+v", events)
	}
}
