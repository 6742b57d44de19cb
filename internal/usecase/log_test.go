package usecase

import (
	"strings"
	"testing"

	"repotalk/internal/domain"
)

func TestConversationLogAppendKeepsOrder(t *testing.T) {
	t.Parallel()

	var log conversationLog
	first := log.append(domain.RoleUser, "one")
	second := log.append(domain.RoleAssistant, "two")

	if first.ID == "" || second.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct non-empty ids: %q %q", first.ID, second.ID)
	}

	turns := log.snapshot()
	if len(turns) != 2 {
		t.Fatalf("unexpected size: %d", len(turns))
	}
	if turns[0].Content != "one" || turns[1].Content != "two" {
		t.Fatalf("order not preserved: %+v", turns)
	}
}

func TestConversationLogSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	var log conversationLog
	log.append(domain.RoleUser, "original")

	snap := log.snapshot()
	snap[0].Content = "mutated"

	if log.snapshot()[0].Content != "original" {
		t.Fatalf("snapshot must not alias the log")
	}
	if log.size() != 1 {
		t.Fatalf("unexpected size: %d", log.size())
	}
}

func TestWelcomeMessageReferencesRepoName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://github.com/a/b":          "b",
		"https://github.com/a/b.git":      "b",
		"https://github.com/a/b/":         "b",
		"https://example.com/deep/repo-x": "repo-x",
	}
	for input, name := range cases {
		got := welcomeMessage(input)
		if !strings.Contains(got, "about "+name+".") {
			t.Fatalf("welcome for %q should mention %q, got %q", input, name, got)
		}
	}

	if got := welcomeMessage(""); !strings.Contains(got, "this repository") {
		t.Fatalf("expected generic fallback, got %q", got)
	}
}
