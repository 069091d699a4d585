package usecase

import (
	"fmt"
	"strings"
	"testing"
)

func transcript(pairs int) []string {
	lines := make([]string, 0, pairs*2)
	for i := 1; i <= pairs; i++ {
		lines = append(lines, fmt.Sprintf("User: question %d", i))
		lines = append(lines, fmt.Sprintf("Assistant: answer %d", i))
	}
	return lines
}

func TestTrimConversationContextReturnsFalseForBlank(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\n \t\n"} {
		if _, ok := TrimConversationContext(raw, 6); ok {
			t.Fatalf("expected no context for %q", raw)
		}
	}
}

func TestTrimConversationContextKeepsShortTranscript(t *testing.T) {
	raw := strings.Join(transcript(4), "\n")

	got, ok := TrimConversationContext(raw, 6)
	if !ok {
		t.Fatalf("expected context")
	}
	if got != raw {
		t.Fatalf("expected transcript unchanged, got %q", got)
	}
}

func TestTrimConversationContextKeepsLastTwelveLines(t *testing.T) {
	lines := transcript(10)

	got, ok := TrimConversationContext(strings.Join(lines, "\n"), 6)
	if !ok {
		t.Fatalf("expected context")
	}
	want := strings.Join(lines[8:], "\n")
	if got != want {
		t.Fatalf("unexpected trimmed context:\n%s\nwant:\n%s", got, want)
	}
	if n := len(strings.Split(got, "\n")); n != 12 {
		t.Fatalf("expected 12 lines, got %d", n)
	}
}

func TestTrimConversationContextSkipsEmptyLines(t *testing.T) {
	raw := "User: hi\n\nAssistant: hello\n   \nUser: bye\nAssistant: see you\n"

	got, ok := TrimConversationContext(raw, 1)
	if !ok {
		t.Fatalf("expected context")
	}
	if got != "User: bye\nAssistant: see you" {
		t.Fatalf("unexpected trimmed context: %q", got)
	}
}
