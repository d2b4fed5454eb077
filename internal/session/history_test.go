package session

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abhisek/histread/internal/llm"
)

func input(s string) *string { return &s }

// sampleTranscript covers the welcome, a first attempt at (0,0) with a
// blocked advance, and a second attempt at (0,1).
func sampleTranscript() []Entry {
	return []Entry{
		{Seq: 1, Phase: PhaseIntro, SystemOutput: "Welcome."},
		{Seq: 2, Phase: PhaseIntro, StudentInput: input("hi"), SystemOutput: "Hello!"},
		{Seq: 3, Phase: PhaseSourceLoop, SystemOutput: "Read source 1."},
		{Seq: 4, Phase: PhaseSourceLoop, StudentInput: input("taxes rose"), SystemOutput: "Why?"},
		{Seq: 5, Phase: PhaseSourceLoop, StudentInput: input(AdvanceMarker), SystemOutput: "Go deeper."},
		{Seq: 6, Phase: PhaseSourceLoop, SkillIndex: 1, SystemOutput: "Who wrote it?"},
		{Seq: 7, Phase: PhaseSourceLoop, SkillIndex: 1, StudentInput: input("a governor"), SystemOutput: "When?"},
	}
}

func TestFullSession(t *testing.T) {
	got := slices.Collect(FullSession(sampleTranscript()))
	want := []llm.Message{
		{Role: llm.RoleAssistant, Content: "Welcome."},
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "Hello!"},
		{Role: llm.RoleAssistant, Content: "Read source 1."},
		{Role: llm.RoleUser, Content: "taxes rose"},
		{Role: llm.RoleAssistant, Content: "Why?"},
		{Role: llm.RoleUser, Content: AdvanceMarker},
		{Role: llm.RoleAssistant, Content: "Go deeper."},
		{Role: llm.RoleAssistant, Content: "Who wrote it?"},
		{Role: llm.RoleUser, Content: "a governor"},
		{Role: llm.RoleAssistant, Content: "When?"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FullSession mismatch (-want +got):\n%s", diff)
	}
}

func TestCurrentAttempt(t *testing.T) {
	entries := sampleTranscript()
	tests := []struct {
		name string
		key  SkillKey
		want []llm.Message
	}{
		{
			name: "latest attempt",
			key:  SkillKey{0, 1},
			want: []llm.Message{
				{Role: llm.RoleAssistant, Content: "Who wrote it?"},
				{Role: llm.RoleUser, Content: "a governor"},
				{Role: llm.RoleAssistant, Content: "When?"},
			},
		},
		{
			// The blocked turn carries a marker input, so it does not
			// restart the window.
			name: "earlier attempt runs to the end",
			key:  SkillKey{0, 0},
			want: slices.Collect(FullSession(entries[2:])),
		},
		{
			name: "no marker falls back to full session",
			key:  SkillKey{1, 0},
			want: slices.Collect(FullSession(entries)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slices.Collect(CurrentAttempt(entries, tt.key))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CurrentAttempt(%s) mismatch (-want +got):\n%s", tt.key, diff)
			}
		})
	}
}

func TestCurrentAttemptIsSuffixAndRestartable(t *testing.T) {
	entries := sampleTranscript()
	full := slices.Collect(FullSession(entries))

	for _, key := range []SkillKey{{0, 0}, {0, 1}, {1, 0}, {3, 3}} {
		seq := CurrentAttempt(entries, key)
		first := slices.Collect(seq)
		second := slices.Collect(seq)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("%s: second iteration differs (-first +second):\n%s", key, diff)
		}
		if len(first) > len(full) {
			t.Fatalf("%s: window longer than the session", key)
		}
		if diff := cmp.Diff(full[len(full)-len(first):], first); diff != "" {
			t.Errorf("%s: window is not a suffix (-want +got):\n%s", key, diff)
		}
	}
}

func TestWindowStopsEarly(t *testing.T) {
	var n int
	for range FullSession(sampleTranscript()) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d messages, want 2", n)
	}
}

func TestEmptyTranscript(t *testing.T) {
	if got := slices.Collect(CurrentAttempt(nil, SkillKey{})); len(got) != 0 {
		t.Errorf("CurrentAttempt(nil) = %v, want empty", got)
	}
	if got := slices.Collect[llm.Message](noHistory); len(got) != 0 {
		t.Errorf("noHistory = %v, want empty", got)
	}
}

func TestExcerpt(t *testing.T) {
	entries := sampleTranscript()

	got := Excerpt(entries, 2)
	want := "AI: Who wrote it?\nStudent: a governor\nAI: When?"
	if got != want {
		t.Errorf("Excerpt(2) =\n%s\nwant\n%s", got, want)
	}
	if got := Excerpt(entries, 0); got != "" {
		t.Errorf("Excerpt(0) = %q, want empty", got)
	}
	if got := Excerpt(nil, 4); got != "" {
		t.Errorf("Excerpt(nil) = %q, want empty", got)
	}
	if got := Excerpt(entries[:1], 4); got != "AI: Welcome." {
		t.Errorf("Excerpt(short) = %q", got)
	}
}

func TestExcerptDefaultWindow(t *testing.T) {
	entries := append(sampleTranscript(),
		Entry{Seq: 8, Phase: PhaseSourceLoop, SkillIndex: 1, StudentInput: input("1765"), SystemOutput: "Why then?"},
		Entry{Seq: 9, Phase: PhaseSourceLoop, SkillIndex: 1, StudentInput: input("the war debt"), SystemOutput: "Good."},
		Entry{Seq: 10, Phase: PhaseSourceLoop, SkillIndex: 1, StudentInput: input("done"), SystemOutput: "Anything else?"},
	)

	got := Excerpt(entries, DefaultConfig().ExcerptEntries)
	if !strings.HasPrefix(got, "AI: Read source 1.\n") {
		t.Errorf("excerpt should start at the eighth-from-last entry:\n%s", got)
	}
	for _, old := range []string{"Welcome.", "Hello!"} {
		if strings.Contains(got, old) {
			t.Errorf("excerpt reaches back to %q:\n%s", old, got)
		}
	}
	if !strings.HasSuffix(got, "Student: done\nAI: Anything else?") {
		t.Errorf("excerpt should end with the latest exchange:\n%s", got)
	}
}
