package session

import (
	"iter"
	"strings"

	"github.com/abhisek/histread/internal/llm"
)

// FullSession yields every turn of the transcript as role-tagged
// messages, oldest first. System-initiated turns contribute only their
// assistant side.
func FullSession(entries []Entry) iter.Seq[llm.Message] {
	return messages(entries)
}

// CurrentAttempt yields the turns since the skill-attempt key began: from
// the most recent source-loop transition tagged with key onward. Without
// such a marker it yields the full session.
func CurrentAttempt(entries []Entry, key SkillKey) iter.Seq[llm.Message] {
	return messages(entries[attemptStart(entries, key):])
}

func attemptStart(entries []Entry, key SkillKey) int {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.IsTransition() && e.Phase == PhaseSourceLoop && e.Key() == key {
			return i
		}
	}
	return 0
}

func messages(entries []Entry) iter.Seq[llm.Message] {
	return func(yield func(llm.Message) bool) {
		for _, e := range entries {
			if in := e.Input(); in != "" {
				if !yield(llm.Message{Role: llm.RoleUser, Content: in}) {
					return
				}
			}
			if e.SystemOutput != "" {
				if !yield(llm.Message{Role: llm.RoleAssistant, Content: e.SystemOutput}) {
					return
				}
			}
		}
	}
}

// withTurn yields seq followed by m.
func withTurn(seq iter.Seq[llm.Message], m llm.Message) iter.Seq[llm.Message] {
	return func(yield func(llm.Message) bool) {
		for msg := range seq {
			if !yield(msg) {
				return
			}
		}
		yield(m)
	}
}

// noHistory is the empty replay window of transition turns.
func noHistory(func(llm.Message) bool) {}

// Excerpt renders the last n entries as "Student:" and "AI:" lines in
// chronological order. It returns "" when there is nothing to show.
func Excerpt(entries []Entry, n int) string {
	if n <= 0 {
		return ""
	}
	start := max(0, len(entries)-n)

	var lines []string
	for _, e := range entries[start:] {
		if in := e.Input(); in != "" {
			lines = append(lines, "Student: "+in)
		}
		if e.SystemOutput != "" {
			lines = append(lines, "AI: "+e.SystemOutput)
		}
	}
	return strings.Join(lines, "\n")
}
