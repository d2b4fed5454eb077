package session

import "time"

// AdvanceMarker is recorded as the student input of a blocked advance
// turn.
const AdvanceMarker = "[Attempted to advance]"

// Entry is one immutable turn of the transcript.
type Entry struct {
	Seq         int
	Phase       Phase
	SourceIndex int
	SkillIndex  int

	// StudentInput is nil for system-initiated turns.
	StudentInput *string
	SystemOutput string
	CreatedAt    time.Time
}

// Key returns the skill-attempt the entry is tagged with.
func (e Entry) Key() SkillKey {
	return SkillKey{Source: e.SourceIndex, Skill: e.SkillIndex}
}

// IsTransition reports whether the turn was system-initiated.
func (e Entry) IsTransition() bool {
	return e.StudentInput == nil
}

// Input returns the student input, or "" for a system-initiated turn.
func (e Entry) Input() string {
	if e.StudentInput == nil {
		return ""
	}
	return *e.StudentInput
}
