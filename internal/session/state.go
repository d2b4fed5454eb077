// Package session implements the reading session progression engine: the
// intro, source loop and complete phases, per skill-attempt evidence, the
// history windows replayed to the tutor and the atomic per-turn commit.
package session

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/histread/internal/assignment"
)

// Phase is the top-level stage of a session.
type Phase string

const (
	PhaseIntro      Phase = "intro"
	PhaseSourceLoop Phase = "source_loop"
	PhaseComplete   Phase = "complete"
)

// ParsePhase validates a stored phase name.
func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseIntro, PhaseSourceLoop, PhaseComplete:
		return p, nil
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// SkillKey identifies one skill-attempt: a skill practised on a source.
type SkillKey struct {
	Source int
	Skill  int
}

// String renders the key as "source_skill".
func (k SkillKey) String() string {
	return strconv.Itoa(k.Source) + "_" + strconv.Itoa(k.Skill)
}

// Less orders keys lexicographically by source then skill.
func (k SkillKey) Less(o SkillKey) bool {
	if k.Source != o.Source {
		return k.Source < o.Source
	}
	return k.Skill < o.Skill
}

// MarshalText implements encoding.TextMarshaler so keys encode as JSON
// object names.
func (k SkillKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses "source_skill" and rejects anything else.
func (k *SkillKey) UnmarshalText(b []byte) error {
	src, skill, ok := strings.Cut(string(b), "_")
	if !ok {
		return fmt.Errorf("skill key %q: missing separator", b)
	}
	s, err := strconv.Atoi(src)
	if err != nil || s < 0 {
		return fmt.Errorf("skill key %q: bad source index", b)
	}
	sk, err := strconv.Atoi(skill)
	if err != nil || sk < 0 {
		return fmt.Errorf("skill key %q: bad skill index", b)
	}
	*k = SkillKey{Source: s, Skill: sk}
	return nil
}

// Evidence holds the raw student utterances recorded per skill-attempt.
// Each list is append-only.
type Evidence map[SkillKey][]string

// For returns a copy of the utterances recorded for key.
func (e Evidence) For(key SkillKey) []string {
	return slices.Clone(e[key])
}

// Append records an utterance for key, creating the list on first use.
func (e Evidence) Append(key SkillKey, utterance string) {
	e[key] = append(e[key], utterance)
}

// Clone returns a deep copy.
func (e Evidence) Clone() Evidence {
	out := make(Evidence, len(e))
	for k, v := range e {
		out[k] = slices.Clone(v)
	}
	return out
}

// Keys returns the recorded keys in progression order.
func (e Evidence) Keys() []SkillKey {
	return slices.SortedFunc(maps.Keys(e), func(a, b SkillKey) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
}

// State is the progression record of one session.
type State struct {
	ID           string
	AssignmentID string
	Phase        Phase
	SourceIndex  int
	SkillIndex   int
	Evidence     Evidence

	// QuestionsAsked counts tutor replies containing a question during the
	// current skill-attempt.
	QuestionsAsked int

	StartedAt time.Time
	EndedAt   *time.Time

	// Version increases by one with every commit.
	Version int64
}

// NewState returns the initial state of a session.
func NewState(id, assignmentID string, now time.Time) State {
	return State{
		ID:           id,
		AssignmentID: assignmentID,
		Phase:        PhaseIntro,
		Evidence:     Evidence{},
		StartedAt:    now,
		Version:      1,
	}
}

// Key returns the current skill-attempt key.
func (s State) Key() SkillKey {
	return SkillKey{Source: s.SourceIndex, Skill: s.SkillIndex}
}

// Clone returns a deep copy that shares no mutable data with s.
func (s State) Clone() State {
	out := s
	if s.Evidence != nil {
		out.Evidence = s.Evidence.Clone()
	} else {
		out.Evidence = Evidence{}
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	return out
}

// Check verifies the indices against the assignment's source and skill
// lists. A violation means the session is corrupt.
func (s State) Check(a *assignment.Assignment) error {
	sources, skills := len(a.Sources), len(a.Skills)
	switch s.Phase {
	case PhaseIntro:
		if s.SourceIndex != 0 || s.SkillIndex != 0 {
			return s.inconsistent("intro phase at (%d,%d)", s.SourceIndex, s.SkillIndex)
		}
	case PhaseSourceLoop:
		if s.SourceIndex < 0 || s.SourceIndex >= sources {
			return s.inconsistent("source index %d outside [0,%d)", s.SourceIndex, sources)
		}
		if s.SkillIndex < 0 || s.SkillIndex >= skills {
			return s.inconsistent("skill index %d outside [0,%d)", s.SkillIndex, skills)
		}
	case PhaseComplete:
		if s.SourceIndex != sources {
			return s.inconsistent("complete at source index %d, want %d", s.SourceIndex, sources)
		}
	default:
		return s.inconsistent("unknown phase %q", s.Phase)
	}
	return nil
}

func (s State) inconsistent(format string, args ...any) error {
	return &ConsistencyError{SessionID: s.ID, Reason: fmt.Sprintf(format, args...)}
}

// advanced returns the state after the current skill-attempt is mastered:
// the next skill, the next source, or completion after the last source.
func (s State) advanced(a *assignment.Assignment, now time.Time) State {
	next := s.Clone()
	next.SkillIndex++
	if next.SkillIndex >= len(a.Skills) {
		next.SkillIndex = 0
		next.SourceIndex++
	}
	next.QuestionsAsked = 0
	if next.SourceIndex >= len(a.Sources) {
		next.Phase = PhaseComplete
		next.SourceIndex = len(a.Sources)
		next.SkillIndex = 0
		next.EndedAt = &now
	}
	return next
}
