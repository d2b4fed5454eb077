package session

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestSkillKeyText(t *testing.T) {
	ev := Evidence{{0, 1}: {"a"}, {2, 0}: {"b", "c"}}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"0_1":["a"],"2_0":["b","c"]}` {
		t.Errorf("Marshal = %s", data)
	}

	var back Evidence
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := back.For(SkillKey{2, 0}); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("evidence[2_0] = %q", got)
	}
}

func TestSkillKeyRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "0", "a_1", "1_b", "-1_0", "0_-2", "1_2_3"} {
		var k SkillKey
		if err := k.UnmarshalText([]byte(s)); err == nil {
			t.Errorf("UnmarshalText(%q) = %v, want error", s, k)
		}
	}
}

func TestEvidenceIsolation(t *testing.T) {
	ev := Evidence{}
	ev.Append(SkillKey{0, 0}, "first")

	got := ev.For(SkillKey{0, 0})
	got[0] = "changed"
	if ev[SkillKey{0, 0}][0] != "first" {
		t.Error("For returned a shared slice")
	}

	clone := ev.Clone()
	clone.Append(SkillKey{0, 0}, "second")
	if len(ev[SkillKey{0, 0}]) != 1 {
		t.Error("Clone shares lists with the original")
	}
	if keys := (Evidence{{1, 0}: nil, {0, 2}: nil, {0, 1}: nil}).Keys(); !slices.Equal(keys, []SkillKey{{0, 1}, {0, 2}, {1, 0}}) {
		t.Errorf("Keys = %v", keys)
	}
}

func TestCheck(t *testing.T) {
	a := testAssignment("a1", 2, "Comprehension", "Sourcing", "Evaluation")
	tests := []struct {
		name  string
		phase Phase
		src   int
		skill int
		ok    bool
	}{
		{"intro", PhaseIntro, 0, 0, true},
		{"intro with indices", PhaseIntro, 0, 1, false},
		{"first attempt", PhaseSourceLoop, 0, 0, true},
		{"last attempt", PhaseSourceLoop, 1, 2, true},
		{"skill past end", PhaseSourceLoop, 0, 3, false},
		{"source past end", PhaseSourceLoop, 2, 0, false},
		{"negative skill", PhaseSourceLoop, 0, -1, false},
		{"complete", PhaseComplete, 2, 0, true},
		{"complete early", PhaseComplete, 1, 0, false},
		{"unknown phase", Phase("review"), 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := State{ID: "s", Phase: tt.phase, SourceIndex: tt.src, SkillIndex: tt.skill}
			err := st.Check(a)
			if tt.ok {
				if err != nil {
					t.Errorf("Check = %v, want nil", err)
				}
				return
			}
			var ce *ConsistencyError
			if !errors.As(err, &ce) || ce.SessionID != "s" {
				t.Errorf("Check = %v, want ConsistencyError", err)
			}
		})
	}
}

func TestAdvanced(t *testing.T) {
	a := testAssignment("a1", 2, "Comprehension", "Sourcing")
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		from, want SkillKey
		phase      Phase
	}{
		{SkillKey{0, 0}, SkillKey{0, 1}, PhaseSourceLoop},
		{SkillKey{0, 1}, SkillKey{1, 0}, PhaseSourceLoop},
		{SkillKey{1, 0}, SkillKey{1, 1}, PhaseSourceLoop},
		{SkillKey{1, 1}, SkillKey{2, 0}, PhaseComplete},
	}
	for _, tt := range tests {
		st := State{Phase: PhaseSourceLoop, SourceIndex: tt.from.Source, SkillIndex: tt.from.Skill, QuestionsAsked: 3, Evidence: Evidence{}}
		next := st.advanced(a, now)
		if next.Key() != tt.want || next.Phase != tt.phase || next.QuestionsAsked != 0 {
			t.Errorf("advanced(%s) = %s %s q=%d, want %s %s q=0", tt.from, next.Key(), next.Phase, next.QuestionsAsked, tt.want, tt.phase)
		}
		if (next.EndedAt != nil) != (tt.phase == PhaseComplete) {
			t.Errorf("advanced(%s) EndedAt = %v", tt.from, next.EndedAt)
		}
		if st.QuestionsAsked != 3 {
			t.Error("advanced mutated its receiver")
		}
	}
}
