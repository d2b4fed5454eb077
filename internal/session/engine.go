package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/llm"
	"github.com/abhisek/histread/internal/mastery"
	"github.com/abhisek/histread/internal/store"
)

// TurnMode tells the composer what kind of turn it is building for.
type TurnMode int

const (
	// ModeWelcome is the intro welcome at session start.
	ModeWelcome TurnMode = iota
	// ModeTransition introduces a new source or skill.
	ModeTransition
	// ModeContinue answers a student utterance.
	ModeContinue
	// ModeBlocked follows an advance request the gate refused.
	ModeBlocked
)

func (m TurnMode) String() string {
	switch m {
	case ModeWelcome:
		return "welcome"
	case ModeTransition:
		return "transition"
	case ModeContinue:
		return "continue"
	case ModeBlocked:
		return "blocked"
	}
	return fmt.Sprintf("TurnMode(%d)", int(m))
}

// Composer builds the instruction bundle for one generation call.
type Composer interface {
	Compose(a *assignment.Assignment, st State, mode TurnMode) (string, error)
}

// Generator produces the tutor's reply from a replay window and
// instructions.
type Generator interface {
	Generate(ctx context.Context, history iter.Seq[llm.Message], instructions string) (string, error)
}

// Gate decides whether the current skill-attempt is mastered.
type Gate interface {
	Evaluate(ctx context.Context, in mastery.Input) (mastery.Verdict, error)
}

// Assignments looks up assignments. Unknown IDs yield an error wrapping
// store.ErrNotFound.
type Assignments interface {
	Get(ctx context.Context, id string) (*assignment.Assignment, error)
}

// Observer is notified after every engine operation.
type Observer interface {
	ObserveTurn(op, outcome string, elapsed time.Duration)
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Assignments Assignments
	Sessions    Repository
	Composer    Composer
	Generator   Generator
	Gate        Gate

	// Optional.
	Logger     *zap.Logger
	Observer   Observer
	IsQuestion QuestionPredicate
	Now        func() time.Time
	NewID      func() string
}

// Engine drives sessions through intro, the source loop and completion.
// Turns for the same session are serialized; distinct sessions share no
// mutable state.
type Engine struct {
	deps  Deps
	cfg   Config
	locks *keyedLocks
	log   *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(d Deps, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case d.Assignments == nil:
		return nil, errors.New("session engine: assignments are required")
	case d.Sessions == nil:
		return nil, errors.New("session engine: repository is required")
	case d.Composer == nil:
		return nil, errors.New("session engine: composer is required")
	case d.Generator == nil:
		return nil, errors.New("session engine: generator is required")
	case d.Gate == nil:
		return nil, errors.New("session engine: mastery gate is required")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.IsQuestion == nil {
		d.IsQuestion = ContainsQuestionMark
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return &Engine{deps: d, cfg: cfg, locks: newKeyedLocks(), log: d.Logger}, nil
}

// BeginResult is returned by Begin.
type BeginResult struct {
	SessionID       string              `json:"sessionId"`
	WelcomeMessage  string              `json:"welcomeMessage"`
	Sources         []assignment.Source `json:"sources"`
	TotalSources    int                 `json:"totalSources"`
	TotalSkills     int                 `json:"totalSkills"`
	Topic           string              `json:"topic"`
	GuidingQuestion string              `json:"guidingQuestion"`
}

// SubmitResult is returned by Submit.
type SubmitResult struct {
	Reply          string `json:"reply"`
	Phase          Phase  `json:"phase"`
	SourceIndex    int    `json:"sourceIndex"`
	SkillIndex     int    `json:"skillIndex"`
	QuestionsAsked int    `json:"questionsAsked"`
	Complete       bool   `json:"complete,omitempty"`
}

// AdvanceResult is returned by Advance. Indices are set only when they
// changed.
type AdvanceResult struct {
	Blocked                 bool   `json:"blocked"`
	Reply                   string `json:"reply"`
	NextPhase               Phase  `json:"nextPhase"`
	CurrentSkill            string `json:"currentSkill,omitempty"`
	CurrentSkillDescription string `json:"currentSkillDescription,omitempty"`
	PreviousSkill           string `json:"previousSkill,omitempty"`
	SourceIndex             *int   `json:"sourceIndex,omitempty"`
	SkillIndex              *int   `json:"skillIndex,omitempty"`
	TotalSources            int    `json:"totalSources,omitempty"`
	TotalSkills             int    `json:"totalSkills,omitempty"`
	Complete                bool   `json:"complete,omitempty"`
}

// Audit is the full record of one session.
type Audit struct {
	State      State
	Assignment *assignment.Assignment
	Entries    []Entry
}

// Begin starts a session for an assignment and generates the welcome.
func (e *Engine) Begin(ctx context.Context, assignmentID string) (res *BeginResult, err error) {
	defer e.observe("begin", time.Now(), &err, func() string { return "ok" })

	a, err := e.assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	st := NewState(e.deps.NewID(), a.ID, e.deps.Now())
	reply, err := e.generate(ctx, a, st, ModeWelcome, noHistory)
	if err != nil {
		return nil, err
	}

	welcome := Entry{Phase: PhaseIntro, SystemOutput: reply, CreatedAt: e.deps.Now()}
	if err := e.deps.Sessions.Create(ctx, st, welcome); err != nil {
		return nil, e.commitFailed(st.ID, reply, err)
	}

	e.log.Info("session started", zap.String("session_id", st.ID), zap.String("assignment_id", a.ID))
	return &BeginResult{
		SessionID:       st.ID,
		WelcomeMessage:  reply,
		Sources:         a.Sources,
		TotalSources:    len(a.Sources),
		TotalSkills:     len(a.Skills),
		Topic:           a.Topic,
		GuidingQuestion: a.GuidingQuestion,
	}, nil
}

// Submit records a student utterance and generates the tutor's reply.
func (e *Engine) Submit(ctx context.Context, sessionID, text string) (res *SubmitResult, err error) {
	defer e.observe("utterance", time.Now(), &err, func() string { return "ok" })

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyUtterance
	}

	release, err := e.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	a, st, entries, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.Phase == PhaseComplete {
		return &SubmitResult{Reply: e.cfg.CompletionMessage, Phase: PhaseComplete, SourceIndex: st.SourceIndex, Complete: true}, nil
	}

	next := st.Clone()
	next.Version++

	window := FullSession(entries)
	if st.Phase == PhaseSourceLoop {
		next.Evidence.Append(st.Key(), text)
		window = CurrentAttempt(entries, st.Key())
	}

	reply, err := e.generate(ctx, a, st, ModeContinue, withTurn(window, llm.Message{Role: llm.RoleUser, Content: text}))
	if err != nil {
		return nil, err
	}
	if st.Phase == PhaseSourceLoop && e.deps.IsQuestion(reply) {
		next.QuestionsAsked++
	}

	entry := Entry{
		Phase:        st.Phase,
		SourceIndex:  st.SourceIndex,
		SkillIndex:   st.SkillIndex,
		StudentInput: &text,
		SystemOutput: reply,
		CreatedAt:    e.deps.Now(),
	}
	if err := e.deps.Sessions.Commit(ctx, next, entry); err != nil {
		return nil, e.commitFailed(st.ID, reply, err)
	}

	return &SubmitResult{
		Reply:          reply,
		Phase:          next.Phase,
		SourceIndex:    next.SourceIndex,
		SkillIndex:     next.SkillIndex,
		QuestionsAsked: next.QuestionsAsked,
	}, nil
}

// Advance handles the student's request to move on. In intro it begins
// the first skill-attempt. In the source loop it consults the mastery
// gate and either blocks with a guidance turn or moves to the next skill,
// the next source, or completion. Once complete it only repeats the
// completion state.
func (e *Engine) Advance(ctx context.Context, sessionID string) (res *AdvanceResult, err error) {
	defer e.observe("advance", time.Now(), &err, func() string { return advanceOutcome(res) })

	release, err := e.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	a, st, entries, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch st.Phase {
	case PhaseIntro:
		next := st.Clone()
		next.Phase = PhaseSourceLoop
		next.SourceIndex, next.SkillIndex, next.QuestionsAsked = 0, 0, 0
		return e.transition(ctx, a, st, next, "")

	case PhaseSourceLoop:
		return e.advanceSkill(ctx, a, st, entries)

	default:
		return &AdvanceResult{NextPhase: PhaseComplete, Reply: e.cfg.CompletionMessage, Complete: true}, nil
	}
}

func (e *Engine) advanceSkill(ctx context.Context, a *assignment.Assignment, st State, entries []Entry) (*AdvanceResult, error) {
	skill := a.Skills[st.SkillIndex]

	verdict, err := e.deps.Gate.Evaluate(llm.WithSessionID(ctx, st.ID), mastery.Input{
		Skill:       skill,
		Proficiency: a.Proficiency,
		Evidence:    st.Evidence.For(st.Key()),
		Excerpt:     Excerpt(entries, e.cfg.ExcerptEntries),
	})
	if err != nil {
		return nil, err
	}

	if !verdict.Mastered {
		return e.blocked(ctx, a, st, entries, skill)
	}

	next := st.advanced(a, e.deps.Now())
	if next.Phase == PhaseComplete {
		return e.complete(ctx, a, st, next, skill)
	}
	return e.transition(ctx, a, st, next, skill)
}

// blocked generates a guidance turn over the full session without
// touching any index.
func (e *Engine) blocked(ctx context.Context, a *assignment.Assignment, st State, entries []Entry, skill string) (*AdvanceResult, error) {
	marker := AdvanceMarker
	window := withTurn(FullSession(entries), llm.Message{Role: llm.RoleUser, Content: marker})

	reply, err := e.generate(ctx, a, st, ModeBlocked, window)
	if err != nil {
		return nil, err
	}

	next := st.Clone()
	next.Version++
	entry := Entry{
		Phase:        st.Phase,
		SourceIndex:  st.SourceIndex,
		SkillIndex:   st.SkillIndex,
		StudentInput: &marker,
		SystemOutput: reply,
		CreatedAt:    e.deps.Now(),
	}
	if err := e.deps.Sessions.Commit(ctx, next, entry); err != nil {
		return nil, e.commitFailed(st.ID, reply, err)
	}

	e.log.Info("advance blocked", e.fields(st)...)
	return &AdvanceResult{Blocked: true, Reply: reply, NextPhase: PhaseSourceLoop, CurrentSkill: skill}, nil
}

// transition commits next and generates the introduction of its
// skill-attempt with an empty replay window.
func (e *Engine) transition(ctx context.Context, a *assignment.Assignment, st, next State, previousSkill string) (*AdvanceResult, error) {
	if err := next.Check(a); err != nil {
		return nil, err
	}
	next.Version = st.Version + 1

	reply, err := e.generate(ctx, a, next, ModeTransition, noHistory)
	if err != nil {
		return nil, err
	}

	entry := Entry{
		Phase:        PhaseSourceLoop,
		SourceIndex:  next.SourceIndex,
		SkillIndex:   next.SkillIndex,
		SystemOutput: reply,
		CreatedAt:    e.deps.Now(),
	}
	if err := e.deps.Sessions.Commit(ctx, next, entry); err != nil {
		return nil, e.commitFailed(st.ID, reply, err)
	}

	e.log.Info("skill-attempt started", e.fields(next)...)
	skill := a.Skills[next.SkillIndex]
	src, sk := next.SourceIndex, next.SkillIndex
	return &AdvanceResult{
		Reply:                   reply,
		NextPhase:               PhaseSourceLoop,
		CurrentSkill:            skill,
		CurrentSkillDescription: assignment.SkillDescription(skill),
		PreviousSkill:           previousSkill,
		SourceIndex:             &src,
		SkillIndex:              &sk,
		TotalSources:            len(a.Sources),
		TotalSkills:             len(a.Skills),
	}, nil
}

// complete commits the terminal state with the fixed completion message.
// Nothing is generated.
func (e *Engine) complete(ctx context.Context, a *assignment.Assignment, st, next State, previousSkill string) (*AdvanceResult, error) {
	next.Version = st.Version + 1
	entry := Entry{
		Phase:        PhaseComplete,
		SourceIndex:  next.SourceIndex,
		SkillIndex:   next.SkillIndex,
		SystemOutput: e.cfg.CompletionMessage,
		CreatedAt:    e.deps.Now(),
	}
	if err := e.deps.Sessions.Commit(ctx, next, entry); err != nil {
		return nil, e.commitFailed(st.ID, e.cfg.CompletionMessage, err)
	}

	e.log.Info("session complete", e.fields(next)...)
	return &AdvanceResult{
		Reply:         e.cfg.CompletionMessage,
		NextPhase:     PhaseComplete,
		PreviousSkill: previousSkill,
		TotalSources:  len(a.Sources),
		TotalSkills:   len(a.Skills),
		Complete:      true,
	}, nil
}

// Inspect returns the state and transcript of a session.
func (e *Engine) Inspect(ctx context.Context, sessionID string) (*Audit, error) {
	a, st, entries, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Audit{State: st, Assignment: a, Entries: entries}, nil
}

func (e *Engine) generate(ctx context.Context, a *assignment.Assignment, st State, mode TurnMode, history iter.Seq[llm.Message]) (string, error) {
	instructions, err := e.deps.Composer.Compose(a, st, mode)
	if err != nil {
		return "", err
	}
	ctx = llm.WithSessionID(ctx, st.ID)
	return e.deps.Generator.Generate(ctx, history, instructions)
}

func (e *Engine) assignment(ctx context.Context, id string) (*assignment.Assignment, error) {
	a, err := e.deps.Assignments.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Kind: "assignment", ID: id}
	}
	if err != nil {
		return nil, err
	}
	if len(a.Sources) == 0 || len(a.Skills) == 0 {
		return nil, fmt.Errorf("assignment %s has no sources or no skills", id)
	}
	return a, nil
}

// load reads a session and its assignment and verifies their indices
// agree.
func (e *Engine) load(ctx context.Context, sessionID string) (*assignment.Assignment, State, []Entry, error) {
	st, entries, err := e.deps.Sessions.Load(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, State{}, nil, &NotFoundError{Kind: "session", ID: sessionID}
	}
	if err != nil {
		return nil, State{}, nil, err
	}

	a, err := e.deps.Assignments.Get(ctx, st.AssignmentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, State{}, nil, &ConsistencyError{SessionID: sessionID, Reason: "assignment " + st.AssignmentID + " is missing"}
	}
	if err != nil {
		return nil, State{}, nil, err
	}
	if err := st.Check(a); err != nil {
		e.log.Error("inconsistent session", append(e.fields(st), zap.Error(err))...)
		return nil, State{}, nil, err
	}
	return a, st, entries, nil
}

func (e *Engine) lock(ctx context.Context, sessionID string) (func(), error) {
	return e.locks.acquire(ctx, sessionID, e.cfg.Lock != LockFailFast)
}

func (e *Engine) commitFailed(sessionID, output string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: "session", ID: sessionID}
	}
	e.log.Error("turn not committed",
		zap.String("session_id", sessionID),
		zap.String("output", output),
		zap.Error(err))
	return &CommitError{SessionID: sessionID, Output: output, Err: err}
}

func (e *Engine) fields(st State) []zap.Field {
	return []zap.Field{
		zap.String("session_id", st.ID),
		zap.String("phase", string(st.Phase)),
		zap.Int("source_index", st.SourceIndex),
		zap.Int("skill_index", st.SkillIndex),
	}
}

func (e *Engine) observe(op string, start time.Time, err *error, outcome func() string) {
	if e.deps.Observer == nil {
		return
	}
	result := "error"
	if *err == nil {
		result = outcome()
	}
	e.deps.Observer.ObserveTurn(op, result, time.Since(start))
}

func advanceOutcome(res *AdvanceResult) string {
	switch {
	case res == nil:
		return "error"
	case res.Blocked:
		return "blocked"
	case res.Complete:
		return "complete"
	}
	return "advanced"
}
