package session

import "fmt"

// LockPolicy selects what a turn does when its session is busy.
type LockPolicy string

const (
	// LockWait queues behind the in-flight turn.
	LockWait LockPolicy = "wait"
	// LockFailFast returns ErrBusy immediately.
	LockFailFast LockPolicy = "fail-fast"
)

// DefaultCompletionMessage is returned once every source is complete.
const DefaultCompletionMessage = "Excellent work! You've completed all the sources and demonstrated strong historical thinking skills."

// Config holds engine settings.
type Config struct {
	// ExcerptEntries is how many recent transcript entries the mastery
	// judge sees. Default: 8, four exchanges of question and answer.
	ExcerptEntries int

	// CompletionMessage is the fixed reply on completion.
	CompletionMessage string

	// Lock is the busy-session policy. Default: LockWait.
	Lock LockPolicy
}

// DefaultConfig returns the default engine settings.
func DefaultConfig() Config {
	return Config{
		ExcerptEntries:    8,
		CompletionMessage: DefaultCompletionMessage,
		Lock:              LockWait,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.ExcerptEntries < 0 {
		return fmt.Errorf("excerpt entries must not be negative, got %d", c.ExcerptEntries)
	}
	if c.CompletionMessage == "" {
		return fmt.Errorf("completion message is required")
	}
	switch c.Lock {
	case LockWait, LockFailFast:
	default:
		return fmt.Errorf("unknown lock policy %q", c.Lock)
	}
	return nil
}
