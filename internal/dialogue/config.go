package dialogue

import "fmt"

// ContextPolicy decides when the historical context reference is added to
// the tutor's instructions.
type ContextPolicy string

const (
	// ContextAlways adds historical context to every turn after the welcome.
	ContextAlways ContextPolicy = "always"
	// ContextForSkill adds it only while the active skill deals with
	// context or sourcing.
	ContextForSkill ContextPolicy = "skill"
)

// ParseContextPolicy validates a policy name. The empty string selects
// ContextAlways.
func ParseContextPolicy(s string) (ContextPolicy, error) {
	switch p := ContextPolicy(s); p {
	case "":
		return ContextAlways, nil
	case ContextAlways, ContextForSkill:
		return p, nil
	}
	return "", fmt.Errorf("unknown context policy %q (want %q or %q)", s, ContextAlways, ContextForSkill)
}

// Config holds composer and generator settings.
type Config struct {
	// WrapUpThreshold is the question count at which the tutor is told to
	// wrap up the current skill. Default: 4.
	WrapUpThreshold int

	ContextPolicy ContextPolicy

	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the default dialogue settings.
func DefaultConfig() Config {
	return Config{
		WrapUpThreshold: 4,
		ContextPolicy:   ContextAlways,
		MaxTokens:       512,
		Temperature:     0.7,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.WrapUpThreshold < 1 {
		return fmt.Errorf("wrap-up threshold must be at least 1, got %d", c.WrapUpThreshold)
	}
	if _, err := ParseContextPolicy(string(c.ContextPolicy)); err != nil {
		return err
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}
