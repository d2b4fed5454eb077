package reading

import (
	"time"

	"github.com/abhisek/histread/internal/session"
)

// begunMsg is sent when the session has been created.
type begunMsg struct {
	Result *session.BeginResult
	Err    error
}

// repliedMsg is sent when the tutor has answered an utterance.
type repliedMsg struct {
	Text   string
	Result *session.SubmitResult
	Err    error
}

// advancedMsg is sent when an advance request has been decided.
type advancedMsg struct {
	Result *session.AdvanceResult
	Err    error
}

// spinnerTickMsg animates the waiting indicator while a turn is in flight.
type spinnerTickMsg time.Time
