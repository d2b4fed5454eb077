package session

import "strings"

// QuestionPredicate reports whether a tutor reply asks the student a
// question.
type QuestionPredicate func(reply string) bool

// ContainsQuestionMark is the default QuestionPredicate.
func ContainsQuestionMark(reply string) bool {
	return strings.Contains(reply, "?")
}
