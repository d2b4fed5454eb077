// Package assignment defines the read-only reading exercise a session
// works through: an ordered list of sources and an ordered list of
// historical thinking skills practised on each of them.
package assignment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Proficiency is the student level an assignment targets. It selects the
// mastery criteria the judge applies.
type Proficiency string

const (
	Beginner     Proficiency = "beginner"
	Intermediate Proficiency = "intermediate"
	Advanced     Proficiency = "advanced"
)

// Valid reports whether p is a known proficiency.
func (p Proficiency) Valid() bool {
	switch p {
	case Beginner, Intermediate, Advanced:
		return true
	}
	return false
}

// ParseProficiency accepts a proficiency in any letter case.
func ParseProficiency(s string) (Proficiency, error) {
	p := Proficiency(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown proficiency %q (want beginner, intermediate or advanced)", s)
	}
	return p, nil
}

// Source is one primary source document.
type Source struct {
	Title  string `yaml:"title" json:"title" validate:"required"`
	Author string `yaml:"author" json:"author"`
	Year   string `yaml:"year" json:"year"`
	Text   string `yaml:"text" json:"text" validate:"required"`
}

// Assignment is a multi-source, multi-skill reading exercise.
type Assignment struct {
	ID              string      `yaml:"id" json:"id"`
	Title           string      `yaml:"title" json:"title"`
	Topic           string      `yaml:"topic" json:"topic" validate:"required"`
	GuidingQuestion string      `yaml:"guiding_question" json:"guidingQuestion" validate:"required"`
	Proficiency     Proficiency `yaml:"proficiency" json:"proficiency" validate:"required,proficiency"`
	Skills          []string    `yaml:"skills" json:"skills" validate:"required,min=1,unique,dive,required"`
	Sources         []Source    `yaml:"sources" json:"sources" validate:"required,min=1,dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("proficiency", func(fl validator.FieldLevel) bool {
		return Proficiency(fl.Field().String()).Valid()
	})
}

// Validate checks that the assignment is usable by a session.
func (a *Assignment) Validate() error {
	if err := validate.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid assignment: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid assignment: %w", err)
	}
	return nil
}

// DisplayTitle is the title, falling back to the topic.
func (a *Assignment) DisplayTitle() string {
	if a.Title != "" {
		return a.Title
	}
	return a.Topic
}

// SourceAt returns the source at index i.
func (a *Assignment) SourceAt(i int) (Source, bool) {
	if i < 0 || i >= len(a.Sources) {
		return Source{}, false
	}
	return a.Sources[i], true
}

// SkillAt returns the skill name at index i.
func (a *Assignment) SkillAt(i int) (string, bool) {
	if i < 0 || i >= len(a.Skills) {
		return "", false
	}
	return a.Skills[i], true
}

// AuthorOrUnknown returns the author, or "Unknown" when missing.
func (s Source) AuthorOrUnknown() string {
	if s.Author == "" {
		return "Unknown"
	}
	return s.Author
}

// YearOrUndated returns the year, or "n.d." when missing.
func (s Source) YearOrUndated() string {
	if s.Year == "" {
		return "n.d."
	}
	return s.Year
}
