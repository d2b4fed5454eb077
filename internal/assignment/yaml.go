package assignment

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Decode reads a YAML assignment, assigns an ID when the document has
// none, and validates it.
func Decode(r io.Reader) (*Assignment, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var a Assignment
	if err := dec.Decode(&a); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode assignment: empty document")
		}
		return nil, fmt.Errorf("decode assignment: %w", err)
	}

	a.Proficiency = Proficiency(strings.ToLower(string(a.Proficiency)))
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// LoadFile decodes the YAML assignment at path.
func LoadFile(path string) (*Assignment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open assignment: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
