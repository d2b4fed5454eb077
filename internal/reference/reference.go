// Package reference loads the tutor's reference materials: the skill
// definitions and the historical context notes. Missing material is never
// an error. A document the directory lacks falls back to its built-in
// default, and loads as empty text when there is none. Only the skill
// definitions ship a default.
package reference

import (
	"embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Name identifies a reference document.
type Name string

const (
	Skills            Name = "skills"
	HistoricalContext Name = "historical_context"
)

// Names lists every reference document.
var Names = []Name{Skills, HistoricalContext}

// fileNames maps a reference to its file inside the reference directory.
var fileNames = map[Name]string{
	Skills:            "historical_thinking_skills.txt",
	HistoricalContext: "historical_context.txt",
}

// FileName returns the file a reference is read from.
func FileName(name Name) string {
	return fileNames[name]
}

//go:embed defaults
var defaults embed.FS

// Loader returns reference text by name. Load returns "" when the named
// material is unavailable.
type Loader interface {
	Load(name Name) string
}

// Static is a fixed in-memory Loader.
type Static map[Name]string

// Load implements Loader.
func (s Static) Load(name Name) string { return s[name] }

// Library serves reference material from a directory, falling back to the
// built-in defaults for files the directory lacks. Reload re-reads the
// directory and is safe to call while Load is in use.
type Library struct {
	mu     sync.RWMutex
	dir    string
	texts  map[Name]string
	logger *zap.Logger
}

// NewLibrary loads the references under dir. An empty dir uses only the
// built-in defaults.
func NewLibrary(dir string, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Library{dir: dir, logger: logger}
	l.Reload()
	return l
}

// Dir returns the watched directory.
func (l *Library) Dir() string {
	return l.dir
}

// Load implements Loader.
func (l *Library) Load(name Name) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.texts[name]
}

// Reload re-reads every reference document.
func (l *Library) Reload() {
	texts := make(map[Name]string, len(fileNames))
	for _, name := range Names {
		texts[name] = l.read(name)
	}

	l.mu.Lock()
	l.texts = texts
	l.mu.Unlock()
}

func (l *Library) read(name Name) string {
	file := fileNames[name]
	if l.dir != "" {
		data, err := os.ReadFile(filepath.Join(l.dir, file))
		if err == nil {
			return string(data)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("reference unreadable, using default",
				zap.String("reference", string(name)), zap.Error(err))
		}
	}

	data, err := defaults.ReadFile("defaults/" + file)
	if err != nil {
		return ""
	}
	return string(data)
}
