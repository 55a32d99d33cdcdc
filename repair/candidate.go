package repair

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// candidatePrefix distinguishes verification copies from real theme files so
// the watch-compiler's output never collides with anything tracked.
const candidatePrefix = "sbmtest"

// Candidate is one transient working copy inside the watched directory. The
// original file is read once and never touched until an explicit write back.
type Candidate struct {
	Source   string // original output file
	Name     string // base name of the original
	Working  string // prefixed copy inside the watched directory
	Compiled string // compiled sibling the watcher produces
	Content  string // current candidate text, rewritten by fixers
}

func newRunID() string {
	return strings.Split(uuid.NewString(), "-")[0]
}

// buildCandidates reads the target files and lays out their working copies.
func buildCandidates(files []string, watchedDir, runID string) ([]*Candidate, error) {
	cands := make([]*Candidate, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading candidate source: %w", err)
		}
		name := filepath.Base(f)
		working := filepath.Join(watchedDir, candidatePrefix+"-"+runID+"-"+name)
		cands = append(cands, &Candidate{
			Source:   f,
			Name:     name,
			Working:  working,
			Compiled: compiledName(working),
			Content:  string(data),
		})
	}
	return cands, nil
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}

func compiledName(working string) string {
	ext := filepath.Ext(working)
	if ext == ".scss" || ext == ".sass" {
		return strings.TrimSuffix(working, ext) + ".css"
	}
	return working + ".css"
}

// submit writes the current candidate content into the watched directory.
func (c *Candidate) submit() error {
	if err := os.WriteFile(c.Working, []byte(c.Content), 0o644); err != nil {
		return fmt.Errorf("submitting candidate %s: %w", c.Name, err)
	}
	return nil
}

// compiledExists is the primary compile-success signal.
func (c *Candidate) compiledExists() bool {
	fi, err := os.Stat(c.Compiled)
	return err == nil && fi.Size() > 0
}

// remove deletes the working copy and its compiled artifact.
func (c *Candidate) remove() error {
	var errs error
	for _, p := range []string{c.Working, c.Compiled} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// writeBack copies the repaired content onto the real output file atomically.
func (c *Candidate) writeBack() error {
	dir := filepath.Dir(c.Source)
	tmp, err := os.CreateTemp(dir, "."+c.Name+".*")
	if err != nil {
		return fmt.Errorf("staging write back for %s: %w", c.Name, err)
	}
	if _, err := tmp.WriteString(c.Content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("staging write back for %s: %w", c.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("staging write back for %s: %w", c.Name, err)
	}
	if err := os.Rename(tmp.Name(), c.Source); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing back %s: %w", c.Name, err)
	}
	return nil
}
