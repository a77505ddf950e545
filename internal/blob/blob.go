// Package blob stores uploaded attachments as files under one directory.
//
// A file is named "{recordID}[_{stage}]_{filename}", so uploads for the
// same record never collide across stages. What happens when the same name
// is uploaded twice is the store's collision policy.
package blob

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/roach88/rmatrack/internal/fsutil"
)

// Stage labels used in blob names. Submission uploads carry no label.
const (
	StageSubmission = ""
	StageInspection = "insp"
)

// Policy decides what a repeated upload of the same name does.
type Policy string

const (
	// PolicyOverwrite replaces the existing file.
	PolicyOverwrite Policy = "overwrite"

	// PolicyVersion keeps the existing file and writes name_v2.ext, name_v3.ext, ...
	PolicyVersion Policy = "version"
)

// maxVersions bounds the search for a free versioned name.
const maxVersions = 1000

var (
	// ErrEmptyFilename is returned when the upload has no usable name.
	ErrEmptyFilename = errors.New("attachment filename is empty")

	// ErrTypeNotAllowed is returned for an extension outside the allow-list.
	ErrTypeNotAllowed = errors.New("attachment type not allowed")
)

// Store writes attachments under Dir.
type Store struct {
	dir     string
	policy  Policy
	allowed map[string]bool
}

// New creates a store rooted at dir. An empty allowed list accepts every
// extension.
func New(dir string, policy Policy, allowed []string) *Store {
	if policy == "" {
		policy = PolicyOverwrite
	}
	s := &Store{dir: dir, policy: policy}
	if len(allowed) > 0 {
		s.allowed = make(map[string]bool, len(allowed))
		for _, ext := range allowed {
			s.allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
		}
	}
	return s
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Name computes the blob file name for an upload.
// The original filename is reduced to its base name.
func Name(recordID, stage, filename string) (string, error) {
	base := cleanFilename(filename)
	if base == "" {
		return "", ErrEmptyFilename
	}
	if stage == "" {
		return recordID + "_" + base, nil
	}
	return recordID + "_" + stage + "_" + base, nil
}

// Check validates filename against the allow-list without writing.
func (s *Store) Check(filename string) error {
	base := cleanFilename(filename)
	if base == "" {
		return ErrEmptyFilename
	}
	if s.allowed == nil {
		return nil
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	if !s.allowed[ext] {
		return fmt.Errorf("%w: %q", ErrTypeNotAllowed, base)
	}
	return nil
}

// Store writes data for recordID/stage and returns the path written.
func (s *Store) Store(recordID, stage, filename string, data []byte) (string, error) {
	if err := s.Check(filename); err != nil {
		return "", err
	}
	name, err := Name(recordID, stage, filename)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, name)
	if s.policy == PolicyVersion {
		if path, err = s.freePath(path); err != nil {
			return "", err
		}
	}

	err = fsutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("store attachment %s: %w", name, err)
	}
	return path, nil
}

// Remove deletes a file previously returned by Store. A file that is
// already gone is not an error; paths outside the store directory are refused.
func (s *Store) Remove(path string) error {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("remove %s: not under %s", path, s.dir)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove attachment %s: %w", filepath.Base(path), err)
	}
	return nil
}

// freePath returns path, or the first name_vN.ext that does not exist yet.
func (s *Store) freePath(path string) (string, error) {
	exists, err := fsutil.Exists(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !exists {
		return path, nil
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 2; n <= maxVersions; n++ {
		candidate := stem + "_v" + strconv.Itoa(n) + ext
		exists, err := fsutil.Exists(candidate)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free version for %s after %d attempts", filepath.Base(path), maxVersions)
}

// cleanFilename keeps only the final path element of an uploaded name.
// Both separators are stripped since browsers on Windows send full paths.
func cleanFilename(filename string) string {
	name := strings.TrimSpace(filename)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "." || name == ".." {
		return ""
	}
	return name
}
