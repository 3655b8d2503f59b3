package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default values for a Store.
const (
	DefaultTimeout = 5 * time.Second

	// lockPollInterval is how often a blocked writer retries the advisory lock.
	lockPollInterval = 10 * time.Millisecond
)

// Policy selects how lines that do not split into three fields are handled.
type Policy int

const (
	// PolicyFail aborts Load and Upsert with a *ParseError.
	PolicyFail Policy = iota
	// PolicySkip omits malformed lines from Load and keeps them untouched on Upsert.
	PolicySkip
)

// String returns the config spelling of the policy.
func (p Policy) String() string {
	if p == PolicySkip {
		return "skip"
	}
	return "fail"
}

// ParsePolicy maps "fail" or "skip" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "fail", "":
		return PolicyFail, nil
	case "skip":
		return PolicySkip, nil
	}
	return PolicyFail, fmt.Errorf("store: unknown malformed-line policy %q", s)
}

// Option configures a Store.
type Option func(*Store)

// WithPolicy sets the malformed-line policy.
func WithPolicy(p Policy) Option {
	return func(s *Store) { s.policy = p }
}

// WithTimeout bounds each Load or Upsert, including the wait for the write
// lock. Zero disables the bound; the caller's context still applies.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// Store is a flat-file record table keyed by Record.Key.
// It is safe for concurrent use.
type Store struct {
	path    string
	policy  Policy
	timeout time.Duration

	// sem serializes load-modify-write cycles within the process. A channel
	// instead of a mutex so waiting writers honour their context.
	sem chan struct{}
}

// New returns a Store backed by the file at path. The file and its parent
// directory are created on the first Upsert.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:    path,
		policy:  PolicyFail,
		timeout: DefaultTimeout,
		sem:     make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// Policy returns the malformed-line policy in effect.
func (s *Store) Policy() Policy { return s.policy }

// Load returns all records in file order. A missing file yields an empty
// slice and no error.
func (s *Store) Load(ctx context.Context) ([]Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	content, err := s.readCtx(ctx)
	if err != nil {
		return nil, err
	}

	lines := splitLines(content)
	out := make([]Record, 0, len(lines))
	for _, l := range lines {
		rec, ok := parseLine(l.text)
		if !ok {
			if s.policy == PolicyFail {
				return nil, &ParseError{Line: l.no, Text: l.text}
			}
			slog.Warn("store: skipped malformed line", "path", s.path, "line", l.no)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Upsert writes rec, replacing any record with the same key. The new record
// is always placed last. Nothing is written if validation, loading or
// parsing fails, or if ctx expires before the new file is committed.
func (s *Store) Upsert(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return ioErr("wait for writer", ctx.Err())
	}

	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return ioErr("create directory", err)
	}

	lock, err := acquireLock(ctx, s.path+".lock")
	if err != nil {
		return ioErr("lock", err)
	}
	defer releaseLock(lock)

	content, err := s.readCtx(ctx)
	if err != nil {
		return err
	}

	lines := splitLines(content)
	kept := make([]string, 0, len(lines)+1)
	for _, l := range lines {
		existing, ok := parseLine(l.text)
		if !ok {
			if s.policy == PolicyFail {
				return &ParseError{Line: l.no, Text: l.text}
			}
			if keyOf(l.text) == rec.Key {
				continue
			}
			slog.Warn("store: kept malformed line", "path", s.path, "line", l.no)
			kept = append(kept, l.text)
			continue
		}
		if existing.Key == rec.Key {
			continue
		}
		kept = append(kept, l.text)
	}
	kept = append(kept, rec.String())

	if err := ctx.Err(); err != nil {
		return ioErr("write", err)
	}
	if err := s.write(strings.Join(kept, "\n") + "\n"); err != nil {
		return err
	}

	slog.Debug("store: upserted record", "key", rec.Key, "records", len(kept))
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) dir() string { return filepath.Dir(s.path) }

// readCtx is read bounded by ctx. A read that outlives ctx is abandoned; its
// goroutine finishes on its own and the result is dropped.
func (s *Store) readCtx(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ioErr("read", err)
	}
	type result struct {
		content string
		err     error
	}
	done := make(chan result, 1)
	go func() {
		content, err := s.read()
		done <- result{content, err}
	}()
	select {
	case r := <-done:
		return r.content, r.err
	case <-ctx.Done():
		return "", ioErr("read", ctx.Err())
	}
}

// read returns the file content, or "" when the file does not exist yet.
func (s *Store) read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", ioErr("read", err)
	}
	return string(data), nil
}

// write replaces the store file with content via a temp file in the same
// directory followed by a rename.
func (s *Store) write(content string) error {
	tmp, err := os.CreateTemp(s.dir(), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return ioErr("create temp file", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return ioErr("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return ioErr("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return ioErr("close temp file", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return ioErr("chmod temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return ioErr("replace store file", err)
	}
	committed = true
	return nil
}
