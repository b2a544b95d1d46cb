// Package guard releases the handles acquired during one read exactly once,
// on every exit path.
package guard

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-h5dap/h5err"
)

// Kind is the kind of a registered resource.
type Kind uint8

const (
	Dataset Kind = iota
	Datatype
	Dataspace
	Vlen
)

func (k Kind) String() string {
	switch k {
	case Dataset:
		return "dataset"
	case Datatype:
		return "datatype"
	case Dataspace:
		return "dataspace"
	case Vlen:
		return "vlen"
	default:
		return "unknown"
	}
}

type entry struct {
	kind     Kind
	name     string
	release  func() error
	released bool
}

// Scope owns the release obligations of one read. It is not safe for
// concurrent use.
type Scope struct {
	log     *zap.Logger
	path    string
	entries []*entry
	closed  bool
}

// New returns an empty scope for the variable at path.
func New(log *zap.Logger, path string) *Scope {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scope{log: log, path: path}
}

// Acquire registers release for a resource of the given kind. Registering
// on a closed scope releases the resource immediately.
func (s *Scope) Acquire(kind Kind, name string, release func() error) error {
	e := &entry{kind: kind, name: name, release: release}
	if s.closed {
		return s.releaseOne(e)
	}
	s.entries = append(s.entries, e)
	return nil
}

// Len returns the number of registered, unreleased resources.
func (s *Scope) Len() int {
	n := 0
	for _, e := range s.entries {
		if !e.released {
			n++
		}
	}
	return n
}

// Close releases every registered resource exactly once. Variable-length
// reclaims run first, newest first, so that no reclaim runs after the
// dataspace it belongs to is closed. The other handles follow in reverse
// acquisition order. Every failure is reported; a reclaim failure has kind
// h5err.KindReclaimFailure, any other one h5err.KindStorage. Close is
// idempotent.
func (s *Scope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	for i := len(s.entries) - 1; i >= 0; i-- {
		if e := s.entries[i]; e.kind == Vlen {
			err = multierr.Append(err, s.releaseOne(e))
		}
	}
	for i := len(s.entries) - 1; i >= 0; i-- {
		if e := s.entries[i]; e.kind != Vlen {
			err = multierr.Append(err, s.releaseOne(e))
		}
	}
	s.entries = nil
	return err
}

func (s *Scope) releaseOne(e *entry) error {
	if e.released {
		return nil
	}
	e.released = true
	if e.release == nil {
		return nil
	}
	if err := e.release(); err != nil {
		kind := h5err.KindStorage
		if e.kind == Vlen {
			kind = h5err.KindReclaimFailure
		}
		s.log.Warn("release failed",
			zap.String("path", s.path),
			zap.Stringer("kind", e.kind),
			zap.String("name", e.name),
			zap.Error(err))
		return h5err.New(h5err.PhaseRelease, kind).
			Path(s.path).
			Detail("release %s %s", e.kind, e.name).
			Cause(err).
			Build()
	}
	s.log.Debug("released",
		zap.String("path", s.path),
		zap.Stringer("kind", e.kind),
		zap.String("name", e.name))
	return nil
}
