// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package route hands each classified unit (a record or an extracted row) to
// the sinks of the destinations it matched. A failing sink never blocks the
// other destinations or later units; the Router owns every sink and closes
// each exactly once.
package route

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Errors returned by the Router itself rather than by a sink.
var (
	ErrNoSink        = errors.New("no sink configured for destination")
	ErrDuplicateSink = errors.New("destination already has a sink")
	ErrClosed        = errors.New("router is closed")
)

// Sink accepts units for one destination.
type Sink[T any] interface {
	Write(unit T) error
	Close() error
}

// WriteError reports a unit a destination's sink rejected.
type WriteError struct {
	Label string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("destination %s: %v", e.Label, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Kind names the innermost error type, e.g. "fs.PathError".
func (e *WriteError) Kind() string {
	return Kind(e.Err)
}

// Kind names the type of the innermost error in err's chain.
func Kind(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

// Stats counts the outcome of writes to one destination.
type Stats struct {
	Label   string
	Written int
	Failed  int
}

// Router owns the sinks of a fixed destination set.
type Router[T any] struct {
	log    *zap.Logger
	sinks  map[string]Sink[T]
	order  []string
	stats  map[string]*Stats
	closed bool
}

// New returns an empty Router. A nil logger discards diagnostics.
func New[T any](log *zap.Logger) *Router[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router[T]{
		log:   log,
		sinks: make(map[string]Sink[T]),
		stats: make(map[string]*Stats),
	}
}

// Add registers the sink for label. The Router takes ownership and will
// close it.
func (r *Router[T]) Add(label string, s Sink[T]) error {
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.sinks[label]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSink, label)
	}
	r.sinks[label] = s
	r.order = append(r.order, label)
	r.stats[label] = &Stats{Label: label}
	return nil
}

// Labels returns the registered destinations in registration order.
func (r *Router[T]) Labels() []string {
	return append([]string(nil), r.order...)
}

// Route writes unit to the sink of every label. Each failure is logged,
// counted and returned; the remaining labels are still written.
func (r *Router[T]) Route(labels []string, unit T) []*WriteError {
	var errs []*WriteError
	for _, label := range labels {
		if err := r.write(label, unit); err != nil {
			we := &WriteError{Label: label, Err: err}
			r.log.Warn("route: write failed",
				zap.String("destination", label),
				zap.String("kind", we.Kind()),
				zap.Error(err),
			)
			errs = append(errs, we)
		}
	}
	return errs
}

func (r *Router[T]) write(label string, unit T) error {
	if r.closed {
		return ErrClosed
	}
	s, ok := r.sinks[label]
	if !ok {
		return ErrNoSink
	}
	st := r.stats[label]
	if err := s.Write(unit); err != nil {
		st.Failed++
		return err
	}
	st.Written++
	return nil
}

// Stats returns per-destination counts in registration order.
func (r *Router[T]) Stats() []Stats {
	out := make([]Stats, 0, len(r.order))
	for _, label := range r.order {
		out = append(out, *r.stats[label])
	}
	return out
}

// Close closes every sink once, in registration order, and reports all
// failures together. Later calls are no-ops.
func (r *Router[T]) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for _, label := range r.order {
		if err := r.sinks[label].Close(); err != nil {
			r.log.Warn("route: close failed", zap.String("destination", label), zap.Error(err))
			errs = append(errs, fmt.Errorf("closing %s: %w", label, err))
		}
	}
	return errors.Join(errs...)
}
