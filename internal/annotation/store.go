// Package annotation persists per-symbol user labels and pin flags.
package annotation

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"BlockScreener/internal/model"
)

// Store holds annotations in memory and flushes every change to disk before
// returning.
type Store struct {
	mu       sync.Mutex
	notes    map[string]model.Annotation
	filePath string
}

// Open loads the store from filePath.
func Open(filePath string) (*Store, error) {
	notes, err := LoadFile(filePath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("file", filePath).Int("annotations", len(notes)).Msg("annotations loaded")
	return &Store{notes: notes, filePath: filePath}, nil
}

// Get returns the annotation for code, if any.
func (s *Store) Get(code string) (model.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.notes[code]
	return a, ok
}

// All returns a copy of every annotation.
func (s *Store) All() map[string]model.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.Annotation, len(s.notes))
	for k, v := range s.notes {
		out[k] = v
	}
	return out
}

// SetText sets the label for code, creating the annotation if needed.
func (s *Store) SetText(code, text string) (model.Annotation, error) {
	return s.update(code, func(a *model.Annotation) { a.Text = text })
}

// SetPinned sets the pin flag for code, creating the annotation if needed.
func (s *Store) SetPinned(code string, pinned bool) (model.Annotation, error) {
	return s.update(code, func(a *model.Annotation) { a.Pinned = pinned })
}

// TogglePin flips the pin flag for code.
func (s *Store) TogglePin(code string) (model.Annotation, error) {
	return s.update(code, func(a *model.Annotation) { a.Pinned = !a.Pinned })
}

// Put replaces the annotation for code.
func (s *Store) Put(code string, a model.Annotation) (model.Annotation, error) {
	return s.update(code, func(cur *model.Annotation) { *cur = a })
}

// Delete removes the annotation for code. Deleting an unknown code is a no-op.
func (s *Store) Delete(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.notes[code]
	if !ok {
		return nil
	}
	delete(s.notes, code)
	if err := SaveFile(s.filePath, s.notes); err != nil {
		s.notes[code] = prev
		return fmt.Errorf("save annotations: %w", err)
	}
	return nil
}

// update applies fn and persists. On a write failure the in-memory change is
// rolled back so memory never diverges from disk.
func (s *Store) update(code string, fn func(*model.Annotation)) (model.Annotation, error) {
	if code == "" {
		return model.Annotation{}, fmt.Errorf("empty symbol code")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.notes[code]
	next := prev
	fn(&next)
	s.notes[code] = next
	if err := SaveFile(s.filePath, s.notes); err != nil {
		if existed {
			s.notes[code] = prev
		} else {
			delete(s.notes, code)
		}
		return prev, fmt.Errorf("save annotations: %w", err)
	}
	return next, nil
}
