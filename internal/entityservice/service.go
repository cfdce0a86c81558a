// Package entityservice owns the mock document and is the only path by which
// it is read or mutated.
package entityservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/mockbox/internal/apperr"
	"github.com/starford/mockbox/internal/models"
	"github.com/starford/mockbox/internal/storage"
)

// maxIDAttempts bounds id regeneration when a generator returns a duplicate.
const maxIDAttempts = 8

// Observer receives every applied change. Observers are called with the
// write lock held, in persist order, and must not call back into the service.
type Observer interface {
	Observe(models.Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(models.Change)

// Observe calls f(c).
func (f ObserverFunc) Observe(c models.Change) { f(c) }

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the UUIDv4 id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithObserver registers an observer for applied changes.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// Stats summarises the document and the service's persistence history.
type Stats struct {
	Initialized bool      `json:"initialized"`
	EntityTypes int       `json:"entityTypes"`
	Entities    int       `json:"entities"`
	Recoveries  int       `json:"recoveries"`
	LastPersist time.Time `json:"lastPersist"`
}

// Service is the storage service. All mutations are serialized by mu for the
// whole read-mutate-persist span; reads share the lock.
type Service struct {
	store     storage.Provider
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	observers []Observer

	mu          sync.RWMutex
	doc         *models.Document
	initialized bool
	lastSum     string
	lastPersist time.Time
	recoveries  int
}

// New creates a service over store. Initialize must be called before use.
func New(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
		doc:    models.NewDocument(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize loads the document from the backing file. A missing, unreadable
// or invalid file resets the document to empty and persists it; the reset is
// logged and counted, not returned. Only a failure to write the reset is an
// error.
func (s *Service) Initialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Read()
	if err == nil {
		doc, decErr := models.DecodeDocument(data)
		if decErr == nil {
			s.doc = doc
			s.lastSum = storage.Checksum(data)
			s.initialized = true
			s.logger.Info("store: loaded",
				slog.String("path", s.store.Path()),
				slog.Int("entity_types", doc.Len()))
			return nil
		}
		err = decErr
	}

	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info("store: no document, starting empty", slog.String("path", s.store.Path()))
	} else {
		s.recoveries++
		s.logger.Warn("store: unreadable document, resetting to empty",
			slog.String("path", s.store.Path()),
			slog.String("error", err.Error()))
	}

	s.doc = models.NewDocument()
	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("entityservice: initialize: %w", err)
	}
	s.initialized = true
	return nil
}

// ListEntities returns copies of every entity of entityType in insertion
// order. An unknown type yields an empty slice.
func (s *Service) ListEntities(_ context.Context, entityType string) []*models.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entities, _ := s.doc.Get(entityType)
	return models.CloneEntities(entities)
}

// GetEntity returns a copy of the entity with id, or apperr.ErrNotFound.
func (s *Service) GetEntity(_ context.Context, entityType, id string) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entities, _ := s.doc.Get(entityType)
	idx := indexOf(entities, id)
	if idx < 0 {
		return nil, apperr.ErrNotFound
	}
	return models.CloneEntity(entities[idx]), nil
}

// CreateEntity stores a new entity built from payload. id, createdAt and
// updatedAt are always generated; the same keys in payload are ignored.
func (s *Service) CreateEntity(_ context.Context, entityType string, payload *models.Entity) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := s.doc.Get(entityType)

	id, err := s.uniqueID(old)
	if err != nil {
		return nil, err
	}
	at := s.now()
	stamp := models.FormatTime(at)

	e := models.NewEntity()
	e.Set(models.KeyID, id)
	for pair := models.UserData(payload).Oldest(); pair != nil; pair = pair.Next() {
		e.Set(pair.Key, pair.Value)
	}
	e.Set(models.KeyCreatedAt, stamp)
	e.Set(models.KeyUpdatedAt, stamp)

	next := make([]*models.Entity, 0, len(old)+1)
	next = append(next, old...)
	next = append(next, e)
	s.doc.Set(entityType, next)

	if err := s.persistLocked(); err != nil {
		s.restoreLocked(entityType, old, existed)
		return nil, err
	}

	s.notifyLocked(models.Change{Op: models.OpCreated, Type: entityType, ID: id, At: at, Entity: models.CloneEntity(e)})
	return models.CloneEntity(e), nil
}

// UpdateEntity merges payload over the stored entity. Existing keys absent
// from payload are kept, id and createdAt never change, updatedAt is
// refreshed. Returns apperr.ErrNotFound without writing when absent.
func (s *Service) UpdateEntity(_ context.Context, entityType, id string, payload *models.Entity) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, _ := s.doc.Get(entityType)
	idx := indexOf(old, id)
	if idx < 0 {
		return nil, apperr.ErrNotFound
	}

	at := s.now()
	stamp := models.FormatTime(at)
	// updatedAt never moves backwards, even if the clock does.
	if prev := models.UpdatedAt(old[idx]); prev > stamp {
		stamp = prev
	}

	updated := models.CloneEntity(old[idx])
	for pair := models.UserData(payload).Oldest(); pair != nil; pair = pair.Next() {
		updated.Set(pair.Key, pair.Value)
	}
	updated.Set(models.KeyID, id)
	updated.Set(models.KeyUpdatedAt, stamp)

	next := make([]*models.Entity, len(old))
	copy(next, old)
	next[idx] = updated
	s.doc.Set(entityType, next)

	if err := s.persistLocked(); err != nil {
		s.doc.Set(entityType, old)
		return nil, err
	}

	s.notifyLocked(models.Change{Op: models.OpUpdated, Type: entityType, ID: id, At: at, Entity: models.CloneEntity(updated)})
	return models.CloneEntity(updated), nil
}

// DeleteEntity removes the entity with id. It returns false without writing
// when no such entity exists. The type stays listed even when emptied.
func (s *Service) DeleteEntity(_ context.Context, entityType, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, _ := s.doc.Get(entityType)
	idx := indexOf(old, id)
	if idx < 0 {
		return false, nil
	}

	next := make([]*models.Entity, 0, len(old)-1)
	next = append(next, old[:idx]...)
	next = append(next, old[idx+1:]...)
	s.doc.Set(entityType, next)

	if err := s.persistLocked(); err != nil {
		s.doc.Set(entityType, old)
		return false, err
	}

	s.notifyLocked(models.Change{Op: models.OpDeleted, Type: entityType, ID: id, At: s.now()})
	return true, nil
}

// ListEntityTypes returns every type name present in the document, in
// insertion order, including types whose array is empty.
func (s *Service) ListEntityTypes(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, s.doc.Len())
	for pair := s.doc.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Snapshot returns a deep copy of the whole document.
func (s *Service) Snapshot(_ context.Context) *models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.CloneDocument(s.doc)
}

// Reload re-reads the backing file after an external edit. Content equal to
// the service's last write is ignored. An invalid file is reported and the
// in-memory document is kept. It returns true when the document was replaced.
func (s *Service) Reload(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Read()
	if err != nil {
		return false, fmt.Errorf("entityservice: reload: %w", err)
	}
	sum := storage.Checksum(data)
	if sum == s.lastSum {
		return false, nil
	}
	doc, err := models.DecodeDocument(data)
	if err != nil {
		return false, fmt.Errorf("entityservice: reload: %w", err)
	}

	s.doc = doc
	s.lastSum = sum
	s.logger.Info("store: reloaded from disk",
		slog.String("path", s.store.Path()),
		slog.Int("entity_types", doc.Len()))

	s.notifyLocked(models.Change{Op: models.OpReloaded, At: s.now()})
	return true, nil
}

// Stats reports document counts and persistence history.
func (s *Service) Stats(_ context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Initialized: s.initialized,
		EntityTypes: s.doc.Len(),
		Recoveries:  s.recoveries,
		LastPersist: s.lastPersist,
	}
	for pair := s.doc.Oldest(); pair != nil; pair = pair.Next() {
		st.Entities += len(pair.Value)
	}
	return st
}

func (s *Service) persistLocked() error {
	data, err := models.EncodeDocument(s.doc)
	if err != nil {
		return err
	}
	if err := s.store.Write(data); err != nil {
		s.logger.Error("store: persist failed",
			slog.String("path", s.store.Path()),
			slog.String("error", err.Error()))
		return fmt.Errorf("entityservice: persist: %w", err)
	}
	s.lastSum = storage.Checksum(data)
	s.lastPersist = s.now()
	return nil
}

func (s *Service) restoreLocked(entityType string, old []*models.Entity, existed bool) {
	if existed {
		s.doc.Set(entityType, old)
		return
	}
	s.doc.Delete(entityType)
}

func (s *Service) notifyLocked(c models.Change) {
	for _, o := range s.observers {
		o.Observe(c)
	}
}

func (s *Service) uniqueID(entities []*models.Entity) (string, error) {
	for range maxIDAttempts {
		id := s.newID()
		if id != "" && indexOf(entities, id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("entityservice: could not generate a unique id")
}

func indexOf(entities []*models.Entity, id string) int {
	if id == "" {
		return -1
	}
	for i, e := range entities {
		if models.EntityID(e) == id {
			return i
		}
	}
	return -1
}
