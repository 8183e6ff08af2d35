package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JonMunkholm/nexus-import/internal/core"
	"github.com/google/uuid"
)

// Store implements core.SessionStore and core.MappingStore on a Backend.
// Each load-modify-save cycle runs under one mutex.
type Store struct {
	backend Backend
	mirror  *MirrorDispatcher
	log     *slog.Logger

	mu sync.Mutex
}

// New returns a Store. mirror may be nil.
func New(backend Backend, mirror *MirrorDispatcher, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{backend: backend, mirror: mirror, log: log}
}

var (
	_ core.SessionStore = (*Store)(nil)
	_ core.MappingStore = (*Store)(nil)
)

// Upsert assigns an id when s has none, replaces a session with the same id
// in place, or puts a new session at the front of the collection.
func (st *Store) Upsert(ctx context.Context, p core.ProfileInfo, s core.ImportSession) (core.ImportSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	current, err := st.loadSessions(ctx, p.SessionsKey)
	if err != nil {
		return core.ImportSession{}, err
	}

	if s.ID == "" {
		id, err := NewSessionID(p.IDPrefix)
		if err != nil {
			return core.ImportSession{}, fmt.Errorf("%w: generate id: %v", core.ErrStorageFailure, err)
		}
		s.ID = id
	}

	next := make([]core.ImportSession, 0, len(current)+1)
	replaced := false
	for _, existing := range current {
		if existing.ID == s.ID {
			next = append(next, s)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append([]core.ImportSession{s}, next...)
	}

	if err := st.saveSessions(ctx, p.SessionsKey, next); err != nil {
		return core.ImportSession{}, err
	}

	st.log.Debug("session upserted",
		slog.String("key", p.SessionsKey),
		slog.String("session_id", s.ID),
		slog.Bool("replaced", replaced),
		slog.Int("count", len(next)),
	)
	st.mirror.Submit(p, next)
	return s, nil
}

// List returns sessions matching f in stored order.
func (st *Store) List(ctx context.Context, p core.ProfileInfo, f core.SessionFilter) ([]core.ImportSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	all, err := st.loadSessions(ctx, p.SessionsKey)
	if err != nil {
		return nil, err
	}

	out := make([]core.ImportSession, 0, len(all))
	for _, s := range all {
		if f.Matches(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Clear removes the profile's whole session collection.
func (st *Store) Clear(ctx context.Context, p core.ProfileInfo) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := st.backend.Delete(ctx, p.SessionsKey); err != nil {
		return fmt.Errorf("%w: clear %s: %v", core.ErrStorageFailure, p.SessionsKey, err)
	}
	st.mirror.Submit(p, []core.ImportSession{})
	return nil
}

// LoadMapping returns the stored mapping, or nil when none is stored.
func (st *Store) LoadMapping(ctx context.Context, p core.ProfileInfo) (core.FieldMapping, error) {
	data, err := st.backend.Get(ctx, p.MappingKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", core.ErrStorageFailure, p.MappingKey, err)
	}

	var m core.FieldMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", core.ErrStorageFailure, p.MappingKey, err)
	}
	return m, nil
}

// SaveMapping overwrites the stored mapping.
func (st *Store) SaveMapping(ctx context.Context, p core.ProfileInfo, m core.FieldMapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: encode mapping: %v", core.ErrStorageFailure, err)
	}
	if err := st.backend.Put(ctx, p.MappingKey, data); err != nil {
		return fmt.Errorf("%w: save %s: %v", core.ErrStorageFailure, p.MappingKey, err)
	}
	return nil
}

// ClearMapping removes the stored mapping.
func (st *Store) ClearMapping(ctx context.Context, p core.ProfileInfo) error {
	if err := st.backend.Delete(ctx, p.MappingKey); err != nil {
		return fmt.Errorf("%w: clear %s: %v", core.ErrStorageFailure, p.MappingKey, err)
	}
	return nil
}

// Close closes the backend.
func (st *Store) Close() error {
	return st.backend.Close()
}

// loadSessions decodes the collection under key. A collection that does not
// decode is an error and is never treated as empty, so it cannot be
// overwritten by the next save.
func (st *Store) loadSessions(ctx context.Context, key string) ([]core.ImportSession, error) {
	data, err := st.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", core.ErrStorageFailure, key, err)
	}

	var sessions []core.ImportSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", core.ErrStorageFailure, key, err)
	}
	return sessions, nil
}

func (st *Store) saveSessions(ctx context.Context, key string, sessions []core.ImportSession) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", core.ErrStorageFailure, key, err)
	}
	if err := st.backend.Put(ctx, key, data); err != nil {
		return fmt.Errorf("%w: save %s: %v", core.ErrStorageFailure, key, err)
	}
	return nil
}

// NewSessionID returns prefix_<uuidv7>. The UUID is time-ordered with a
// random tail.
func NewSessionID(prefix string) (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return u.String(), nil
	}
	return prefix + "_" + u.String(), nil
}
