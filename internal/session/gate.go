package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"

	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/metrics"
	"clarity-workers/internal/models"
)

// DefaultKey is the storage key of the active session blob.
const DefaultKey = "pcw_active_session_v1"

type SaveResult string

const (
	SaveWritten SaveResult = "written"
	SaveSkipped SaveResult = "skipped"
	SaveFailed  SaveResult = "failed"
)

// Gate elides writes of sessions that have not changed since their last
// successful save. Writes to the same key are serialized, and a write never
// replaces derived inferences from a newer analysis run than the one the
// snapshot carries.
type Gate struct {
	store      Store
	key        string
	perSession bool
	log        logger.Logger

	locks sync.Map // storage key -> *sync.Mutex
}

type GateOption func(*Gate)

// WithPerSessionKeys stores each session under "<key>:<sessionId>" instead of
// the single active-session key.
func WithPerSessionKeys() GateOption {
	return func(g *Gate) { g.perSession = true }
}

func NewGate(store Store, key string, log logger.Logger, opts ...GateOption) *Gate {
	if key == "" {
		key = DefaultKey
	}
	g := &Gate{
		store: store,
		key:   key,
		log:   log.WithFields(map[string]interface{}{"component": "persistence-gate"}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) Key(sessionID string) string {
	if g.perSession && sessionID != "" {
		return g.key + ":" + sessionID
	}
	return g.key
}

// Save writes s unless nothing changed since its last save. On success the
// returned copy has LastSavedAt set to the LastModifiedAt that was written,
// so a mutation racing the write is never marked saved. A failed write is
// logged and s is returned unchanged.
func (g *Gate) Save(ctx context.Context, s *models.Session) (*models.Session, SaveResult) {
	if s.LastSavedAt != nil && !s.LastModifiedAt.After(*s.LastSavedAt) {
		metrics.SessionSaves.WithLabelValues(string(SaveSkipped)).Inc()
		return s, SaveSkipped
	}

	key := g.Key(s.SessionID)
	unlock := g.lock(key)
	defer unlock()
	return g.write(ctx, key, s)
}

// Update applies fn to the stored session and saves the result while holding
// the key, so no other write lands between the read and the write. When fn
// reports no change the stored session is returned unsaved.
func (g *Gate) Update(ctx context.Context, sessionID string, fn func(*models.Session) (*models.Session, bool)) (*models.Session, SaveResult, error) {
	key := g.Key(sessionID)
	unlock := g.lock(key)
	defer unlock()

	current, err := g.Load(ctx, sessionID)
	if err != nil {
		return nil, SaveFailed, err
	}
	next, changed := fn(current)
	if !changed {
		return current, SaveSkipped, nil
	}
	saved, result := g.write(ctx, key, next)
	return saved, result, nil
}

func (g *Gate) lock(key string) func() {
	v, _ := g.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// write stores s under key. The caller holds the key's lock.
func (g *Gate) write(ctx context.Context, key string, s *models.Session) (*models.Session, SaveResult) {
	s = g.keepNewerAnalysis(ctx, key, s)

	blob, err := json.Marshal(s)
	if err == nil {
		err = g.store.Save(ctx, key, blob)
	}
	if err != nil {
		stdErr := errors.NewPersistenceFailedError(key, err)
		g.log.Error("Failed to save session", map[string]interface{}{
			"sessionId": s.SessionID,
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		metrics.SessionSaves.WithLabelValues(string(SaveFailed)).Inc()
		return s, SaveFailed
	}

	saved := Clone(s)
	at := s.LastModifiedAt
	saved.LastSavedAt = &at
	metrics.SessionSaves.WithLabelValues(string(SaveWritten)).Inc()
	return saved, SaveWritten
}

// keepNewerAnalysis returns s carrying the stored derived inferences when
// the stored session has applied a later analysis run than s has seen.
func (g *Gate) keepNewerAnalysis(ctx context.Context, key string, s *models.Session) *models.Session {
	blob, err := g.store.Load(ctx, key)
	if err != nil {
		return s
	}
	stored, err := Decode(blob)
	if err != nil || stored.SessionID != s.SessionID || stored.AnalysisGeneration <= s.AnalysisGeneration {
		return s
	}

	g.log.Debug("Keeping newer stored analysis", map[string]interface{}{
		"sessionId":          s.SessionID,
		"storedGeneration":   stored.AnalysisGeneration,
		"snapshotGeneration": s.AnalysisGeneration,
	})
	merged := Clone(s)
	merged.DerivedInferences = copyInferences(stored.DerivedInferences)
	merged.AnalysisGeneration = stored.AnalysisGeneration
	return merged
}

// Load reads a session back. The blob must carry a session id and blueprint
// version. The loaded session counts as saved at its timestamp.
func (g *Gate) Load(ctx context.Context, sessionID string) (*models.Session, error) {
	key := g.Key(sessionID)
	blob, err := g.store.Load(ctx, key)
	if stderrors.Is(err, ErrNotFound) {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return nil, errors.NewPersistenceFailedError(key, err)
	}

	s, err := Decode(blob)
	if err != nil {
		g.log.Warn("Discarding unreadable session blob", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	if g.perSession && sessionID != "" && s.SessionID != sessionID {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	return s, nil
}

func (g *Gate) Delete(ctx context.Context, sessionID string) error {
	if err := g.store.Delete(ctx, g.Key(sessionID)); err != nil {
		return errors.NewPersistenceFailedError(g.Key(sessionID), err)
	}
	return nil
}

// Decode parses a persisted blob and fills the containers a partial blob
// may omit.
func Decode(blob []byte) (*models.Session, error) {
	var s models.Session
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.SessionID == "" || s.BlueprintVersion == "" {
		return nil, fmt.Errorf("session blob missing sessionId or blueprintVersion")
	}

	if s.CompletedQuestionIDs == nil {
		s.CompletedQuestionIDs = []string{}
	}
	if s.RawAnswers == nil {
		s.RawAnswers = map[string]models.RawAnswer{}
	}
	if s.UserOverrides == nil {
		s.UserOverrides = map[string]models.UserOverride{}
	}
	if s.ResearchAnswers == nil {
		s.ResearchAnswers = map[string]models.ResearchAnswer{}
	}
	if s.CompletionBySection == nil {
		s.CompletionBySection = map[string]models.SectionCompletion{}
	}
	if s.Gaps == nil {
		s.Gaps = []models.Gap{}
	}
	if s.Contradictions == nil {
		s.Contradictions = []models.Contradiction{}
	}
	s.DerivedInferences = copyInferences(s.DerivedInferences)

	s.LastModifiedAt = s.Timestamp
	saved := s.Timestamp
	s.LastSavedAt = &saved
	return &s, nil
}
