package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultPreviewRows is how many normalized records a preview carries.
const DefaultPreviewRows = 30

// DefaultMaxFileSize is the largest export Parse accepts (16MB).
const DefaultMaxFileSize int64 = 16 * 1024 * 1024

// DefaultCandidateRetention is how long finished candidates stay queryable.
const DefaultCandidateRetention = 5 * time.Minute

// ErrFileTooLarge is returned when an export exceeds the size limit.
var ErrFileTooLarge = errors.New("file too large")

// SessionStore persists sessions per profile.
type SessionStore interface {
	// Upsert assigns an id when s has none, replaces an existing session
	// with the same id in place, and otherwise inserts s most-recent-first.
	Upsert(ctx context.Context, p ProfileInfo, s ImportSession) (ImportSession, error)
	List(ctx context.Context, p ProfileInfo, f SessionFilter) ([]ImportSession, error)
	Clear(ctx context.Context, p ProfileInfo) error
}

// MappingStore persists one field mapping per profile.
// LoadMapping returns nil, nil when nothing is stored.
type MappingStore interface {
	LoadMapping(ctx context.Context, p ProfileInfo) (FieldMapping, error)
	SaveMapping(ctx context.Context, p ProfileInfo, m FieldMapping) error
	ClearMapping(ctx context.Context, p ProfileInfo) error
}

// Options tunes a Service. Zero values select defaults.
type Options struct {
	PreviewRows        int
	MaxFileSize        int64
	MaxConcurrent      int
	MaxWait            time.Duration
	CandidateRetention time.Duration
	Logger             *slog.Logger
	Now                func() time.Time
}

// Service runs the import pipeline: parse, resolve, save.
type Service struct {
	sessions SessionStore
	mappings MappingStore
	limiter  *ParseLimiter
	opts     Options
	log      *slog.Logger

	mu         sync.RWMutex
	candidates map[string]*candidate
	workspaces map[string]string // workspace key -> candidate id
}

// candidate is one in-flight import attempt. Fields after mu are guarded by it.
type candidate struct {
	id        string
	profile   Profile
	workspace string
	startedAt time.Time
	expiry    *time.Timer // guarded by Service.mu

	mu          sync.Mutex
	phase       Phase
	message     string
	equipmentID string
	jobID       string
	fileName    string
	rawText     string
	table       RawTable
	mapping     FieldMapping
	source      MappingSource
	guess       FieldMapping
	rows        []NormalizedRecord
	sessionID   string
}

// NewService creates a Service backed by the given stores.
func NewService(sessions SessionStore, mappings MappingStore, opts Options) *Service {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.CandidateRetention <= 0 {
		opts.CandidateRetention = DefaultCandidateRetention
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		sessions:   sessions,
		mappings:   mappings,
		limiter:    NewParseLimiter(opts.MaxConcurrent, opts.MaxWait),
		opts:       opts,
		log:        log,
		candidates: make(map[string]*candidate),
		workspaces: make(map[string]string),
	}
}

// Profiles returns information about all registered profiles.
func (s *Service) Profiles() []ProfileInfo {
	defs := All()
	infos := make([]ProfileInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// Limiter exposes the parse limiter for status reporting and shutdown.
func (s *Service) Limiter() *ParseLimiter {
	return s.limiter
}

// ParseRequest is the input to Parse.
type ParseRequest struct {
	Profile     string
	EquipmentID string
	JobID       string
	FileName    string
	Body        io.Reader
}

// SaveRequest carries save-time identifiers. Empty values keep the ones
// given at parse time.
type SaveRequest struct {
	ID          string
	EquipmentID string
	JobID       string
}

// Preview is what the operator sees after a parse or resolve.
type Preview struct {
	CandidateID   string             `json:"candidateId"`
	Profile       string             `json:"profile"`
	Phase         Phase              `json:"phase"`
	FileName      string             `json:"fileName"`
	EquipmentID   string             `json:"equipmentId"`
	JobID         string             `json:"jobId"`
	Headers       []string           `json:"headers"`
	Mapping       FieldMapping       `json:"mapping"`
	MappingSource MappingSource      `json:"mappingSource"`
	RowCount      int                `json:"rowCount"`
	Rows          []NormalizedRecord `json:"rows"`
	Truncated     bool               `json:"truncated"`
	Prompt        *MappingPrompt     `json:"prompt,omitempty"`
}

// MappingPrompt lists every field with the selectable headers. The first
// option is always NoneOption.
type MappingPrompt struct {
	Options []string      `json:"options"`
	Fields  []PromptField `json:"fields"`
}

// PromptField is one resolver row.
type PromptField struct {
	Field    Field  `json:"field"`
	Label    string `json:"label"`
	Role     string `json:"role"`
	Selected string `json:"selected"`
}

// CandidateStatus reports where an import attempt stands.
type CandidateStatus struct {
	CandidateID string    `json:"candidateId"`
	Profile     string    `json:"profile"`
	Phase       Phase     `json:"phase"`
	FileName    string    `json:"fileName"`
	StartedAt   time.Time `json:"startedAt"`
	Message     string    `json:"message,omitempty"`
	SessionID   string    `json:"sessionId,omitempty"`
}

// Parse reads, tokenizes and maps an export. A usable mapping that yields
// rows leaves the candidate ready to save. Otherwise the returned preview
// carries the resolver prompt and the error is a *MappingError. Input
// without headers or rows fails with ErrInputEmpty before any mapping.
func (s *Service) Parse(ctx context.Context, req ParseRequest) (*Preview, error) {
	p, ok := Get(req.Profile)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, req.Profile)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	c := s.newCandidate(p, req)
	log := s.log.With(
		slog.String("profile", p.Info.Key),
		slog.String("candidate_id", c.id),
		slog.String("equipment_id", c.equipmentID),
	)

	data, err := readLimited(req.Body, s.opts.MaxFileSize)
	if err != nil {
		return nil, s.fail(c, err)
	}
	text, err := DecodeText(data)
	if err != nil {
		return nil, s.fail(c, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.phase = PhaseParsing
	c.rawText = text
	c.table = Tokenize(text, p.Delimiter)
	if c.table.Empty() || len(c.table.Rows) == 0 {
		return nil, s.failLocked(c, ErrInputEmpty)
	}

	stored, err := s.mappings.LoadMapping(ctx, p.Info)
	if err != nil {
		log.Warn("stored mapping unavailable, guessing", slog.String("error", err.Error()))
		stored = nil
	}

	attempt := AttemptMapping(p, c.table, stored)
	c.mapping = attempt.Mapping
	c.source = attempt.Source
	c.guess = attempt.Guess

	if !attempt.Usable {
		c.phase = PhaseNeedsMapping
		c.message = "auto-detect incomplete"
		log.Info("mapping needs resolution", slog.String("source", string(attempt.Source)))
		s.expireAfterIdle(c)
		return s.previewLocked(c), &MappingError{Source: attempt.Source, Err: ErrMappingIncomplete}
	}

	c.rows = NormalizeRows(p, c.table, c.mapping)
	if len(c.rows) == 0 {
		c.phase = PhaseNeedsMapping
		c.message = "mapping produced no usable rows"
		log.Info("mapping unproductive", slog.String("source", string(attempt.Source)))
		s.expireAfterIdle(c)
		return s.previewLocked(c), &MappingError{Source: attempt.Source, Err: ErrMappingUnproductive}
	}

	c.phase = PhaseReady
	c.message = ""
	s.expireAfterIdle(c)
	log.Info("parse ready",
		slog.Int("rows", len(c.rows)),
		slog.String("source", string(attempt.Source)),
	)
	return s.previewLocked(c), nil
}

// Resolve applies the operator's column selections to a parsed candidate.
// The selections are persisted as the profile's mapping, overwriting any
// earlier one, before rows are normalized again. A confirmed mapping that
// still yields no rows fails without retrying.
func (s *Service) Resolve(ctx context.Context, id string, selections map[Field]string) (*Preview, error) {
	c, err := s.candidate(id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseNeedsMapping, PhaseReady:
	default:
		return nil, fmt.Errorf("%w: candidate is %s", ErrNothingToSave, c.phase)
	}

	m, err := MappingFromSelections(c.profile, c.table, selections)
	if err != nil {
		return nil, err
	}

	s.expireAfterIdle(c)

	log := s.log.With(
		slog.String("profile", c.profile.Info.Key),
		slog.String("candidate_id", c.id),
	)
	if err := s.mappings.SaveMapping(ctx, c.profile.Info, m); err != nil {
		log.Warn("failed to persist mapping", slog.String("error", err.Error()))
	}

	c.mapping = m
	c.source = SourceUser
	c.guess = nil
	c.rows = NormalizeRows(c.profile, c.table, m)
	if len(c.rows) == 0 {
		c.phase = PhaseNeedsMapping
		c.message = "mapping saved, but still no usable rows"
		return s.previewLocked(c), &MappingError{Source: SourceUser, Err: ErrMappingUnproductive}
	}

	c.phase = PhaseReady
	c.message = ""
	log.Info("mapping resolved", slog.Int("rows", len(c.rows)))
	return s.previewLocked(c), nil
}

// Save builds a session from a ready candidate and upserts it. The store is
// untouched when the equipment id is missing.
func (s *Service) Save(ctx context.Context, id string, req SaveRequest) (ImportSession, error) {
	c, err := s.candidate(id)
	if err != nil {
		return ImportSession{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseReady || len(c.rows) == 0 {
		return ImportSession{}, fmt.Errorf("%w: candidate is %s", ErrNothingToSave, c.phase)
	}

	eq := firstNonEmpty(req.EquipmentID, c.equipmentID)
	job := firstNonEmpty(req.JobID, c.jobID)

	session, err := BuildSession(c.profile, SessionInput{
		ID:             req.ID,
		EquipmentID:    eq,
		JobID:          job,
		SourceFileName: c.fileName,
		Table:          c.table,
		RawText:        c.rawText,
		Mapping:        c.mapping,
		Rows:           c.rows,
		Now:            s.opts.Now(),
	})
	if err != nil {
		return ImportSession{}, err
	}

	saved, err := s.sessions.Upsert(ctx, c.profile.Info, session)
	if err != nil {
		c.message = err.Error()
		return ImportSession{}, err
	}

	c.phase = PhaseSaved
	c.message = ""
	c.sessionID = saved.ID
	s.release(c)

	s.log.Info("session saved",
		slog.String("profile", c.profile.Info.Key),
		slog.String("candidate_id", c.id),
		slog.String("session_id", saved.ID),
		slog.String("equipment_id", saved.EquipmentID),
		slog.Int("rows", len(saved.Rows)),
	)
	return saved, nil
}

// Status returns the candidate's current phase.
func (s *Service) Status(id string) (CandidateStatus, error) {
	c, err := s.candidate(id)
	if err != nil {
		return CandidateStatus{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return CandidateStatus{
		CandidateID: c.id,
		Profile:     c.profile.Info.Key,
		Phase:       c.phase,
		FileName:    c.fileName,
		StartedAt:   c.startedAt,
		Message:     c.message,
		SessionID:   c.sessionID,
	}, nil
}

// Lookup returns the status of the unsaved candidate for a profile,
// equipment and job. It is the way to watch a parse whose read has not
// finished, since Parse only returns the candidate id once the read is done.
func (s *Service) Lookup(profile, equipmentID, jobID string) (CandidateStatus, error) {
	p, err := lookupProfile(profile)
	if err != nil {
		return CandidateStatus{}, err
	}
	key := workspaceKey(p, equipmentID, jobID)

	s.mu.RLock()
	id, ok := s.workspaces[key]
	s.mu.RUnlock()
	if !ok {
		return CandidateStatus{}, fmt.Errorf("%w: no import in progress for %s", ErrCandidateNotFound, key)
	}
	return s.Status(id)
}

// Preview returns the current preview for a candidate.
func (s *Service) Preview(id string) (*Preview, error) {
	c, err := s.candidate(id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return s.previewLocked(c), nil
}

// ListSessions returns the profile's saved sessions matching f.
func (s *Service) ListSessions(ctx context.Context, profile string, f SessionFilter) ([]ImportSession, error) {
	p, err := lookupProfile(profile)
	if err != nil {
		return nil, err
	}
	return s.sessions.List(ctx, p.Info, f)
}

// ClearSessions removes every saved session of the profile.
func (s *Service) ClearSessions(ctx context.Context, profile string) error {
	p, err := lookupProfile(profile)
	if err != nil {
		return err
	}
	if err := s.sessions.Clear(ctx, p.Info); err != nil {
		return err
	}
	s.log.Info("sessions cleared", slog.String("profile", p.Info.Key))
	return nil
}

// LoadMapping returns the profile's persisted mapping, or nil.
func (s *Service) LoadMapping(ctx context.Context, profile string) (FieldMapping, error) {
	p, err := lookupProfile(profile)
	if err != nil {
		return nil, err
	}
	return s.mappings.LoadMapping(ctx, p.Info)
}

// SaveMapping persists m as the profile's mapping. Fields the profile does
// not define are dropped.
func (s *Service) SaveMapping(ctx context.Context, profile string, m FieldMapping) error {
	p, err := lookupProfile(profile)
	if err != nil {
		return err
	}

	clean := make(FieldMapping, len(p.Fields))
	for _, f := range p.Fields {
		v := strings.TrimSpace(m[f.Name])
		if v == NoneOption {
			v = ""
		}
		clean[f.Name] = v
	}
	return s.mappings.SaveMapping(ctx, p.Info, clean)
}

// ClearMapping removes the profile's persisted mapping. Only future guesses
// are affected.
func (s *Service) ClearMapping(ctx context.Context, profile string) error {
	p, err := lookupProfile(profile)
	if err != nil {
		return err
	}
	return s.mappings.ClearMapping(ctx, p.Info)
}

// =============================================================================
// Candidate tracking
// =============================================================================

// newCandidate registers a candidate in the reading phase. An unsaved
// candidate for the same workspace is discarded.
func (s *Service) newCandidate(p Profile, req ParseRequest) *candidate {
	eq := strings.TrimSpace(req.EquipmentID)
	job := strings.TrimSpace(req.JobID)

	c := &candidate{
		id:          uuid.New().String(),
		profile:     p,
		workspace:   workspaceKey(p, eq, job),
		startedAt:   s.opts.Now().UTC(),
		phase:       PhaseReading,
		equipmentID: eq,
		jobID:       job,
		fileName:    req.FileName,
	}

	s.mu.Lock()
	if prevID, ok := s.workspaces[c.workspace]; ok {
		if prev := s.candidates[prevID]; prev != nil && prev.expiry != nil {
			prev.expiry.Stop()
		}
		delete(s.candidates, prevID)
	}
	s.candidates[c.id] = c
	s.workspaces[c.workspace] = c.id
	s.mu.Unlock()

	return c
}

func workspaceKey(p Profile, equipmentID, jobID string) string {
	return p.Info.Key + "|" + strings.TrimSpace(equipmentID) + "|" + strings.TrimSpace(jobID)
}

func (s *Service) candidate(id string) (*candidate, error) {
	s.mu.RLock()
	c, ok := s.candidates[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCandidateNotFound, id)
	}
	return c, nil
}

func (s *Service) fail(c *candidate, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.failLocked(c, err)
}

func (s *Service) failLocked(c *candidate, err error) error {
	c.phase = PhaseFailed
	c.message = err.Error()
	s.release(c)
	s.log.Info("parse failed",
		slog.String("profile", c.profile.Info.Key),
		slog.String("candidate_id", c.id),
		slog.String("error", err.Error()),
	)
	return err
}

// release frees the workspace slot and removes the candidate from tracking
// after the retention delay.
func (s *Service) release(c *candidate) {
	s.mu.Lock()
	if s.workspaces[c.workspace] == c.id {
		delete(s.workspaces, c.workspace)
	}
	s.mu.Unlock()

	s.expireAfterIdle(c)
}

// expireAfterIdle (re)arms the candidate's retention timer. An unsaved
// candidate that nobody touches within the retention delay is forgotten
// along with its workspace slot.
func (s *Service) expireAfterIdle(c *candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.expiry != nil {
		c.expiry.Stop()
	}
	c.expiry = time.AfterFunc(s.opts.CandidateRetention, func() { s.forget(c) })
}

func (s *Service) forget(c *candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.candidates[c.id] == c {
		delete(s.candidates, c.id)
	}
	if s.workspaces[c.workspace] == c.id {
		delete(s.workspaces, c.workspace)
	}
}

func (s *Service) previewLocked(c *candidate) *Preview {
	rows := c.rows
	truncated := false
	if len(rows) > s.opts.PreviewRows {
		rows = rows[:s.opts.PreviewRows]
		truncated = true
	}

	pv := &Preview{
		CandidateID:   c.id,
		Profile:       c.profile.Info.Key,
		Phase:         c.phase,
		FileName:      c.fileName,
		EquipmentID:   c.equipmentID,
		JobID:         c.jobID,
		Headers:       append([]string(nil), c.table.Headers...),
		Mapping:       c.mapping.Clone(),
		MappingSource: c.source,
		RowCount:      len(c.rows),
		Rows:          append(make([]NormalizedRecord, 0, len(rows)), rows...),
		Truncated:     truncated,
	}

	if c.phase == PhaseNeedsMapping {
		pv.Prompt = buildPrompt(c.profile, c.table.Headers, c.mapping, c.guess)
	}
	return pv
}

// buildPrompt pre-selects each field to the current choice, falling back to
// the fresh guess.
func buildPrompt(p Profile, headers []string, current, guess FieldMapping) *MappingPrompt {
	prompt := &MappingPrompt{
		Options: append([]string{NoneOption}, headers...),
		Fields:  make([]PromptField, len(p.Fields)),
	}
	for i, f := range p.Fields {
		sel := firstNonEmpty(current[f.Name], guess[f.Name], NoneOption)
		prompt.Fields[i] = PromptField{
			Field:    f.Name,
			Label:    f.Label,
			Role:     f.Role.String(),
			Selected: sel,
		}
	}
	return prompt
}

func lookupProfile(key string) (Profile, error) {
	p, ok := Get(key)
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, key)
	}
	return p, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if r == nil {
		return nil, ErrInputEmpty
	}
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if n > limit {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, limit)
	}
	return buf.Bytes(), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
