package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/nexus-import/internal/core"
	"github.com/JonMunkholm/nexus-import/internal/logging"
	"github.com/go-chi/chi/v5"
)

// maxJSONBody bounds mapping and save request bodies.
const maxJSONBody = 64 << 10

// profileResponse describes one profile and its fields.
type profileResponse struct {
	Key       string          `json:"key"`
	Label     string          `json:"label"`
	Source    string          `json:"source"`
	SchemaTag string          `json:"schemaTag"`
	Fields    []fieldResponse `json:"fields"`
}

type fieldResponse struct {
	Name  core.Field `json:"name"`
	Label string     `json:"label"`
	Role  string     `json:"role"`
}

// previewResponse is a preview plus the problem that stopped it, if any.
type previewResponse struct {
	*core.Preview
	Problem *core.UserMessage `json:"problem,omitempty"`
}

type candidateResponse struct {
	Status  core.CandidateStatus `json:"status"`
	Preview *core.Preview        `json:"preview"`
}

type mappingRequest struct {
	Mapping map[core.Field]string `json:"mapping"`
}

type mappingResponse struct {
	Profile string            `json:"profile"`
	Mapping core.FieldMapping `json:"mapping"`
}

type saveRequest struct {
	ID          string `json:"id"`
	EquipmentID string `json:"equipmentId"`
	JobID       string `json:"jobId"`
}

type sessionsResponse struct {
	Profile  string               `json:"profile"`
	Count    int                  `json:"count"`
	Sessions []core.ImportSession `json:"sessions"`
}

// handleHealth reports liveness and parse slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": s.service.Limiter().Status(),
	})
}

// handleListProfiles returns every registered profile with its fields.
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	infos := s.service.Profiles()
	out := make([]profileResponse, 0, len(infos))
	for _, info := range infos {
		p, ok := core.Get(info.Key)
		if !ok {
			continue
		}
		pr := profileResponse{
			Key:       info.Key,
			Label:     info.Label,
			Source:    info.Source,
			SchemaTag: info.SchemaTag,
			Fields:    make([]fieldResponse, len(p.Fields)),
		}
		for i, f := range p.Fields {
			pr.Fields[i] = fieldResponse{Name: f.Name, Label: f.Label, Role: f.Role.String()}
		}
		out = append(out, pr)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleParse accepts an export either as multipart field "file" or as the
// raw request body (with ?filename=). Identifiers come from the query string
// or form fields: eq/equipmentId and job/jobId/building.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	profile := chi.URLParam(r, "profile")
	limit := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	var (
		body     io.Reader
		fileName string
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(limit); err != nil {
			respondError(w, r, err)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			respondBadRequest(w, "no file provided")
			return
		}
		defer file.Close()
		body, fileName = file, header.Filename
	} else {
		body, fileName = r.Body, r.URL.Query().Get("filename")
	}

	pv, err := s.service.Parse(r.Context(), core.ParseRequest{
		Profile:     profile,
		EquipmentID: firstParam(r, "eq", "equipmentId"),
		JobID:       firstParam(r, "job", "jobId", "building"),
		FileName:    fileName,
		Body:        body,
	})
	respondPreview(w, r, pv, err)
}

// handleCandidate returns the status and current preview of a candidate.
func (s *Server) handleCandidate(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.Status(chi.URLParam(r, "candidateID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.candidateView(status))
}

// handleLookupCandidate finds the unsaved import for an equipment and job,
// including one whose upload is still being read.
func (s *Server) handleLookupCandidate(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.Lookup(
		chi.URLParam(r, "profile"),
		firstParam(r, "eq", "equipmentId"),
		firstParam(r, "job", "jobId", "building"),
	)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.candidateView(status))
}

func (s *Server) candidateView(status core.CandidateStatus) candidateResponse {
	resp := candidateResponse{Status: status}
	switch status.Phase {
	case core.PhaseReading, core.PhaseFailed:
	default:
		if pv, err := s.service.Preview(status.CandidateID); err == nil {
			resp.Preview = pv
		}
	}
	return resp
}

// handleResolve applies the operator's column selections.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "candidateID")

	var req mappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBadRequest(w, "invalid mapping format")
		return
	}

	pv, err := s.service.Resolve(r.Context(), id, req.Mapping)
	respondPreview(w, r, pv, err)
}

// handleSave persists a ready candidate as a session.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "candidateID")

	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBadRequest(w, "invalid save request")
		return
	}

	session, err := s.service.Save(r.Context(), id, core.SaveRequest{
		ID:          req.ID,
		EquipmentID: req.EquipmentID,
		JobID:       req.JobID,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithImport(r.Context(), session.Profile, id).Info("session saved via api",
		"session_id", session.ID,
	)
	writeJSON(w, http.StatusCreated, session)
}

// handleListSessions lists saved sessions, filtered by eq/equipmentId and
// job/jobId/building.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	profile := chi.URLParam(r, "profile")

	sessions, err := s.service.ListSessions(r.Context(), profile, core.SessionFilter{
		EquipmentID: firstParam(r, "eq", "equipmentId"),
		JobID:       firstParam(r, "job", "jobId", "building"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionsResponse{
		Profile:  profile,
		Count:    len(sessions),
		Sessions: sessions,
	})
}

// handleClearSessions removes every saved session of a profile.
func (s *Server) handleClearSessions(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearSessions(r.Context(), chi.URLParam(r, "profile")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	profile := chi.URLParam(r, "profile")

	m, err := s.service.LoadMapping(r.Context(), profile)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mappingResponse{Profile: profile, Mapping: m})
}

func (s *Server) handlePutMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Mapping == nil {
		respondBadRequest(w, "invalid mapping format")
		return
	}

	if err := s.service.SaveMapping(r.Context(), chi.URLParam(r, "profile"), req.Mapping); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearMapping(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearMapping(r.Context(), chi.URLParam(r, "profile")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondPreview writes a preview. A mapping problem is reported as 422 with
// the preview and resolver prompt in the body; other errors carry no preview.
func respondPreview(w http.ResponseWriter, r *http.Request, pv *core.Preview, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, previewResponse{Preview: pv})
		return
	}

	var me *core.MappingError
	if pv == nil || !errors.As(err, &me) {
		respondError(w, r, err)
		return
	}

	msg := core.MapError(err)
	logging.WithImport(r.Context(), pv.Profile, pv.CandidateID).Info("mapping needs operator",
		"code", msg.Code,
		"source", string(me.Source),
	)
	writeJSON(w, http.StatusUnprocessableEntity, previewResponse{Preview: pv, Problem: &msg})
}

// decodeJSON decodes a bounded JSON body. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// firstParam returns the first non-empty value among names, checking the
// query string before form fields.
func firstParam(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, n := range names {
		if v := strings.TrimSpace(q.Get(n)); v != "" {
			return v
		}
		if r.PostForm != nil {
			if v := strings.TrimSpace(r.PostForm.Get(n)); v != "" {
				return v
			}
		}
	}
	return ""
}
