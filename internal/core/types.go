// Package core provides the business logic for instrument CSV imports.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"strings"
	"time"
)

// Field names a canonical field within a profile (e.g. "resistance").
type Field string

// Role is the structural part a canonical field plays, independent of the
// instrument domain. The usability gate only looks at roles.
type Role int

const (
	RoleNone Role = iota
	RoleTimestamp
	RolePrimary
	RoleSecondary
	RoleUnits
	RoleDerived
	RolePassFail
	RoleNotes
	RoleMetadata
)

var roleNames = map[Role]string{
	RoleNone:      "none",
	RoleTimestamp: "timestamp",
	RolePrimary:   "primaryMeasurement",
	RoleSecondary: "secondaryMeasurement",
	RoleUnits:     "units",
	RoleDerived:   "derivedMetric",
	RolePassFail:  "passFail",
	RoleNotes:     "notes",
	RoleMetadata:  "metadata",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return "unknown"
}

// ValueKind selects the conversion applied to a field's raw text.
type ValueKind int

const (
	KindText    ValueKind = iota // trimmed text
	KindNumber                   // loose numeric parse
	KindVerdict                  // PASS / FAIL / UNKNOWN
)

// FieldDef describes one canonical field of a profile.
type FieldDef struct {
	Name     Field     // Stable key used in mappings and records
	Label    string    // Display name for the mapping prompt
	Role     Role      // Structural role
	Kind     ValueKind // Value conversion
	Synonyms []string  // Ordered by priority; matched against normalized headers
}

// DelimiterMode selects how the tokenizer picks the field delimiter.
type DelimiterMode int

const (
	DelimiterComma DelimiterMode = iota
	DelimiterInfer
)

// RawRetention selects what a saved session keeps of its source data.
type RawRetention int

const (
	RetainText RawRetention = iota // whole decoded file text
	RetainRows                     // per-row raw records
)

// ProfileInfo contains identifying and storage information about a profile.
type ProfileInfo struct {
	Key         string `json:"key"`         // Unique identifier: "megohmmeter"
	Label       string `json:"label"`       // Display name
	Source      string `json:"source"`      // Importer tag written on every session
	SchemaTag   string `json:"schemaTag"`   // Session schema version
	SessionsKey string `json:"sessionsKey"` // Storage key for the session collection
	MappingKey  string `json:"mappingKey"`  // Storage key for the persisted field mapping
	IDPrefix    string `json:"idPrefix"`    // Prefix for generated session ids
}

// Profile parameterizes the import pipeline for one instrument domain.
type Profile struct {
	Info      ProfileInfo
	Fields    []FieldDef
	Delimiter DelimiterMode
	Retention RawRetention
}

// Field returns the definition for name.
func (p Profile) Field(name Field) (FieldDef, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// FieldsWithRole returns the fields carrying role, in declaration order.
func (p Profile) FieldsWithRole(role Role) []FieldDef {
	var out []FieldDef
	for _, f := range p.Fields {
		if f.Role == role {
			out = append(out, f)
		}
	}
	return out
}

// RawTable is the tokenizer output: headers plus one record per data line.
// Every row holds a value for every header.
type RawTable struct {
	Headers []string
	Rows    []map[string]string
}

// Empty reports whether no headers were detected.
func (t RawTable) Empty() bool {
	return len(t.Headers) == 0
}

// HasHeader reports whether h is one of the table's headers.
func (t RawTable) HasHeader(h string) bool {
	for _, x := range t.Headers {
		if x == h {
			return true
		}
	}
	return false
}

// FieldMapping maps a canonical field to a source header. An empty value
// means the field is unset.
type FieldMapping map[Field]string

// Mapped reports whether f names a header.
func (m FieldMapping) Mapped(f Field) bool {
	return strings.TrimSpace(m[f]) != ""
}

// Clone returns a copy of m.
func (m FieldMapping) Clone() FieldMapping {
	out := make(FieldMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether no field is mapped.
func (m FieldMapping) IsEmpty() bool {
	for _, v := range m {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Verdict is the normalized pass/fail outcome.
type Verdict string

const (
	VerdictPass    Verdict = "PASS"
	VerdictFail    Verdict = "FAIL"
	VerdictUnknown Verdict = "UNKNOWN"
)

// Value is one normalized field value.
type Value struct {
	Text    string   `json:"text,omitempty"`    // Trimmed source text
	Number  *float64 `json:"number,omitempty"`  // KindNumber only; nil when nothing numeric was found
	Verdict Verdict  `json:"verdict,omitempty"` // KindVerdict only
}

// NormalizedRecord is one raw row projected onto a profile's fields.
type NormalizedRecord struct {
	Values map[Field]Value `json:"values"`
	RawRow int             `json:"rawRow"` // index into the RawTable rows
}

// RawReference keeps the source data of a session for audit.
type RawReference struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows,omitempty"`
	Text    string              `json:"text,omitempty"`
}

// SessionSummary carries the counts shown in session lists.
type SessionSummary struct {
	RowCount  int              `json:"rowCount"`
	PassCount int              `json:"passCount"`
	FailCount int              `json:"failCount"`
	Units     string           `json:"units,omitempty"`
	Metadata  map[Field]string `json:"metadata,omitempty"`
}

// ImportSession is the durable record of one completed import.
type ImportSession struct {
	ID             string             `json:"id"`
	Source         string             `json:"source"`
	Profile        string             `json:"profile"`
	EquipmentID    string             `json:"equipmentId"`
	JobID          string             `json:"jobId"`
	SourceFileName string             `json:"sourceFileName"`
	CapturedAt     time.Time          `json:"capturedAt"`
	CreatedAt      time.Time          `json:"createdAt"`
	SchemaTag      string             `json:"schemaTag"`
	MappingUsed    FieldMapping       `json:"mappingUsed"`
	Rows           []NormalizedRecord `json:"rows"`
	Raw            RawReference       `json:"raw"`
	Summary        SessionSummary     `json:"summary"`
}

// SessionFilter scopes a session listing. Empty values match everything.
type SessionFilter struct {
	EquipmentID string
	JobID       string
}

// Matches reports whether s passes the filter.
func (f SessionFilter) Matches(s ImportSession) bool {
	if eq := strings.TrimSpace(f.EquipmentID); eq != "" && strings.TrimSpace(s.EquipmentID) != eq {
		return false
	}
	if job := strings.TrimSpace(f.JobID); job != "" && strings.TrimSpace(s.JobID) != job {
		return false
	}
	return true
}

// Phase indicates the current stage of an import candidate.
type Phase string

const (
	PhaseReading      Phase = "reading"
	PhaseParsing      Phase = "parsing"
	PhaseNeedsMapping Phase = "needs_mapping"
	PhaseReady        Phase = "ready"
	PhaseSaved        Phase = "saved"
	PhaseFailed       Phase = "failed"
)
