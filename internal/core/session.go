package core

import (
	"strings"
	"time"
)

// SessionInput carries everything BuildSession needs from one import attempt.
type SessionInput struct {
	ID             string // optional; the store assigns one when empty
	EquipmentID    string
	JobID          string
	SourceFileName string
	Table          RawTable
	RawText        string
	Mapping        FieldMapping
	Rows           []NormalizedRecord
	Now            time.Time
}

// BuildSession assembles an ImportSession. EquipmentID is required and is
// never substituted.
func BuildSession(p Profile, in SessionInput) (ImportSession, error) {
	eq := strings.TrimSpace(in.EquipmentID)
	if eq == "" {
		return ImportSession{}, ErrValidationMissing
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	s := ImportSession{
		ID:             strings.TrimSpace(in.ID),
		Source:         p.Info.Source,
		Profile:        p.Info.Key,
		EquipmentID:    eq,
		JobID:          strings.TrimSpace(in.JobID),
		SourceFileName: in.SourceFileName,
		CapturedAt:     capturedAt(p, in.Rows, now),
		CreatedAt:      now,
		SchemaTag:      p.Info.SchemaTag,
		MappingUsed:    in.Mapping.Clone(),
		Rows:           in.Rows,
		Raw:            rawReference(p, in),
		Summary:        summarize(p, in.Rows),
	}
	return s, nil
}

// capturedAt returns the earliest parseable timestamp among the rows, or
// fallback when none parse.
func capturedAt(p Profile, rows []NormalizedRecord, fallback time.Time) time.Time {
	var (
		earliest time.Time
		found    bool
	)
	for _, f := range p.FieldsWithRole(RoleTimestamp) {
		for _, r := range rows {
			t, ok := ParseTimestamp(r.Values[f.Name].Text)
			if !ok {
				continue
			}
			if !found || t.Before(earliest) {
				earliest, found = t, true
			}
		}
	}
	if !found {
		return fallback
	}
	return earliest.UTC()
}

func rawReference(p Profile, in SessionInput) RawReference {
	ref := RawReference{Headers: append([]string(nil), in.Table.Headers...)}
	switch p.Retention {
	case RetainRows:
		ref.Rows = in.Table.Rows
	default:
		ref.Text = in.RawText
	}
	return ref
}

func summarize(p Profile, rows []NormalizedRecord) SessionSummary {
	sum := SessionSummary{RowCount: len(rows)}

	for _, f := range p.FieldsWithRole(RolePassFail) {
		for _, r := range rows {
			switch r.Values[f.Name].Verdict {
			case VerdictPass:
				sum.PassCount++
			case VerdictFail:
				sum.FailCount++
			}
		}
	}

	for _, f := range p.FieldsWithRole(RoleUnits) {
		for _, r := range rows {
			if u := r.Values[f.Name].Text; u != "" {
				sum.Units = u
				break
			}
		}
		if sum.Units != "" {
			break
		}
	}

	if len(rows) > 0 {
		for _, f := range p.FieldsWithRole(RoleMetadata) {
			if v := rows[0].Values[f.Name].Text; v != "" {
				if sum.Metadata == nil {
					sum.Metadata = make(map[Field]string)
				}
				sum.Metadata[f.Name] = v
			}
		}
	}

	return sum
}
