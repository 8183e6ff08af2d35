package core

import "strings"

// MappingSource records where a candidate mapping came from.
type MappingSource string

const (
	SourceStored  MappingSource = "stored"
	SourceGuessed MappingSource = "guessed"
	SourceUser    MappingSource = "user"
)

// NoneOption is the resolver's explicit "no column" choice.
const NoneOption = "__NONE__"

// MappingAttempt is the result of one pass through mapper and gate.
type MappingAttempt struct {
	Usable  bool
	Mapping FieldMapping  // stored mapping if valid, else the guess
	Source  MappingSource // stored or guessed
	Guess   FieldMapping  // always the fresh guess; pre-selects the resolver
}

// normalizedHeader pairs a source header with its match form.
type normalizedHeader struct {
	raw  string
	norm string
}

// GuessMapping assigns each profile field at most one header by scanning the
// field's synonyms in priority order. For each synonym an exact normalized
// match across all headers is preferred over a substring match. Unmatched
// fields map to "".
func GuessMapping(p Profile, headers []string) FieldMapping {
	normed := make([]normalizedHeader, len(headers))
	for i, h := range headers {
		normed[i] = normalizedHeader{raw: h, norm: NormalizeHeader(h)}
	}

	m := make(FieldMapping, len(p.Fields))
	for _, f := range p.Fields {
		m[f.Name] = pickHeader(normed, f.Synonyms)
	}
	return m
}

func pickHeader(headers []normalizedHeader, synonyms []string) string {
	for _, syn := range synonyms {
		want := NormalizeHeader(syn)
		if want == "" {
			continue
		}
		for _, h := range headers {
			if h.norm == want {
				return h.raw
			}
		}
		for _, h := range headers {
			if strings.Contains(h.norm, want) {
				return h.raw
			}
		}
	}
	return ""
}

// Usable is the usability gate: the primary measurement must be mapped and
// so must a timestamp or a secondary measurement.
func Usable(p Profile, m FieldMapping) bool {
	return anyMapped(p, m, RolePrimary) &&
		(anyMapped(p, m, RoleTimestamp) || anyMapped(p, m, RoleSecondary))
}

func anyMapped(p Profile, m FieldMapping, role Role) bool {
	for _, f := range p.FieldsWithRole(role) {
		if m.Mapped(f.Name) {
			return true
		}
	}
	return false
}

// ValidStoredMapping returns the stored mapping restricted to the profile's
// fields, or false when it is absent, maps nothing, or has any entry naming a
// header that is not in the table. Entries for fields the profile does not
// define still count toward header presence.
func ValidStoredMapping(p Profile, table RawTable, stored FieldMapping) (FieldMapping, bool) {
	if stored == nil {
		return nil, false
	}

	out := make(FieldMapping, len(p.Fields))
	for _, f := range p.Fields {
		out[f.Name] = ""
	}
	for field, header := range stored {
		header = strings.TrimSpace(header)
		if header == "" {
			continue
		}
		if !table.HasHeader(header) {
			return nil, false
		}
		if _, ok := p.Field(field); ok {
			out[field] = header
		}
	}

	if out.IsEmpty() {
		return nil, false
	}
	return out, true
}

// AttemptMapping picks the mapping for table without side effects. A valid
// stored mapping wins over the fresh guess; either way the gate decides
// whether the resolver is needed.
func AttemptMapping(p Profile, table RawTable, stored FieldMapping) MappingAttempt {
	guess := GuessMapping(p, table.Headers)

	attempt := MappingAttempt{Mapping: guess, Source: SourceGuessed, Guess: guess}
	if valid, ok := ValidStoredMapping(p, table, stored); ok {
		attempt.Mapping = valid
		attempt.Source = SourceStored
	}
	attempt.Usable = Usable(p, attempt.Mapping)
	return attempt
}

// MappingFromSelections turns resolver selections into a FieldMapping.
// NoneOption and blank selections unset the field. Fields not in the profile
// are ignored; a header not in the table is an error.
func MappingFromSelections(p Profile, table RawTable, selections map[Field]string) (FieldMapping, error) {
	m := make(FieldMapping, len(p.Fields))
	for _, f := range p.Fields {
		sel := strings.TrimSpace(selections[f.Name])
		if sel == "" || sel == NoneOption {
			m[f.Name] = ""
			continue
		}
		if !table.HasHeader(sel) {
			return nil, &HeaderError{Field: f.Name, Header: sel}
		}
		m[f.Name] = sel
	}
	return m, nil
}
