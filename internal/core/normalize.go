package core

// NormalizeRows projects table rows through m onto the profile's fields.
//
// Unmapped fields read as "". Records whose every field is blank are left
// out; RawRow still points each kept record at its source row so the raw
// reference covers dropped rows too.
func NormalizeRows(p Profile, table RawTable, m FieldMapping) []NormalizedRecord {
	out := make([]NormalizedRecord, 0, len(table.Rows))

	for i, row := range table.Rows {
		rec := NormalizedRecord{
			Values: make(map[Field]Value, len(p.Fields)),
			RawRow: i,
		}

		blank := true
		for _, f := range p.Fields {
			raw := ""
			if header := m[f.Name]; header != "" {
				raw = row[header]
			}
			v := ConvertValue(f.Kind, raw)
			if !v.IsBlank(f.Kind) {
				blank = false
			}
			rec.Values[f.Name] = v
		}

		if blank {
			continue
		}
		out = append(out, rec)
	}

	return out
}
