package core

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sessionInput(t *testing.T, p Profile, text string, m FieldMapping) SessionInput {
	t.Helper()
	tbl := Tokenize(text, p.Delimiter)
	return SessionInput{
		EquipmentID:    "MTR-7",
		JobID:          "B12",
		SourceFileName: "export.csv",
		Table:          tbl,
		RawText:        text,
		Mapping:        m,
		Rows:           NormalizeRows(p, tbl, m),
		Now:            time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("EST", -5*3600)),
	}
}

const meterExport = "Time,Reading,Units,Result,Serial\n" +
	"2024-03-01 10:05,1200,MOhm,PASS,SN-1\n" +
	"2024-03-01 09:55,1300,,FAIL,SN-2\n" +
	"not a time,1400,GOhm,ok,\n"

var meterMapping = FieldMapping{
	"timestamp": "Time", "resistance": "Reading", "units": "Units",
	"passFail": "Result", "serial": "Serial",
}

func TestBuildSession(t *testing.T) {
	p := meterProfile()
	in := sessionInput(t, p, meterExport, meterMapping)

	s, err := BuildSession(p, in)
	if err != nil {
		t.Fatalf("BuildSession() error = %v", err)
	}

	if s.Source != "TEST" || s.Profile != "meter-test" || s.SchemaTag != "test.session.v1" {
		t.Errorf("profile tags = %q %q %q", s.Source, s.Profile, s.SchemaTag)
	}
	if s.EquipmentID != "MTR-7" || s.JobID != "B12" || s.SourceFileName != "export.csv" {
		t.Errorf("identifiers = %q %q %q", s.EquipmentID, s.JobID, s.SourceFileName)
	}
	if s.ID != "" {
		t.Errorf("ID = %q, want empty for the store to assign", s.ID)
	}

	wantCaptured := time.Date(2024, 3, 1, 9, 55, 0, 0, time.UTC)
	if !s.CapturedAt.Equal(wantCaptured) {
		t.Errorf("CapturedAt = %v, want earliest row time %v", s.CapturedAt, wantCaptured)
	}
	if s.CreatedAt.Location() != time.UTC || !s.CreatedAt.Equal(in.Now) {
		t.Errorf("CreatedAt = %v, want %v in UTC", s.CreatedAt, in.Now)
	}

	wantSummary := SessionSummary{
		RowCount:  3,
		PassCount: 2,
		FailCount: 1,
		Units:     "MOhm",
		Metadata:  map[Field]string{"serial": "SN-1"},
	}
	if diff := cmp.Diff(wantSummary, s.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	if s.Raw.Text != meterExport || s.Raw.Rows != nil {
		t.Errorf("raw reference should keep the text only, got %+v", s.Raw)
	}
	if diff := cmp.Diff(in.Table.Headers, s.Raw.Headers); diff != "" {
		t.Errorf("raw headers mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSession_RetainRows(t *testing.T) {
	p := meterProfile()
	p.Retention = RetainRows
	in := sessionInput(t, p, meterExport, meterMapping)

	s, err := BuildSession(p, in)
	if err != nil {
		t.Fatal(err)
	}
	if s.Raw.Text != "" || len(s.Raw.Rows) != 3 {
		t.Errorf("raw reference = %+v, want rows only", s.Raw)
	}
}

func TestBuildSession_MissingEquipment(t *testing.T) {
	p := meterProfile()

	for _, eq := range []string{"", "   "} {
		in := sessionInput(t, p, meterExport, meterMapping)
		in.EquipmentID = eq
		if _, err := BuildSession(p, in); !errors.Is(err, ErrValidationMissing) {
			t.Errorf("BuildSession(eq=%q) error = %v, want ErrValidationMissing", eq, err)
		}
	}
}

func TestBuildSession_CapturedAtFallsBackToNow(t *testing.T) {
	p := meterProfile()
	in := sessionInput(t, p, "Reading,Volts\n1200,500\n", FieldMapping{"resistance": "Reading"})

	s, err := BuildSession(p, in)
	if err != nil {
		t.Fatal(err)
	}
	if !s.CapturedAt.Equal(in.Now) {
		t.Errorf("CapturedAt = %v, want now %v", s.CapturedAt, in.Now)
	}
}

func TestBuildSession_MappingIsCopied(t *testing.T) {
	p := meterProfile()
	m := meterMapping.Clone()
	in := sessionInput(t, p, meterExport, m)

	s, err := BuildSession(p, in)
	if err != nil {
		t.Fatal(err)
	}
	m["resistance"] = "changed"
	if s.MappingUsed["resistance"] != "Reading" {
		t.Errorf("MappingUsed changed with caller's map: %q", s.MappingUsed["resistance"])
	}
}
