package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		delim rune
		want  []string
	}{
		{name: "simple", line: "a,b,c", delim: ',', want: []string{"a", "b", "c"}},
		{name: "trims cells", line: " a , b ,c ", delim: ',', want: []string{"a", "b", "c"}},
		{name: "quoted delimiter", line: `"1,250",MOhm`, delim: ',', want: []string{"1,250", "MOhm"}},
		{name: "escaped quote", line: `"a""b,c",d`, delim: ',', want: []string{`a"b,c`, "d"}},
		{name: "empty cells", line: ",,x,", delim: ',', want: []string{"", "", "x", ""}},
		{name: "semicolon", line: "1;2,5;3", delim: ';', want: []string{"1", "2,5", "3"}},
		{name: "tab", line: "a\tb", delim: '\t', want: []string{"a", "b"}},
		{name: "unterminated quote", line: `"open,x`, delim: ',', want: []string{"open,x"}},
		{name: "single cell", line: "only", delim: ',', want: []string{"only"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLine(tt.line, tt.delim)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SplitLine(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestInferDelimiter(t *testing.T) {
	tests := []struct {
		header string
		want   rune
	}{
		{"Time,Torque,Angle", ','},
		{"Time;Torque;Angle", ';'},
		{"Time\tTorque\tAngle", '\t'},
		{"Time|Torque|Angle", '|'},
		{"Time;Torque,Angle", ','},
		{"Torque", ','},
		{"a,b;c;d", ';'},
	}

	for _, tt := range tests {
		if got := InferDelimiter(tt.header); got != tt.want {
			t.Errorf("InferDelimiter(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	text := "Time,Value,,Note\r\n" +
		"10:00,1,x\r\n" +
		"\r\n" +
		" , , , \r\n" +
		"10:05,2,y,\"long, note\",extra\r\n"

	got := Tokenize(text, DelimiterComma)

	wantHeaders := []string{"Time", "Value", "col_2", "Note"}
	if diff := cmp.Diff(wantHeaders, got.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}

	wantRows := []map[string]string{
		{"Time": "10:00", "Value": "1", "col_2": "x", "Note": ""},
		{"Time": "10:05", "Value": "2", "col_2": "y", "Note": "long, note"},
	}
	if diff := cmp.Diff(wantRows, got.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenize_EveryRowHasEveryHeader(t *testing.T) {
	got := Tokenize("a;b;c\n1\n1;2\n1;2;3;4\n", DelimiterInfer)

	if len(got.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(got.Rows))
	}
	for i, row := range got.Rows {
		if len(row) != len(got.Headers) {
			t.Errorf("row %d has %d keys, want %d", i, len(row), len(got.Headers))
		}
		for _, h := range got.Headers {
			if _, ok := row[h]; !ok {
				t.Errorf("row %d missing header %q", i, h)
			}
		}
	}
}

func TestTokenize_DuplicateHeaderLastWins(t *testing.T) {
	got := Tokenize("Value,Value\n1,2\n", DelimiterComma)

	if diff := cmp.Diff([]string{"Value", "Value"}, got.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
	if got.Rows[0]["Value"] != "2" {
		t.Errorf("Value = %q, want the right-most column", got.Rows[0]["Value"])
	}
}

func TestTokenize_Empty(t *testing.T) {
	for _, text := range []string{"", "\n", "  \r\n\t\n"} {
		got := Tokenize(text, DelimiterComma)
		if !got.Empty() || len(got.Rows) != 0 {
			t.Errorf("Tokenize(%q) = %+v, want empty table", text, got)
		}
	}

	headerOnly := Tokenize("a,b\n", DelimiterComma)
	if headerOnly.Empty() || len(headerOnly.Rows) != 0 {
		t.Errorf("header-only table = %+v", headerOnly)
	}
}

func TestTokenize_FixedCommaIgnoresSemicolons(t *testing.T) {
	got := Tokenize("a;b\n1;2\n", DelimiterComma)
	if diff := cmp.Diff([]string{"a;b"}, got.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
}
