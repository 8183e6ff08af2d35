package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/nexus-import/internal/core"
)

const flukeExport = "Date Time,Test Voltage,Insulation Resistance,Units,Result\n" +
	"2024-03-01 10:00,500,1200,MOhm,PASS\n" +
	"2024-03-01 10:05,1000,1350,MOhm,PASS\n"

const oddExport = "Reading,Stamp\n1200,2024-03-01 10:00\n"

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORE_DRIVER", "file")
	t.Setenv("STORE_DIR", filepath.Join(dir, "store"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("MIRROR_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if err != nil {
		return exitFailure
	}
	return 0
}

func TestImportAndList(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "fluke.csv", flukeExport)

	out, err := run(t, "import", path, "-p", "megohmmeter", "--eq", "MTR-7", "--job", "B12")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var session core.ImportSession
	if err := json.Unmarshal([]byte(out), &session); err != nil {
		t.Fatalf("decode session: %v\n%s", err, out)
	}
	if session.EquipmentID != "MTR-7" || session.SourceFileName != "fluke.csv" {
		t.Errorf("session = %+v", session)
	}

	out, err = run(t, "sessions", "list", "megohmmeter", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var sessions []core.ImportSession
	if err := json.Unmarshal([]byte(out), &sessions); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != session.ID {
		t.Errorf("sessions = %d, want the imported one", len(sessions))
	}

	out, err = run(t, "sessions", "list", "megohmmeter", "--eq", "OTHER")
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if strings.Contains(out, session.ID) {
		t.Error("filter did not exclude other equipment")
	}
}

func TestImport_MissingEquipment(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "fluke.csv", flukeExport)

	_, err := run(t, "import", path, "-p", "megohmmeter")
	if !errors.Is(err, core.ErrValidationMissing) {
		t.Fatalf("error = %v, want ErrValidationMissing", err)
	}
}

func TestParse_NeedsMapping(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "odd.csv", oddExport)

	out, err := run(t, "parse", path, "-p", "megohmmeter")
	if exitCode(err) != exitNeedsMapping {
		t.Fatalf("exit code = %d (%v), want %d", exitCode(err), err, exitNeedsMapping)
	}
	var pv core.Preview
	if err := json.Unmarshal([]byte(out), &pv); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if pv.Phase != core.PhaseNeedsMapping || pv.Prompt == nil {
		t.Errorf("preview phase = %s, prompt = %v", pv.Phase, pv.Prompt)
	}
}

func TestImport_WithMappingFlags(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "odd.csv", oddExport)

	_, err := run(t, "import", path, "-p", "megohmmeter", "--eq", "MTR-1",
		"--map", "resistance=Reading", "--map", "timestamp=Stamp")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	out, err := run(t, "mapping", "show", "megohmmeter")
	if err != nil {
		t.Fatalf("mapping show: %v", err)
	}
	var m core.FieldMapping
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("decode mapping: %v", err)
	}
	if m["resistance"] != "Reading" || m["timestamp"] != "Stamp" {
		t.Errorf("stored mapping = %v", m)
	}

	// The stored mapping now resolves the same layout on its own.
	if _, err := run(t, "import", path, "-p", "megohmmeter", "--eq", "MTR-2"); err != nil {
		t.Fatalf("second import: %v", err)
	}

	if _, err := run(t, "mapping", "clear", "megohmmeter"); err != nil {
		t.Fatalf("mapping clear: %v", err)
	}
	if _, err := run(t, "import", path, "-p", "megohmmeter", "--eq", "MTR-3"); exitCode(err) != exitNeedsMapping {
		t.Errorf("import after clear: exit code = %d, want %d", exitCode(err), exitNeedsMapping)
	}
}

func TestImport_MapOverridesDetectedColumn(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "fluke.csv", "Date Time,Test Voltage,Applied V,Insulation Resistance\n"+
		"2024-03-01 10:00,500,480,1200\n")

	out, err := run(t, "import", path, "-p", "megohmmeter", "--eq", "MTR-4", "--map", "voltage=Applied V")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var session core.ImportSession
	if err := json.Unmarshal([]byte(out), &session); err != nil {
		t.Fatalf("decode session: %v\n%s", err, out)
	}
	if got := session.MappingUsed["voltage"]; got != "Applied V" {
		t.Errorf("mappingUsed[voltage] = %q, want %q", got, "Applied V")
	}
	if got := session.MappingUsed["resistance"]; got != "Insulation Resistance" {
		t.Errorf("mappingUsed[resistance] = %q, want the detected column", got)
	}
	if n := session.Rows[0].Values["voltage"].Number; n == nil || *n != 480 {
		t.Errorf("voltage = %v, want 480", n)
	}

	out, err = run(t, "mapping", "show", "megohmmeter")
	if err != nil {
		t.Fatalf("mapping show: %v", err)
	}
	var m core.FieldMapping
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("decode mapping: %v", err)
	}
	if m["voltage"] != "Applied V" {
		t.Errorf("stored mapping = %v", m)
	}
}

func TestImport_MapUnknownHeader(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "fluke.csv", flukeExport)

	_, err := run(t, "import", path, "-p", "megohmmeter", "--eq", "MTR-5", "--map", "voltage=Nope")
	if exitCode(err) != exitUsage || !errors.Is(err, core.ErrUnknownHeader) {
		t.Errorf("exit code = %d (%v), want %d", exitCode(err), err, exitUsage)
	}
}

func TestSessionsClear_RequiresConfirmation(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "sessions", "clear", "torque")
	if exitCode(err) != exitUsage {
		t.Errorf("exit code = %d, want %d", exitCode(err), exitUsage)
	}

	if _, err := run(t, "sessions", "clear", "torque", "--yes"); err != nil {
		t.Errorf("clear --yes: %v", err)
	}
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "user facing",
			err:  fmt.Errorf("save: %w", core.ErrValidationMissing),
			want: []string{"(Code: IMP005)", "detail: save: "},
		},
		{
			name: "wrapped with exit code",
			err:  withCode(exitNeedsMapping, &core.MappingError{Source: core.SourceGuessed, Err: core.ErrMappingIncomplete}),
			want: []string{"(Code: IMP002)"},
		},
		{
			name: "no user message",
			err:  errors.New("disk on fire"),
			want: []string{"error: disk on fire"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			reportError(&buf, tt.err)
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output %q missing %q", buf.String(), w)
				}
			}
		})
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"resistance = Reading", "voltage=", "units=Unit=s"})
	if err != nil {
		t.Fatalf("parseAssignments: %v", err)
	}
	if got["resistance"] != "Reading" || got["voltage"] != "" || got["units"] != "Unit=s" {
		t.Errorf("got %v", got)
	}

	if _, err := parseAssignments([]string{"no-equals"}); exitCode(err) != exitUsage {
		t.Errorf("invalid pair exit code = %d, want %d", exitCode(err), exitUsage)
	}
}
