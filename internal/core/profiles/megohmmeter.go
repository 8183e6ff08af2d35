package profiles

import "github.com/JonMunkholm/nexus-import/internal/core"

func init() {
	registerMegohmmeter()
}

// registerMegohmmeter covers insulation-resistance exports from Fluke
// Connect. The exports are always comma separated and the whole file is kept
// with each session.
func registerMegohmmeter() {
	core.Register(core.Profile{
		Info: core.ProfileInfo{
			Key:         Megohmmeter,
			Label:       "Megohmmeter (Fluke Connect)",
			Source:      "FLUKE_CONNECT_IMPORT",
			SchemaTag:   "nexus.meg.fluke.session.v1",
			SessionsKey: "nexus.meg.fluke.sessions.v1",
			MappingKey:  "nexus.meg.fluke.mapping.v1",
			IDPrefix:    "fluke",
		},
		Delimiter: core.DelimiterComma,
		Retention: core.RetainText,
		Fields: []core.FieldDef{
			{
				Name: "timestamp", Label: "Timestamp", Role: core.RoleTimestamp, Kind: core.KindText,
				Synonyms: []string{"timestamp", "time", "date time", "datetime", "date", "test time", "measured time", "measurement time"},
			},
			{
				Name: "voltage", Label: "Test voltage", Role: core.RoleSecondary, Kind: core.KindNumber,
				Synonyms: []string{"voltage", "test voltage", "v", "test v", "testvoltage", "test-voltage"},
			},
			{
				Name: "resistance", Label: "Insulation resistance", Role: core.RolePrimary, Kind: core.KindNumber,
				Synonyms: []string{"insulation resistance", "resistance", "ir", "mohm", "megohm", "ohm", "insulation"},
			},
			{
				Name: "units", Label: "Units", Role: core.RoleUnits, Kind: core.KindText,
				Synonyms: []string{"units", "unit", "resistance units", "ohm units"},
			},
			{
				Name: "pi", Label: "Polarization index", Role: core.RoleDerived, Kind: core.KindNumber,
				Synonyms: []string{"pi", "polarization index", "polarization"},
			},
			{
				Name: "dar", Label: "Dielectric absorption ratio", Role: core.RoleDerived, Kind: core.KindNumber,
				Synonyms: []string{"dar", "dielectric absorption ratio", "absorption ratio"},
			},
			{
				Name: "passFail", Label: "Pass/Fail", Role: core.RolePassFail, Kind: core.KindVerdict,
				Synonyms: []string{"pass/fail", "pass fail", "result", "status", "outcome"},
			},
			{
				Name: "notes", Label: "Notes", Role: core.RoleNotes, Kind: core.KindText,
				Synonyms: []string{"notes", "comment", "comments", "remark", "remarks", "description"},
			},
		},
	})
}
