package profiles

import "github.com/JonMunkholm/nexus-import/internal/core"

func init() {
	registerTorque()
}

// registerTorque covers Snap-on ConnecTorq exports. The delimiter varies by
// firmware and locale, so it is inferred from the header line; sessions keep
// the per-row raw records.
func registerTorque() {
	core.Register(core.Profile{
		Info: core.ProfileInfo{
			Key:         Torque,
			Label:       "Torque (Snap-on ConnecTorq)",
			Source:      "SNAPON_CONNECTORQ",
			SchemaTag:   "nexus.torque.session.v1",
			SessionsKey: "nexus.torque.sessions.v1",
			MappingKey:  "nexus.torque.mapping.v1",
			IDPrefix:    "torque",
		},
		Delimiter: core.DelimiterInfer,
		Retention: core.RetainRows,
		Fields: []core.FieldDef{
			{
				Name: "timestamp", Label: "Timestamp", Role: core.RoleTimestamp, Kind: core.KindText,
				Synonyms: []string{"time", "timestamp", "date", "datetime", "recorded at"},
			},
			{
				Name: "actualTorque", Label: "Actual torque", Role: core.RolePrimary, Kind: core.KindNumber,
				Synonyms: []string{"actual torque", "torque", "measured torque", "result", "value"},
			},
			{
				Name: "targetTorque", Label: "Target torque", Role: core.RoleSecondary, Kind: core.KindNumber,
				Synonyms: []string{"target torque", "target", "setpoint", "spec", "nominal"},
			},
			{
				Name: "angle", Label: "Angle", Role: core.RoleDerived, Kind: core.KindNumber,
				Synonyms: []string{"angle", "degrees", "deg"},
			},
			{
				Name: "passFail", Label: "Pass/Fail", Role: core.RolePassFail, Kind: core.KindVerdict,
				Synonyms: []string{"status", "pass/fail", "pass fail", "ok", "result status", "judgement", "judgment"},
			},
			{
				Name: "units", Label: "Units", Role: core.RoleUnits, Kind: core.KindText,
				Synonyms: []string{"units", "unit"},
			},
			{
				Name: "toolSerial", Label: "Tool serial", Role: core.RoleMetadata, Kind: core.KindText,
				Synonyms: []string{"tool serial", "serial", "tool id", "id"},
			},
			{
				Name: "toolModel", Label: "Tool model", Role: core.RoleMetadata, Kind: core.KindText,
				Synonyms: []string{"tool model", "model"},
			},
		},
	})
}
