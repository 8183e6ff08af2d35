// Package core provides the business logic for instrument CSV imports.
//
// This package is the heart of the importer, containing all domain logic
// independent of any UI or transport layer. It can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Architecture
//
// One pipeline serves every instrument, parameterized by a [Profile]:
//
//	Tokenize -> GuessMapping -> Usable -> (Resolve) -> NormalizeRows -> BuildSession -> SessionStore
//
//   - Tokenizer: [DecodeText] then [Tokenize] turn an export into a [RawTable].
//   - Mapper: [GuessMapping] matches [NormalizeHeader] forms against each
//     field's ordered synonyms.
//   - Gate: [Usable] requires the primary measurement plus a timestamp or a
//     secondary measurement.
//   - Resolver: [Service.Resolve] takes the operator's column choices and
//     persists them for the next import.
//   - Normalizer: [NormalizeRows] applies [LooseNumber] and [ParseVerdict].
//   - Builder: [BuildSession] derives capturedAt and the summary.
//
// # Profile Registry
//
// Profiles are registered at init time using [Register]:
//
//	core.Register(core.Profile{
//	    Info: core.ProfileInfo{Key: "megohmmeter", SessionsKey: "nexus.meg.fluke.sessions.v1"},
//	    Fields: []core.FieldDef{
//	        {Name: "resistance", Role: core.RolePrimary, Kind: core.KindNumber,
//	            Synonyms: []string{"insulation resistance", "resistance"}},
//	    },
//	})
//
// # Candidates
//
// [Service.Parse] creates a candidate that moves through reading, parsing,
// needs_mapping or ready, then saved or failed. A new parse for the same
// profile, equipment and job discards the unsaved candidate.
//
// # Error Handling
//
// Each failure kind has a sentinel ([ErrInputEmpty], [ErrMappingIncomplete],
// [ErrMappingUnproductive], [ErrValidationMissing], [ErrStorageFailure]).
// [MapError] turns any error into a [UserMessage] with a support code.
package core
