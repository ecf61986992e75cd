// Package core provides the import pipeline for OEE manufacturing data.
//
// This package is the heart of the importer, containing all domain logic
// independent of any UI, transport or storage layer. It is used by the web
// handlers, the oeeimport CLI and tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Kind Definitions: Registered via the registry, each record kind has field
//     specs (aliases, types, defaults, ranges, categorical sets), an identifier
//     rule and optional correction and mock generators.
//   - Pipeline: Runs the stages below over one batch of uploaded rows.
//   - Report: Counts and tallies describing what every stage did.
//   - Import Limiter: Bounds how many imports run at once.
//
// # Kind Registry
//
// Kinds are registered at init time using [Register], usually by importing the
// kinds package for its side effects:
//
//	import _ "github.com/JonMunkholm/oeedash/internal/core/kinds"
//
//	def, ok := core.Get(core.KindEquipment)
//
// # Pipeline Stages
//
// [Pipeline.Process] runs, in order:
//
//  1. Schema Mapper: resolves one upload column per canonical field ([MapColumns])
//  2. Value Normalizer: coerces cells to typed values, tallying parse failures
//  3. Validator/Filter: drops rows that break a rule, unless too few would remain
//  4. Backfiller: fills nulls with field defaults, means or modes ([Backfill])
//  5. Augmenter: tops small datasets up with synthetic rows ([Augment])
//
// Empty input, an unknown kind and a required field with no values are fatal;
// everything else is repaired or reported.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - IMP001-IMP004: Import errors (empty batch, unknown kind, missing field, no data)
//   - FILE001-FILE005: File errors (size, format, encoding, missing, empty)
//   - UPL001-UPL005: Import process errors (cancelled, busy, not found, timeout)
//   - DB001-DB004: Store errors (connections, timeouts, locks)
package core
