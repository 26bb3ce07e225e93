package bsbidx

import "errors"

// ═══════════════════════════════════════════════════════════════════════════════
// SENTINEL ERRORS
// ═══════════════════════════════════════════════════════════════════════════════
// Grouped by the closed error-kind taxonomy of spec.md §7. Callers should
// use errors.Is against these sentinels rather than string-matching.
// ═══════════════════════════════════════════════════════════════════════════════

// Input errors — malformed queries or other caller-supplied data.
var (
	ErrMalformedExpression = errors.New("bsbidx: malformed boolean expression")
	ErrUnknownOperator     = errors.New("bsbidx: unknown boolean operator")
	ErrUnexpectedToken     = errors.New("bsbidx: unexpected token in expression")
)

// I/O errors — missing, truncated, or unreadable on-disk artefacts.
var (
	ErrIndexNotFound     = errors.New("bsbidx: index artefact not found")
	ErrIndexIncomplete   = errors.New("bsbidx: index directory is missing required artefacts")
	ErrTruncatedArtefact = errors.New("bsbidx: on-disk artefact is truncated")
)

// Data errors — structurally invalid records detected while reading.
var (
	ErrBadPostingSize = errors.New("bsbidx: posting record has the wrong size")
	ErrSkipListBad    = errors.New("bsbidx: skip-list inconsistency detected")
)

// Policy errors — operation attempted in an invalid state.
var (
	ErrIndexDirExists = errors.New("bsbidx: index directory already exists; overwrite not requested")
)
