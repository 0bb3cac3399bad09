package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// FetchFailed indicates the snapshot could not be cloned at all
	FetchFailed ErrorCode = "FETCH_FAILED"
	// SnapshotStale indicates the snapshot could not be updated and is used as-is
	SnapshotStale ErrorCode = "SNAPSHOT_STALE"
	// RevisionUnknown indicates the snapshot revision could not be discovered
	RevisionUnknown ErrorCode = "REVISION_UNKNOWN"
	// ArtifactCorrupt indicates the persisted index could not be parsed
	ArtifactCorrupt ErrorCode = "ARTIFACT_CORRUPT"
	// DuplicateConflict indicates one source location claims several public names
	DuplicateConflict ErrorCode = "DUPLICATE_CONFLICT"
	// InvalidInvocation indicates a malformed command line
	InvalidInvocation ErrorCode = "INVALID_INVOCATION"
	// ConfigInvalid indicates a configuration or tables file failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// IndexLocked indicates another docindex process holds the workspace lock
	IndexLocked ErrorCode = "INDEX_LOCKED"
	// SymbolNotFound indicates a lookup name is absent from the index
	SymbolNotFound ErrorCode = "SYMBOL_NOT_FOUND"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditFile suggests a hand edit of a configuration or tables file
	EditFile FixActionType = "edit-file"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Path        string        `json:"path,omitempty"`
	Description string        `json:"description,omitempty"`
}

// DocError represents a docindex error with code, message, and suggestions
type DocError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new DocError. When fixes is nil the default fixes for code are used.
func New(code ErrorCode, message string, cause error, fixes []FixAction) *DocError {
	if fixes == nil {
		fixes = GetSuggestedFixes(code)
	}
	return &DocError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: fixes,
	}
}

// Error implements the error interface
func (e *DocError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DocError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *DocError) WithDetails(details interface{}) *DocError {
	e.Details = details
	return e
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	DuplicateConflict: {
		{
			Type:        EditFile,
			Path:        "tables.toml",
			Description: "Add an [overrides] entry so each location resolves to a single name",
		},
	},
	FetchFailed: {
		{
			Type:        RunCommand,
			Command:     "git ls-remote ${source_url}",
			Description: "Check that the source repository is reachable",
		},
	},
	ArtifactCorrupt: {
		{
			Type:        RunCommand,
			Command:     "docindex functions --yes",
			Description: "Regenerate the index from scratch",
		},
	},
	IndexLocked: {
		{
			Type:        RunCommand,
			Command:     "rm .docindex/docindex.lock",
			Description: "Remove a stale lock left by a crashed run",
		},
	},
	ConfigInvalid: {
		{
			Type:        EditFile,
			Path:        ".docindex/config.json",
			Description: "Fix the reported configuration field",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}

// CodeOf returns the code of the first DocError in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	var de *DocError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case InvalidInvocation, ConfigInvalid:
		return 2
	case DuplicateConflict:
		return 3
	case FetchFailed:
		return 4
	default:
		return 1
	}
}
