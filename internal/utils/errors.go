package utils

import (
	"fmt"
	"sort"
	"strings"
)

// Exit codes
const (
	ExitSuccess = 0
	// Engine pass failure mirrors the last pass result
	ExitSyncFailed = 1
	// Usage errors
	ExitUsage = 2
	// Environment errors (10-19)
	ExitSourceDirMissing  = 10
	ExitExcludeUnreadable = 11
	ExitProxyInvalid      = 12
	ExitJournalError      = 13
	// Network errors (30-39)
	ExitConnectFailed = 30
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeUsage             = "USAGE"
	ErrCodeSourceDirMissing  = "SOURCE_DIR_MISSING"
	ErrCodeExcludeUnreadable = "EXCLUDE_UNREADABLE"
	ErrCodeProxyInvalid      = "PROXY_INVALID"
	ErrCodeJournalError      = "JOURNAL_ERROR"
	ErrCodeConnectFailed     = "CONNECT_FAILED"
	ErrCodeSyncFailed        = "SYNC_FAILED"
	ErrCodeUnknown           = "UNKNOWN"
)

// CLIError carries a stable error code plus human-readable detail
type CLIError struct {
	Code    string
	Message string
	Context map[string]interface{}
}

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err CLIError
}

// NewCLIError starts building a CLIError with the given code and message
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: CLIError{
			Code:    code,
			Message: message,
			Context: map[string]interface{}{},
		},
	}
}

// WithContext attaches a key/value detail to the error
func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	b.err.Context[key] = value
	return b
}

// Build returns the constructed CLIError
func (b *CLIErrorBuilder) Build() CLIError {
	return b.err
}

// ExitCodeForError maps an error code to its process exit code
func ExitCodeForError(errorCode string) int {
	mapping := map[string]int{
		ErrCodeUsage:             ExitUsage,
		ErrCodeSourceDirMissing:  ExitSourceDirMissing,
		ErrCodeExcludeUnreadable: ExitExcludeUnreadable,
		ErrCodeProxyInvalid:      ExitProxyInvalid,
		ErrCodeJournalError:      ExitJournalError,
		ErrCodeConnectFailed:     ExitConnectFailed,
		ErrCodeSyncFailed:        ExitSyncFailed,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError CLIError
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
	if len(e.CLIError.Context) == 0 {
		return msg
	}
	keys := make([]string, 0, len(e.CLIError.Context))
	for k := range e.CLIError.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(msg)
	sb.WriteString(" (")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", k, e.CLIError.Context[k])
	}
	sb.WriteString(")")
	return sb.String()
}

// ExitCode returns the process exit code for this error
func (e *AppError) ExitCode() int {
	return ExitCodeForError(e.CLIError.Code)
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}
