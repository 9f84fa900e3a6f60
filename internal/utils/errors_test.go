package utils

import (
	"strings"
	"testing"
)

func TestAppErrorRendersContext(t *testing.T) {
	err := NewAppError(NewCLIError(ErrCodeConnectFailed, "error connecting to server").
		WithContext("traceId", "0123456789abcdef").
		Build())

	got := err.Error()
	if !strings.HasPrefix(got, "CONNECT_FAILED: error connecting to server") {
		t.Errorf("Error() = %q", got)
	}
	if !strings.Contains(got, "traceId=0123456789abcdef") {
		t.Errorf("context missing from Error(): %q", got)
	}
}

func TestAppErrorWithoutContext(t *testing.T) {
	err := NewAppError(NewCLIError(ErrCodeUsage, "expected <source_dir> <server_url>").Build())
	if got := err.Error(); got != "USAGE: expected <source_dir> <server_url>" {
		t.Errorf("Error() = %q", got)
	}
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeUsage, ExitUsage},
		{ErrCodeSourceDirMissing, ExitSourceDirMissing},
		{ErrCodeExcludeUnreadable, ExitExcludeUnreadable},
		{ErrCodeProxyInvalid, ExitProxyInvalid},
		{ErrCodeJournalError, ExitJournalError},
		{ErrCodeConnectFailed, ExitConnectFailed},
		{ErrCodeSyncFailed, ExitSyncFailed},
		{"SOMETHING_ELSE", ExitUnknown},
	}
	for _, tt := range tests {
		if got := ExitCodeForError(tt.code); got != tt.want {
			t.Errorf("ExitCodeForError(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
	appErr := NewAppError(NewCLIError(ErrCodeProxyInvalid, "bad proxy").Build())
	if appErr.ExitCode() != ExitProxyInvalid {
		t.Errorf("ExitCode() = %d, want %d", appErr.ExitCode(), ExitProxyInvalid)
	}
}
