package errors

import (
	"fmt"
	"os"

	"github.com/kverlaine/questforge/internal/logger"
)

// Format renders an error for terminal output. Coded errors already carry
// their code prefix in the message, so no special casing is needed here.
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf is Format for a message built from a format string.
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal writes the error to the log and to stderr, then exits 1. A nil error
// is a no-op so callers can funnel their final error unconditionally.
func Fatal(err error) {
	if err == nil {
		return
	}
	logger.Error("command failed", "error", err)
	fmt.Fprintln(os.Stderr, Format(err))
	os.Exit(1)
}

// Fatalf is Fatal for a message built from a format string. Unlike Fatal it
// always exits.
func Fatalf(format string, args ...interface{}) {
	logger.Error("command failed", "error", fmt.Sprintf(format, args...))
	fmt.Fprintln(os.Stderr, Formatf(format, args...))
	os.Exit(1)
}
