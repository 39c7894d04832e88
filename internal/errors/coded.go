package errors

import (
	"errors"
	"fmt"
)

// Code identifies a caller-facing error category. Codes prefix the rendered
// message ("DAILY_CAP_REACHED: ...") so the UI layer can branch on them.
type Code string

const (
	CodeDailyCapReached     Code = "DAILY_CAP_REACHED"
	CodeQuestCapReached     Code = "QUEST_CAP_REACHED"
	CodeNotFound            Code = "NOT_FOUND"
	CodeAccessDenied        Code = "ACCESS_DENIED"
	CodeSeverityLocked      Code = "SEVERITY_LOCKED"
	CodeTimestampOutOfRange Code = "TIMESTAMP_OUT_OF_RANGE"
	CodeInvalidState        Code = "INVALID_STATE"
)

// Coded is an error carrying a stable code and a human-readable suffix.
type Coded struct {
	Code    Code
	Message string
}

func (e *Coded) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewCoded creates a coded error with a formatted message.
func NewCoded(code Code, format string, args ...interface{}) *Coded {
	return &Coded{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from an error chain, or "" if none is present.
func CodeOf(err error) Code {
	var coded *Coded
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// IsCode reports whether the error chain contains a coded error with the
// given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
