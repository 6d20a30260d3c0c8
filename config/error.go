package config

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Error struct {
	filePath string // may be empty if no file was involved
	err      error
}

// Error returns a short error message.
func (e *Error) Error() string {
	if e.filePath == "" {
		return "config: " + e.err.Error()
	}
	return e.filePath + ": " + e.err.Error()
}

// String returns a multi-line message listing every invalid field.
func (e *Error) String() string {
	var verrs validator.ValidationErrors
	if !errors.As(e.err, &verrs) {
		return e.Error()
	}
	var b strings.Builder
	if e.filePath != "" {
		b.WriteString("Error in file " + strconv.Quote(e.filePath) + ":\n")
	} else {
		b.WriteString("Invalid configuration:\n")
	}
	for _, fe := range verrs {
		b.WriteString("  " + fe.Namespace() + ": failed " + strconv.Quote(fe.Tag()))
		if fe.Param() != "" {
			b.WriteString(" (" + fe.Param() + ")")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.err
}
