// Package mirror appends vault entries to an external spreadsheet as a
// best-effort backup. Every operation resolves to a value; backend errors
// never escape to the caller.
package mirror

import (
	"context"
	"errors"
	"fmt"
)

// Stable reason codes carried by Failure.
const (
	CodeMissingCredentials = "MISSING_CREDENTIALS"
	CodeNotFound           = "NOT_FOUND"
	CodeInitError          = "INIT_ERROR"
	CodeAppendError        = "APPEND_ERROR"
)

// ErrTargetNotFound is returned by an Opener when the backend explicitly
// reports that no spreadsheet matches the requested name.
var ErrTargetNotFound = errors.New("spreadsheet not found")

// Opener resolves a spreadsheet and returns its first worksheet.
type Opener interface {
	OpenByID(ctx context.Context, id string) (Sheet, error)
	OpenByName(ctx context.Context, name string) (Sheet, error)
}

// Sheet is the first worksheet of a resolved spreadsheet.
type Sheet interface {
	SpreadsheetID() string
	Title() string
	// FirstRow returns the values of row 1, or an empty slice on an empty sheet.
	FirstRow(ctx context.Context) ([]string, error)
	// WriteRange overwrites a single-row A1 range.
	WriteRange(ctx context.Context, a1 string, values []string) error
	// AppendRow adds values as a new row below the existing data.
	AppendRow(ctx context.Context, values []string) error
}

// Dialer builds an Opener from service-account credentials.
type Dialer func(ctx context.Context, credentials []byte) (Opener, error)

// Failure describes why a mirror operation did not complete.
type Failure struct {
	Code    string
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

func missingCredentials() *Failure {
	return &Failure{Code: CodeMissingCredentials, Message: CodeMissingCredentials}
}

func notFound(target string) *Failure {
	return &Failure{Code: CodeNotFound, Message: fmt.Sprintf("%s name_or_id='%s'", CodeNotFound, target)}
}

func wrapFailure(code string, err error) *Failure {
	return &Failure{Code: code, Message: fmt.Sprintf("%s: %T: %v", code, err, err)}
}

// Result is the outcome of one append.
type Result struct {
	OK      bool
	Failure *Failure
}

// Err returns the failure as an error, or nil when the append succeeded.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}
