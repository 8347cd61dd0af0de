package assistant

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedReply marks a success response that carried no usable reply.
var ErrMalformedReply = errors.New("assistant reply missing content")

// CallError reports a failed assistant call. StatusCode is zero when the
// request never produced an HTTP response.
type CallError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *CallError) Error() string {
	return Describe(e)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Describe renders err as the text shown in place of an assistant reply.
// Status failures read "Error: <code> - <body>"; failures without a status
// read "Error: <detail>".
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var callErr *CallError
	if !errors.As(err, &callErr) {
		return "Error: " + err.Error()
	}

	detail := strings.TrimSpace(callErr.Body)
	if detail == "" && callErr.Err != nil {
		detail = callErr.Err.Error()
	}

	if callErr.StatusCode == 0 {
		return "Error: " + detail
	}
	if callErr.Err != nil && errors.Is(callErr.Err, ErrMalformedReply) {
		return fmt.Sprintf("Error: %d - %s: %s", callErr.StatusCode, ErrMalformedReply.Error(), detail)
	}
	return fmt.Sprintf("Error: %d - %s", callErr.StatusCode, detail)
}
