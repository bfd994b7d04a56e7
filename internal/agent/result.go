package agent

import (
	"errors"
	"fmt"
)

// Status tags the outcome of a tool call.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial_success"
	StatusFailure        Status = "failure"
)

// Result is what a tool hands back to the model. Errors never escape a tool;
// they become a failure result the model can explain to the user.
type Result struct {
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func Success(message string, data map[string]any) Result {
	return Result{Status: StatusSuccess, Message: message, Data: data}
}

func PartialSuccess(message string, data map[string]any) Result {
	return Result{Status: StatusPartialSuccess, Message: message, Data: data}
}

func Failure(err error) Result {
	return Result{Status: StatusFailure, Message: err.Error(), Data: map[string]any{"error": errorKind(err)}}
}

func Failuref(format string, args ...any) Result {
	return Result{Status: StatusFailure, Message: fmt.Sprintf(format, args...)}
}

// Response is the function response payload sent back to the model.
func (r Result) Response() map[string]any {
	out := map[string]any{
		"status":  string(r.Status),
		"message": r.Message,
	}
	if len(r.Data) > 0 {
		out["data"] = r.Data
	}
	return out
}

// ErrorKind lets typed errors name themselves in a failure result.
type ErrorKind interface {
	Kind() string
}

func errorKind(err error) string {
	var k ErrorKind
	if errors.As(err, &k) {
		return k.Kind()
	}
	return "error"
}
