package handler

import (
	"errors"
	"net/http"

	"github.com/Rrens/invitation-agent/internal/api/response"
	"github.com/Rrens/invitation-agent/internal/domain"
	"github.com/Rrens/invitation-agent/internal/service"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// writeError maps service errors onto status codes. Anything unknown is a
// logged 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateUser),
		errors.Is(err, service.ErrEmptyMessage):
		response.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, service.ErrSessionBusy):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrServiceUnavailable):
		response.ServiceUnavailable(w, "Service not initialized")
	default:
		response.InternalError(w, err)
	}
}

// validationDetail turns validator errors into per-field messages.
func validationDetail(err error) any {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	fields := make(map[string]string)
	for _, e := range validationErrors {
		field := e.Field()
		tag := e.Tag()
		switch tag {
		case "required":
			fields[field] = "field is required"
		case "email":
			fields[field] = "invalid email format"
		case "min":
			fields[field] = "must be at least " + e.Param() + " characters"
		case "max":
			fields[field] = "must be at most " + e.Param() + " characters"
		default:
			fields[field] = "validation failed on " + tag
		}
	}
	return fields
}
