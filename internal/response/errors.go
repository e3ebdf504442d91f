package response

import (
	"net/http"

	"github.com/stemsi/exstem-interview/internal/apperr"
)

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrProctorOnly     ErrCode = "PROCTOR_ACCESS_ONLY"
	ErrCandidateNeeded ErrCode = "CANDIDATE_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrPayloadTooBig  ErrCode = "PAYLOAD_TOO_LARGE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound     ErrCode = "NOT_FOUND"
	ErrInvalidState ErrCode = "INVALID_STATE"

	// ─── Collaborators ─────────────────────────────────────────────────
	ErrCollaboratorUnavailable ErrCode = "COLLABORATOR_UNAVAILABLE"
	ErrCameraUnavailable       ErrCode = "CAMERA_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An access token is required."
	case ErrTokenInvalid:
		return "The access token is invalid or expired."

	case ErrForbidden:
		return "You are not allowed to access this resource."
	case ErrProctorOnly:
		return "This resource is restricted to proctors."
	case ErrCandidateNeeded:
		return "This action is restricted to candidates."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrPayloadTooBig:
		return "The upload is too large."

	case ErrNotFound:
		return "Resource not found."
	case ErrInvalidState:
		return "The interview is not in a state that allows this action."

	case ErrCollaboratorUnavailable:
		return "A dependent service is unavailable. Please try again."
	case ErrCameraUnavailable:
		return "The camera could not be acquired."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}

// StatusFor maps an engine error to its HTTP status and error code.
func StatusFor(err error) (int, ErrCode) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest, ErrValidation
	case apperr.KindNotFound:
		return http.StatusNotFound, ErrNotFound
	case apperr.KindInvalidState:
		return http.StatusConflict, ErrInvalidState
	case apperr.KindUnavailable:
		return http.StatusBadGateway, ErrCollaboratorUnavailable
	case apperr.KindCamera:
		return http.StatusServiceUnavailable, ErrCameraUnavailable
	default:
		return http.StatusInternalServerError, ErrInternal
	}
}
