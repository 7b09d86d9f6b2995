package response

import (
	"encoding/json"
	"net/http"
)

// Error codes returned to clients in the error_code field
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeSlotTaken        = "SLOT_TAKEN"
	CodeSlotExpired      = "SLOT_EXPIRED"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeNotFound         = "NOT_FOUND"
	CodeAlreadyCancelled = "ALREADY_CANCELLED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeInternal         = "INTERNAL_ERROR"
)

type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
	Error     interface{} `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	JSON(w, statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Fail writes an error envelope with a machine-readable code
func Fail(w http.ResponseWriter, statusCode int, code, message string, err interface{}) {
	JSON(w, statusCode, Response{
		Success:   false,
		Message:   message,
		ErrorCode: code,
		Error:     err,
	})
}

func Error(w http.ResponseWriter, statusCode int, message string, err interface{}) {
	Fail(w, statusCode, CodeBadRequest, message, err)
}

func ValidationError(w http.ResponseWriter, errors interface{}) {
	Fail(w, http.StatusBadRequest, CodeValidationFailed, "Validation failed", errors)
}

func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	Fail(w, http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func NotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Resource not found"
	}
	Fail(w, http.StatusNotFound, CodeNotFound, message, nil)
}

func InternalServerError(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Internal server error"
	}
	Fail(w, http.StatusInternalServerError, CodeInternal, message, nil)
}

func Forbidden(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Forbidden"
	}
	Fail(w, http.StatusForbidden, CodeForbidden, message, nil)
}
