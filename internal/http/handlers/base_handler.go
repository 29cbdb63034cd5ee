// README: Base handler utilities (JSON helpers, error-kind to status mapping).
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"campuspool/internal/apperr"
	"campuspool/internal/http/middleware"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// isValidID accepts the 32-char hex ids the services generate, plus any other short
// alphanumeric id (Firebase uids are 28 chars).
func isValidID(v string) bool {
	if v == "" || len(v) > 128 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '-' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, kind apperr.Kind, msg string) {
	writeJSON(c, status, errorResponse{Error: errorBody{Kind: string(kind), Message: msg}})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindConflict, apperr.KindDuplicateRequest, apperr.KindCapacity, apperr.KindInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError maps a service error onto its HTTP status. Anything without a kind is
// logged and reported as a generic 500.
func writeAppError(c *gin.Context, log *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "err", err)
		writeError(c, status, apperr.KindInternal, "internal error")
		return
	}
	writeError(c, status, kind, err.Error())
}

// pathID reads an id path parameter, writing a 400 when it is malformed.
func pathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, apperr.KindValidation, "invalid "+name)
		return "", false
	}
	return id, true
}

// requireCaller writes a 403 unless the authenticated caller is id.
func requireCaller(c *gin.Context, id, field string) bool {
	if middleware.CallerUID(c) != id {
		writeError(c, http.StatusForbidden, apperr.KindAuthorization, field+" does not match authenticated user")
		return false
	}
	return true
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, http.StatusBadRequest, apperr.KindValidation, "invalid json")
		return false
	}
	return true
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
