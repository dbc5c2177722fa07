package server

import (
	"errors"
	"net/http"

	"modelserve/internal/core"

	"github.com/gin-gonic/gin"
)

// respondWithDetail writes the {"detail": msg} error body.
func respondWithDetail(c *gin.Context, code int, detail string) {
	c.JSON(code, core.ErrorResponse{Detail: detail})
}

// statusForError maps the error taxonomy to an HTTP status and client message.
func statusForError(err error) (int, string) {
	var appErr *core.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "internal server error"
	}
	switch appErr.Code {
	case core.ErrCodeModelUnavailable:
		return http.StatusInternalServerError, appErr.Detail()
	case core.ErrCodeInvalidInput:
		return http.StatusBadRequest, appErr.Detail()
	default:
		return http.StatusInternalServerError, appErr.Detail()
	}
}

// requestID returns the id set by requestIDMiddleware.
func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
