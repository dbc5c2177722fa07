package server

import (
	"errors"
	"io"
	"net/http"

	"modelserve/internal/core"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
)

func (s *Server) predict(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondWithDetail(c, http.StatusBadRequest, "request body too large")
			return
		}
		respondWithDetail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	var request core.PredictRequest
	if err := sonic.Unmarshal(body, &request); err != nil {
		s.config.Logger.Debug("Rejecting malformed predict body (request %s): %v", requestID(c), err)
		respondWithDetail(c, http.StatusBadRequest, "invalid JSON body: expected {\"data\": [numbers]}")
		return
	}

	resp, err := s.predictor.Predict(c.Request.Context(), request.Data)
	if err != nil {
		status, detail := statusForError(err)
		if status >= http.StatusInternalServerError {
			s.config.Logger.Error("Predict failed (request %s): %v", requestID(c), err)
		}
		respondWithDetail(c, status, detail)
		return
	}

	c.JSON(http.StatusOK, resp)
}
