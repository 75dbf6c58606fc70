package server

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ourday-app/ourday/internal/logger"
	"github.com/ourday-app/ourday/internal/store"
)

// handleStateGet returns the stored document as-is. The server never
// interprets the blob; normalization is the client's job.
func (s *Server) handleStateGet(c echo.Context) error {
	if s.store == nil {
		return s.storeUnavailable(c)
	}

	data, err := s.store.Get(c.Request().Context(), store.StateKey)
	if err != nil {
		logger.Error("State read failed", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read state"})
	}
	if data == nil {
		return c.JSON(http.StatusOK, map[string]any{})
	}

	return c.JSONBlob(http.StatusOK, data)
}

// handleStatePost replaces the stored document wholesale and echoes
// back what was written. Two overlapping writes race and the later one
// fully wins; that is the accepted contract of this board.
func (s *Server) handleStatePost(c echo.Context) error {
	if s.store == nil {
		return s.storeUnavailable(c)
	}

	var payload any
	if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "state payload must be an object"})
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "state payload is not serializable"})
	}

	if err := s.store.Set(c.Request().Context(), store.StateKey, data); err != nil {
		logger.Error("State write failed", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to write state"})
	}

	logger.Debug("State replaced", logger.F("bytes", len(data)))
	return c.JSONBlob(http.StatusOK, data)
}
