package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ourday-app/ourday/internal/logger"
	"github.com/ourday-app/ourday/internal/push"
)

// subscribeRequest mirrors the client subscribe call. Fields stay
// untyped; the push package normalizes them.
type subscribeRequest struct {
	Subscription        any `json:"subscription"`
	UserID              any `json:"userId"`
	MorningReminderTime any `json:"morningReminderTime"`
	TimeZone            any `json:"timeZone"`
}

func (s *Server) handlePushPublicKey(c echo.Context) error {
	if !s.vapid.Ready() {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"error":    "push is not configured",
			"required": []string{"OURDAY_PUSH_PUBLIC_KEY", "OURDAY_PUSH_PRIVATE_KEY"},
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"publicKey": s.vapid.PublicKey})
}

// handlePushSubscribe upserts a subscription by endpoint. Re-sending
// the same endpoint updates its identity, reminder time and zone
// instead of creating a duplicate.
func (s *Server) handlePushSubscribe(c echo.Context) error {
	if s.store == nil {
		return s.storeUnavailable(c)
	}

	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
	}

	ctx := c.Request().Context()
	list, err := s.registry.Load(ctx)
	if err != nil {
		logger.Error("Subscription load failed", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load subscriptions"})
	}

	list, entry := push.Upsert(list, push.UpsertParams{
		Subscription:        req.Subscription,
		UserID:              req.UserID,
		MorningReminderTime: req.MorningReminderTime,
		TimeZone:            req.TimeZone,
	}, s.now())
	if entry == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "subscription must include endpoint and keys"})
	}

	if err := s.registry.Save(ctx, list); err != nil {
		logger.Error("Subscription save failed", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save subscription"})
	}

	logger.Info("Subscription upserted",
		logger.F("id", entry.ID),
		logger.F("userId", entry.UserID),
		logger.F("timeZone", entry.TimeZone))

	return c.JSON(http.StatusOK, map[string]any{
		"ok":           true,
		"subscription": entry.Summary(),
	})
}

// handlePushDispatch runs one dispatch pass over every stored
// subscription. Hit by cron and by client keepalive pings.
func (s *Server) handlePushDispatch(c echo.Context) error {
	if s.store == nil {
		return s.storeUnavailable(c)
	}
	if !s.vapid.Ready() {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"error":    "push is not configured",
			"required": []string{"OURDAY_PUSH_PUBLIC_KEY", "OURDAY_PUSH_PRIVATE_KEY"},
		})
	}

	result, err := s.dispatcher.Run(c.Request().Context())
	if err != nil {
		logger.Error("Dispatch run failed", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "dispatch failed"})
	}

	return c.JSON(http.StatusOK, result)
}
