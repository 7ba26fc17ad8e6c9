package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/ppewatch/internal/logger"
	"github.com/tphakala/ppewatch/internal/notification"
	"github.com/tphakala/ppewatch/internal/report"
)

const (
	defaultDeliveryLimit = 20
	maxDeliveryLimit     = 500
)

// intParam reads a positive integer query parameter, returning def when absent.
func intParam(ctx echo.Context, name string, def int) (int, bool) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// GetReport returns the grouped violation report, as JSON or with
// ?format=text as the plain text table.
func (c *Controller) GetReport(ctx echo.Context) error {
	days, ok := intParam(ctx, "days", report.DefaultWindowDays)
	if !ok {
		return c.HandleError(ctx, nil, "days must be a positive integer", http.StatusBadRequest)
	}

	r, err := c.Reports.Report(ctx.Request().Context(), days)
	if err != nil {
		return c.HandleError(ctx, err, "failed to generate report", statusFor(err))
	}

	if ctx.QueryParam("format") == "text" {
		var sb strings.Builder
		if err := r.WriteText(&sb); err != nil {
			return c.HandleError(ctx, err, "failed to render report", http.StatusInternalServerError)
		}
		return ctx.String(http.StatusOK, sb.String())
	}
	return ctx.JSON(http.StatusOK, r)
}

// GetStats returns delivery totals and recipient counts.
func (c *Controller) GetStats(ctx echo.Context) error {
	days, ok := intParam(ctx, "days", report.DefaultWindowDays)
	if !ok {
		return c.HandleError(ctx, nil, "days must be a positive integer", http.StatusBadRequest)
	}
	stats, err := c.Reports.DeliveryStats(ctx.Request().Context(), days)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load delivery stats", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, stats)
}

// GetDeliveries lists the most recent dispatch batches and broadcasts.
func (c *Controller) GetDeliveries(ctx echo.Context) error {
	limit, ok := intParam(ctx, "limit", defaultDeliveryLimit)
	if !ok {
		return c.HandleError(ctx, nil, "limit must be a positive integer", http.StatusBadRequest)
	}
	limit = min(limit, maxDeliveryLimit)

	rows, err := c.DS.RecentDeliveryHistory(ctx.Request().Context(), limit)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load delivery history", statusFor(err))
	}
	out := make([]DeliveryDTO, len(rows))
	for i := range rows {
		out[i] = DeliveryDTO{
			BatchID:     rows[i].BatchID,
			Kind:        rows[i].Kind,
			Department:  rows[i].Department,
			TriggeredBy: rows[i].TriggeredBy,
			Sent:        rows[i].Sent,
			Succeeded:   rows[i].Succeeded,
			Failed:      rows[i].Failed,
			CreatedAt:   rows[i].CreatedAt,
		}
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetDeliveryOutcomes lists every attempt of one batch.
func (c *Controller) GetDeliveryOutcomes(ctx echo.Context) error {
	batchID := ctx.Param("batch")
	rows, err := c.DS.OutcomesForBatch(ctx.Request().Context(), batchID)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load delivery outcomes", statusFor(err))
	}
	if len(rows) == 0 {
		return c.HandleError(ctx, nil, "batch not found", http.StatusNotFound)
	}
	out := make([]OutcomeDTO, len(rows))
	for i := range rows {
		out[i] = OutcomeDTO{
			ViolationID: rows[i].ViolationID,
			Recipient:   rows[i].Recipient,
			Role:        rows[i].Role,
			Sender:      rows[i].Sender,
			Success:     rows[i].Success,
			Error:       rows[i].Error,
			AttemptedAt: rows[i].AttemptedAt,
		}
	}
	return ctx.JSON(http.StatusOK, out)
}

// ListRecipients lists active recipients, optionally by ?department=.
func (c *Controller) ListRecipients(ctx echo.Context) error {
	rows, err := c.DS.ListRecipients(ctx.Request().Context(), ctx.QueryParam("department"))
	if err != nil {
		return c.HandleError(ctx, err, "failed to list recipients", statusFor(err))
	}
	out := make([]RecipientDTO, len(rows))
	for i := range rows {
		out[i] = recipientFromModel(&rows[i])
	}
	return ctx.JSON(http.StatusOK, out)
}

// UpsertRecipient creates or updates a recipient by chat id.
func (c *Controller) UpsertRecipient(ctx echo.Context) error {
	var req RecipientDTO
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	m := req.toModel()
	if err := c.DS.UpsertRecipient(ctx.Request().Context(), m); err != nil {
		return c.HandleError(ctx, err, "failed to save recipient", statusFor(err))
	}
	if c.Directory != nil {
		c.Directory.Invalidate(m.ChatID)
	}

	c.log.Info("recipient saved",
		logger.String("department", m.Department),
		logger.Bool("active", m.Active))
	return ctx.JSON(http.StatusOK, recipientFromModel(m))
}

// PostBroadcast sends a broadcast and returns once every recipient was attempted.
func (c *Controller) PostBroadcast(ctx echo.Context) error {
	if c.Broadcaster == nil {
		return c.HandleError(ctx, nil, "notifications are disabled", http.StatusServiceUnavailable)
	}

	var req BroadcastRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	kind, err := notification.ParseBroadcastKind(req.Kind)
	if err != nil {
		return c.HandleError(ctx, err, "unknown broadcast kind", http.StatusBadRequest)
	}

	admin := req.Admin
	if admin == "" {
		admin = "api"
	}
	result, err := c.Broadcaster.Broadcast(ctx.Request().Context(), notification.BroadcastRequest{
		Kind:       kind,
		Text:       req.Text,
		Department: req.Department,
		Admin:      admin,
	})
	if err != nil {
		return c.HandleError(ctx, err, "broadcast failed", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, broadcastResponse(result))
}
