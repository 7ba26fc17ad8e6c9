// Package api exposes reports, delivery history, recipients and admin
// broadcasts over HTTP.
package api

import (
	"context"
	"crypto/rand"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/ppewatch/internal/buildinfo"
	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/datastore"
	"github.com/tphakala/ppewatch/internal/errors"
	"github.com/tphakala/ppewatch/internal/logger"
	"github.com/tphakala/ppewatch/internal/notification"
	"github.com/tphakala/ppewatch/internal/report"
)

const shutdownTimeout = 5 * time.Second

// Controller manages the API routes and handlers
type Controller struct {
	Echo        *echo.Echo
	Group       *echo.Group
	DS          datastore.Interface
	Settings    *conf.Settings
	Reports     *report.Generator
	Broadcaster *notification.Broadcaster
	Directory   *notification.Directory
	build       *buildinfo.Context
	startTime   time.Time
	log         logger.Logger
}

// New creates the controller and registers all routes under /api/v1.
func New(ds datastore.Interface, settings *conf.Settings, broadcaster *notification.Broadcaster,
	directory *notification.Directory, build *buildinfo.Context) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64K"))

	c := &Controller{
		Echo:        e,
		Group:       e.Group("/api/v1"),
		DS:          ds,
		Settings:    settings,
		Reports:     report.NewGenerator(ds),
		Broadcaster: broadcaster,
		Directory:   directory,
		build:       build,
		startTime:   time.Now(),
		log:         GetLogger(),
	}
	c.Group.Use(c.requestLogger)
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.Group.GET("/report", c.GetReport)
	c.Group.GET("/stats", c.GetStats)
	c.Group.GET("/deliveries", c.GetDeliveries)
	c.Group.GET("/deliveries/:batch", c.GetDeliveryOutcomes)
	c.Group.GET("/recipients", c.ListRecipients)

	protected := c.Group.Group("", c.AuthMiddleware)
	protected.POST("/recipients", c.UpsertRecipient)
	protected.POST("/broadcast", c.PostBroadcast)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (c *Controller) Start(ctx context.Context, listen string) error {
	errCh := make(chan error, 1)
	go func() {
		c.log.Info("api server listening", logger.String("address", listen))
		if err := c.Echo.Start(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := c.Echo.Shutdown(shutdownCtx); err != nil {
		return errors.New(err).Component("api").Category(errors.CategoryNetwork).Build()
	}
	return <-errCh
}

// HealthCheck reports service and database status.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	resp := HealthResponse{
		Status:    "healthy",
		Version:   c.build.Version(),
		BuildDate: c.build.BuildDate(),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Database:  "connected",
		System:    c.collectSystemInfo(ctx.Request().Context()),
	}

	pending, err := c.DS.CountUnnotified(ctx.Request().Context())
	if err != nil {
		resp.Status = "degraded"
		resp.Database = "disconnected"
		resp.DatabaseError = errors.ScrubMessage(err.Error())
		return ctx.JSON(http.StatusServiceUnavailable, resp)
	}
	resp.PendingNotifications = pending
	return ctx.JSON(http.StatusOK, resp)
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// HandleError logs err with a correlation id and writes an ErrorResponse.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := &ErrorResponse{
		Error:         message,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
	if err != nil {
		resp.Error = errors.ScrubMessage(err.Error())
	}

	c.log.Error("api error",
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.String("error", resp.Error),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()))

	return ctx.JSON(code, resp)
}

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}
