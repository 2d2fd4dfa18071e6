package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"waitlist-service/internal/models"
	"waitlist-service/internal/service"
	"waitlist-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	events    *service.EventService
	queue     *service.QueueService
	purchases *service.PurchaseService
}

// NewHandler creates a new HTTP handler
func NewHandler(events *service.EventService, queue *service.QueueService, purchases *service.PurchaseService) *Handler {
	return &Handler{
		events:    events,
		queue:     queue,
		purchases: purchases,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/events", h.createEvent)
		v1.GET("/events", h.listEvents)
		v1.GET("/events/:id", h.getEvent)
		v1.PATCH("/events/:id/capacity", h.updateCapacity)
		v1.POST("/events/:id/cancel", h.cancelEvent)

		v1.GET("/events/:id/availability", h.availability)
		v1.POST("/events/:id/join", h.join)
		v1.GET("/events/:id/position", h.position)
		v1.POST("/events/:id/release", h.release)
		v1.POST("/events/:id/purchase", h.purchase)

		v1.GET("/events/:id/ticket", h.getUserTicket)
		v1.GET("/tickets", h.listUserTickets)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) createEvent(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	event, err := h.events.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (h *Handler) listEvents(c *gin.Context) {
	events, err := h.events.ListEvents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *Handler) getEvent(c *gin.Context) {
	event, err := h.events.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

type updateCapacityRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	TotalTickets *int   `json:"total_tickets" binding:"required"`
}

func (h *Handler) updateCapacity(c *gin.Context) {
	var req updateCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil || *req.TotalTickets < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	event, err := h.events.UpdateCapacity(c.Request.Context(), c.Param("id"), req.UserID, *req.TotalTickets)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

type identityRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *Handler) cancelEvent(c *gin.Context) {
	var req identityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.events.CancelEvent(c.Request.Context(), c.Param("id"), req.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h *Handler) availability(c *gin.Context) {
	avail, err := h.queue.Availability(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

func (h *Handler) join(c *gin.Context) {
	var req identityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	entry, err := h.queue.Join(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) position(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	pos, err := h.queue.Position(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

type releaseRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	EntryID string `json:"entry_id" binding:"required"`
}

func (h *Handler) release(c *gin.Context) {
	var req releaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.queue.Release(c.Request.Context(), c.Param("id"), req.EntryID, req.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "released"})
}

type purchaseRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	EntryID    string `json:"entry_id" binding:"required"`
	PaymentRef string `json:"payment_ref" binding:"required"`
	Amount     int64  `json:"amount" binding:"min=0"`
}

func (h *Handler) purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ticket, err := h.purchases.Purchase(c.Request.Context(), c.Param("id"), req.UserID, req.EntryID,
		service.PaymentReceipt{Reference: req.PaymentRef, Amount: req.Amount})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (h *Handler) getUserTicket(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	ticket, err := h.purchases.GetUserTicketForEvent(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *Handler) listUserTickets(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	tickets, err := h.purchases.ListUserTickets(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// respondError maps domain errors to HTTP statuses. Capacity conflicts are
// retryable and must be distinguishable from the store being down.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateEntry):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrEventCancelled):
		status = http.StatusGone
	case errors.Is(err, models.ErrCapacityConflict):
		status = http.StatusTooManyRequests
	case errors.Is(err, models.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
