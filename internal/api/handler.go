package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"freres-bot/internal/bot"
	"freres-bot/internal/messenger"
	"freres-bot/internal/models"
	"freres-bot/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OrderHistory serves the back-office order listing.
type OrderHistory interface {
	GetOrdersByPhone(ctx context.Context, phone string) ([]models.Order, error)
}

// Handler contains HTTP handlers
type Handler struct {
	engine      *bot.Engine
	sender      messenger.Sender
	orders      bot.OrderEngine
	history     OrderHistory
	verifyToken string
}

// NewHandler creates a new HTTP handler
func NewHandler(engine *bot.Engine, sender messenger.Sender, orders bot.OrderEngine, history OrderHistory, verifyToken string) *Handler {
	return &Handler{
		engine:      engine,
		sender:      sender,
		orders:      orders,
		history:     history,
		verifyToken: verifyToken,
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

	router.GET("/webhook", h.verifyWebhook)
	router.POST("/webhook", h.receiveWebhook)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/customers/:phone/orders", h.getCustomerOrders)
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

// verifyWebhook answers the provider's subscription handshake.
func (h *Handler) verifyWebhook(c *gin.Context) {
	if c.Query("hub.verify_token") == h.verifyToken {
		c.String(http.StatusOK, c.Query("hub.challenge"))
		return
	}
	c.String(http.StatusForbidden, "invalid verify token")
}

// webhookEnvelope is the provider-defined inbound payload.
type webhookEnvelope struct {
	Entry []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message *struct {
				Text   string `json:"text"`
				IsEcho bool   `json:"is_echo"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// receiveWebhook processes inbound message events and hands the produced
// replies to the outbound gateway. Always answers 200 so the provider does
// not re-deliver on partial failures.
func (h *Handler) receiveWebhook(c *gin.Context) {
	var envelope webhookEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	for _, entry := range envelope.Entry {
		for _, event := range entry.Messaging {
			if event.Message == nil || event.Message.IsEcho {
				continue
			}

			replies := h.engine.HandleMessage(ctx, event.Sender.ID, event.Message.Text)

			for _, reply := range replies {
				if reply.ImageURL != "" {
					util.RepliesSentTotal.WithLabelValues("image").Inc()
					_ = h.sender.SendImage(ctx, event.Sender.ID, reply.ImageURL)
					continue
				}
				util.RepliesSentTotal.WithLabelValues("text").Inc()
				_ = h.sender.SendText(ctx, event.Sender.ID, reply.Text)
			}
		}
	}

	c.String(http.StatusOK, "OK")
}

// getOrder handles get order by id
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Order not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// getCustomerOrders lists a customer's orders, newest first
func (h *Handler) getCustomerOrders(c *gin.Context) {
	orders, err := h.history.GetOrdersByPhone(c.Request.Context(), c.Param("phone"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list orders",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
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
