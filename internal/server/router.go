package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/journeywithfriends/forest-bot/internal/reservation"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"go.uber.org/zap"
)

var (
	errMissingDispatcher    = errors.New("event dispatcher dependency required")
	errMissingReservations  = errors.New("reservation service dependency required")
	errMissingChannelSecret = errors.New("channel secret required")
)

// EventDispatcher handles one webhook event.
type EventDispatcher interface {
	HandleEvent(ctx context.Context, event webhook.EventInterface) error
}

// ReservationService records and lists seat reservations.
type ReservationService interface {
	Reserve(ctx context.Context, request reservation.Request) (reservation.Reservation, error)
	ListSeats(ctx context.Context, groupID string) ([]reservation.Reservation, error)
}

// Dependencies wires the HTTP surface to the rest of the service.
type Dependencies struct {
	Dispatcher    EventDispatcher
	Reservations  ReservationService
	ChannelSecret string
	Logger        *zap.Logger
}

// NewHTTPHandler builds the gin router for the bot and reservation API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Dispatcher == nil {
		return nil, errMissingDispatcher
	}
	if deps.Reservations == nil {
		return nil, errMissingReservations
	}
	if strings.TrimSpace(deps.ChannelSecret) == "" {
		return nil, errMissingChannelSecret
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		dispatcher:    deps.Dispatcher,
		reservations:  deps.Reservations,
		channelSecret: deps.ChannelSecret,
		logger:        logger,
	}

	router.GET("/", handler.handleLiveness)
	router.POST("/webhook", handler.handleWebhook)
	router.POST("/reserve", handler.handleReserve)
	router.GET("/seats", handler.handleSeats)

	return router, nil
}

type httpHandler struct {
	dispatcher    EventDispatcher
	reservations  ReservationService
	channelSecret string
	logger        *zap.Logger
}

func (h *httpHandler) handleLiveness(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// handleWebhook verifies the platform signature, dispatches every event in
// the batch, and reports 500 if any handler failed. Every event is attempted
// even when an earlier one fails; the platform's redelivery policy governs
// what happens next.
func (h *httpHandler) handleWebhook(c *gin.Context) {
	callback, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("webhook signature verification failed")
		} else {
			h.logger.Warn("webhook request could not be parsed", zap.Error(err))
		}
		c.Status(http.StatusBadRequest)
		return
	}

	var firstErr error
	for _, event := range callback.Events {
		if err := h.dispatcher.HandleEvent(c.Request.Context(), event); err != nil {
			h.logger.Error("event handling failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusOK)
}

type reservePayload struct {
	UserID     string `json:"userId"`
	SeatNumber string `json:"seatNumber"`
	Name       string `json:"name"`
	GroupID    string `json:"groupId"`
}

func (h *httpHandler) handleReserve(c *gin.Context) {
	var payload reservePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body"})
		return
	}

	record, err := h.reservations.Reserve(c.Request.Context(), reservation.Request{
		GroupID:    payload.GroupID,
		UserID:     payload.UserID,
		SeatNumber: payload.SeatNumber,
		Name:       payload.Name,
	})
	switch {
	case errors.Is(err, reservation.ErrMissingField):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	case errors.Is(err, reservation.ErrSeatTaken):
		c.JSON(http.StatusConflict, gin.H{
			"status":  "error",
			"message": fmt.Sprintf("ที่นั่ง %s ถูกจองไปแล้ว", payload.SeatNumber),
		})
		return
	case err != nil:
		h.logger.Error("reservation append failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":      "success",
		"message":     fmt.Sprintf("จองที่นั่ง %s สำเร็จ", record.SeatNumber),
		"reservation": record,
	})
}

func (h *httpHandler) handleSeats(c *gin.Context) {
	groupID := strings.TrimSpace(c.Query("groupId"))
	if groupID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "groupId query parameter is required"})
		return
	}

	seats, err := h.reservations.ListSeats(c.Request.Context(), groupID)
	if err != nil {
		h.logger.Error("seat listing failed", zap.Error(err), zap.String("group_id", groupID))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"groupId": groupID, "seats": seats})
}
