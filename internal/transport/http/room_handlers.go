package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ephroom/internal/core"
	"github.com/vovakirdan/ephroom/internal/metrics"
	"github.com/vovakirdan/ephroom/internal/proto"
)

// RoomHandlers provides the room creation endpoint.
type RoomHandlers struct {
	registry core.RoomRegistry
	metrics  *metrics.Metrics
	log      *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(registry core.RoomRegistry, m *metrics.Metrics, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		registry: registry,
		metrics:  m,
		log:      logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateRoom mints a room and returns its id and host token. No body is required.
// POST /api/room
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	roomID, roomToken, err := h.registry.CreateRoom(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create room")
		if errors.Is(err, core.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "store unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.metrics.RoomCreated()
	h.log.Info().Str("room_id", roomID).Msg("room created")
	c.JSON(http.StatusOK, proto.CreateRoomResponse{RoomID: roomID, RoomToken: roomToken})
}
