package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ephroom/internal/config"
	"github.com/vovakirdan/ephroom/internal/core"
	"github.com/vovakirdan/ephroom/internal/metrics"
	"github.com/vovakirdan/ephroom/internal/proto"
	"github.com/vovakirdan/ephroom/internal/utils"
)

// errMalformedFrame closes the connection when an inbound frame is not valid JSON.
var errMalformedFrame = errors.New("malformed frame")

// WSHandler upgrades HTTP connections and feeds their frames to the relay engine.
type WSHandler struct {
	engine         *core.Engine
	metrics        *metrics.Metrics
	maxMessageSize int64
	queueSize      int
	frameRate      int
	log            *zerolog.Logger

	active sync.WaitGroup
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(engine *core.Engine, m *metrics.Metrics, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		engine:         engine,
		metrics:        m,
		maxMessageSize: cfg.MaxMessageBytes,
		queueSize:      cfg.SendQueueSize,
		frameRate:      cfg.FrameRateLimit,
		log:            logger,
	}
}

// Wait blocks until every connection served so far has disconnected from the
// engine, or ctx is done.
func (h *WSHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	h.active.Add(1)
	defer h.active.Done()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.maxMessageSize > 0 {
		conn.SetReadLimit(h.maxMessageSize)
	}

	session := core.NewSession(utils.NewID(), h.queueSize)
	logger := h.log.With().Str("conn_id", session.ID).Logger()

	h.metrics.ConnectionOpened()
	defer h.metrics.ConnectionClosed()
	// Cleanup outlives the request context so a host's room is deleted even when
	// the peer vanished.
	defer h.engine.Disconnect(context.WithoutCancel(r.Context()), session)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session, &logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	switch {
	case errors.Is(err, errMalformedFrame):
		status = websocket.StatusInvalidFramePayloadData
		reason = errMalformedFrame.Error()
		logger.Warn().Err(err).Msg("closing connection on malformed frame")
	case err != nil && !errors.Is(err, context.Canceled):
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session, logger *zerolog.Logger) error {
	limiter := newFrameLimiter(h.frameRate)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			return fmt.Errorf("%w: %w", errMalformedFrame, err)
		}

		// Invalid sessions answer every frame with the invalid error, so the
		// limiter only applies before that.
		if session.State() != core.StateInvalid && !limiter.allow() {
			h.metrics.FrameRateLimited()
			logger.Debug().Str("type", inbound.Type).Msg("frame rate limited")
			session.Send(core.ErrorEvent(core.ErrCodeRateLimited))
			continue
		}

		h.engine.Handle(ctx, session, inboundToCommand(inbound))
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session, logger *zerolog.Logger) error {
	for {
		select {
		case event := <-session.Events():
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				logger.Error().Err(err).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
