package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ephroom/internal/config"
	"github.com/vovakirdan/ephroom/internal/core"
	"github.com/vovakirdan/ephroom/internal/metrics"
)

const (
	// RoomIOPath is where hosts and guests open their realtime connection.
	RoomIOPath = "/room-io"
	// CreateRoomPath mints a room.
	CreateRoomPath = "/api/room"
)

// Server is the HTTP server plus the realtime handler it routes to.
type Server struct {
	*stdhttp.Server
	ws *WSHandler
}

// WaitSessions blocks until every realtime connection has finished its cleanup or
// ctx is done. Shutdown does not track hijacked connections, so callers wait here
// before closing the store.
func (s *Server) WaitSessions(ctx context.Context) error {
	return s.ws.Wait(ctx)
}

// NewServer builds the HTTP server: room creation, the realtime endpoint, health,
// metrics and optional static assets.
func NewServer(engine *core.Engine, registry core.RoomRegistry, m *metrics.Metrics, cfg *config.Config, logger *zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	rooms := NewRoomHandlers(registry, m, logger)
	router.POST(CreateRoomPath, RateLimitMiddleware(cfg.CreateRateLimit, logger), rooms.CreateRoom)

	if cfg.StaticDir != "" {
		files := stdhttp.FileServer(gin.Dir(cfg.StaticDir, false))
		router.NoRoute(func(c *gin.Context) {
			if c.Request.Method != stdhttp.MethodGet && c.Request.Method != stdhttp.MethodHead {
				c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "not found"})
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	}

	// The socket route sits outside gin: gin refuses to hijack once the upgrade
	// response header is written.
	ws := NewWSHandler(engine, m, cfg, logger)
	mux := stdhttp.NewServeMux()
	mux.Handle(RoomIOPath, ws)
	mux.Handle("/", router)

	return &Server{
		Server: &stdhttp.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		ws: ws,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
