package http

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/ephroom/internal/config"
	"github.com/vovakirdan/ephroom/internal/core"
	"github.com/vovakirdan/ephroom/internal/log"
	"github.com/vovakirdan/ephroom/internal/metrics"
	"github.com/vovakirdan/ephroom/internal/proto"
	"github.com/vovakirdan/ephroom/internal/store/memory"
)

type testServer struct {
	*httptest.Server
	server   *Server
	engine   *core.Engine
	registry *core.Registry
	store    *memory.Store

	// endSessions cancels the base context of every accepted connection.
	endSessions context.CancelFunc
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.Store = "memory"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.CreateRateLimit = 0
	cfg.FrameRateLimit = 0
	return cfg
}

// startTestServer runs the full HTTP stack over a memory store.
func startTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()

	logger := log.Nop()
	st := memory.New()
	registry := core.NewRegistry(st, cfg.RoomTTL)
	engine := core.NewEngine(registry, st, core.NewDirectory(), nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	deliveries, err := engine.Listen(ctx)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = engine.Run(ctx, deliveries) }()

	sessionsCtx, endSessions := context.WithCancel(context.Background())
	t.Cleanup(endSessions)

	server := NewServer(engine, registry, metrics.New(), &cfg, logger)
	ts := httptest.NewUnstartedServer(server.Handler)
	ts.Config.BaseContext = func(net.Listener) context.Context { return sessionsCtx }
	ts.Start()
	t.Cleanup(ts.Close)

	return &testServer{
		Server:      ts,
		server:      server,
		engine:      engine,
		registry:    registry,
		store:       st,
		endSessions: endSessions,
	}
}

func (ts *testServer) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + RoomIOPath
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ, roomID, body string) {
	t.Helper()

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, RoomID: roomID, Body: body}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

func mustRead(t *testing.T, ctx context.Context, conn *websocket.Conn) proto.Outbound {
	t.Helper()

	var out proto.Outbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

func mustNotRead(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	var out proto.Outbound
	if err := wsjson.Read(ctx, conn, &out); err == nil {
		t.Fatalf("unexpected outbound frame: %+v", out)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
