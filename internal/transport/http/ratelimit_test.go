package http

import (
	"testing"
	"time"

	"github.com/vovakirdan/ephroom/internal/core"
	"github.com/vovakirdan/ephroom/internal/proto"
)

func TestIPLimiterPerClientAndSweep(t *testing.T) {
	l := newIPLimiter(2)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	if !l.allow("10.0.0.1") || !l.allow("10.0.0.1") {
		t.Fatal("burst should be allowed")
	}
	if l.allow("10.0.0.1") {
		t.Fatal("third request within the minute should be limited")
	}
	if !l.allow("10.0.0.2") {
		t.Fatal("other clients have their own bucket")
	}

	now = now.Add(visitorIdleTTL + sweepInterval)
	l.allow("10.0.0.3")
	if _, ok := l.visitors["10.0.0.1"]; ok {
		t.Fatal("idle visitor should have been swept")
	}
}

func TestDisabledLimitersAllowEverything(t *testing.T) {
	ip := newIPLimiter(0)
	frames := newFrameLimiter(0)
	for range 100 {
		if !ip.allow("10.0.0.1") || !frames.allow() {
			t.Fatal("disabled limiter rejected a request")
		}
	}
}

func TestInboundToCommandUnknownType(t *testing.T) {
	cmd := inboundToCommand(proto.Inbound{Type: "made-up", RoomID: "r", Body: "b"})
	if cmd.Kind != core.CommandUnknown || cmd.Room != "r" || cmd.Body != "b" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}
