package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/ephroom/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("base", "http://localhost:8080", "server base URL")
	text := flag.String("text", "hello from smoke test", "message text the host sends")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	room, err := createRoom(ctx, *base)
	if err != nil {
		return err
	}
	fmt.Printf("Created room: id=%s\n", room.RoomID)

	wsURL := strings.Replace(*base, "http", "ws", 1) + "/room-io"

	host, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial host: %w", err)
	}
	defer host.Close(websocket.StatusNormalClosure, "bye")

	guest, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial guest: %w", err)
	}
	defer guest.Close(websocket.StatusNormalClosure, "bye")

	if err := wsjson.Write(ctx, host, proto.Inbound{Type: proto.InboundTypeHostKeepAlive, RoomID: room.RoomID, Body: room.RoomToken}); err != nil {
		return fmt.Errorf("host keepalive: %w", err)
	}
	if err := wsjson.Write(ctx, guest, proto.Inbound{Type: proto.InboundTypeConnectGuest, RoomID: room.RoomID}); err != nil {
		return fmt.Errorf("guest connect: %w", err)
	}

	// The guest join is processed asynchronously; resend until it lands.
	received := make(chan proto.Outbound, 1)
	readErr := make(chan error, 1)
	go func() {
		var out proto.Outbound
		if err := wsjson.Read(ctx, guest, &out); err != nil {
			readErr <- err
			return
		}
		received <- out
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		if err := wsjson.Write(ctx, host, proto.Inbound{Type: proto.InboundTypeSendRoom, RoomID: room.RoomID, Body: *text}); err != nil {
			return fmt.Errorf("host send: %w", err)
		}
		select {
		case out := <-received:
			fmt.Printf("Guest received: type=%s body=%q\n", out.Type, out.Body)
			if out.Type != proto.OutboundTypeBroadcast {
				return fmt.Errorf("unexpected outbound type %q", out.Type)
			}
			return nil
		case err := <-readErr:
			return fmt.Errorf("guest read: %w", err)
		case <-ticker.C:
		}
	}
}

func createRoom(ctx context.Context, base string) (proto.CreateRoomResponse, error) {
	var room proto.CreateRoomResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/room", nil)
	if err != nil {
		return room, fmt.Errorf("build create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return room, fmt.Errorf("create room: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return room, fmt.Errorf("create room: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return room, fmt.Errorf("decode create response: %w", err)
	}
	return room, nil
}
