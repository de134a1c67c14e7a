package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"freshvault/internal/market"
	"freshvault/internal/protocol"
)

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return startMarketServer(t, market.Config{TickRateHz: 50})
}

func startMarketServer(t *testing.T, cfg market.Config) *httptest.Server {
	t.Helper()
	m := market.New(cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = m.Run(ctx) }()

	srv, err := NewServer(m, log.New(io.Discard, "", 0), "../../../schemas")
	if err != nil {
		t.Fatalf("ws server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func handshake(t *testing.T, conn *websocket.Conn, name, role string) protocol.WelcomeMsg {
	t.Helper()
	sendJSON(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Name:            name,
		Role:            role,
	})
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	var w protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &w); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	return w
}

// readResult pumps frames until an ACTION_RESULT arrives.
func readResult(t *testing.T, conn *websocket.Conn) protocol.Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeEvent {
			continue
		}
		var em protocol.EventMsg
		if err := json.Unmarshal(msg, &em); err != nil {
			continue
		}
		for _, ev := range em.Events {
			if ev["type"] == "ACTION_RESULT" {
				return ev
			}
		}
	}
	t.Fatalf("no ACTION_RESULT within deadline")
	return nil
}

func TestHandshakeAndOp(t *testing.T) {
	ts := startTestServer(t)
	conn := dialWS(t, ts)

	w := handshake(t, conn, "ravi", "FARMER")
	if w.Type != protocol.TypeWelcome || w.SessionID == "" || w.Role != "FARMER" {
		t.Fatalf("welcome = %+v", w)
	}
	if w.EngineParams.StartingCredits != 1250 {
		t.Fatalf("engine params = %+v", w.EngineParams)
	}

	sendJSON(t, conn, protocol.OpMsg{
		Type:            protocol.TypeOp,
		ProtocolVersion: protocol.Version,
		ID:              "op-1",
		Op:              "ADD_CROP",
		Crop:            &protocol.CropSpec{Name: "Tomato", Quantity: 500, PricePerKg: 24.5},
	})

	ev := readResult(t, conn)
	if ok, _ := ev["ok"].(bool); !ok {
		t.Fatalf("op rejected: %+v", ev)
	}
	if ev["ref"] != "op-1" {
		t.Fatalf("ref = %v", ev["ref"])
	}
	if id, _ := ev["crop_id"].(string); id == "" {
		t.Fatalf("no crop_id: %+v", ev)
	}
}

func TestSchemaRejectionAtTransport(t *testing.T) {
	ts := startTestServer(t)
	conn := dialWS(t, ts)
	handshake(t, conn, "ravi", "FARMER")

	// Unknown op fails schema validation before it reaches the engine.
	sendJSON(t, conn, protocol.OpMsg{
		Type:            protocol.TypeOp,
		ProtocolVersion: protocol.Version,
		ID:              "op-bad",
		Op:              "TELEPORT",
	})

	ev := readResult(t, conn)
	if ok, _ := ev["ok"].(bool); ok {
		t.Fatalf("invalid op accepted: %+v", ev)
	}
	if ev["code"] != protocol.ErrProtoBadRequest {
		t.Fatalf("code = %v, want %s", ev["code"], protocol.ErrProtoBadRequest)
	}
	if ev["ref"] != "op-bad" {
		t.Fatalf("ref = %v", ev["ref"])
	}
}

func TestRateLimitedOpsRejectedAtTransport(t *testing.T) {
	ts := startMarketServer(t, market.Config{
		TickRateHz: 50,
		RateLimits: market.RateLimitConfig{OpsPerSec: 1, OpsBurst: 2},
	})
	conn := dialWS(t, ts)
	handshake(t, conn, "ravi", "FARMER")

	// Flood well past the burst: the first ops reach the engine, the
	// rest are rejected at the transport without a round trip.
	for i := 0; i < 6; i++ {
		sendJSON(t, conn, protocol.OpMsg{
			Type:            protocol.TypeOp,
			ProtocolVersion: protocol.Version,
			ID:              fmt.Sprintf("op-%d", i),
			Op:              "ADD_CROP",
			Crop:            &protocol.CropSpec{Name: "Tomato", Quantity: 500, PricePerKg: 24.5},
		})
	}

	var accepted, limited int
	deadline := time.Now().Add(3 * time.Second)
	for (accepted == 0 || limited == 0) && time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeEvent {
			continue
		}
		var em protocol.EventMsg
		if err := json.Unmarshal(msg, &em); err != nil {
			continue
		}
		for _, ev := range em.Events {
			if ev["type"] != "ACTION_RESULT" {
				continue
			}
			if ok, _ := ev["ok"].(bool); ok {
				accepted++
			} else if ev["code"] == protocol.ErrRateLimit {
				limited++
			} else {
				t.Fatalf("unexpected rejection: %+v", ev)
			}
		}
	}
	if accepted == 0 {
		t.Fatalf("under-limit ops must still reach the engine")
	}
	if limited == 0 {
		t.Fatalf("flood must trip the rate limiter")
	}
}

func TestBadRoleClosesConnection(t *testing.T) {
	ts := startTestServer(t)
	conn := dialWS(t, ts)

	sendJSON(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Name:            "eve",
		Role:            "WIZARD",
	})
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("bad role must close the connection")
	}
}

func TestBadProtocolVersionClosesConnection(t *testing.T) {
	ts := startTestServer(t)
	conn := dialWS(t, ts)

	sendJSON(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: "99.0",
		Name:            "ravi",
		Role:            "FARMER",
	})
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("version mismatch must close the connection")
	}
}
