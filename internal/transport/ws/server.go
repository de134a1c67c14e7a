package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/time/rate"

	"freshvault/internal/market"
	"freshvault/internal/protocol"
)

type Server struct {
	market *market.Market
	log    *log.Logger

	upgrader websocket.Upgrader

	helloSchema *jsonschema.Schema
	opSchema    *jsonschema.Schema
}

// NewServer builds the websocket transport. schemaDir may be empty to
// skip envelope validation (tests); invalid schema files are an error.
func NewServer(m *market.Market, logger *log.Logger, schemaDir string) (*Server, error) {
	s := &Server{
		market: m,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	if schemaDir != "" {
		var err error
		s.helloSchema, err = jsonschema.Compile(filepath.Join(schemaDir, "hello.schema.json"))
		if err != nil {
			return nil, err
		}
		s.opSchema, err = jsonschema.Compile(filepath.Join(schemaDir, "op.schema.json"))
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		rl := s.market.RateLimits()
		limiter := rate.NewLimiter(rate.Limit(rl.OpsPerSec), rl.OpsBurst)

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			if base.Type != protocol.TypeOp {
				continue
			}
			var op protocol.OpMsg
			if err := json.Unmarshal(msg, &op); err != nil {
				continue
			}
			if op.ProtocolVersion != protocol.Version {
				continue
			}
			if s.opSchema != nil {
				var raw any
				if err := json.Unmarshal(msg, &raw); err != nil {
					continue
				}
				if err := s.opSchema.Validate(raw); err != nil {
					s.reject(out, op.ID, protocol.ErrProtoBadRequest, "op failed schema validation")
					continue
				}
			}
			if !limiter.Allow() {
				s.reject(out, op.ID, protocol.ErrRateLimit, "op rate limit exceeded")
				continue
			}
			s.market.Inbox() <- market.OpEnvelope{SessionID: sessionID, Op: op}
		}

		// Cleanup.
		s.market.Leave() <- sessionID
	}
}

// reject answers a transport-level rejection without a round trip
// through the engine loop.
func (s *Server) reject(out chan []byte, ref, code, msg string) {
	b, err := json.Marshal(protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Events: []protocol.Event{{
			"type":    "ACTION_RESULT",
			"ref":     ref,
			"ok":      false,
			"code":    code,
			"message": msg,
		}},
	})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}
	if s.helloSchema != nil {
		var raw any
		if err := json.Unmarshal(msg, &raw); err != nil {
			return "", nil
		}
		if err := s.helloSchema.Validate(raw); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "hello failed schema validation"), time.Now().Add(time.Second))
			return "", nil
		}
	}
	role, ok := market.ParseRole(hello.Role)
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad role"), time.Now().Add(time.Second))
		return "", nil
	}
	if hello.Name == "" {
		hello.Name = "guest"
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out = make(chan []byte, maxQ)

	respCh := make(chan market.JoinResponse, 1)
	s.market.Join() <- market.JoinRequest{
		Name: hello.Name,
		Role: role,
		Out:  out,
		Resp: respCh,
	}
	resp := <-respCh

	if err := writeJSON(conn, resp.Welcome); err != nil {
		return "", nil
	}
	return resp.Welcome.SessionID, out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
