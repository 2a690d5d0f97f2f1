package net

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"npc-director/server/internal/ai"
	"npc-director/server/internal/net/intake"
	"npc-director/server/internal/net/proto"
	"npc-director/server/internal/net/ws"
	"npc-director/server/internal/replica"
	"npc-director/server/internal/sim"
)

type stubEngine struct {
	mu       sync.Mutex
	reject   string
	commands []sim.Command
}

func (e *stubEngine) Enqueue(cmd sim.Command) (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reject != "" {
		return false, e.reject
	}
	e.commands = append(e.commands, cmd)
	return true, ""
}

func hubWithFrame(tick uint64) *ws.Hub {
	hub := ws.NewHub(ws.HubConfig{})
	hub.Broadcast(replica.Frame{
		Tick: tick,
		Agents: []ai.Snapshot{
			{ID: "npc-1", State: ai.StateAttack, Alive: true, MaxHealth: 100, Health: 100},
			{ID: "npc-2", State: ai.StateIdle, Alive: true, MaxHealth: 100, Health: 100},
		},
		Players: []sim.PlayerState{{ID: "player-1", Health: 100, MaxHealth: 100}},
	})
	return hub
}

func postCommand(t *testing.T, handler http.Handler, msg proto.ClientMessage) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/commands", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode command response %q: %v", resp.Body.String(), err)
	}
	return resp, payload
}

func TestHealthz(t *testing.T) {
	handler := NewHTTPHandler(ws.NewHub(ws.HubConfig{}), HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("unexpected health response: %d %q", resp.Code, resp.Body.String())
	}
}

func TestDiagnosticsSummarisesLatestFrame(t *testing.T) {
	handler := NewHTTPHandler(hubWithFrame(42), HTTPHandlerConfig{
		TickRate:  30,
		Telemetry: func() map[string]uint64 { return map[string]uint64{"sim_tick_duration_micros": 120} },
		Now:       func() time.Time { return time.UnixMilli(1234) },
	})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}
	var payload struct {
		Status     string            `json:"status"`
		ServerTime int64             `json:"serverTime"`
		Tick       uint64            `json:"tick"`
		TickRate   int               `json:"tickRate"`
		Agents     int               `json:"agents"`
		Players    int               `json:"players"`
		States     map[string]int    `json:"states"`
		Telemetry  map[string]uint64 `json:"telemetry"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}
	if payload.Status != "ok" || payload.Tick != 42 || payload.TickRate != 30 || payload.ServerTime != 1234 {
		t.Fatalf("unexpected diagnostics header: %+v", payload)
	}
	if payload.Agents != 2 || payload.Players != 1 {
		t.Fatalf("unexpected counts: %+v", payload)
	}
	if payload.States["attack"] != 1 || payload.States["idle"] != 1 {
		t.Fatalf("unexpected state histogram: %v", payload.States)
	}
	if payload.Telemetry["sim_tick_duration_micros"] != 120 {
		t.Fatalf("expected telemetry passthrough, got %v", payload.Telemetry)
	}
}

func TestDiagnosticsBeforeFirstFrame(t *testing.T) {
	handler := NewHTTPHandler(ws.NewHub(ws.HubConfig{}), HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}
	if payload["status"] != "starting" {
		t.Fatalf("expected starting status, got %v", payload["status"])
	}

	frameResp := httptest.NewRecorder()
	handler.ServeHTTP(frameResp, httptest.NewRequest(http.MethodGet, "/frame", nil))
	if frameResp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before the first frame, got %d", frameResp.Code)
	}
}

func TestFrameEndpointServesLatestFrame(t *testing.T) {
	handler := NewHTTPHandler(hubWithFrame(9), HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/frame", nil))
	frame, err := proto.DecodeFrame(resp.Body.Bytes())
	if err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	if frame.Tick != 9 || len(frame.Agents) != 2 {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func TestSchemaEndpoint(t *testing.T) {
	handler := NewHTTPHandler(ws.NewHub(ws.HubConfig{}), HTTPHandlerConfig{
		Schema: func() any { return map[string]string{"title": "config"} },
	})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/schema", nil))
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"title":"config"`)) {
		t.Fatalf("unexpected schema response: %d %s", resp.Code, resp.Body.String())
	}

	bare := NewHTTPHandler(ws.NewHub(ws.HubConfig{}), HTTPHandlerConfig{})
	resp = httptest.NewRecorder()
	bare.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/schema", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a schema, got %d", resp.Code)
	}
}

func TestCommandsAcceptsKnownActors(t *testing.T) {
	engine := &stubEngine{}
	handler := NewHTTPHandler(hubWithFrame(5), HTTPHandlerConfig{Engine: engine})

	resp, payload := postCommand(t, handler, proto.ClientMessage{Type: proto.TypeDamage, Actor: "npc-1", Attacker: "player-1", Amount: 15})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 Accepted, got %d: %v", resp.Code, payload)
	}
	if payload["status"] != "accepted" || payload["tick"].(float64) != 5 {
		t.Fatalf("unexpected response: %v", payload)
	}
	if len(engine.commands) != 1 || engine.commands[0].Type != sim.CommandDamage {
		t.Fatalf("expected damage to be staged, got %+v", engine.commands)
	}

	resp, _ = postCommand(t, handler, proto.ClientMessage{Type: proto.TypePath, Actor: "player-1", X: 100, Y: 200})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected path to be accepted, got %d", resp.Code)
	}
}

func TestCommandsRejections(t *testing.T) {
	cases := []struct {
		name   string
		msg    proto.ClientMessage
		reject string
		code   int
		reason string
	}{
		{"unknown type", proto.ClientMessage{Type: "dance", Actor: "npc-1"}, "", http.StatusBadRequest, intake.CommandRejectInvalidAction},
		{"unknown actor", proto.ClientMessage{Type: proto.TypeScare, Actor: "ghost", Amount: 5}, "", http.StatusNotFound, intake.CommandRejectUnknownActor},
		{"wrong kind", proto.ClientMessage{Type: proto.TypeScare, Actor: "player-1", Amount: 5}, "", http.StatusUnprocessableEntity, intake.CommandRejectWrongKind},
		{"queue limit", proto.ClientMessage{Type: proto.TypeScare, Actor: "npc-2", Amount: 5}, sim.CommandRejectQueueLimit, http.StatusTooManyRequests, sim.CommandRejectQueueLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewHTTPHandler(hubWithFrame(1), HTTPHandlerConfig{Engine: &stubEngine{reject: tc.reject}})
			resp, payload := postCommand(t, handler, tc.msg)
			if resp.Code != tc.code {
				t.Fatalf("expected status %d, got %d", tc.code, resp.Code)
			}
			if payload["reason"] != tc.reason {
				t.Fatalf("expected reason %q, got %v", tc.reason, payload["reason"])
			}
		})
	}
}

func TestCommandsRequiresPost(t *testing.T) {
	handler := NewHTTPHandler(ws.NewHub(ws.HubConfig{}), HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/commands", nil))
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/commands", bytes.NewReader([]byte("{"))))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.Code)
	}
}

func TestWebsocketRouteServesFeed(t *testing.T) {
	hub := hubWithFrame(3)
	srv := httptest.NewServer(NewHTTPHandler(hub, HTTPHandlerConfig{}))
	t.Cleanup(srv.Close)

	url := "ws" + srv.URL[len("http"):] + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read initial frame: %v", err)
	}
	frame, err := proto.DecodeFrame(payload)
	if err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	if frame.Tick != 3 {
		t.Fatalf("expected tick 3, got %d", frame.Tick)
	}
}
