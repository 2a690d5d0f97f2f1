package net

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"time"

	"npc-director/server/internal/net/intake"
	"npc-director/server/internal/net/proto"
	"npc-director/server/internal/net/ws"
	"npc-director/server/internal/observability"
	"npc-director/server/internal/sim"
	"npc-director/server/internal/telemetry"
)

const maxCommandBody = 64 << 10

type HTTPHandlerConfig struct {
	Logger telemetry.Logger
	// Engine stages commands posted to /commands and sent over /ws.
	Engine   intake.Enqueuer
	TickRate int
	// Schema is served verbatim from /schema when set.
	Schema func() any
	// Telemetry feeds the counters section of /diagnostics.
	Telemetry func() map[string]uint64
	Now       func() time.Time

	Observability observability.Config
}

type commandResponse struct {
	Status string `json:"status"`
	Tick   uint64 `json:"tick,omitempty"`
	Reason string `json:"reason,omitempty"`
	Retry  bool   `json:"retry,omitempty"`
}

func NewHTTPHandler(hub *ws.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		frame, hasFrame := hub.Latest()
		payload := struct {
			Status      string            `json:"status"`
			ServerTime  int64             `json:"serverTime"`
			Tick        uint64            `json:"tick"`
			TickRate    int               `json:"tickRate"`
			Subscribers int               `json:"subscribers"`
			Agents      int               `json:"agents"`
			Players     int               `json:"players"`
			States      map[string]int    `json:"states,omitempty"`
			Telemetry   map[string]uint64 `json:"telemetry,omitempty"`
		}{
			Status:      "ok",
			ServerTime:  now().UnixMilli(),
			TickRate:    cfg.TickRate,
			Subscribers: hub.Subscribers(),
		}
		if !hasFrame {
			payload.Status = "starting"
		} else {
			payload.Tick = frame.Tick
			payload.Agents = len(frame.Agents)
			payload.Players = len(frame.Players)
			payload.States = make(map[string]int)
			for _, agent := range frame.Agents {
				payload.States[agent.State.String()]++
			}
		}
		if cfg.Telemetry != nil {
			payload.Telemetry = cfg.Telemetry()
		}
		writeJSON(w, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/frame", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		frame, ok := hub.Latest()
		if !ok {
			httpError(w, "no frame yet", nethttp.StatusServiceUnavailable)
			return
		}
		data, err := proto.EncodeFrame(frame)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/schema", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if cfg.Schema == nil {
			httpError(w, "schema unavailable", nethttp.StatusNotFound)
			return
		}
		writeJSON(w, nethttp.StatusOK, cfg.Schema())
	})

	mux.HandleFunc("/commands", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()
		body, err := io.ReadAll(nethttp.MaxBytesReader(w, r.Body, maxCommandBody))
		if err != nil {
			var tooLarge *nethttp.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpError(w, "payload too large", nethttp.StatusRequestEntityTooLarge)
				return
			}
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		msg, err := proto.DecodeClientMessage(body)
		if err != nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}

		cmd, ok, reason := intake.StageClientCommand(intake.CommandContext{
			Engine: cfg.Engine,
			Lookup: hub.LookupActor,
			Tick:   hub.Tick,
			Now:    now,
		}, msg)
		if !ok {
			if cfg.Logger != nil && reason == intake.CommandRejectInvalidAction {
				cfg.Logger.Printf("[http] rejected command %q for %q", msg.Type, msg.Actor)
			}
			writeJSON(w, rejectStatus(reason), commandResponse{
				Status: "rejected",
				Reason: reason,
				Retry:  reason == sim.CommandRejectQueueLimit,
			})
			return
		}
		writeJSON(w, nethttp.StatusAccepted, commandResponse{Status: "accepted", Tick: cmd.OriginTick})
	})

	feed := ws.NewHandler(hub, ws.HandlerConfig{Logger: cfg.Logger, Engine: cfg.Engine, Now: now})
	mux.HandleFunc("/ws", feed.Handle)
	cfg.Observability.Mount(mux)

	return mux
}

func rejectStatus(reason string) int {
	switch reason {
	case intake.CommandRejectInvalidAction:
		return nethttp.StatusBadRequest
	case intake.CommandRejectUnknownActor:
		return nethttp.StatusNotFound
	case intake.CommandRejectWrongKind:
		return nethttp.StatusUnprocessableEntity
	case sim.CommandRejectQueueLimit, sim.CommandRejectQueueFull:
		return nethttp.StatusTooManyRequests
	default:
		return nethttp.StatusConflict
	}
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
