package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"npc-director/server/internal/config"
	"npc-director/server/internal/net/proto"
	"npc-director/server/internal/sim"
	"npc-director/server/logging"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	srv, err := New(cfg, Options{Stdout: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close(context.Background()) })
	return srv
}

func step(srv *Server, tick uint64) sim.LoopStepResult {
	result := srv.Loop().Advance(sim.LoopTickContext{
		Tick:  tick,
		Now:   time.Unix(100, 0).Add(time.Duration(tick) * time.Second / 30),
		Delta: 1.0 / 30,
	})
	srv.publish(result)
	return result
}

func TestNewSpawnsConfiguredActors(t *testing.T) {
	srv := newTestServer(t)
	step(srv, 1)

	frame, ok := srv.Hub().Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(1), frame.Tick)
	assert.Len(t, frame.Agents, 3)
	assert.Len(t, frame.Players, 1)

	_, armed := srv.armory.Weapon("guard-1")
	assert.True(t, armed, "guard carries a weapon")
	_, armed = srv.armory.Weapon("civilian-1")
	assert.False(t, armed)
}

func TestCommandsFlowThroughTheLoop(t *testing.T) {
	srv := newTestServer(t)
	step(srv, 1)

	body, err := json.Marshal(proto.ClientMessage{Type: proto.TypeScare, Actor: "civilian-1", Amount: 40})
	require.NoError(t, err)
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/commands", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	assert.Equal(t, 1, srv.Loop().Pending())

	result := step(srv, 2)
	require.Len(t, result.Commands, 1)
	assert.Equal(t, sim.CommandScare, result.Commands[0].Type)
	assert.Zero(t, srv.Loop().Pending())
}

func TestDiagnosticsReportsTelemetry(t *testing.T) {
	srv := newTestServer(t)
	step(srv, 1)

	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Status    string            `json:"status"`
		TickRate  int               `json:"tickRate"`
		Agents    int               `json:"agents"`
		Telemetry map[string]uint64 `json:"telemetry"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload.Status)
	assert.Equal(t, 30, payload.TickRate)
	assert.Equal(t, 3, payload.Agents)
	assert.Equal(t, uint64(1), payload.Telemetry["ws_broadcast_frames_total"])
}

func TestSchemaRoute(t *testing.T) {
	srv := newTestServer(t)
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/schema", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "NPC Director server configuration")
}

func TestNewRejectsUnknownProfile(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.NPCs = append(cfg.NPCs, config.NPCConfig{ID: "odd-1", Profile: "ghost"})

	_, err = New(cfg, Options{Stdout: io.Discard})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestOpenSinksCreatesFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{logging.SinkJSON, logging.SinkCSV}
	cfg.JSON.FilePath = filepath.Join(dir, "nested", "events.ndjson")
	cfg.CSV.FilePath = filepath.Join(dir, "events.csv")

	sinks, err := openSinks(cfg, io.Discard)
	require.NoError(t, err)
	require.Len(t, sinks, 2)
	closeSinks(sinks)

	_, err = os.Stat(cfg.JSON.FilePath)
	assert.NoError(t, err)
	_, err = os.Stat(cfg.CSV.FilePath)
	assert.NoError(t, err)
}

func TestOpenSinksRequiresPaths(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{logging.SinkConsole, logging.SinkJSON}

	_, err := openSinks(cfg, io.Discard)
	assert.ErrorContains(t, err, "json sink")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("NPC_ADDR", ":9999")
	t.Setenv("NPC_TICK_RATE", "60")
	cfg, err := config.Default()
	require.NoError(t, err)

	applyEnv(cfg, nil)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 60, cfg.Simulation.TickRate)
}
