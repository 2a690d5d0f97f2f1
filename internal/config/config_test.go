package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"npc-director/server/internal/ai"
	"npc-director/server/logging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsLoadAndValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30, cfg.Simulation.TickRate)
	assert.Equal(t, 30, cfg.Weapons.ClipSize)
	assert.Equal(t, []string{"civilian", "default", "guard"}, cfg.ProfileNames())
	assert.Len(t, cfg.NPCs, 3)
	assert.Len(t, cfg.Players, 1)
}

func TestLoadOverlaysUserFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9000"
simulation:
  tick_rate: 60
profiles:
  sniper:
    aiming_skill: 0.95
npcs:
  - id: sniper-1
    profile: sniper
    relationship: hostile
    armed: true
    x: 100
    y: 200
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 60, cfg.Simulation.TickRate)
	assert.Equal(t, 4, cfg.Simulation.CatchupMaxTicks, "untouched keys keep their defaults")
	assert.Contains(t, cfg.Profiles, "guard", "profile map merges")
	require.Len(t, cfg.NPCs, 1, "lists replace the defaults")

	spec, err := cfg.NPCs[0].Spec(cfg)
	require.NoError(t, err)
	assert.Equal(t, ai.ActorID("sniper-1"), spec.ID)
	assert.Equal(t, ai.Hostile, spec.Relationship)
	assert.Equal(t, 0.95, spec.Tunables.AimingSkill)
	assert.Equal(t, ai.DefaultTunables().DetectionRange, spec.Tunables.DetectionRange, "unset tunables take stock values")
	assert.Equal(t, 100.0, spec.Position.X())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := MustDefault()
	cfg.Simulation.TickRate = 0
	cfg.Logging.Sinks = []string{"console", "syslog"}
	cfg.Profiles["broken"] = Profile{ai.Tunables{AimingSkill: 1.5, DetectionRange: -1}}
	cfg.NPCs = append(cfg.NPCs,
		NPCConfig{ID: "ghost", Profile: "nope"},
		NPCConfig{ID: "ghost", Relationship: "grumpy"},
	)

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"simulation.tick_rate",
		`unknown sink "syslog"`,
		"profiles.broken.aiming_skill",
		"profiles.broken.detection_range",
		`unknown profile "nope"`,
		`duplicate id "ghost"`,
		`unknown relationship "grumpy"`,
	} {
		assert.Contains(t, msg, want)
	}
}

func TestTunablesFallsBackToDefaultProfile(t *testing.T) {
	cfg := MustDefault()
	tun, ok := cfg.Tunables("")
	require.True(t, ok)
	assert.Equal(t, ai.DefaultTunables(), tun)

	_, ok = cfg.Tunables("missing")
	assert.False(t, ok)
}

func TestProfileKeepsStockValuesForOmittedKeys(t *testing.T) {
	cfg := MustDefault()
	guard := cfg.Profiles["guard"].Tunables
	assert.Equal(t, 0.7, guard.AimingSkill)
	assert.Equal(t, 1500.0, guard.AttackRange)
	assert.Equal(t, ai.DefaultTunables().ScaredDecayRate, guard.ScaredDecayRate)
}

func TestPlayerSpec(t *testing.T) {
	spec := PlayerConfig{ID: "p", X: 10, Y: 20, WanderRadius: 300, WanderPause: 1.5}.Spec()
	assert.Equal(t, ai.ActorID("p"), spec.ID)
	assert.Equal(t, 1500*time.Millisecond, spec.WanderPause)
	assert.Equal(t, 300.0, spec.WanderRadius)
}

func TestSectionConversions(t *testing.T) {
	cfg := MustDefault()

	wc := cfg.World.WorldConfig()
	assert.Equal(t, 4096.0, wc.Width)
	assert.Equal(t, "npc-director", wc.Seed)
	assert.Equal(t, 24, wc.RandomObstacles)

	cfg.Logging.Severity = "debug"
	cfg.Logging.Sinks = []string{logging.SinkJSON, logging.SinkNATS}
	lc := cfg.Logging.LoggingConfig()
	assert.Equal(t, logging.SeverityDebug, lc.MinimumSeverity)
	assert.True(t, lc.HasSink(logging.SinkNATS))
	assert.False(t, lc.HasSink(logging.SinkConsole))
	assert.Equal(t, "npc.events", lc.NATS.SubjectPrefix)
	assert.Equal(t, "logs/events.ndjson", lc.JSON.FilePath)
}

func TestSchemaDescribesSections(t *testing.T) {
	data, err := json.Marshal(Schema())
	require.NoError(t, err)
	text := string(data)
	for _, key := range []string{"tick_rate", "nav_cell_size", "clip_size", "aiming_skill", "wander_radius"} {
		assert.Contains(t, text, key)
	}
}

func TestSchemaKeepsSectionDefinitionsApart(t *testing.T) {
	data, err := json.Marshal(Schema())
	require.NoError(t, err)
	var root map[string]any
	require.NoError(t, json.Unmarshal(data, &root))

	defs, ok := root["$defs"].(map[string]any)
	require.True(t, ok)
	resolve := func(ref any) map[string]any {
		t.Helper()
		name, ok := ref.(string)
		require.True(t, ok, "expected a $ref, got %v", ref)
		def, ok := defs[strings.TrimPrefix(name, "#/$defs/")].(map[string]any)
		require.True(t, ok, "unresolved %s", name)
		return def
	}
	properties := func(def map[string]any) map[string]any {
		t.Helper()
		props, ok := def["properties"].(map[string]any)
		require.True(t, ok)
		return props
	}

	top := properties(resolve(root["$ref"]))
	weapons := properties(resolve(top["weapons"].(map[string]any)["$ref"]))
	assert.Contains(t, weapons, "clip_size")
	assert.NotContains(t, weapons, "server")

	profiles := top["profiles"].(map[string]any)["patternProperties"].(map[string]any)
	profile := properties(resolve(profiles[".*"].(map[string]any)["$ref"]))
	assert.Contains(t, profile, "aiming_skill")

	for name, def := range defs {
		assert.NotContains(t, def.(map[string]any), "required", "%s must accept partial overlays", name)
	}
}

func TestWriteSchema(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "config.schema.json")
	require.NoError(t, WriteSchema(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "NPC Director server configuration", decoded["title"])
}
