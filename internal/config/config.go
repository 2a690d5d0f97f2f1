// Package config loads the server configuration: embedded defaults overlaid
// with an optional user file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"npc-director/server/internal/ai"
	"npc-director/server/internal/weapon"
	"npc-director/server/internal/world"
	"npc-director/server/logging"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultProfile is used by spawns that name no profile.
const DefaultProfile = "default"

// Config is the full server configuration.
type Config struct {
	Server     ServerConfig       `yaml:"server" json:"server"`
	Simulation SimulationConfig   `yaml:"simulation" json:"simulation"`
	World      WorldConfig        `yaml:"world" json:"world"`
	Logging    LoggingConfig      `yaml:"logging" json:"logging"`
	Weapons    weapon.Config      `yaml:"weapons" json:"weapons"`
	Profiles   map[string]Profile `yaml:"profiles" json:"profiles" jsonschema:"description=Named NPC tuning presets"`
	NPCs       []NPCConfig        `yaml:"npcs" json:"npcs"`
	Players    []PlayerConfig     `yaml:"players" json:"players"`
}

// Profile is a named tuning preset. Keys left out keep the stock values.
type Profile struct {
	ai.Tunables `yaml:",inline"`
}

func (p *Profile) UnmarshalYAML(node *yaml.Node) error {
	type plain Profile
	decoded := plain{Tunables: ai.DefaultTunables()}
	if err := node.Decode(&decoded); err != nil {
		return err
	}
	*p = Profile(decoded)
	return nil
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr" jsonschema:"description=HTTP listen address"`
}

type SimulationConfig struct {
	TickRate        int `yaml:"tick_rate" json:"tick_rate" jsonschema:"minimum=1"`
	CatchupMaxTicks int `yaml:"catchup_max_ticks" json:"catchup_max_ticks" jsonschema:"minimum=1"`
	CommandCapacity int `yaml:"command_capacity" json:"command_capacity"`
	PerActorLimit   int `yaml:"per_actor_limit" json:"per_actor_limit"`
}

type WorldConfig struct {
	Width           float64          `yaml:"width" json:"width"`
	Height          float64          `yaml:"height" json:"height"`
	NavCellSize     float64          `yaml:"nav_cell_size" json:"nav_cell_size"`
	Seed            string           `yaml:"seed" json:"seed"`
	RandomObstacles int              `yaml:"random_obstacles" json:"random_obstacles"`
	Obstacles       []world.Obstacle `yaml:"obstacles" json:"obstacles,omitempty"`
}

type LoggingConfig struct {
	Sinks       []string `yaml:"sinks" json:"sinks" jsonschema:"description=Any of console json csv nats"`
	Severity    string   `yaml:"severity" json:"severity" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	BufferSize  int      `yaml:"buffer_size" json:"buffer_size"`
	JSONPath    string   `yaml:"json_path" json:"json_path"`
	CSVPath     string   `yaml:"csv_path" json:"csv_path"`
	NATSURL     string   `yaml:"nats_url" json:"nats_url"`
	NATSSubject string   `yaml:"nats_subject" json:"nats_subject"`
}

// NPCConfig places one agent at startup.
type NPCConfig struct {
	ID           string  `yaml:"id" json:"id"`
	Profile      string  `yaml:"profile" json:"profile,omitempty"`
	Relationship string  `yaml:"relationship" json:"relationship" jsonschema:"enum=neutral,enum=friendly,enum=hostile"`
	Armed        bool    `yaml:"armed" json:"armed"`
	X            float64 `yaml:"x" json:"x"`
	Y            float64 `yaml:"y" json:"y"`
	Yaw          float64 `yaml:"yaw" json:"yaw" jsonschema:"description=Initial facing in degrees"`
}

// PlayerConfig places a scripted player. A positive wander radius makes it
// walk between random points.
type PlayerConfig struct {
	ID           string  `yaml:"id" json:"id"`
	X            float64 `yaml:"x" json:"x"`
	Y            float64 `yaml:"y" json:"y"`
	Speed        float64 `yaml:"speed" json:"speed,omitempty"`
	Health       float64 `yaml:"health" json:"health,omitempty"`
	WanderRadius float64 `yaml:"wander_radius" json:"wander_radius,omitempty"`
	WanderPause  float64 `yaml:"wander_pause" json:"wander_pause,omitempty" jsonschema:"description=Seconds spent at each wander point"`
}

// Default returns the embedded defaults.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	return cfg, nil
}

// MustDefault panics if the embedded defaults do not parse.
func MustDefault() *Config {
	cfg, err := Default()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the embedded defaults and overlays the file at path. An empty
// path yields the defaults. Mappings merge key by key; lists such as npcs
// replace the default list.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse overlays YAML data onto cfg.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		add("server.addr must be set")
	}
	if c.Simulation.TickRate <= 0 {
		add("simulation.tick_rate must be positive, got %d", c.Simulation.TickRate)
	}
	if c.Simulation.CatchupMaxTicks < 0 {
		add("simulation.catchup_max_ticks must not be negative")
	}
	if c.World.Width < 0 || c.World.Height < 0 || c.World.NavCellSize < 0 {
		add("world dimensions must not be negative")
	}
	if c.World.RandomObstacles < 0 {
		add("world.random_obstacles must not be negative")
	}
	for _, sink := range c.Logging.Sinks {
		switch sink {
		case logging.SinkConsole, logging.SinkJSON, logging.SinkCSV, logging.SinkNATS:
		default:
			add("logging.sinks: unknown sink %q", sink)
		}
	}
	if c.Weapons.ClipSize <= 0 {
		add("weapons.clip_size must be positive")
	}
	if c.Weapons.Range <= 0 {
		add("weapons.range must be positive")
	}
	if c.Weapons.Damage < 0 || c.Weapons.FireInterval < 0 || c.Weapons.ReloadSeconds < 0 {
		add("weapons: damage, fire_interval and reload_seconds must not be negative")
	}

	for _, name := range c.ProfileNames() {
		errs = append(errs, validateProfile(name, c.Profiles[name].Tunables)...)
	}

	seen := make(map[string]bool)
	for i, npc := range c.NPCs {
		if npc.ID != "" {
			if seen[npc.ID] {
				add("npcs[%d]: duplicate id %q", i, npc.ID)
			}
			seen[npc.ID] = true
		}
		if _, ok := c.Profiles[npc.profile()]; !ok {
			add("npcs[%d]: unknown profile %q", i, npc.profile())
		}
		if _, err := ai.ParseRelationship(npc.Relationship); err != nil {
			add("npcs[%d]: %v", i, err)
		}
	}
	for i, player := range c.Players {
		if player.ID != "" {
			if seen[player.ID] {
				add("players[%d]: duplicate id %q", i, player.ID)
			}
			seen[player.ID] = true
		}
		if player.WanderRadius < 0 || player.WanderPause < 0 {
			add("players[%d]: wander settings must not be negative", i)
		}
	}
	return errors.Join(errs...)
}

func validateProfile(name string, t ai.Tunables) []error {
	var errs []error
	ranges := []struct {
		field string
		value float64
	}{
		{"detection_range", t.DetectionRange},
		{"attack_range", t.AttackRange},
		{"flee_range", t.FleeRange},
		{"combat_range", t.CombatRange},
		{"reposition_distance", t.RepositionDistance},
		{"follow_distance", t.FollowDistance},
		{"move_speed", t.MoveSpeed},
		{"max_health", t.MaxHealth},
	}
	for _, r := range ranges {
		if r.value < 0 {
			errs = append(errs, fmt.Errorf("profiles.%s.%s must be positive, got %g", name, r.field, r.value))
		}
	}
	if t.AimingSkill < 0 || t.AimingSkill > 1 {
		errs = append(errs, fmt.Errorf("profiles.%s.aiming_skill must be within [0,1], got %g", name, t.AimingSkill))
	}
	if t.ScaredFleeThreshold < 0 || t.ScaredFleeThreshold > 100 {
		errs = append(errs, fmt.Errorf("profiles.%s.scared_flee_threshold must be within [0,100], got %g", name, t.ScaredFleeThreshold))
	}
	return errs
}

// ProfileNames lists the configured profiles in name order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tunables resolves a profile, filling unset fields with the stock values.
func (c *Config) Tunables(profile string) (ai.Tunables, bool) {
	if profile == "" {
		profile = DefaultProfile
	}
	p, ok := c.Profiles[profile]
	if !ok {
		return ai.Tunables{}, false
	}
	return p.Tunables.Normalized(), true
}

func (n NPCConfig) profile() string {
	if n.Profile == "" {
		return DefaultProfile
	}
	return n.Profile
}

// Spec converts the entry into a world spawn request. Weapons are attached
// by the caller.
func (n NPCConfig) Spec(cfg *Config) (world.NPCSpec, error) {
	tun, ok := cfg.Tunables(n.profile())
	if !ok {
		return world.NPCSpec{}, fmt.Errorf("npc %q: unknown profile %q", n.ID, n.profile())
	}
	rel, err := ai.ParseRelationship(n.Relationship)
	if err != nil {
		return world.NPCSpec{}, fmt.Errorf("npc %q: %w", n.ID, err)
	}
	return world.NPCSpec{
		ID:           ai.ActorID(n.ID),
		Profile:      n.profile(),
		Relationship: rel,
		Tunables:     tun,
		Position:     mgl64.Vec3{n.X, n.Y, 0},
		Yaw:          n.Yaw,
	}, nil
}

func (p PlayerConfig) Spec() world.PlayerSpec {
	return world.PlayerSpec{
		ID:           ai.ActorID(p.ID),
		Position:     mgl64.Vec3{p.X, p.Y, 0},
		Speed:        p.Speed,
		Health:       p.Health,
		WanderRadius: p.WanderRadius,
		WanderPause:  time.Duration(p.WanderPause * float64(time.Second)),
	}
}

func (w WorldConfig) WorldConfig() world.Config {
	return world.Config{
		Width:           w.Width,
		Height:          w.Height,
		NavCellSize:     w.NavCellSize,
		Seed:            w.Seed,
		Obstacles:       w.Obstacles,
		RandomObstacles: w.RandomObstacles,
	}
}

// LoggingConfig maps the section onto the router configuration.
func (l LoggingConfig) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if len(l.Sinks) > 0 {
		cfg.EnabledSinks = append([]string(nil), l.Sinks...)
	}
	if l.Severity != "" {
		cfg.MinimumSeverity = logging.ParseSeverity(l.Severity)
	}
	if l.BufferSize > 0 {
		cfg.BufferSize = l.BufferSize
	}
	cfg.JSON.FilePath = l.JSONPath
	cfg.CSV.FilePath = l.CSVPath
	cfg.NATS.URL = l.NATSURL
	if l.NATSSubject != "" {
		cfg.NATS.SubjectPrefix = l.NATSSubject
	}
	return cfg
}
