package ai

import "time"

// Tunables holds the per-NPC configuration surface. Distances are world units,
// rates are per second and intervals are seconds.
type Tunables struct {
	DetectionRange float64 `yaml:"detection_range" json:"detection_range" jsonschema:"description=Perception radius,minimum=1"`
	AttackRange    float64 `yaml:"attack_range" json:"attack_range" jsonschema:"description=Distance at which the NPC starts shooting,minimum=1"`
	FleeRange      float64 `yaml:"flee_range" json:"flee_range" jsonschema:"description=How far the NPC runs when fleeing,minimum=1"`
	IdleLookRange  float64 `yaml:"idle_look_range" json:"idle_look_range" jsonschema:"description=How far an idle NPC looks at friends"`

	CombatRange        float64 `yaml:"combat_range" json:"combat_range" jsonschema:"description=Distance kept from the target in combat,minimum=1"`
	RepositionInterval float64 `yaml:"reposition_interval" json:"reposition_interval" jsonschema:"description=Seconds between combat repositions"`
	RepositionDistance float64 `yaml:"reposition_distance" json:"reposition_distance" jsonschema:"description=Preferred reposition travel distance"`

	FollowDistance  float64 `yaml:"follow_distance" json:"follow_distance" jsonschema:"description=Desired distance from a followed player"`
	FollowTolerance float64 `yaml:"follow_tolerance" json:"follow_tolerance" jsonschema:"description=Dead band around the follow distance"`

	ScaredDecayRate       float64 `yaml:"scared_decay_rate" json:"scared_decay_rate" jsonschema:"minimum=0"`
	ScaredFleeThreshold   float64 `yaml:"scared_flee_threshold" json:"scared_flee_threshold" jsonschema:"minimum=0,maximum=100"`
	DamageScareMultiplier float64 `yaml:"damage_scare_multiplier" json:"damage_scare_multiplier" jsonschema:"minimum=0"`
	PersonalSpaceDistance float64 `yaml:"personal_space_distance" json:"personal_space_distance" jsonschema:"minimum=0"`
	ProximityScareRate    float64 `yaml:"proximity_scare_rate" json:"proximity_scare_rate" jsonschema:"minimum=0"`

	AimingSkill   float64 `yaml:"aiming_skill" json:"aiming_skill" jsonschema:"description=0 is terrible aim and 1 is perfect,minimum=0,maximum=1"`
	BodyTurnSpeed float64 `yaml:"body_turn_speed" json:"body_turn_speed" jsonschema:"minimum=0"`
	EyeHeight     float64 `yaml:"eye_height" json:"eye_height" jsonschema:"minimum=0"`
	MoveSpeed     float64 `yaml:"move_speed" json:"move_speed" jsonschema:"description=Navigation speed in units per second,minimum=0"`

	MaxHealth float64 `yaml:"max_health" json:"max_health" jsonschema:"minimum=1"`
}

// DefaultTunables mirrors the stock NPC tuning.
func DefaultTunables() Tunables {
	return Tunables{
		DetectionRange:        4096,
		AttackRange:           4096,
		FleeRange:             4096,
		IdleLookRange:         512,
		CombatRange:           512,
		RepositionInterval:    3,
		RepositionDistance:    256,
		FollowDistance:        300,
		FollowTolerance:       50,
		ScaredDecayRate:       5,
		ScaredFleeThreshold:   50,
		DamageScareMultiplier: 2,
		PersonalSpaceDistance: 128,
		ProximityScareRate:    3,
		AimingSkill:           0.5,
		BodyTurnSpeed:         5,
		EyeHeight:             64,
		MoveSpeed:             190,
		MaxHealth:             100,
	}
}

// Normalized fills unset fields from DefaultTunables and clamps the bounded
// ones.
func (t Tunables) Normalized() Tunables {
	def := DefaultTunables()
	n := t
	fill := func(v *float64, fallback float64) {
		if *v <= 0 {
			*v = fallback
		}
	}
	fill(&n.DetectionRange, def.DetectionRange)
	fill(&n.AttackRange, def.AttackRange)
	fill(&n.FleeRange, def.FleeRange)
	fill(&n.IdleLookRange, def.IdleLookRange)
	fill(&n.CombatRange, def.CombatRange)
	fill(&n.RepositionInterval, def.RepositionInterval)
	fill(&n.RepositionDistance, def.RepositionDistance)
	fill(&n.FollowDistance, def.FollowDistance)
	fill(&n.FollowTolerance, def.FollowTolerance)
	fill(&n.ScaredFleeThreshold, def.ScaredFleeThreshold)
	fill(&n.PersonalSpaceDistance, def.PersonalSpaceDistance)
	fill(&n.BodyTurnSpeed, def.BodyTurnSpeed)
	fill(&n.EyeHeight, def.EyeHeight)
	fill(&n.MoveSpeed, def.MoveSpeed)
	fill(&n.MaxHealth, def.MaxHealth)
	if n.ScaredDecayRate < 0 {
		n.ScaredDecayRate = 0
	}
	if n.DamageScareMultiplier < 0 {
		n.DamageScareMultiplier = 0
	}
	if n.ProximityScareRate < 0 {
		n.ProximityScareRate = 0
	}
	if n.AimingSkill < 0 {
		n.AimingSkill = 0
	}
	if n.AimingSkill > 1 {
		n.AimingSkill = 1
	}
	return n
}

func (t Tunables) repositionInterval() time.Duration {
	return time.Duration(t.RepositionInterval * float64(time.Second))
}
