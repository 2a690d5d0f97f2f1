package world

import (
	"maps"

	"npc-director/server/internal/ai"
)

// AnimationParams records the latest value of each presentation parameter an
// agent emitted. Triggers are counted as well.
type AnimationParams struct {
	values   map[string]any
	triggers map[string]int
}

func NewAnimationParams() *AnimationParams {
	return &AnimationParams{
		values:   make(map[string]any),
		triggers: make(map[string]int),
	}
}

// Set implements ai.AnimationSink.
func (p *AnimationParams) Set(name string, value any) {
	if name == ai.TriggerAttack || name == ai.TriggerReload {
		p.triggers[name]++
	}
	p.values[name] = value
}

// Values returns a copy of the latest parameters.
func (p *AnimationParams) Values() map[string]any {
	return maps.Clone(p.values)
}

// Triggers returns how often each trigger fired.
func (p *AnimationParams) Triggers() map[string]int {
	return maps.Clone(p.triggers)
}
