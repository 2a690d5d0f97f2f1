package npc

import (
	"context"

	"npc-director/server/logging"
)

const (
	// EventStateChanged is emitted when the decision picks a new behaviour state.
	EventStateChanged logging.EventType = "npc.state_changed"
	// EventDamaged is emitted when an NPC absorbs damage.
	EventDamaged logging.EventType = "npc.damaged"
	// EventDied is emitted once when an NPC's health drops below one.
	EventDied logging.EventType = "npc.died"
	// EventFleeEscaped is emitted when a flee loop reaches safety.
	EventFleeEscaped logging.EventType = "npc.flee_escaped"
	// EventRepositioned is emitted when the tactical search selects a new combat position.
	EventRepositioned logging.EventType = "npc.repositioned"
	// EventReloadStarted is emitted when the attack loop begins a weapon reload.
	EventReloadStarted logging.EventType = "npc.reload_started"
	// EventPerceptionRefreshed is emitted when the perception cache is rebuilt.
	EventPerceptionRefreshed logging.EventType = "npc.perception_refreshed"
)

// StateChangedPayload captures a state transition.
type StateChangedPayload struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Scared float64 `json:"scared"`
}

// DamagedPayload captures the outcome of a damage event.
type DamagedPayload struct {
	Amount float64  `json:"amount"`
	Health float64  `json:"health"`
	Scared float64  `json:"scared"`
	Tags   []string `json:"tags,omitempty"`
}

// DiedPayload records where an NPC died.
type DiedPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FleeEscapedPayload records the distance at which a flee ended.
type FleeEscapedPayload struct {
	Distance     float64 `json:"distance"`
	LineOfSight  bool    `json:"lineOfSight"`
	ScaredBefore float64 `json:"scaredBefore"`
}

// RepositionedPayload describes a tactical search result.
type RepositionedPayload struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Score      float64 `json:"score"`
	Candidates int     `json:"candidates"`
}

// PerceptionRefreshedPayload reports the size of the rebuilt cache.
type PerceptionRefreshedPayload struct {
	Candidates int `json:"candidates"`
}

// StateChanged publishes a state transition event.
func StateChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target *logging.EntityRef, payload StateChangedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventStateChanged,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryBehaviour,
		Payload:  payload,
	}
	if target != nil {
		event.Targets = []logging.EntityRef{*target}
	}
	pub.Publish(ctx, event)
}

// Damaged publishes a damage event. The attacker, when known, is the target ref.
func Damaged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, attacker *logging.EntityRef, payload DamagedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventDamaged,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	}
	if attacker != nil {
		event.Targets = []logging.EntityRef{*attacker}
	}
	pub.Publish(ctx, event)
}

// Died publishes a death event.
func Died(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DiedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDied,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// FleeEscaped publishes a successful flee.
func FleeEscaped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, threat logging.EntityRef, payload FleeEscapedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFleeEscaped,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{threat},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryBehaviour,
		Payload:  payload,
	})
}

// Repositioned publishes a tactical reposition.
func Repositioned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload RepositionedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRepositioned,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// ReloadStarted publishes a reload start.
func ReloadStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventReloadStarted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
	})
}

// PerceptionRefreshed publishes a perception cache rebuild.
func PerceptionRefreshed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PerceptionRefreshedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPerceptionRefreshed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryBehaviour,
		Payload:  payload,
	})
}
