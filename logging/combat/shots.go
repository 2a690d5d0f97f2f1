package combat

import (
	"context"

	"npc-director/server/logging"
)

const (
	// EventShotFired is emitted for every primary attack.
	EventShotFired logging.EventType = "combat.shot_fired"
	// EventReloadCompleted is emitted when a weapon finishes refilling its clip.
	EventReloadCompleted logging.EventType = "combat.reload_completed"
	// EventReloadCancelled is emitted when a reload is abandoned.
	EventReloadCancelled logging.EventType = "combat.reload_cancelled"
)

// ShotFiredPayload describes the trace of a single shot.
type ShotFiredPayload struct {
	Hit      bool    `json:"hit"`
	Surface  string  `json:"surface,omitempty"`
	Damage   float64 `json:"damage,omitempty"`
	Distance float64 `json:"distance"`
	Ammo     int     `json:"ammo"`
}

// ReloadPayload reports clip state after a reload event.
type ReloadPayload struct {
	Ammo int `json:"ammo"`
}

// ShotFired publishes a shot event. victim is nil for misses.
func ShotFired(ctx context.Context, pub logging.Publisher, tick uint64, shooter logging.EntityRef, victim *logging.EntityRef, payload ShotFiredPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventShotFired,
		Tick:     tick,
		Actor:    shooter,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	}
	if victim != nil {
		event.Targets = []logging.EntityRef{*victim}
		event.Severity = logging.SeverityInfo
	}
	pub.Publish(ctx, event)
}

// ReloadCompleted publishes a finished reload.
func ReloadCompleted(ctx context.Context, pub logging.Publisher, tick uint64, owner logging.EntityRef, payload ReloadPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventReloadCompleted,
		Tick:     tick,
		Actor:    owner,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// ReloadCancelled publishes an abandoned reload.
func ReloadCancelled(ctx context.Context, pub logging.Publisher, tick uint64, owner logging.EntityRef, payload ReloadPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventReloadCancelled,
		Tick:     tick,
		Actor:    owner,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}
