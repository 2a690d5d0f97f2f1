package simulation

import (
	"context"

	"npc-director/server/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a simulation step exceeds the tick budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventDeltaClamped is emitted when the loop caps a long frame delta.
	EventDeltaClamped logging.EventType = "simulation.delta_clamped"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
	Agents         int     `json:"agents"`
}

// DeltaClampedPayload records the raw and applied frame delta in seconds.
type DeltaClampedPayload struct {
	Raw     float64 `json:"raw"`
	Applied float64 `json:"applied"`
}

// TickBudgetOverrun publishes a warning when a step exceeds the configured budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySystem,
		Payload:  payload,
	})
}

// DeltaClamped publishes a debug event when a frame delta was capped.
func DeltaClamped(ctx context.Context, pub logging.Publisher, tick uint64, payload DeltaClampedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDeltaClamped,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityDebug,
		Category: logging.CategorySystem,
		Payload:  payload,
	})
}
