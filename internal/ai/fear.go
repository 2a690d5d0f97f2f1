package ai

import "npc-director/server/internal/geom"

// MaxScare is the ceiling of the scared level.
const MaxScare = 100

// AddScare changes the scared level by amount, clamped to [0, MaxScare].
// Negative amounts calm the agent down.
func (a *Agent) AddScare(amount float64) {
	a.scared = geom.Clamp(a.scared+amount, 0, MaxScare)
}

// updateFear applies proximity stress for Neutral agents and the natural
// decay. dt is in seconds.
func (a *Agent) updateFear(dt float64) {
	if dt <= 0 {
		return
	}
	if a.relationship == Neutral {
		if player, d, ok := nearest(a.Position(), a.live, isPlayer); ok && player != nil {
			if d < a.tun.PersonalSpaceDistance {
				factor := 1 - d/a.tun.PersonalSpaceDistance
				a.AddScare(a.tun.ProximityScareRate * factor * dt)
			}
		}
	}
	if a.scared > 0 {
		a.scared = max(0, a.scared-a.tun.ScaredDecayRate*dt)
	}
}
