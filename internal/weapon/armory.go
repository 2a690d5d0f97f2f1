package weapon

import (
	"slices"
	"time"

	"npc-director/server/internal/ai"
	"npc-director/server/logging"
)

// Armory issues weapons to agents and advances their reloads each tick.
// Register it with the world as an advancer.
type Armory struct {
	cfg     Config
	world   World
	pub     logging.Publisher
	weapons map[ai.ActorID]*Weapon
	owners  []ai.ActorID
}

func NewArmory(cfg Config, world World, pub logging.Publisher) *Armory {
	return &Armory{
		cfg:     cfg.normalized(),
		world:   world,
		pub:     pub,
		weapons: make(map[ai.ActorID]*Weapon),
	}
}

// Config returns the normalized weapon model handed out by Issue.
func (a *Armory) Config() Config { return a.cfg }

// Issue builds a weapon for owner. An owner that already holds one gets it
// back.
func (a *Armory) Issue(owner ai.ActorID) *Weapon {
	if w, ok := a.weapons[owner]; ok {
		return w
	}
	w := New(a.cfg, owner, a.world, a.pub)
	a.weapons[owner] = w
	idx, _ := slices.BinarySearch(a.owners, owner)
	a.owners = slices.Insert(a.owners, idx, owner)
	return w
}

// Factory adapts Issue to ai.WeaponFactory.
func (a *Armory) Factory() ai.WeaponFactory {
	return func(owner ai.ActorID) ai.Weapon {
		return a.Issue(owner)
	}
}

func (a *Armory) Weapon(owner ai.ActorID) (*Weapon, bool) {
	w, ok := a.weapons[owner]
	return w, ok
}

// Advance settles reloads in owner order and drops weapons whose owner left
// the world once they hold nothing pending.
func (a *Armory) Advance(now time.Time) {
	kept := a.owners[:0]
	for _, owner := range a.owners {
		w := a.weapons[owner]
		w.Advance(now)
		if _, alive := a.world.Resolve(owner); !alive && !w.Reloading() {
			delete(a.weapons, owner)
			continue
		}
		kept = append(kept, owner)
	}
	clear(a.owners[len(kept):])
	a.owners = kept
}
