package weapon

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"npc-director/server/internal/ai"
	"npc-director/server/internal/geom"
	"npc-director/server/logging"
	"npc-director/server/logging/combat"
)

// TagBullet marks damage dealt by a firearm.
const TagBullet = "bullet"

// Config describes one firearm model.
type Config struct {
	ClipSize      int     `json:"clip_size" yaml:"clip_size" jsonschema:"minimum=1"`
	FireInterval  float64 `json:"fire_interval" yaml:"fire_interval" jsonschema:"description=Seconds between shots"`
	ReloadSeconds float64 `json:"reload_seconds" yaml:"reload_seconds"`
	Damage        float64 `json:"damage" yaml:"damage"`
	Range         float64 `json:"range" yaml:"range"`
	HoldType      int     `json:"hold_type" yaml:"hold_type"`
}

// DefaultConfig is a mid-range rifle.
func DefaultConfig() Config {
	return Config{
		ClipSize:      30,
		FireInterval:  0.1,
		ReloadSeconds: 2,
		Damage:        8,
		Range:         4096,
		HoldType:      2,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.ClipSize <= 0 {
		c.ClipSize = def.ClipSize
	}
	if c.FireInterval < 0 {
		c.FireInterval = 0
	}
	if c.ReloadSeconds < 0 {
		c.ReloadSeconds = 0
	}
	if c.Range <= 0 {
		c.Range = def.Range
	}
	return c
}

func (c Config) fireInterval() time.Duration {
	return time.Duration(c.FireInterval * float64(time.Second))
}

func (c Config) reloadDuration() time.Duration {
	return time.Duration(c.ReloadSeconds * float64(time.Second))
}

// World is what a weapon needs from the simulation: ray queries, damage
// delivery and the simulation clock.
type World interface {
	Trace(ray ai.Ray) ai.TraceResult
	ApplyDamage(target ai.ActorID, info ai.DamageInfo) error
	Resolve(id ai.ActorID) (ai.Actor, bool)
	Now() time.Time
	Tick() uint64
}

type pendingReload struct {
	ctx    context.Context
	done   chan error
	doneAt time.Time
}

// Weapon is a hitscan firearm. It is driven from the simulation goroutine
// only: shots happen inside agent ticks, reloads finish in Advance.
type Weapon struct {
	cfg      Config
	owner    ai.ActorID
	world    World
	pub      logging.Publisher
	clip     int
	lastShot time.Time
	fired    bool
	reload   *pendingReload
}

// New builds a weapon with a full clip.
func New(cfg Config, owner ai.ActorID, world World, pub logging.Publisher) *Weapon {
	cfg = cfg.normalized()
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Weapon{
		cfg:   cfg,
		owner: owner,
		world: world,
		pub:   pub,
		clip:  cfg.ClipSize,
	}
}

func (w *Weapon) Owner() ai.ActorID { return w.owner }
func (w *Weapon) Clip() int         { return w.clip }
func (w *Weapon) HoldType() int     { return w.cfg.HoldType }
func (w *Weapon) HasAmmo() bool     { return w.clip > 0 }
func (w *Weapon) Reloading() bool   { return w.reload != nil }

// CanPrimaryAttack reports whether a shot would be fired right now.
func (w *Weapon) CanPrimaryAttack() bool {
	if w.clip <= 0 || w.reload != nil {
		return false
	}
	if !w.fired {
		return true
	}
	return w.world.Now().Sub(w.lastShot) >= w.cfg.fireInterval()
}

// PrimaryAttack fires one round from the shot origin toward the aim point.
// The first actor on the line takes the weapon's damage; obstacles stop the
// round. Calls that CanPrimaryAttack would refuse are ignored.
func (w *Weapon) PrimaryAttack(shot ai.Shot) {
	if !w.CanPrimaryAttack() {
		return
	}
	w.clip--
	w.lastShot = w.world.Now()
	w.fired = true

	dir := geom.Normal(shot.Aim.Sub(shot.Origin))
	if geom.IsNearlyZero(dir) {
		dir = mgl64.Vec3{1, 0, 0}
	}
	end := shot.Origin.Add(dir.Mul(w.cfg.Range))
	shooter := shot.Shooter
	if shooter == "" {
		shooter = w.owner
	}
	hit := w.world.Trace(ai.Ray{
		From:       shot.Origin,
		To:         end,
		Ignore:     shooter,
		IgnoreTags: []string{"trigger"},
	})

	payload := combat.ShotFiredPayload{
		Hit:      hit.Hit,
		Surface:  hit.Surface,
		Distance: w.cfg.Range,
		Ammo:     w.clip,
	}
	if hit.Hit {
		payload.Distance = geom.Distance(shot.Origin, hit.Position)
	}
	var victim *logging.EntityRef
	if hit.Actor != "" {
		ref := logging.EntityRef{ID: string(hit.Actor), Kind: logging.EntityKindUnknown}
		if actor, ok := w.world.Resolve(hit.Actor); ok {
			ref.Kind = logging.EntityKind(actor.Kind().String())
		}
		err := w.world.ApplyDamage(hit.Actor, ai.DamageInfo{
			Amount:   w.cfg.Damage,
			Attacker: shooter,
			Tags:     []string{TagBullet},
		})
		if err == nil {
			payload.Damage = w.cfg.Damage
			victim = &ref
		}
	}
	combat.ShotFired(context.Background(), w.pub, w.world.Tick(), w.ref(), victim, payload)
}

// ReloadAsync starts refilling the clip. The reload completes once
// ReloadSeconds of simulation time have passed, observed through Advance.
// A reload already in flight is cancelled with context.Canceled.
func (w *Weapon) ReloadAsync(ctx context.Context) <-chan error {
	if ctx == nil {
		ctx = context.Background()
	}
	if w.reload != nil {
		w.resolve(context.Canceled)
	}
	done := make(chan error, 1)
	w.reload = &pendingReload{
		ctx:    ctx,
		done:   done,
		doneAt: w.world.Now().Add(w.cfg.reloadDuration()),
	}
	return done
}

// Advance settles a pending reload against the simulation time.
func (w *Weapon) Advance(now time.Time) {
	if w.reload == nil {
		return
	}
	if err := w.reload.ctx.Err(); err != nil {
		w.resolve(err)
		return
	}
	if now.Before(w.reload.doneAt) {
		return
	}
	w.clip = w.cfg.ClipSize
	w.resolve(nil)
}

func (w *Weapon) resolve(err error) {
	pending := w.reload
	w.reload = nil
	pending.done <- err
	close(pending.done)

	payload := combat.ReloadPayload{Ammo: w.clip}
	if err != nil {
		combat.ReloadCancelled(context.Background(), w.pub, w.world.Tick(), w.ref(), payload)
		return
	}
	combat.ReloadCompleted(context.Background(), w.pub, w.world.Tick(), w.ref(), payload)
}

func (w *Weapon) ref() logging.EntityRef {
	return logging.EntityRef{ID: string(w.owner), Kind: logging.EntityKindNPC}
}

var _ ai.Weapon = (*Weapon)(nil)
