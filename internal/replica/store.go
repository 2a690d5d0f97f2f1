package replica

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"npc-director/server/internal/ai"
	"npc-director/server/internal/sim"
)

// ErrStaleFrame is returned for frames at or before the applied tick.
var ErrStaleFrame = errors.New("replica: stale frame")

// SinkFactory supplies the animation sink of a newly seen agent.
type SinkFactory func(id ai.ActorID) ai.AnimationSink

// Store mirrors the authoritative agents as replica agents. Each applied frame
// updates the replicas and ticks them so they drive their animation sinks.
// Agents missing from a frame are dropped. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	sinks   SinkFactory
	tick    uint64
	applied bool
	agents  map[ai.ActorID]*ai.Agent
	views   map[ai.ActorID]ai.Snapshot
	players []sim.PlayerState
	dropped []ai.ActorID
}

func NewStore(sinks SinkFactory) *Store {
	return &Store{
		sinks:  sinks,
		agents: make(map[ai.ActorID]*ai.Agent),
		views:  make(map[ai.ActorID]ai.Snapshot),
	}
}

// Apply brings the store up to frame. Frames must arrive in tick order.
func (s *Store) Apply(frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applied && frame.Tick <= s.tick {
		return fmt.Errorf("%w: tick %d, have %d", ErrStaleFrame, frame.Tick, s.tick)
	}

	seen := make(map[ai.ActorID]struct{}, len(frame.Agents))
	for _, snap := range frame.Agents {
		seen[snap.ID] = struct{}{}
		agent, ok := s.agents[snap.ID]
		if !ok {
			var err error
			agent, err = s.newReplica(snap)
			if err != nil {
				return err
			}
			s.agents[snap.ID] = agent
		}
		agent.ApplyReplica(snap)
		agent.Tick(ai.TickContext{Tick: frame.Tick, Now: frame.Time})
		s.views[snap.ID] = snap
	}
	for id := range s.agents {
		if _, ok := seen[id]; ok {
			continue
		}
		delete(s.agents, id)
		delete(s.views, id)
		s.dropped = append(s.dropped, id)
	}

	s.players = append(s.players[:0], frame.Players...)
	s.tick = frame.Tick
	s.applied = true
	return nil
}

func (s *Store) newReplica(snap ai.Snapshot) (*ai.Agent, error) {
	var sink ai.AnimationSink
	if s.sinks != nil {
		sink = s.sinks(snap.ID)
	}
	agent, err := ai.NewAgent(ai.Config{
		ID:           snap.ID,
		Relationship: snap.Relationship,
		Tunables:     ai.Tunables{MaxHealth: snap.MaxHealth},
		Health:       snap.Health,
		Yaw:          snap.Yaw,
		Replica:      true,
		Animation:    sink,
	})
	if err != nil {
		return nil, fmt.Errorf("replica: build agent %s: %w", snap.ID, err)
	}
	return agent, nil
}

// Tick is the last applied frame tick.
func (s *Store) Tick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// Agent returns the replica's current view of id.
func (s *Store) Agent(id ai.ActorID) (ai.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[id]
	if !ok {
		return ai.Snapshot{}, false
	}
	return agent.Snapshot(), true
}

// Agents returns the last received snapshots sorted by ID.
func (s *Store) Agents() []ai.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ai.Snapshot, 0, len(s.views))
	for _, snap := range s.views {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Players() []sim.PlayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]sim.PlayerState(nil), s.players...)
}

// Len reports how many agents are mirrored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}

// Dropped drains the IDs of agents removed since the previous call.
func (s *Store) Dropped() []ai.ActorID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.dropped
	s.dropped = nil
	return out
}
