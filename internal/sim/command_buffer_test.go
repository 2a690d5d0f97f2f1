package sim

import "testing"

func TestCommandBufferWraparound(t *testing.T) {
	buffer := NewCommandBuffer(3, nil)
	cmds := []Command{
		{ActorID: "a"},
		{ActorID: "b"},
		{ActorID: "c"},
	}
	for _, cmd := range cmds {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed for %+v", cmd)
		}
	}
	if buffer.Push(Command{ActorID: "overflow"}) {
		t.Fatalf("expected push to fail when buffer full")
	}
	drained := buffer.Drain()
	if len(drained) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(drained))
	}
	for i, cmd := range drained {
		if cmd.ActorID != cmds[i].ActorID {
			t.Fatalf("expected drain order %v, got %v", cmds[i].ActorID, cmd.ActorID)
		}
	}
	// Push again to ensure the indices wrap correctly.
	for _, cmd := range []Command{{ActorID: "d"}, {ActorID: "e"}} {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed after drain for %+v", cmd)
		}
	}
	wrapped := buffer.Drain()
	if len(wrapped) != 2 {
		t.Fatalf("expected 2 commands after wraparound, got %d", len(wrapped))
	}
	if wrapped[0].ActorID != "d" || wrapped[1].ActorID != "e" {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
}

func TestCommandBufferOverflow(t *testing.T) {
	buffer := NewCommandBuffer(1, nil)
	if !buffer.Push(Command{ActorID: "one"}) {
		t.Fatalf("expected initial push to succeed")
	}
	if buffer.Push(Command{ActorID: "two"}) {
		t.Fatalf("expected push to fail when capacity exceeded")
	}
	drained := buffer.Drain()
	if len(drained) != 1 || drained[0].ActorID != "one" {
		t.Fatalf("unexpected drained commands: %+v", drained)
	}
}

type recordingMetrics struct {
	added  map[string]uint64
	stored map[string]uint64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{added: make(map[string]uint64), stored: make(map[string]uint64)}
}

func (m *recordingMetrics) Add(key string, delta uint64)   { m.added[key] += delta }
func (m *recordingMetrics) Store(key string, value uint64) { m.stored[key] = value }

func TestCommandBufferReportsOccupancyAndOverflow(t *testing.T) {
	metrics := newRecordingMetrics()
	buffer := NewCommandBuffer(2, metrics)
	buffer.Push(Command{ActorID: "a", Type: CommandDamage})
	buffer.Push(Command{ActorID: "b", Type: CommandScare})
	if got := metrics.stored[commandBufferOccupancyMetricKey]; got != 2 {
		t.Fatalf("expected occupancy 2, got %d", got)
	}
	if buffer.Push(Command{ActorID: "c"}) {
		t.Fatalf("expected push to fail on a full buffer")
	}
	if got := metrics.added[commandBufferOverflowMetricKey]; got != 1 {
		t.Fatalf("expected one overflow, got %d", got)
	}
	buffer.Drain()
	if got := metrics.stored[commandBufferOccupancyMetricKey]; got != 0 {
		t.Fatalf("expected occupancy reset after drain, got %d", got)
	}
}
