package mailbox

import "testing"

func TestPushPopFIFO(t *testing.T) {
	m := New(0)
	events := []Event{StopPlayback, ResetNeeded, Overload, ResetNeeded}
	for _, e := range events {
		m.Push(e)
	}
	for i, want := range events {
		got, ok := m.Pop()
		if !ok {
			t.Fatalf("Pop %d: empty, want %v", i, want)
		}
		if got != want {
			t.Errorf("Pop %d = %v, want %v", i, got, want)
		}
	}
	if _, ok := m.Pop(); ok {
		t.Error("Pop on drained mailbox returned ok")
	}
}

func TestPushDropsOnOverflow(t *testing.T) {
	m := New(MinCapacity)
	records := m.capacity / eventSize
	for i := 0; i < records; i++ {
		m.Push(ResetNeeded)
	}
	// Ring is full: this one must be dropped, not block or wrap.
	m.Push(StopPlayback)

	count := 0
	m.Drain(func(e Event) {
		if e != ResetNeeded {
			t.Errorf("drained %v, want only ResetNeeded", e)
		}
		count++
	})
	if count != records {
		t.Errorf("drained %d events, want %d", count, records)
	}
}

func TestDrainEmptiesInOrder(t *testing.T) {
	m := New(0)
	m.Push(Overload)
	m.Push(StopPlayback)

	var got []Event
	m.Drain(func(e Event) { got = append(got, e) })
	if len(got) != 2 || got[0] != Overload || got[1] != StopPlayback {
		t.Fatalf("Drain order = %v, want [Overload StopPlayback]", got)
	}
	m.Drain(func(Event) { t.Error("drain of empty mailbox invoked fn") })
}

func TestCapacityRoundsUp(t *testing.T) {
	m := New(5)
	if m.capacity < MinCapacity {
		t.Errorf("capacity = %d, want >= %d", m.capacity, MinCapacity)
	}
	if m.capacity&(m.capacity-1) != 0 {
		t.Errorf("capacity %d not a power of two", m.capacity)
	}

	big := New(MinCapacity + 1)
	if big.capacity != 2*MinCapacity {
		t.Errorf("capacity = %d, want %d", big.capacity, 2*MinCapacity)
	}
}

func TestWrapAround(t *testing.T) {
	m := New(0)
	// Cycle more records through than the ring holds so head/tail wrap.
	total := (m.capacity / eventSize) * 3
	for i := 0; i < total; i++ {
		m.Push(Event(i % 3))
		got, ok := m.Pop()
		if !ok || got != Event(i%3) {
			t.Fatalf("cycle %d: got (%v,%v), want (%v,true)", i, got, ok, Event(i%3))
		}
	}
}
