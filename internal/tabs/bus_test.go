package tabs

import "testing"

func TestBusDispatchOrder(t *testing.T) {
	bus := NewBus()
	var got []int
	s1 := bus.Subscribe(func(PointerEvent) { got = append(got, 1) })
	bus.Subscribe(func(PointerEvent) { got = append(got, 2) })
	bus.Dispatch(PointerEvent{})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("calls = %v", got)
	}

	s1.Close()
	s1.Close()
	got = nil
	bus.Dispatch(PointerEvent{})
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("calls after close = %v", got)
	}
}

func TestBusHandlerMayCloseItself(t *testing.T) {
	bus := NewBus()
	calls := 0
	var sub *Subscription
	sub = bus.Subscribe(func(PointerEvent) {
		calls++
		sub.Close()
	})
	bus.Dispatch(PointerEvent{})
	bus.Dispatch(PointerEvent{})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPointerEventWithin(t *testing.T) {
	ev := PointerEvent{Path: []string{"tab-3", Region}}
	if !ev.Within(Region) {
		t.Error("expected inside")
	}
	if (PointerEvent{}).Within(Region) {
		t.Error("empty path should be outside")
	}
}
