package station

import (
	"testing"
)

func TestDockCapacityAndOverflowQueue(t *testing.T) {
	st := newTestStation(1)

	var docked, queued int
	for i := 0; i < 7; i++ {
		sh := newTestShip(10+i, 100)
		if st.RequestDock(sh) {
			docked++
			if !sh.IsDocked() || sh.DockedAt() != st.ID() {
				t.Errorf("Admitted ship %d has wrong docked state", sh.ID())
			}
		} else {
			queued++
			if sh.IsDocked() {
				t.Errorf("Queued ship %d must not be marked docked", sh.ID())
			}
		}
	}

	if docked != 5 {
		t.Errorf("Expected 5 docked ships, got %d", docked)
	}
	if queued != 2 {
		t.Errorf("Expected 2 queued ships, got %d", queued)
	}
	if st.DockedCount() != 5 || st.QueuedCount() != 2 {
		t.Errorf("Ledger mismatch: %d docked, %d queued", st.DockedCount(), st.QueuedCount())
	}
}

func TestUndockAdmitsQueuedFIFO(t *testing.T) {
	st := newTestStation(1)

	first := newTestShip(10, 100)
	st.RequestDock(first)
	for i := 1; i < 5; i++ {
		st.RequestDock(newTestShip(10+i, 100))
	}

	waiterA := newTestShip(20, 100)
	waiterB := newTestShip(21, 100)
	st.RequestDock(waiterA)
	st.RequestDock(waiterB)

	admitted := st.Undock(first)
	if admitted == nil || admitted.ID() != waiterA.ID() {
		t.Fatalf("Expected first queued ship %d admitted, got %v", waiterA.ID(), admitted)
	}
	if !waiterA.IsDocked() || waiterA.DockedAt() != st.ID() {
		t.Errorf("Admitted waiter has wrong docked state")
	}
	if first.IsDocked() {
		t.Errorf("Undocked ship still marked docked")
	}
	if st.QueuedCount() != 1 {
		t.Errorf("Expected 1 ship left in queue, got %d", st.QueuedCount())
	}
}

func TestRemoveFromDockQueue(t *testing.T) {
	st := newTestStation(1)

	first := newTestShip(10, 100)
	st.RequestDock(first)
	for i := 1; i < 5; i++ {
		st.RequestDock(newTestShip(10+i, 100))
	}

	waiterA := newTestShip(20, 100)
	waiterB := newTestShip(21, 100)
	st.RequestDock(waiterA)
	st.RequestDock(waiterB)

	if !st.RemoveFromDockQueue(waiterA.ID()) {
		t.Fatalf("Expected waiter %d removed from the queue", waiterA.ID())
	}
	if st.RemoveFromDockQueue(waiterA.ID()) {
		t.Errorf("Expected second removal to report absence")
	}
	if st.QueuedCount() != 1 {
		t.Errorf("Expected 1 queued ship left, got %d", st.QueuedCount())
	}

	// The next undock admits the remaining waiter, not the removed one.
	admitted := st.Undock(first)
	if admitted == nil || admitted.ID() != waiterB.ID() {
		t.Errorf("Expected waiter %d admitted, got %v", waiterB.ID(), admitted)
	}
}

func TestUndockUnknownShipPanics(t *testing.T) {
	st := newTestStation(1)
	stranger := newTestShip(99, 100)

	defer func() {
		if recover() == nil {
			t.Errorf("Expected panic undocking a ship that is not docked")
		}
	}()
	st.Undock(stranger)
}
