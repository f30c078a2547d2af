package station

import (
	"fmt"

	"github.com/halvard-m/starlanes/server/internal/domain/ship"
)

// RequestDock admits a ship into a docking slot if one is free and
// reports whether it was admitted. When all slots are taken the ship is
// appended to a FIFO overflow queue and waits; the next Undock admits it.
func (st *Station) RequestDock(sh *ship.Ship) bool {
	if len(st.docked) < st.dockCapacity {
		st.docked = append(st.docked, sh)
		sh.SetDocked(st.id)
		return true
	}
	st.dockQueue = append(st.dockQueue, sh)
	return false
}

// Undock releases a docked ship. Not finding it is a consistency error:
// the docking ledger and the ship's docked reference must never diverge.
// The freed slot is handed to the first queued ship, if any; the caller
// must resume that ship's order queue.
func (st *Station) Undock(sh *ship.Ship) *ship.Ship {
	idx := -1
	for i, docked := range st.docked {
		if docked.ID() == sh.ID() {
			idx = i
			break
		}
	}
	if idx < 0 {
		panic(fmt.Sprintf("station %d: undock of ship %d which is not docked here", st.id, sh.ID()))
	}

	st.docked = append(st.docked[:idx], st.docked[idx+1:]...)
	sh.ClearDocked()

	if len(st.dockQueue) == 0 {
		return nil
	}
	next := st.dockQueue[0]
	st.dockQueue = st.dockQueue[1:]
	st.docked = append(st.docked, next)
	next.SetDocked(st.id)
	return next
}

// RemoveFromDockQueue drops a ship from the overflow queue, e.g. when it
// was destroyed while waiting. Reports whether the ship was queued here.
func (st *Station) RemoveFromDockQueue(shipID int) bool {
	for i, queued := range st.dockQueue {
		if queued.ID() == shipID {
			st.dockQueue = append(st.dockQueue[:i], st.dockQueue[i+1:]...)
			return true
		}
	}
	return false
}

// DockedCount returns the number of occupied docking slots.
func (st *Station) DockedCount() int {
	return len(st.docked)
}

// DockCapacity returns the number of docking slots.
func (st *Station) DockCapacity() int {
	return st.dockCapacity
}

// QueuedCount returns the number of ships waiting in the overflow queue.
func (st *Station) QueuedCount() int {
	return len(st.dockQueue)
}
