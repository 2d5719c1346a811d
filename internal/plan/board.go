// Package plan holds the in-memory planner state: the ordered task
// collection, the slot display settings, and the drag gesture tracker.
// The board is pure data; persistence and sync live elsewhere and the
// board never talks to them directly.
package plan

import (
	"github.com/nhle/weekplanner/internal/model"
)

// Board is the ordered in-memory task collection. Order is append order
// and carries no meaning beyond stable iteration for rendering.
//
// Invariant: at most one task occupies a given (day, timeSlot) pair.
// The board does not enforce this; placements must go through Drag.Drop
// (or an equivalent TaskAt check) before calling Create or Update.
type Board struct {
	tasks []model.Task
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{}
}

// Create fills in defaults for the missing fields of partial, appends
// the result, and returns it. It always succeeds.
func (b *Board) Create(partial model.Task) model.Task {
	t := partial
	if t.ID == "" {
		t.ID = model.NewTaskID()
	}
	if t.Title == "" {
		t.Title = "New Task"
	}
	if t.CreatedAt == "" {
		t.CreatedAt = model.Now()
	}
	b.tasks = append(b.tasks, t)
	return t
}

// Update replaces the task matching id wholesale. Unknown ids are a
// silent no-op.
func (b *Board) Update(id string, task model.Task) {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			b.tasks[i] = task
			return
		}
	}
}

// Delete removes the task matching id. Unknown ids are a silent no-op.
func (b *Board) Delete(id string) {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
			return
		}
	}
}

// ClearAll empties the board.
func (b *Board) ClearAll() {
	b.tasks = nil
}

// Get returns the task with the given id.
func (b *Board) Get(id string) (model.Task, bool) {
	for _, t := range b.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// TaskAt returns the task occupying (day, slot), if any.
func (b *Board) TaskAt(day, slot string) (model.Task, bool) {
	if day == "" || slot == "" {
		return model.Task{}, false
	}
	for _, t := range b.tasks {
		if t.Day == day && t.TimeSlot == slot {
			return t, true
		}
	}
	return model.Task{}, false
}

// Len returns the number of tasks on the board.
func (b *Board) Len() int {
	return len(b.tasks)
}

// Snapshot returns a copy of the task list for persistence or rendering.
func (b *Board) Snapshot() []model.Task {
	out := make([]model.Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// Replace hydrates the board wholesale from a loaded snapshot.
func (b *Board) Replace(tasks []model.Task) {
	b.tasks = make([]model.Task, len(tasks))
	copy(b.tasks, tasks)
}

// Stats summarizes completion state for the stats line.
type Stats struct {
	Total     int
	Completed int
}

// Stats returns the board's completion summary.
func (b *Board) Stats() Stats {
	s := Stats{Total: len(b.tasks)}
	for _, t := range b.tasks {
		if t.Completed {
			s.Completed++
		}
	}
	return s
}

// Slots is the slot display configuration store.
type Slots struct {
	settings model.SlotSettings
}

// NewSlots creates a slot store with the built-in defaults.
func NewSlots() *Slots {
	return &Slots{settings: model.DefaultSlotSettings()}
}

// Update merges the non-nil fields of upd into the entry for slotID.
// Unknown slot ids are a silent no-op; entries are never deleted.
func (s *Slots) Update(slotID string, upd model.SlotUpdate) {
	entry, ok := s.settings[slotID]
	if !ok {
		return
	}
	if upd.Name != nil {
		entry.Name = *upd.Name
	}
	if upd.Subtitle != nil {
		entry.Subtitle = *upd.Subtitle
	}
	s.settings[slotID] = entry
}

// Get returns the entry for slotID, falling back to the default entry
// for ids missing from a partially hydrated snapshot.
func (s *Slots) Get(slotID string) model.SlotEntry {
	if entry, ok := s.settings[slotID]; ok {
		return entry
	}
	return model.DefaultSlotSettings()[slotID]
}

// Snapshot returns a copy of the settings for persistence.
func (s *Slots) Snapshot() model.SlotSettings {
	return s.settings.Clone()
}

// Replace hydrates the settings wholesale from a loaded snapshot.
func (s *Slots) Replace(settings model.SlotSettings) {
	s.settings = settings.Clone()
}
