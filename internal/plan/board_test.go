package plan

import (
	"testing"

	"github.com/nhle/weekplanner/internal/model"
)

func TestBoardCreateDefaults(t *testing.T) {
	b := NewBoard()

	got := b.Create(model.Task{Day: "Monday", TimeSlot: model.SlotMorning})

	if got.ID == "" {
		t.Error("expected a generated id")
	}
	if got.Title != "New Task" {
		t.Errorf("expected placeholder title, got %q", got.Title)
	}
	if got.Completed {
		t.Error("new tasks must not be completed")
	}
	if got.CreatedAt == "" {
		t.Error("expected createdAt to be set")
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 task, got %d", b.Len())
	}
}

func TestBoardCreateKeepsProvidedFields(t *testing.T) {
	b := NewBoard()

	got := b.Create(model.Task{
		ID:        "fixed",
		Title:     "Gym",
		CreatedAt: "2025-09-08T09:00:00Z",
	})

	if got.ID != "fixed" || got.Title != "Gym" || got.CreatedAt != "2025-09-08T09:00:00Z" {
		t.Errorf("provided fields were overwritten: %+v", got)
	}
}

func TestBoardUpdate(t *testing.T) {
	b := NewBoard()
	created := b.Create(model.Task{Title: "Gym"})

	t.Run("replaces wholesale", func(t *testing.T) {
		updated := created
		updated.Title = "Gym session"
		updated.Completed = true
		b.Update(created.ID, updated)

		got, ok := b.Get(created.ID)
		if !ok {
			t.Fatal("task disappeared after update")
		}
		if got.Title != "Gym session" || !got.Completed {
			t.Errorf("update not applied: %+v", got)
		}
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		before := b.Snapshot()
		b.Update("missing", model.Task{ID: "missing", Title: "ghost"})
		after := b.Snapshot()

		if len(after) != len(before) {
			t.Fatalf("no-op update changed length: %d -> %d", len(before), len(after))
		}
		for i := range before {
			if before[i] != after[i] {
				t.Errorf("no-op update changed task %d: %+v -> %+v", i, before[i], after[i])
			}
		}
	})
}

func TestBoardDelete(t *testing.T) {
	b := NewBoard()
	first := b.Create(model.Task{Title: "a"})
	second := b.Create(model.Task{Title: "b"})

	b.Delete(first.ID)
	if b.Len() != 1 {
		t.Fatalf("expected 1 task after delete, got %d", b.Len())
	}
	if _, ok := b.Get(second.ID); !ok {
		t.Error("wrong task deleted")
	}

	// Unknown id is a no-op.
	b.Delete("missing")
	if b.Len() != 1 {
		t.Errorf("no-op delete changed length to %d", b.Len())
	}
}

func TestBoardClearAll(t *testing.T) {
	b := NewBoard()
	b.Replace(model.SampleTasks())

	b.ClearAll()

	if b.Len() != 0 {
		t.Fatalf("expected empty board, got %d tasks", b.Len())
	}
	if snap := b.Snapshot(); len(snap) != 0 {
		t.Errorf("snapshot after clear has %d tasks", len(snap))
	}
}

func TestBoardTaskAt(t *testing.T) {
	b := NewBoard()
	placed := b.Create(model.Task{Title: "standup", Day: "Monday", TimeSlot: model.SlotMorning})
	b.Create(model.Task{Title: "backlog"}) // unplaced

	got, ok := b.TaskAt("Monday", model.SlotMorning)
	if !ok || got.ID != placed.ID {
		t.Fatalf("expected %s at Monday/Morning, got %+v ok=%v", placed.ID, got, ok)
	}

	if _, ok := b.TaskAt("Monday", model.SlotEvening); ok {
		t.Error("empty cell reported occupied")
	}

	// Unplaced tasks must never match the empty pair.
	if _, ok := b.TaskAt("", ""); ok {
		t.Error("unplaced task matched the empty (day, slot) pair")
	}
}

func TestBoardSnapshotIsACopy(t *testing.T) {
	b := NewBoard()
	created := b.Create(model.Task{Title: "a"})

	snap := b.Snapshot()
	snap[0].Title = "mutated"

	got, _ := b.Get(created.ID)
	if got.Title != "a" {
		t.Error("mutating the snapshot leaked into the board")
	}
}

func TestBoardUniqueOccupancyThroughDrops(t *testing.T) {
	// Property: any sequence of create/update/delete where placements go
	// through the drop check never yields two tasks in one cell.
	b := NewBoard()
	d := NewDrag(b)

	var tasks []model.Task
	for i := 0; i < 6; i++ {
		tasks = append(tasks, b.Create(model.Task{}))
	}

	targets := []Position{
		{"Monday", model.SlotMorning},
		{"Monday", model.SlotMorning}, // collision attempt
		{"Monday", model.SlotAfternoon},
		{"Tuesday", model.SlotMorning},
		{"Tuesday", model.SlotMorning}, // collision attempt
		{"Friday", model.SlotEvening},
	}
	for i, pos := range targets {
		d.Begin(tasks[i])
		d.Drop(pos.Day, pos.Slot)
	}

	seen := make(map[Position]string)
	for _, tk := range b.Snapshot() {
		if tk.Day == "" || tk.TimeSlot == "" {
			continue
		}
		pos := Position{tk.Day, tk.TimeSlot}
		if other, dup := seen[pos]; dup {
			t.Fatalf("cell %v occupied by both %s and %s", pos, other, tk.ID)
		}
		seen[pos] = tk.ID
	}
}

func TestSlotsUpdateMerges(t *testing.T) {
	s := NewSlots()

	name := "Early"
	s.Update(model.SlotMorning, model.SlotUpdate{Name: &name})

	got := s.Get(model.SlotMorning)
	if got.Name != "Early" {
		t.Errorf("name not updated: %+v", got)
	}
	if got.Subtitle != "10am - 2pm" {
		t.Errorf("partial update clobbered subtitle: %+v", got)
	}

	sub := "6am - 9am"
	s.Update(model.SlotMorning, model.SlotUpdate{Subtitle: &sub})
	got = s.Get(model.SlotMorning)
	if got.Name != "Early" || got.Subtitle != "6am - 9am" {
		t.Errorf("merge lost a field: %+v", got)
	}

	// Unknown slot ids are a no-op, never an insert.
	s.Update("Night", model.SlotUpdate{Name: &name})
	if len(s.Snapshot()) != len(model.SlotIDs) {
		t.Error("update on unknown slot id inserted an entry")
	}
}

func TestSlotsReplaceAndDefaultFallback(t *testing.T) {
	s := NewSlots()
	s.Replace(model.SlotSettings{
		model.SlotMorning: {Name: "AM", Subtitle: "early"},
	})

	if got := s.Get(model.SlotMorning); got.Name != "AM" {
		t.Errorf("replace not applied: %+v", got)
	}
	// Entries missing from the snapshot fall back to defaults.
	if got := s.Get(model.SlotEvening); got.Name != "Evening" {
		t.Errorf("expected default for missing entry, got %+v", got)
	}
}

func TestBoardStats(t *testing.T) {
	b := NewBoard()
	b.Replace(model.SampleTasks())

	s := b.Stats()
	if s.Total != 5 || s.Completed != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
}
