package plan

import (
	"testing"

	"github.com/nhle/weekplanner/internal/model"
)

func TestDragDropIntoEmptyCell(t *testing.T) {
	b := NewBoard()
	task := b.Create(model.Task{
		Title:       "Gym",
		Description: "leg day",
		Day:         "Monday",
		TimeSlot:    model.SlotMorning,
	})
	d := NewDrag(b)

	d.Begin(task)
	d.Hover("Tuesday", model.SlotEvening)
	moved := d.Drop("Tuesday", model.SlotEvening)

	if !moved {
		t.Fatal("drop into empty cell should move the task")
	}
	got, _ := b.Get(task.ID)
	if got.Day != "Tuesday" || got.TimeSlot != model.SlotEvening {
		t.Errorf("task not relocated: %+v", got)
	}
	// Only day/timeSlot may change.
	if got.ID != task.ID || got.Title != task.Title ||
		got.Description != task.Description ||
		got.Completed != task.Completed || got.CreatedAt != task.CreatedAt {
		t.Errorf("drop mutated non-position fields: %+v", got)
	}
}

func TestDragDropOntoOccupiedCell(t *testing.T) {
	b := NewBoard()
	mover := b.Create(model.Task{Title: "mover", Day: "Monday", TimeSlot: model.SlotMorning})
	sitter := b.Create(model.Task{Title: "sitter", Day: "Tuesday", TimeSlot: model.SlotMorning})
	d := NewDrag(b)

	d.Begin(mover)
	moved := d.Drop("Tuesday", model.SlotMorning)

	if moved {
		t.Fatal("drop onto occupied cell must be rejected")
	}
	gotMover, _ := b.Get(mover.ID)
	gotSitter, _ := b.Get(sitter.ID)
	if gotMover.Day != "Monday" || gotMover.TimeSlot != model.SlotMorning {
		t.Errorf("rejected drop moved the dragged task: %+v", gotMover)
	}
	if gotSitter.Day != "Tuesday" || gotSitter.TimeSlot != model.SlotMorning {
		t.Errorf("rejected drop disturbed the occupant: %+v", gotSitter)
	}
}

func TestDragDropOntoOwnCell(t *testing.T) {
	b := NewBoard()
	task := b.Create(model.Task{Day: "Monday", TimeSlot: model.SlotMorning})
	d := NewDrag(b)

	d.Begin(task)
	if d.Drop("Monday", model.SlotMorning) {
		t.Error("drop onto the task's own cell should be a no-op")
	}
}

func TestDragOnlyOneAtATime(t *testing.T) {
	b := NewBoard()
	first := b.Create(model.Task{Title: "first", Day: "Monday", TimeSlot: model.SlotMorning})
	second := b.Create(model.Task{Title: "second", Day: "Tuesday", TimeSlot: model.SlotMorning})
	d := NewDrag(b)

	d.Begin(first)
	d.Begin(second) // ignored

	got, ok := d.Dragging()
	if !ok || got.ID != first.ID {
		t.Fatalf("second Begin replaced the active drag: %+v", got)
	}

	// The drop applies to the first task.
	d.Drop("Wednesday", model.SlotMorning)
	gotFirst, _ := b.Get(first.ID)
	gotSecond, _ := b.Get(second.ID)
	if gotFirst.Day != "Wednesday" {
		t.Errorf("first task should have moved: %+v", gotFirst)
	}
	if gotSecond.Day != "Tuesday" {
		t.Errorf("second task should be untouched: %+v", gotSecond)
	}
}

func TestDragStateClearedAfterDropAndCancel(t *testing.T) {
	b := NewBoard()
	task := b.Create(model.Task{Day: "Monday", TimeSlot: model.SlotMorning})
	sitter := b.Create(model.Task{Day: "Tuesday", TimeSlot: model.SlotMorning})
	_ = sitter
	d := NewDrag(b)

	// Rejected drop still clears state.
	d.Begin(task)
	d.Hover("Tuesday", model.SlotMorning)
	d.Drop("Tuesday", model.SlotMorning)
	if _, ok := d.Dragging(); ok {
		t.Error("drag state survived a rejected drop")
	}
	if _, ok := d.HoverTarget(); ok {
		t.Error("hover state survived a rejected drop")
	}

	// Cancel clears state too.
	d.Begin(task)
	d.Hover("Friday", model.SlotEvening)
	d.Cancel()
	if _, ok := d.Dragging(); ok {
		t.Error("drag state survived cancel")
	}
	if _, ok := d.HoverTarget(); ok {
		t.Error("hover state survived cancel")
	}
}

func TestDropWithoutBegin(t *testing.T) {
	b := NewBoard()
	d := NewDrag(b)

	if d.Drop("Monday", model.SlotMorning) {
		t.Error("drop without an active drag must report no move")
	}
}

func TestHoverHasNoSideEffects(t *testing.T) {
	b := NewBoard()
	task := b.Create(model.Task{Day: "Monday", TimeSlot: model.SlotMorning})
	d := NewDrag(b)

	d.Begin(task)
	d.Hover("Sunday", model.SlotEvening)

	got, _ := b.Get(task.ID)
	if got.Day != "Monday" || got.TimeSlot != model.SlotMorning {
		t.Errorf("hover moved the task: %+v", got)
	}
}
