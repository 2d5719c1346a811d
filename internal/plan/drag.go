package plan

import (
	"github.com/nhle/weekplanner/internal/model"
)

// Position is a (day, timeSlot) grid cell.
type Position struct {
	Day  string
	Slot string
}

// Drag tracks an in-flight relocation gesture. Only one drag can be
// active at a time; a second Begin while one is in progress is ignored.
type Drag struct {
	board   *Board
	dragged *model.Task
	hover   *Position
}

// NewDrag creates a drag tracker over the given board.
func NewDrag(board *Board) *Drag {
	return &Drag{board: board}
}

// Begin records the task being dragged. No-op if a drag is already in
// progress.
func (d *Drag) Begin(task model.Task) {
	if d.dragged != nil {
		return
	}
	t := task
	d.dragged = &t
}

// Hover updates the advisory highlight target. It has no effect on data.
func (d *Drag) Hover(day, slot string) {
	d.hover = &Position{Day: day, Slot: slot}
}

// Dragging returns the task currently being dragged, if any.
func (d *Drag) Dragging() (model.Task, bool) {
	if d.dragged == nil {
		return model.Task{}, false
	}
	return *d.dragged, true
}

// HoverTarget returns the current highlight target, if any.
func (d *Drag) HoverTarget() (Position, bool) {
	if d.hover == nil {
		return Position{}, false
	}
	return *d.hover, true
}

// Drop attempts to commit the drag into (day, slot) and reports whether
// the task moved. The move is rejected silently when the target equals
// the task's current cell or is already occupied; no swap is performed.
// The drag and hover state are cleared regardless of outcome.
func (d *Drag) Drop(day, slot string) bool {
	defer d.Cancel()

	if d.dragged == nil {
		return false
	}
	t := *d.dragged
	if t.Day == day && t.TimeSlot == slot {
		return false
	}
	if _, occupied := d.board.TaskAt(day, slot); occupied {
		return false
	}

	t.Day = day
	t.TimeSlot = slot
	d.board.Update(t.ID, t)
	return true
}

// Cancel abandons the gesture and clears all drag state.
func (d *Drag) Cancel() {
	d.dragged = nil
	d.hover = nil
}
