package model

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Weekdays holds the planner's day labels in display order.
var Weekdays = []string{
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
	"Sunday",
}

// Task is a single planner entry. Day and TimeSlot are empty for a task
// that has not been placed on the grid yet.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Day         string `json:"day,omitempty"`
	TimeSlot    string `json:"timeSlot,omitempty"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"createdAt"`
}

// NewTaskID returns a fresh unique task identifier.
func NewTaskID() string {
	return uuid.New().String()
}

// Now returns the creation timestamp format used for tasks.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// UnmarshalJSON accepts both string and numeric ids. Earlier releases
// assigned millisecond-epoch numbers as ids; they are normalized to their
// decimal string form so the rest of the code only sees strings.
func (t *Task) UnmarshalJSON(data []byte) error {
	type alias Task
	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{alias: (*alias)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.ID) > 0 {
		var s string
		if err := json.Unmarshal(aux.ID, &s); err == nil {
			t.ID = s
		} else {
			var n int64
			if err := json.Unmarshal(aux.ID, &n); err != nil {
				return err
			}
			t.ID = strconv.FormatInt(n, 10)
		}
	}

	return nil
}

// SampleTasks returns the demo task set shown on first run and behind
// the "load sample" action.
func SampleTasks() []Task {
	return []Task{
		{
			ID:          NewTaskID(),
			Title:       "Team Meeting",
			Description: "Weekly team sync and project updates",
			Day:         "Monday",
			TimeSlot:    SlotMorning,
			CreatedAt:   Now(),
		},
		{
			ID:          NewTaskID(),
			Title:       "Project Review",
			Description: "Review current project status and next steps",
			Day:         "Tuesday",
			TimeSlot:    SlotAfternoon,
			CreatedAt:   Now(),
		},
		{
			ID:          NewTaskID(),
			Title:       "Client Call",
			Description: "Discuss requirements with the client",
			Day:         "Wednesday",
			TimeSlot:    SlotMorning,
			Completed:   true,
			CreatedAt:   Now(),
		},
		{
			ID:          NewTaskID(),
			Title:       "Code Review",
			Description: "Review pull requests and provide feedback",
			Day:         "Thursday",
			TimeSlot:    SlotAfternoon,
			CreatedAt:   Now(),
		},
		{
			ID:          NewTaskID(),
			Title:       "Weekend Planning",
			Description: "Plan activities for the weekend",
			Day:         "Friday",
			TimeSlot:    SlotEvening,
			CreatedAt:   Now(),
		},
	}
}
