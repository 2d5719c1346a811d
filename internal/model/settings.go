package model

// Slot identifiers. The set is fixed; users rename the display fields
// but cannot add or remove slots.
const (
	SlotMorning   = "Morning"
	SlotAfternoon = "Afternoon"
	SlotEvening   = "Evening"
)

// SlotIDs holds the slot identifiers in display order.
var SlotIDs = []string{SlotMorning, SlotAfternoon, SlotEvening}

// SlotEntry is the display configuration for one time slot.
type SlotEntry struct {
	Name     string `json:"name"`
	Subtitle string `json:"subtitle"`
}

// SlotSettings maps slot identifier to its display configuration.
type SlotSettings map[string]SlotEntry

// SlotUpdate is a partial update to a slot entry; nil fields are left
// untouched.
type SlotUpdate struct {
	Name     *string
	Subtitle *string
}

// DefaultSlotSettings returns the built-in slot configuration.
func DefaultSlotSettings() SlotSettings {
	return SlotSettings{
		SlotMorning:   {Name: "Morning", Subtitle: "10am - 2pm"},
		SlotAfternoon: {Name: "Afternoon", Subtitle: "3pm - 5pm"},
		SlotEvening:   {Name: "Evening", Subtitle: "8pm - 12pm"},
	}
}

// Clone returns a copy of the settings map.
func (s SlotSettings) Clone() SlotSettings {
	out := make(SlotSettings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
