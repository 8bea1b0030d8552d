package session

// State is a step of the booking conversation.
type State int

const (
	StateAwaitingName State = iota
	StateAwaitingAge
	StateAwaitingGender
	StateAwaitingPhone
	StateAwaitingEmail
	StateAwaitingComplaint
	StateAwaitingDoctor
	StateAwaitingDate
	StateAwaitingTime
	StateAwaitingNotes
	StateAwaitingConfirmation
	StateCompleted
	StateCancelled
)

var stateNames = map[State]string{
	StateAwaitingName:         "awaiting_name",
	StateAwaitingAge:          "awaiting_age",
	StateAwaitingGender:       "awaiting_gender",
	StateAwaitingPhone:        "awaiting_phone",
	StateAwaitingEmail:        "awaiting_email",
	StateAwaitingComplaint:    "awaiting_complaint",
	StateAwaitingDoctor:       "awaiting_doctor",
	StateAwaitingDate:         "awaiting_date",
	StateAwaitingTime:         "awaiting_time",
	StateAwaitingNotes:        "awaiting_notes",
	StateAwaitingConfirmation: "awaiting_confirmation",
	StateCompleted:            "completed",
	StateCancelled:            "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the conversation ended.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Next returns the following state in the forward flow. Terminal states and
// AwaitingConfirmation return themselves; leaving confirmation depends on the
// commit outcome.
func (s State) Next() State {
	if s >= StateAwaitingConfirmation {
		return s
	}
	return s + 1
}
