package catalog

import "time"

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// DefaultDoctors is the clinic roster used when no catalog document is configured.
func DefaultDoctors() []Doctor {
	return []Doctor{
		{
			ID:        "1",
			Name:      "Dr. Sarah Smith",
			Specialty: "General Medicine",
			Fee:       "$50",
			Days:      weekdays,
			Slots:     []string{"09:00 AM", "10:00 AM", "11:00 AM", "02:00 PM", "03:00 PM", "04:00 PM"},
		},
		{
			ID:        "2",
			Name:      "Dr. Mark Johnson",
			Specialty: "Cardiology",
			Fee:       "$80",
			Days:      weekdays,
			Slots:     []string{"10:00 AM", "11:00 AM", "02:00 PM", "03:00 PM"},
		},
		{
			ID:        "3",
			Name:      "Dr. Emily Davis",
			Specialty: "Dermatology",
			Fee:       "$70",
			Days:      weekdays,
			Slots:     []string{"09:00 AM", "11:00 AM", "03:00 PM", "04:00 PM"},
		},
		{
			ID:        "4",
			Name:      "Dr. Robert Wilson",
			Specialty: "Orthopedics",
			Fee:       "$90",
			Days:      []time.Weekday{time.Tuesday, time.Thursday, time.Friday},
			Slots:     []string{"10:00 AM", "11:00 AM", "02:00 PM", "03:00 PM"},
		},
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(DefaultDoctors())
	if err != nil {
		panic(err)
	}
	return c
}
