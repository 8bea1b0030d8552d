package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrDoctorNotFound = errors.New("catalog: doctor not found")
	ErrInvalidDate    = errors.New("catalog: invalid date")
	ErrInvalidCatalog = errors.New("catalog: invalid catalog")
)

const (
	// DateLayout is the canonical calendar date format used in slot keys.
	DateLayout = "2006-01-02"
	// SlotLayout is the canonical slot label format, e.g. "10:00 AM".
	SlotLayout = "03:04 PM"
)

// Doctor is one bookable practitioner and their weekly slot template.
type Doctor struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Specialty string         `json:"specialty"`
	Fee       string         `json:"fee"`
	Days      []time.Weekday `json:"-"`
	Slots     []string       `json:"slots"`
}

// WorksOn reports whether the doctor holds clinic hours on the weekday.
func (d Doctor) WorksOn(day time.Weekday) bool {
	for _, wd := range d.Days {
		if wd == day {
			return true
		}
	}
	return false
}

// DayNames returns the working days in week order.
func (d Doctor) DayNames() []string {
	names := make([]string, 0, len(d.Days))
	for _, wd := range d.Days {
		names = append(names, wd.String())
	}
	return names
}

// Label is the one-line description shown in doctor selection lists.
func (d Doctor) Label() string {
	return fmt.Sprintf("%s. %s - %s (%s)", d.ID, d.Name, d.Specialty, d.Fee)
}

func (d Doctor) clone() Doctor {
	out := d
	out.Days = append([]time.Weekday(nil), d.Days...)
	out.Slots = append([]string(nil), d.Slots...)
	return out
}

// Catalog is the read-only set of doctors and slot templates.
type Catalog struct {
	doctors []Doctor
	byID    map[string]int
	loc     *time.Location
}

// New validates the doctors and builds a catalog in the given order.
func New(doctors []Doctor) (*Catalog, error) {
	if len(doctors) == 0 {
		return nil, fmt.Errorf("%w: no doctors configured", ErrInvalidCatalog)
	}
	c := &Catalog{
		doctors: make([]Doctor, 0, len(doctors)),
		byID:    make(map[string]int, len(doctors)),
		loc:     time.UTC,
	}
	for _, d := range doctors {
		d.ID = strings.TrimSpace(d.ID)
		d.Name = strings.TrimSpace(d.Name)
		if d.ID == "" || d.Name == "" {
			return nil, fmt.Errorf("%w: doctor id and name are required", ErrInvalidCatalog)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate doctor id %q", ErrInvalidCatalog, d.ID)
		}
		if len(d.Days) == 0 {
			return nil, fmt.Errorf("%w: doctor %s has no working days", ErrInvalidCatalog, d.ID)
		}
		if len(d.Slots) == 0 {
			return nil, fmt.Errorf("%w: doctor %s has no slots", ErrInvalidCatalog, d.ID)
		}

		labels := make([]string, 0, len(d.Slots))
		seen := make(map[string]struct{}, len(d.Slots))
		for _, raw := range d.Slots {
			label, ok := CanonicalSlotLabel(raw)
			if !ok {
				return nil, fmt.Errorf("%w: doctor %s slot %q", ErrInvalidCatalog, d.ID, raw)
			}
			if _, dup := seen[label]; dup {
				continue
			}
			seen[label] = struct{}{}
			labels = append(labels, label)
		}
		sort.SliceStable(labels, func(i, j int) bool {
			return slotMinutes(labels[i]) < slotMinutes(labels[j])
		})
		d.Slots = labels

		days := append([]time.Weekday(nil), d.Days...)
		sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
		d.Days = days

		c.byID[d.ID] = len(c.doctors)
		c.doctors = append(c.doctors, d)
	}
	return c, nil
}

// WithLocation returns the catalog bound to the clinic timezone.
func (c *Catalog) WithLocation(loc *time.Location) *Catalog {
	if loc == nil {
		loc = time.UTC
	}
	out := *c
	out.loc = loc
	return &out
}

// Location is the clinic timezone; slot dates and labels are wall-clock in it.
func (c *Catalog) Location() *time.Location {
	return c.loc
}

// ListDoctors returns every doctor in catalog order.
func (c *Catalog) ListDoctors() []Doctor {
	out := make([]Doctor, 0, len(c.doctors))
	for _, d := range c.doctors {
		out = append(out, d.clone())
	}
	return out
}

// Doctor looks a doctor up by id.
func (c *Catalog) Doctor(id string) (Doctor, error) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Doctor{}, fmt.Errorf("%w: %s", ErrDoctorNotFound, id)
	}
	return c.doctors[idx].clone(), nil
}

// SlotTemplate returns the ordered slot labels for the doctor on date
// (YYYY-MM-DD). The result is empty when the doctor does not work that day.
func (c *Catalog) SlotTemplate(doctorID, date string) ([]string, error) {
	d, err := c.Doctor(doctorID)
	if err != nil {
		return nil, err
	}
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	if !d.WorksOn(day.Weekday()) {
		return []string{}, nil
	}
	return d.Slots, nil
}

// WorkingDates lists up to limit dates from start (inclusive) on which the
// doctor works, scanning at most days calendar days.
func (c *Catalog) WorkingDates(doctorID string, start time.Time, days, limit int) ([]string, error) {
	d, err := c.Doctor(doctorID)
	if err != nil {
		return nil, err
	}
	y, m, dd := start.Date()
	day := time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
	var out []string
	for i := 0; i < days && len(out) < limit; i++ {
		candidate := day.AddDate(0, 0, i)
		if d.WorksOn(candidate.Weekday()) {
			out = append(out, candidate.Format(DateLayout))
		}
	}
	return out, nil
}

// FindDoctor resolves free-text doctor choices: an id ("2"), a keyboard label
// ("2. Dr. Mark Johnson - Cardiology ($80)"), or a name.
func (c *Catalog) FindDoctor(input string) (Doctor, bool) {
	text := strings.TrimSpace(input)
	if text == "" {
		return Doctor{}, false
	}
	if d, err := c.Doctor(text); err == nil {
		return d, true
	}
	if idx := strings.IndexAny(text, ".)"); idx > 0 {
		if d, err := c.Doctor(text[:idx]); err == nil {
			return d, true
		}
	}

	needle := normalizeName(text)
	if needle == "" {
		return Doctor{}, false
	}
	var partial []Doctor
	for _, d := range c.doctors {
		name := normalizeName(d.Name)
		if name == needle {
			return d.clone(), true
		}
		if len(needle) >= 3 && strings.Contains(name, needle) {
			partial = append(partial, d)
		}
	}
	if len(partial) == 1 {
		return partial[0].clone(), true
	}
	return Doctor{}, false
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "dr.")
	s = strings.TrimPrefix(s, "dr ")
	return strings.Join(strings.Fields(s), " ")
}

// ParseDate parses a canonical YYYY-MM-DD date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t, nil
}

var slotInputLayouts = []string{
	"03:04 PM",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
	"15:04",
}

// CanonicalSlotLabel normalises "10:00 am", "10am", "10 AM" or "14:00" into
// the "03:04 PM" form used by slot templates.
func CanonicalSlotLabel(input string) (string, bool) {
	text := strings.ToUpper(strings.Join(strings.Fields(input), " "))
	text = strings.ReplaceAll(text, ".", "")
	if text == "" {
		return "", false
	}
	for _, layout := range slotInputLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format(SlotLayout), true
		}
	}
	return "", false
}

// SlotStart combines a date and a slot label into a wall-clock instant in loc.
func SlotStart(date, label string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout+" "+SlotLayout, date+" "+label, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("catalog: parse slot %s %s: %w", date, label, err)
	}
	return t, nil
}

func slotMinutes(label string) int {
	t, err := time.Parse(SlotLayout, label)
	if err != nil {
		return 0
	}
	return t.Hour()*60 + t.Minute()
}
