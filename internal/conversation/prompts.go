package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/internal/catalog"
	"github.com/wolfman30/clinic-appointment-bot/internal/session"
)

// ClinicContact is the practice information shown by /contact.
type ClinicContact struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Website string
	Hours   string
}

func (c ClinicContact) withDefaults() ClinicContact {
	if c.Name == "" {
		c.Name = "City Clinic"
	}
	return c
}

func (c ClinicContact) card(lang Language) string {
	lines := []string{say(lang, msgContact), c.Name}
	if c.Address != "" {
		lines = append(lines, c.Address)
	}
	for _, field := range [][2]string{
		{say(lang, labelPhone), c.Phone},
		{say(lang, labelEmail), c.Email},
		{"Web", c.Website},
		{say(lang, labelHours), c.Hours},
	} {
		if field[1] != "" {
			lines = append(lines, field[0]+": "+field[1])
		}
	}
	return strings.Join(lines, "\n")
}

// localGenderOptions are the gender keyboards outside English. ValidateGender
// accepts every label.
var localGenderOptions = map[Language][]string{
	LangSpanish: {"Masculino", "Femenino", "Otro"},
	LangFrench:  {"Masculin", "Féminin", "Autre"},
	LangHindi:   {"पुरुष", "महिला", "अन्य"},
}

func genderOptions(lang Language) []string {
	if options, ok := localGenderOptions[lang]; ok {
		return options
	}
	return GenderOptions
}

func languageOptions() []string {
	options := make([]string, 0, len(Languages))
	for _, l := range Languages {
		options = append(options, "/language "+string(l))
	}
	return options
}

func languageMenu(lang Language) string {
	lines := []string{say(lang, msgLanguageMenu)}
	for _, l := range Languages {
		lines = append(lines, fmt.Sprintf("/language %s - %s", l, l.Name()))
	}
	return strings.Join(lines, "\n")
}

func doctorList(c *catalog.Catalog, lang Language) (string, []string) {
	doctors := c.ListDoctors()
	lines := make([]string, 0, len(doctors)+1)
	options := make([]string, 0, len(doctors))
	lines = append(lines, say(lang, msgDoctorsHeading))
	for _, d := range doctors {
		lines = append(lines, fmt.Sprintf("%s\n   %s: %s", d.Label(), say(lang, msgDoctorDays), doctorDays(d, lang)))
		options = append(options, d.Label())
	}
	return strings.Join(lines, "\n"), options
}

func doctorDays(d catalog.Doctor, lang Language) string {
	days := make([]string, 0, len(d.Days))
	for _, wd := range d.Days {
		days = append(days, weekdayName(lang, wd))
	}
	return strings.Join(days, ", ")
}

// dateLabel renders "2025-08-20 (Wednesday)". ParseDate accepts it back in
// either language.
func dateLabel(date string, lang Language) string {
	t, err := catalog.ParseDate(date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s (%s)", date, weekdayName(lang, t.Weekday()))
}

func summary(req bookings.AppointmentRequest, lang Language) string {
	notes := req.Patient.Notes
	if notes == "" {
		notes = say(lang, labelNone)
	}
	row := func(key msgKey, value string) string {
		return say(lang, key) + ": " + value
	}
	return strings.Join([]string{
		say(lang, msgReviewHeading),
		row(labelPatient, req.Patient.Name),
		row(labelAge, fmt.Sprint(req.Patient.Age)),
		row(labelGender, req.Patient.Gender),
		row(labelPhone, req.Patient.Phone),
		row(labelEmail, req.Patient.Email),
		row(labelComplaint, req.Patient.Complaint),
		row(labelDoctor, fmt.Sprintf("%s (%s)", req.Doctor.Name, req.Doctor.Specialty)),
		row(labelDate, dateLabel(req.Slot.Date, lang)),
		row(labelTime, req.Slot.Time),
		row(labelFee, req.Doctor.Fee),
		row(labelNotes, notes),
		"",
		say(lang, msgReviewFooter),
	}, "\n")
}

func bookedText(b *bookings.Booking, lang Language) string {
	return strings.Join([]string{
		say(lang, msgBookedHeading),
		say(lang, labelID) + ": " + b.ID,
		say(lang, labelDoctor) + fmt.Sprintf(": %s (%s)", b.DoctorName, b.Specialty),
		say(lang, labelDate) + ": " + dateLabel(b.Slot.Date, lang),
		say(lang, labelTime) + ": " + b.Slot.Time,
		say(lang, labelFee) + ": " + b.Fee,
		"",
		say(lang, msgBookedFooter, b.Patient.Email),
	}, "\n")
}

func holdText(lang Language, label string, grace time.Duration) string {
	return say(lang, msgHolding, label, humanDuration(lang, grace))
}

var minuteUnits = map[Language][2]string{
	LangEnglish: {"minute", "minutes"},
	LangSpanish: {"minuto", "minutos"},
	LangFrench:  {"minute", "minutes"},
	LangHindi:   {"मिनट", "मिनट"},
}

func humanDuration(lang Language, d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		mins := int(d / time.Minute)
		units, ok := minuteUnits[lang]
		if !ok {
			units = minuteUnits[defaultLanguage]
		}
		if mins == 1 {
			return "1 " + units[0]
		}
		return fmt.Sprintf("%d %s", mins, units[1])
	}
	return d.String()
}

func confirmationOptions(lang Language) []string {
	return []string{say(lang, optionConfirm), say(lang, optionChange), say(lang, optionCancel)}
}

// prompt renders the question for the session's current state.
func (m *Machine) prompt(s *session.Session) (string, []string) {
	req := s.Request
	lang := languageOf(s.Language)
	switch s.State {
	case session.StateAwaitingName:
		return say(lang, msgAskName), nil
	case session.StateAwaitingAge:
		return say(lang, msgAskAge, req.Patient.Name), nil
	case session.StateAwaitingGender:
		return say(lang, msgAskGender), genderOptions(lang)
	case session.StateAwaitingPhone:
		return say(lang, msgAskPhone), nil
	case session.StateAwaitingEmail:
		return say(lang, msgAskEmail), nil
	case session.StateAwaitingComplaint:
		return say(lang, msgAskComplaint), nil
	case session.StateAwaitingDoctor:
		list, options := doctorList(m.catalog, lang)
		return list + "\n\n" + say(lang, msgAskDoctor), options
	case session.StateAwaitingDate:
		dates, _ := m.catalog.WorkingDates(req.Doctor.ID, m.today(), m.dateWindow, m.dateWindow)
		options := make([]string, 0, len(dates))
		for _, d := range dates {
			options = append(options, dateLabel(d, lang))
		}
		return say(lang, msgAskDate, req.Doctor.Name), options
	case session.StateAwaitingTime:
		return say(lang, msgAskTime, req.Doctor.Name, dateLabel(req.Slot.Date, lang), numbered(s.OfferedSlots)), s.OfferedSlots
	case session.StateAwaitingNotes:
		return say(lang, msgAskNotes), []string{say(lang, labelNone)}
	case session.StateAwaitingConfirmation:
		return summary(req, lang), confirmationOptions(lang)
	case session.StateCompleted:
		return say(lang, msgCompleted), nil
	default:
		return say(lang, msgCancelled), nil
	}
}

func numbered(items []string) string {
	lines := make([]string, 0, len(items))
	for i, item := range items {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
	}
	return strings.Join(lines, "\n")
}
