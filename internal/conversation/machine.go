package conversation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/wolfman30/clinic-appointment-bot/internal/availability"
	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/internal/catalog"
	"github.com/wolfman30/clinic-appointment-bot/internal/clock"
	"github.com/wolfman30/clinic-appointment-bot/internal/session"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// ReplyKind tells the transport what happened to the user's input.
type ReplyKind string

const (
	ReplyPrompt          ReplyKind = "prompt"
	ReplyValidationError ReplyKind = "validation_error"
	ReplyAlreadyTaken    ReplyKind = "already_taken"
	ReplySlotRestart     ReplyKind = "slot_restart"
	ReplyBooked          ReplyKind = "booked"
	ReplyCancelled       ReplyKind = "cancelled"
	ReplyCommitFailed    ReplyKind = "commit_failed"
)

// Reply is the bot's answer to one message.
type Reply struct {
	Kind     ReplyKind         `json:"kind"`
	State    session.State     `json:"state"`
	Messages []string          `json:"messages"`
	Options  []string          `json:"options,omitempty"`
	Err      error             `json:"-"`
	Booking  *bookings.Booking `json:"booking,omitempty"`
}

// Text joins the reply messages for transports that send a single message.
func (r Reply) Text() string {
	return strings.Join(r.Messages, "\n\n")
}

// Committer persists a confirmed request. *bookings.Pipeline satisfies it.
type Committer interface {
	Commit(ctx context.Context, req bookings.AppointmentRequest, tok availability.Token) (*bookings.Booking, error)
}

// MachineOption customises a Machine.
type MachineOption func(*Machine)

// WithDateWindow sets how many calendar days ahead the date step offers.
func WithDateWindow(days int) MachineOption {
	return func(m *Machine) {
		if days > 0 {
			m.dateWindow = days
		}
	}
}

// WithClinicContact sets the details shown by /contact and the greeting.
func WithClinicContact(c ClinicContact) MachineOption {
	return func(m *Machine) {
		m.contact = c.withDefaults()
	}
}

// WithMachineLogger sets the logger.
func WithMachineLogger(logger *logging.Logger) MachineOption {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Machine drives a session one input at a time. It holds no per-user state;
// callers serialize access to each session.
type Machine struct {
	catalog    *catalog.Catalog
	engine     *availability.Engine
	committer  Committer
	clock      clock.Clock
	logger     *logging.Logger
	contact    ClinicContact
	dateWindow int
}

// NewMachine wires the state machine to the catalog, the slot engine and the
// booking pipeline.
func NewMachine(cat *catalog.Catalog, engine *availability.Engine, committer Committer, clk clock.Clock, opts ...MachineOption) *Machine {
	if cat == nil {
		panic("conversation: catalog cannot be nil")
	}
	if engine == nil {
		panic("conversation: engine cannot be nil")
	}
	if committer == nil {
		panic("conversation: committer cannot be nil")
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	m := &Machine{
		catalog:    cat,
		engine:     engine,
		committer:  committer,
		clock:      clk,
		logger:     logging.Default(),
		contact:    ClinicContact{}.withDefaults(),
		dateWindow: 7,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("conversation")
	return m
}

// Begin greets a new session and asks the first question.
func (m *Machine) Begin(s *session.Session) Reply {
	text, options := m.prompt(s)
	welcome := say(languageOf(s.Language), msgWelcome, m.contact.Name)
	return Reply{Kind: ReplyPrompt, State: s.State, Messages: []string{welcome, text}, Options: options}
}

// Advance applies one user input to the session.
func (m *Machine) Advance(ctx context.Context, s *session.Session, input string) Reply {
	input = strings.TrimSpace(input)
	lang := languageOf(s.Language)
	switch command(input) {
	case "cancel":
		return m.cancel(s)
	case "help":
		return m.ask(s, say(lang, msgHelp))
	case "doctors":
		list, _ := doctorList(m.catalog, lang)
		return m.ask(s, list)
	case "contact":
		return m.ask(s, m.contact.card(lang))
	case "language":
		return m.switchLanguage(s, languageArg(input))
	case "restart":
		m.releaseToken(s)
		s.State = session.StateAwaitingName
		s.Request = bookings.AppointmentRequest{UserID: s.UserID}
		s.BookingID = ""
		s.ClearSlot()
		return m.Begin(s)
	}

	switch s.State {
	case session.StateAwaitingName:
		name, err := ValidateName(input)
		if err != nil {
			return m.rejected(s, err)
		}
		s.Request.Patient.Name = name
	case session.StateAwaitingAge:
		age, err := ValidateAge(input)
		if err != nil {
			return m.rejected(s, err)
		}
		s.Request.Patient.Age = age
	case session.StateAwaitingGender:
		gender, err := ValidateGender(input)
		if err != nil {
			return m.rejected(s, err)
		}
		s.Request.Patient.Gender = gender
	case session.StateAwaitingPhone:
		phone, err := ValidatePhone(input)
		if err != nil {
			return m.rejected(s, err)
		}
		s.Request.Patient.Phone = phone
	case session.StateAwaitingEmail:
		email, err := ValidateEmail(input)
		if err != nil {
			return m.rejected(s, err)
		}
		s.Request.Patient.Email = email
	case session.StateAwaitingComplaint:
		complaint, err := ValidateComplaint(input)
		if err != nil {
			return m.rejected(s, err)
		}
		s.Request.Patient.Complaint = complaint
	case session.StateAwaitingDoctor:
		d, ok := m.catalog.FindDoctor(input)
		if !ok {
			return m.rejected(s, invalid("doctor", CodeUnknownDoctor, say(lang, msgUnknownDoctor)))
		}
		s.Request.Doctor = d
		s.Request.Slot = availability.SlotKey{DoctorID: d.ID}
	case session.StateAwaitingDate:
		if err := m.chooseDate(s, input); err != nil {
			return m.rejected(s, err)
		}
	case session.StateAwaitingTime:
		return m.chooseTime(s, input)
	case session.StateAwaitingNotes:
		notes, err := ValidateNotes(input)
		if err != nil {
			return m.rejected(s, err)
		}
		s.Request.Patient.Notes = notes
	case session.StateAwaitingConfirmation:
		return m.confirm(ctx, s, input)
	default:
		s.State = session.StateAwaitingName
		s.Request = bookings.AppointmentRequest{UserID: s.UserID}
		s.ClearSlot()
		return m.Begin(s)
	}

	s.State = s.State.Next()
	return m.ask(s)
}

func command(input string) string {
	text := strings.ToLower(strings.TrimFunc(input, func(r rune) bool { return !isWordRune(r) && r != '/' }))
	switch text {
	case "/cancel", "cancel", "/cancelar", "cancelar", "/annuler", "annuler", "रद्द करें", "रद्द":
		return "cancel"
	case "/help", "help", "/ayuda", "/aide":
		return "help"
	case "/doctors", "/medicos", "/médicos", "/medecins", "/médecins":
		return "doctors"
	case "/contact", "/contacto":
		return "contact"
	case "/start", "/book", "/restart":
		return "restart"
	}
	switch head, _, _ := strings.Cut(text, " "); head {
	case "/language", "/idioma", "/langue":
		return "language"
	}
	return ""
}

// languageArg returns what follows "/language", e.g. "es".
func languageArg(input string) string {
	_, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
	return strings.TrimSpace(arg)
}

// switchLanguage sets the session language and repeats the current question
// in it. Without a recognised language it shows the menu.
func (m *Machine) switchLanguage(s *session.Session, arg string) Reply {
	lang, ok := ParseLanguage(arg)
	if !ok {
		text, _ := m.prompt(s)
		current := languageOf(s.Language)
		return Reply{Kind: ReplyPrompt, State: s.State, Messages: []string{languageMenu(current), text}, Options: languageOptions()}
	}
	s.Language = string(lang)
	return m.ask(s, say(lang, msgLanguageSet))
}

// isWordRune reports letters, digits, '_' and '-'. Devanagari vowel signs
// count too, so Hindi words survive trimming.
func isWordRune(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Devanagari, r)
}

func (m *Machine) today() time.Time {
	return m.clock.Now().In(m.catalog.Location())
}

func (m *Machine) chooseDate(s *session.Session, input string) error {
	lang := languageOf(s.Language)
	date, err := ParseDate(input, m.today())
	if err != nil {
		return err
	}
	doctor := s.Request.Doctor
	template, err := m.catalog.SlotTemplate(doctor.ID, date)
	if err != nil {
		return invalid("date", CodeInvalidDate, say(lang, msgInvalidDate))
	}
	if len(template) == 0 {
		return invalid("date", CodeUnavailableDate, say(lang, msgDoctorDaysOnly, doctor.Name, doctorDays(doctor, lang)))
	}
	free, err := m.engine.FreeSlots(doctor.ID, date)
	if err != nil {
		return invalid("date", CodeInvalidDate, say(lang, msgInvalidDate))
	}
	free = m.upcoming(date, free)
	if len(free) == 0 {
		return invalid("date", CodeFullyBooked, say(lang, msgFullyBooked, doctor.Name, date))
	}
	s.Request.Slot.Date = date
	s.OfferedSlots = free
	return nil
}

func (m *Machine) chooseTime(s *session.Session, input string) Reply {
	lang := languageOf(s.Language)
	key := s.Request.Slot
	label, ok := resolveSlot(input, s.OfferedSlots)
	if !ok {
		return m.rejected(s, invalid("time", CodeUnknownSlot, say(lang, msgUnknownSlot)))
	}
	template, _ := m.catalog.SlotTemplate(key.DoctorID, key.Date)
	if !containsLabel(template, label) {
		return m.rejected(s, invalid("time", CodeUnknownSlot, say(lang, msgNotConsultation, label)))
	}

	if !m.startsLater(key.Date, label) {
		return m.slotPassed(s, label)
	}

	m.releaseToken(s)
	key.Time = label
	tok, err := m.engine.TryReserve(key)
	if err != nil {
		if errors.Is(err, availability.ErrAlreadyTaken) {
			return m.slotTaken(s, label, err)
		}
		return m.rejected(s, invalid("time", CodeUnknownSlot, say(lang, msgUnknownSlot)))
	}
	s.Token = &tok
	s.Request.Slot = key
	s.State = session.StateAwaitingNotes
	return m.ask(s, holdText(lang, label, m.engine.GracePeriod()))
}

// slotTaken refreshes the offered times after losing a race. With nothing
// left on that date the user goes back to choosing a date.
func (m *Machine) slotTaken(s *session.Session, label string, cause error) Reply {
	key := s.Request.Slot
	free, _ := m.engine.FreeSlots(key.DoctorID, key.Date)
	free = m.upcoming(key.Date, free)
	s.OfferedSlots = free
	lang := languageOf(s.Language)
	msg := say(lang, msgSlotTaken, label)
	if len(free) == 0 {
		s.Request.Slot.Date = ""
		s.State = session.StateAwaitingDate
		msg += " " + say(lang, msgNoTimesLeft)
	}
	text, options := m.prompt(s)
	return Reply{Kind: ReplyAlreadyTaken, State: s.State, Messages: []string{msg, text}, Options: options, Err: cause}
}

// slotPassed handles a time that started while the user was choosing.
func (m *Machine) slotPassed(s *session.Session, label string) Reply {
	key := s.Request.Slot
	free, _ := m.engine.FreeSlots(key.DoctorID, key.Date)
	s.OfferedSlots = m.upcoming(key.Date, free)
	lang := languageOf(s.Language)
	msg := say(lang, msgSlotPassed, label)
	if len(s.OfferedSlots) == 0 {
		s.Request.Slot.Date = ""
		s.State = session.StateAwaitingDate
		msg += " " + say(lang, msgNoTimesLeft)
	}
	text, options := m.prompt(s)
	return Reply{
		Kind:     ReplyValidationError,
		State:    s.State,
		Messages: []string{msg, text},
		Options:  options,
		Err:      invalid("time", CodePastSlot, msg),
	}
}

// upcoming drops slot labels on date that do not start after now.
func (m *Machine) upcoming(date string, labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if m.startsLater(date, label) {
			out = append(out, label)
		}
	}
	return out
}

func (m *Machine) startsLater(date, label string) bool {
	start, err := catalog.SlotStart(date, label, m.catalog.Location())
	return err == nil && start.After(m.clock.Now())
}

func (m *Machine) confirm(ctx context.Context, s *session.Session, input string) Reply {
	lang := languageOf(s.Language)
	yes, ok := confirmationAnswer(input)
	if !ok {
		return m.rejected(s, invalid("confirmation", CodeInvalidChoice, say(lang, msgConfirmYesNo)))
	}
	if !yes {
		m.releaseToken(s)
		s.ClearSlot()
		s.State = session.StateAwaitingDoctor
		return m.ask(s, say(lang, msgChangeDetails))
	}

	if s.Token == nil {
		if !m.startsLater(s.Request.Slot.Date, s.Request.Slot.Time) {
			return m.restartSlot(s, say(lang, msgNoLongerFree), invalid("time", CodePastSlot, say(lang, msgSlotPassed, s.Request.Slot.Time)))
		}
		tok, err := m.engine.TryReserve(s.Request.Slot)
		if err != nil {
			return m.restartSlot(s, say(lang, msgNoLongerFree), err)
		}
		s.Token = &tok
	}

	b, err := m.committer.Commit(ctx, s.Request, *s.Token)
	switch {
	case err == nil:
		s.Token = nil
		s.BookingID = b.ID
		s.State = session.StateCompleted
		return Reply{Kind: ReplyBooked, State: s.State, Messages: []string{bookedText(b, lang)}, Booking: b}
	case errors.Is(err, availability.ErrTokenExpired), errors.Is(err, availability.ErrTokenNotFound):
		m.releaseToken(s)
		return m.restartSlot(s, say(lang, msgHoldExpired), err)
	case errors.Is(err, availability.ErrAlreadyTaken), errors.Is(err, bookings.ErrSlotConflict):
		m.releaseToken(s)
		return m.restartSlot(s, say(lang, msgBookedElsewhere), err)
	default:
		// The pipeline rolled the slot back, so the next YES reserves again.
		m.releaseToken(s)
		m.logger.Error("booking commit failed", "user_id", s.UserID, "slot", s.Request.Slot.String(), "error", err)
		var booking *bookings.Booking
		var ce *bookings.CommitError
		if errors.As(err, &ce) && ce.Booking != nil {
			booking = ce.Booking
			// The write may have landed; retrying under the same id keeps it idempotent.
			s.Request.BookingID = ce.Booking.ID
		}
		return Reply{
			Kind:     ReplyCommitFailed,
			State:    s.State,
			Messages: []string{say(lang, msgCommitFailed)},
			Options:  []string{say(lang, optionConfirm), say(lang, optionCancel)},
			Err:      err,
			Booking:  booking,
		}
	}
}

func (m *Machine) restartSlot(s *session.Session, msg string, cause error) Reply {
	s.ClearSlot()
	s.State = session.StateAwaitingDoctor
	text, options := m.prompt(s)
	again := say(languageOf(s.Language), msgChooseAgain)
	return Reply{Kind: ReplySlotRestart, State: s.State, Messages: []string{msg + " " + again, text}, Options: options, Err: cause}
}

func (m *Machine) cancel(s *session.Session) Reply {
	m.releaseToken(s)
	s.State = session.StateCancelled
	return Reply{Kind: ReplyCancelled, State: s.State, Messages: []string{say(languageOf(s.Language), msgCancelled)}}
}

func (m *Machine) releaseToken(s *session.Session) {
	if s.Token == nil {
		return
	}
	m.engine.Release(*s.Token)
	s.Token = nil
}

func (m *Machine) ask(s *session.Session, lead ...string) Reply {
	text, options := m.prompt(s)
	msgs := append(append([]string{}, lead...), text)
	return Reply{Kind: ReplyPrompt, State: s.State, Messages: msgs, Options: options}
}

func (m *Machine) rejected(s *session.Session, err error) Reply {
	msg := err.Error()
	var ve *ValidationError
	if errors.As(err, &ve) {
		msg = localizeValidation(languageOf(s.Language), ve)
	}
	text, options := m.prompt(s)
	return Reply{Kind: ReplyValidationError, State: s.State, Messages: []string{msg, text}, Options: options, Err: err}
}

// resolveSlot accepts a time label ("10:00 AM", "10am") or the number of an
// offered option.
func resolveSlot(input string, offered []string) (string, bool) {
	text := strings.TrimSpace(input)
	if n, err := strconv.Atoi(strings.TrimSuffix(text, ".")); err == nil {
		if n >= 1 && n <= len(offered) {
			return offered[n-1], true
		}
		return "", false
	}
	return catalog.CanonicalSlotLabel(text)
}

func containsLabel(list []string, label string) bool {
	for _, v := range list {
		if v == label {
			return true
		}
	}
	return false
}
