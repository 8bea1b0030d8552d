package conversation

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/clinic-appointment-bot/internal/catalog"
)

const (
	maxNameLength      = 100
	maxComplaintLength = 500
	maxNotesLength     = 500
	minAge             = 1
	maxAge             = 120
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		letters := 0
		for _, r := range name {
			switch {
			case unicode.IsLetter(r):
				letters++
			case unicode.IsMark(r):
			case r == ' ' || r == '-' || r == '\'' || r == '.':
			default:
				return false
			}
		}
		return letters >= 2
	})
	return v
}

// ValidateName accepts a patient's full name.
func ValidateName(input string) (string, error) {
	name := strings.Join(strings.Fields(input), " ")
	if name == "" {
		return "", invalid("name", CodeRequired, "Please enter your full name.")
	}
	if len([]rune(name)) > maxNameLength {
		return "", invalid("name", CodeTooLong, "That name is too long. Please use at most 100 characters.")
	}
	if err := validate.Var(name, "personname"); err != nil {
		return "", invalid("name", CodeInvalidFormat, "Please enter a name using letters only.")
	}
	return name, nil
}

// ValidateAge accepts a whole number of years in [1, 120].
func ValidateAge(input string) (int, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return 0, invalid("age", CodeRequired, "Please enter your age.")
	}
	age, err := strconv.Atoi(text)
	if err != nil {
		return 0, invalid("age", CodeInvalidAge, "Please enter your age as a number (e.g. 25).")
	}
	if err := validate.Var(age, "gte=1,lte=120"); err != nil {
		return 0, invalid("age", CodeInvalidAge, "Please enter a valid age between 1 and 120.")
	}
	return age, nil
}

var genderAliases = map[string]string{
	"male":   "Male",
	"m":      "Male",
	"female": "Female",
	"f":      "Female",
	"other":  "Other",
	"o":      "Other",

	"masculino": "Male",
	"hombre":    "Male",
	"femenino":  "Female",
	"mujer":     "Female",
	"otro":      "Other",

	"masculin": "Male",
	"homme":    "Male",
	"féminin":  "Female",
	"feminin":  "Female",
	"femme":    "Female",
	"autre":    "Other",

	"पुरुष": "Male",
	"महिला": "Female",
	"अन्य":  "Other",
}

// trimToWord strips emoji, punctuation and spaces around a keyboard answer.
func trimToWord(input string) string {
	return strings.ToLower(strings.TrimFunc(input, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.Is(unicode.Devanagari, r)
	}))
}

// GenderOptions are the quick-reply choices for the gender step.
var GenderOptions = []string{"Male", "Female", "Other"}

// ValidateGender accepts male, female or other in any supported language,
// including keyboard labels that carry an emoji prefix.
func ValidateGender(input string) (string, error) {
	text := trimToWord(input)
	if text == "" {
		return "", invalid("gender", CodeRequired, "Please choose Male, Female or Other.")
	}
	if err := validate.Var(text, "oneof=male m female f other o masculino hombre femenino mujer otro "+
		"masculin homme féminin feminin femme autre पुरुष महिला अन्य"); err != nil {
		return "", invalid("gender", CodeInvalidChoice, "Please choose Male, Female or Other.")
	}
	return genderAliases[text], nil
}

// ValidatePhone normalises a phone number to E.164 ("+15551234567").
func ValidatePhone(input string) (string, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return "", invalid("phone", CodeRequired, "Please enter your phone number.")
	}
	var b strings.Builder
	for i, r := range text {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", invalid("phone", CodeInvalidFormat, "Please enter a valid phone number (e.g. +1 555-123-4567).")
		}
	}
	phone := "+" + b.String()
	if err := validate.Var(phone, "e164"); err != nil {
		return "", invalid("phone", CodeInvalidFormat, "Please enter a valid phone number (e.g. +1 555-123-4567).")
	}
	return phone, nil
}

// ValidateEmail accepts a syntactically valid email address.
func ValidateEmail(input string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(input))
	if email == "" {
		return "", invalid("email", CodeRequired, "Please enter your email address.")
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", invalid("email", CodeInvalidFormat, "Please enter a valid email address (e.g. name@example.com).")
	}
	return email, nil
}

// ValidateComplaint accepts a short description of the visit reason.
func ValidateComplaint(input string) (string, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return "", invalid("complaint", CodeRequired, "Please describe the reason for your visit.")
	}
	if len([]rune(text)) > maxComplaintLength {
		return "", invalid("complaint", CodeTooLong, "Please keep the description under 500 characters.")
	}
	return text, nil
}

// ValidateNotes accepts optional notes; "none" or "skip" mean no notes.
func ValidateNotes(input string) (string, error) {
	text := strings.TrimSpace(input)
	switch strings.ToLower(text) {
	case "", "none", "skip", "no", "n/a", "ninguna", "ninguno", "omitir", "aucun", "aucune", "non", "कोई नहीं", "नहीं":
		return "", nil
	}
	if len([]rune(text)) > maxNotesLength {
		return "", invalid("notes", CodeTooLong, "Please keep notes under 500 characters.")
	}
	return text, nil
}

// ParseDate turns the user's date choice into a canonical YYYY-MM-DD string.
// It accepts "2025-08-20", keyboard labels like "2025-08-20 (Wednesday)",
// "today" and "tomorrow" (also in Spanish, French and Hindi). Dates before
// today are rejected.
func ParseDate(input string, today time.Time) (string, error) {
	text := strings.ToLower(strings.TrimSpace(input))
	if text == "" {
		return "", invalid("date", CodeRequired, "Please choose a date.")
	}
	y, m, d := today.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var chosen time.Time
	switch text {
	case "today", "hoy", "aujourd'hui", "aujourd’hui", "आज":
		chosen = day
	case "tomorrow", "mañana", "manana", "demain", "कल":
		chosen = day.AddDate(0, 0, 1)
	default:
		if idx := strings.IndexAny(text, " ("); idx > 0 {
			text = text[:idx]
		}
		t, err := catalog.ParseDate(text)
		if err != nil {
			return "", invalid("date", CodeInvalidDate, "Please enter the date as YYYY-MM-DD (e.g. 2025-08-20).")
		}
		chosen = t
	}
	if chosen.Before(day) {
		return "", invalid("date", CodePastDate, "That date has already passed. Please choose a future date.")
	}
	return chosen.Format(catalog.DateLayout), nil
}

var affirmatives = map[string]bool{
	"yes": true, "y": true, "confirm": true, "confirm appointment": true, "ok": true, "okay": true, "sure": true,
	"sí": true, "si": true, "confirmar": true, "confirmar cita": true, "claro": true,
	"oui": true, "confirmer": true, "confirmer rendez-vous": true, "d'accord": true,
	"हाँ": true, "हां": true, "जी हाँ": true, "कन्फर्म": true, "अपॉइंटमेंट कन्फर्म करें": true,
}

var negatives = map[string]bool{
	"no": true, "n": true, "change": true, "change details": true, "back": true,
	"cambiar": true, "cambiar datos": true, "atrás": true, "atras": true,
	"non": true, "modifier": true, "retour": true,
	"नहीं": true, "बदलें": true, "विवरण बदलें": true, "वापस": true,
}

// confirmationAnswer reports (yes, recognised).
func confirmationAnswer(input string) (bool, bool) {
	text := trimToWord(input)
	text = strings.Join(strings.Fields(text), " ")
	if affirmatives[text] {
		return true, true
	}
	if negatives[text] {
		return false, true
	}
	return false, false
}
