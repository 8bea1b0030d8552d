package conversation

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Language is a supported prompt language, as an ISO 639-1 code.
type Language string

const (
	LangEnglish Language = "en"
	LangSpanish Language = "es"
	LangFrench  Language = "fr"
	LangHindi   Language = "hi"

	defaultLanguage = LangEnglish
)

// Languages lists the supported languages in menu order.
var Languages = []Language{LangEnglish, LangSpanish, LangFrench, LangHindi}

var languageNames = map[Language]string{
	LangEnglish: "English",
	LangSpanish: "Español",
	LangFrench:  "Français",
	LangHindi:   "हिंदी",
}

// Name is the language's name in that language.
func (l Language) Name() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return string(l)
}

func languageOf(code string) Language {
	l := Language(code)
	if _, ok := languageNames[l]; ok {
		return l
	}
	return defaultLanguage
}

// ParseLanguage accepts a language code or name ("es", "spanish", "Español").
func ParseLanguage(input string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "en", "english", "inglés", "ingles", "anglais":
		return LangEnglish, true
	case "es", "spanish", "español", "espanol", "espagnol":
		return LangSpanish, true
	case "fr", "french", "français", "francais", "francés", "frances":
		return LangFrench, true
	case "hi", "hindi", "हिंदी", "हिन्दी":
		return LangHindi, true
	}
	return "", false
}

var languageMarkers = []struct {
	lang  Language
	runes string
	words []string
}{
	{LangSpanish, "ñ¿¡", []string{"hola", "buenos", "buenas", "gracias", "cita", "quiero", "necesito", "médico", "medico", "por favor"}},
	{LangFrench, "çèêàùœ", []string{"bonjour", "bonsoir", "salut", "merci", "rendez", "voudrais", "besoin", "médecin", "medecin", "s'il vous plaît"}},
}

// DetectLanguage guesses the language of a greeting. Anything it does not
// recognise is English.
func DetectLanguage(text string) Language {
	lower := strings.ToLower(text)
	for _, r := range lower {
		if unicode.Is(unicode.Devanagari, r) {
			return LangHindi
		}
	}
	for _, m := range languageMarkers {
		if strings.ContainsAny(lower, m.runes) {
			return m.lang
		}
	}
	words := strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) && r != '\'' })
	joined := " " + strings.Join(words, " ") + " "
	for _, m := range languageMarkers {
		for _, word := range m.words {
			if strings.Contains(joined, " "+word+" ") {
				return m.lang
			}
		}
	}
	return LangEnglish
}

type msgKey string

const (
	msgWelcome         msgKey = "welcome"
	msgHelp            msgKey = "help"
	msgCancelled       msgKey = "cancelled"
	msgAskName         msgKey = "ask_name"
	msgAskAge          msgKey = "ask_age"
	msgAskGender       msgKey = "ask_gender"
	msgAskPhone        msgKey = "ask_phone"
	msgAskEmail        msgKey = "ask_email"
	msgAskComplaint    msgKey = "ask_complaint"
	msgDoctorsHeading  msgKey = "doctors_heading"
	msgDoctorDays      msgKey = "doctor_days"
	msgAskDoctor       msgKey = "ask_doctor"
	msgAskDate         msgKey = "ask_date"
	msgAskTime         msgKey = "ask_time"
	msgAskNotes        msgKey = "ask_notes"
	msgCompleted       msgKey = "completed"
	msgHolding         msgKey = "holding"
	msgReviewHeading   msgKey = "review_heading"
	msgReviewFooter    msgKey = "review_footer"
	msgBookedHeading   msgKey = "booked_heading"
	msgBookedFooter    msgKey = "booked_footer"
	msgChangeDetails   msgKey = "change_details"
	msgSlotTaken       msgKey = "slot_taken"
	msgSlotPassed      msgKey = "slot_passed"
	msgNoTimesLeft     msgKey = "no_times_left"
	msgNoLongerFree    msgKey = "no_longer_free"
	msgHoldExpired     msgKey = "hold_expired"
	msgBookedElsewhere msgKey = "booked_elsewhere"
	msgChooseAgain     msgKey = "choose_again"
	msgCommitFailed    msgKey = "commit_failed"
	msgUnknownDoctor   msgKey = "unknown_doctor"
	msgInvalidDate     msgKey = "invalid_date"
	msgDoctorDaysOnly  msgKey = "doctor_days_only"
	msgFullyBooked     msgKey = "fully_booked"
	msgUnknownSlot     msgKey = "unknown_slot"
	msgNotConsultation msgKey = "not_consultation"
	msgConfirmYesNo    msgKey = "confirm_yes_no"
	msgLanguageMenu    msgKey = "language_menu"
	msgLanguageSet     msgKey = "language_set"
	msgContact         msgKey = "contact"

	labelPatient   msgKey = "label_patient"
	labelAge       msgKey = "label_age"
	labelGender    msgKey = "label_gender"
	labelPhone     msgKey = "label_phone"
	labelEmail     msgKey = "label_email"
	labelComplaint msgKey = "label_complaint"
	labelDoctor    msgKey = "label_doctor"
	labelDate      msgKey = "label_date"
	labelTime      msgKey = "label_time"
	labelFee       msgKey = "label_fee"
	labelNotes     msgKey = "label_notes"
	labelNone      msgKey = "label_none"
	labelID        msgKey = "label_id"
	labelHours     msgKey = "label_hours"

	optionConfirm msgKey = "option_confirm"
	optionChange  msgKey = "option_change"
	optionCancel  msgKey = "option_cancel"
)

var messages = map[Language]map[msgKey]string{
	LangEnglish: {
		msgWelcome: "Welcome to %s! I can book a doctor's appointment for you in a few quick steps. " +
			"Send /cancel at any time to stop, or /help for instructions.",
		msgHelp: "How booking works:\n" +
			"1. Tell me your details (name, age, gender, phone, email, reason for visit).\n" +
			"2. Pick a doctor, a date and a time.\n" +
			"3. Confirm, and you will receive an appointment ID by email.\n\n" +
			"Commands: /book to start over, /doctors to list doctors, /contact for clinic details, " +
			"/language to switch language, /cancel to stop.",
		msgCancelled:       "Your booking has been cancelled. Send /book whenever you want to start again.",
		msgAskName:         "Please enter your full name:",
		msgAskAge:          "Thank you, %s! How old are you?",
		msgAskGender:       "Please select your gender:",
		msgAskPhone:        "Please enter your phone number (e.g. +1 555-123-4567):",
		msgAskEmail:        "Please enter your email address:",
		msgAskComplaint:    "Please briefly describe your symptoms or the reason for your visit:",
		msgDoctorsHeading:  "Our doctors:",
		msgDoctorDays:      "Available",
		msgAskDoctor:       "Please choose a doctor:",
		msgAskDate:         "When would you like to see %s? Pick a date below or type one as YYYY-MM-DD:",
		msgAskTime:         "Available times with %s on %s:\n%s\n\nPlease choose a time:",
		msgAskNotes:        "Any additional notes for the doctor? Type None to skip.",
		msgCompleted:       "Your appointment is booked. Send /book to make another one.",
		msgHolding:         "Great, I'm holding %s for you for %s.",
		msgReviewHeading:   "Please review your appointment:",
		msgReviewFooter:    "Reply YES to confirm or NO to choose a different doctor, date or time.",
		msgBookedHeading:   "Your appointment is confirmed!",
		msgBookedFooter:    "A confirmation email is on its way to %s. Please arrive 15 minutes early.",
		msgChangeDetails:   "No problem. Let's choose the doctor, date and time again.",
		msgSlotTaken:       "Sorry, %s was just booked by someone else.",
		msgSlotPassed:      "%s has already passed.",
		msgNoTimesLeft:     "There are no times left on that date.",
		msgNoLongerFree:    "Sorry, that time is no longer available.",
		msgHoldExpired:     "Your reservation expired before it was confirmed.",
		msgBookedElsewhere: "Sorry, that time was booked by someone else.",
		msgChooseAgain:     "Please choose again.",
		msgCommitFailed:    "We couldn't save your appointment right now. Reply YES to try again, or /cancel to stop.",
		msgUnknownDoctor:   "Please choose one of the doctors listed.",
		msgInvalidDate:     "Please choose a valid date.",
		msgDoctorDaysOnly:  "%s is available on %s only. Please choose another date.",
		msgFullyBooked:     "%s has no times left on %s. Please choose another date.",
		msgUnknownSlot:     "Please choose one of the times listed.",
		msgNotConsultation: "%s is not a consultation time. Please choose one of the times listed.",
		msgConfirmYesNo:    "Please reply YES to confirm or NO to make changes.",
		msgLanguageMenu:    "Choose a language:",
		msgLanguageSet:     "I'll continue in English.",
		msgContact:         "Contact information",

		labelPatient:   "Patient",
		labelAge:       "Age",
		labelGender:    "Gender",
		labelPhone:     "Phone",
		labelEmail:     "Email",
		labelComplaint: "Reason for visit",
		labelDoctor:    "Doctor",
		labelDate:      "Date",
		labelTime:      "Time",
		labelFee:       "Consultation fee",
		labelNotes:     "Notes",
		labelNone:      "None",
		labelID:        "Appointment ID",
		labelHours:     "Office hours",

		optionConfirm: "Confirm Appointment",
		optionChange:  "Change Details",
		optionCancel:  "Cancel",
	},
	LangSpanish: {
		msgWelcome: "¡Bienvenido a %s! Puedo reservar una cita médica para usted en unos pocos pasos. " +
			"Envíe /cancel en cualquier momento para detenerse, o /help para ver las instrucciones.",
		msgHelp: "Cómo funciona la reserva:\n" +
			"1. Indíquenos sus datos (nombre, edad, género, teléfono, email, motivo de la visita).\n" +
			"2. Elija un médico, una fecha y una hora.\n" +
			"3. Confirme y recibirá un número de cita por email.\n\n" +
			"Comandos: /book para empezar de nuevo, /doctors para ver los médicos, /contact para los datos de la clínica, " +
			"/language para cambiar de idioma, /cancel para detenerse.",
		msgCancelled:       "Su reserva ha sido cancelada. Envíe /book cuando quiera empezar de nuevo.",
		msgAskName:         "Por favor ingrese su nombre completo:",
		msgAskAge:          "¡Gracias, %s! ¿Qué edad tiene?",
		msgAskGender:       "Por favor seleccione su género:",
		msgAskPhone:        "Por favor ingrese su número de teléfono (p. ej. +1 555-123-4567):",
		msgAskEmail:        "Por favor ingrese su dirección de email:",
		msgAskComplaint:    "Por favor describa brevemente sus síntomas o el motivo de su visita:",
		msgDoctorsHeading:  "Nuestros médicos:",
		msgDoctorDays:      "Disponible",
		msgAskDoctor:       "Por favor elija un médico:",
		msgAskDate:         "¿Cuándo desea ver a %s? Elija una fecha o escríbala como AAAA-MM-DD:",
		msgAskTime:         "Horarios disponibles con %s el %s:\n%s\n\nPor favor elija una hora:",
		msgAskNotes:        "¿Alguna nota adicional para el médico? Escriba Ninguna para omitir.",
		msgCompleted:       "Su cita está reservada. Envíe /book para reservar otra.",
		msgHolding:         "Perfecto, le reservo las %s durante %s.",
		msgReviewHeading:   "Por favor revise su cita:",
		msgReviewFooter:    "Responda SÍ para confirmar o NO para elegir otro médico, fecha u hora.",
		msgBookedHeading:   "¡Su cita está confirmada!",
		msgBookedFooter:    "Le enviamos un email de confirmación a %s. Por favor llegue 15 minutos antes.",
		msgChangeDetails:   "Sin problema. Elijamos de nuevo el médico, la fecha y la hora.",
		msgSlotTaken:       "Lo sentimos, las %s acaban de ser reservadas por otra persona.",
		msgSlotPassed:      "Las %s ya pasaron.",
		msgNoTimesLeft:     "No quedan horarios en esa fecha.",
		msgNoLongerFree:    "Lo sentimos, ese horario ya no está disponible.",
		msgHoldExpired:     "Su reserva expiró antes de ser confirmada.",
		msgBookedElsewhere: "Lo sentimos, ese horario fue reservado por otra persona.",
		msgChooseAgain:     "Por favor elija de nuevo.",
		msgCommitFailed:    "No pudimos guardar su cita en este momento. Responda SÍ para intentarlo de nuevo, o /cancel para detenerse.",
		msgUnknownDoctor:   "Por favor elija uno de los médicos de la lista.",
		msgInvalidDate:     "Por favor elija una fecha válida.",
		msgDoctorDaysOnly:  "%s atiende solo los días %s. Por favor elija otra fecha.",
		msgFullyBooked:     "%s no tiene horarios libres el %s. Por favor elija otra fecha.",
		msgUnknownSlot:     "Por favor elija uno de los horarios de la lista.",
		msgNotConsultation: "%s no es un horario de consulta. Por favor elija uno de los horarios de la lista.",
		msgConfirmYesNo:    "Por favor responda SÍ para confirmar o NO para hacer cambios.",
		msgLanguageMenu:    "Elija un idioma:",
		msgLanguageSet:     "Continuaré en español.",
		msgContact:         "Información de contacto",

		labelPatient:   "Paciente",
		labelAge:       "Edad",
		labelGender:    "Género",
		labelPhone:     "Teléfono",
		labelEmail:     "Email",
		labelComplaint: "Motivo de la visita",
		labelDoctor:    "Médico",
		labelDate:      "Fecha",
		labelTime:      "Hora",
		labelFee:       "Costo de la consulta",
		labelNotes:     "Notas",
		labelNone:      "Ninguna",
		labelID:        "Número de cita",
		labelHours:     "Horario",

		optionConfirm: "Confirmar Cita",
		optionChange:  "Cambiar Datos",
		optionCancel:  "Cancelar",
	},
	LangFrench: {
		msgWelcome: "Bienvenue à %s ! Je peux prendre un rendez-vous médical pour vous en quelques étapes. " +
			"Envoyez /cancel à tout moment pour arrêter, ou /help pour l'aide.",
		msgHelp: "Comment prendre rendez-vous :\n" +
			"1. Donnez vos informations (nom, âge, genre, téléphone, email, motif de la visite).\n" +
			"2. Choisissez un médecin, une date et une heure.\n" +
			"3. Confirmez, et vous recevrez un numéro de rendez-vous par email.\n\n" +
			"Commandes : /book pour recommencer, /doctors pour la liste des médecins, /contact pour les coordonnées de la clinique, " +
			"/language pour changer de langue, /cancel pour arrêter.",
		msgCancelled:       "Votre réservation a été annulée. Envoyez /book quand vous voulez recommencer.",
		msgAskName:         "Veuillez entrer votre nom complet :",
		msgAskAge:          "Merci, %s ! Quel âge avez-vous ?",
		msgAskGender:       "Veuillez sélectionner votre genre :",
		msgAskPhone:        "Veuillez entrer votre numéro de téléphone (ex. +1 555-123-4567) :",
		msgAskEmail:        "Veuillez entrer votre adresse email :",
		msgAskComplaint:    "Veuillez décrire brièvement vos symptômes ou le motif de votre visite :",
		msgDoctorsHeading:  "Nos médecins :",
		msgDoctorDays:      "Disponible",
		msgAskDoctor:       "Veuillez choisir un médecin :",
		msgAskDate:         "Quand souhaitez-vous voir %s ? Choisissez une date ou écrivez-la au format AAAA-MM-JJ :",
		msgAskTime:         "Horaires disponibles avec %s le %s :\n%s\n\nVeuillez choisir une heure :",
		msgAskNotes:        "Des notes supplémentaires pour le médecin ? Écrivez Aucun pour passer.",
		msgCompleted:       "Votre rendez-vous est réservé. Envoyez /book pour en prendre un autre.",
		msgHolding:         "Parfait, je vous réserve %s pendant %s.",
		msgReviewHeading:   "Veuillez vérifier votre rendez-vous :",
		msgReviewFooter:    "Répondez OUI pour confirmer ou NON pour choisir un autre médecin, une autre date ou une autre heure.",
		msgBookedHeading:   "Votre rendez-vous est confirmé !",
		msgBookedFooter:    "Un email de confirmation a été envoyé à %s. Merci d'arriver 15 minutes en avance.",
		msgChangeDetails:   "Pas de problème. Choisissons à nouveau le médecin, la date et l'heure.",
		msgSlotTaken:       "Désolé, %s vient d'être réservé par quelqu'un d'autre.",
		msgSlotPassed:      "%s est déjà passé.",
		msgNoTimesLeft:     "Il ne reste plus d'horaires à cette date.",
		msgNoLongerFree:    "Désolé, cet horaire n'est plus disponible.",
		msgHoldExpired:     "Votre réservation a expiré avant d'être confirmée.",
		msgBookedElsewhere: "Désolé, cet horaire a été réservé par quelqu'un d'autre.",
		msgChooseAgain:     "Veuillez choisir à nouveau.",
		msgCommitFailed:    "Nous n'avons pas pu enregistrer votre rendez-vous pour le moment. Répondez OUI pour réessayer, ou /cancel pour arrêter.",
		msgUnknownDoctor:   "Veuillez choisir un des médecins de la liste.",
		msgInvalidDate:     "Veuillez choisir une date valide.",
		msgDoctorDaysOnly:  "%s consulte uniquement le %s. Veuillez choisir une autre date.",
		msgFullyBooked:     "%s n'a plus d'horaires libres le %s. Veuillez choisir une autre date.",
		msgUnknownSlot:     "Veuillez choisir un des horaires de la liste.",
		msgNotConsultation: "%s n'est pas un horaire de consultation. Veuillez choisir un des horaires de la liste.",
		msgConfirmYesNo:    "Veuillez répondre OUI pour confirmer ou NON pour faire des modifications.",
		msgLanguageMenu:    "Choisissez une langue :",
		msgLanguageSet:     "Je continue en français.",
		msgContact:         "Coordonnées",

		labelPatient:   "Patient",
		labelAge:       "Âge",
		labelGender:    "Genre",
		labelPhone:     "Téléphone",
		labelEmail:     "Email",
		labelComplaint: "Motif de la visite",
		labelDoctor:    "Médecin",
		labelDate:      "Date",
		labelTime:      "Heure",
		labelFee:       "Tarif de la consultation",
		labelNotes:     "Notes",
		labelNone:      "Aucun",
		labelID:        "Numéro de rendez-vous",
		labelHours:     "Horaires",

		optionConfirm: "Confirmer Rendez-vous",
		optionChange:  "Modifier",
		optionCancel:  "Annuler",
	},
	LangHindi: {
		msgWelcome: "%s में आपका स्वागत है! मैं कुछ आसान चरणों में आपकी डॉक्टर अपॉइंटमेंट बुक कर सकता हूँ। " +
			"रोकने के लिए कभी भी /cancel भेजें, या निर्देशों के लिए /help भेजें।",
		msgHelp: "बुकिंग कैसे होती है:\n" +
			"1. अपनी जानकारी दें (नाम, आयु, लिंग, फ़ोन, ईमेल, आने का कारण)।\n" +
			"2. एक डॉक्टर, तारीख और समय चुनें।\n" +
			"3. कन्फर्म करें, और आपको ईमेल से अपॉइंटमेंट आईडी मिलेगी।\n\n" +
			"कमांड: फिर से शुरू करने के लिए /book, डॉक्टरों की सूची के लिए /doctors, क्लिनिक की जानकारी के लिए /contact, " +
			"भाषा बदलने के लिए /language, रोकने के लिए /cancel।",
		msgCancelled:       "आपकी बुकिंग रद्द कर दी गई है। फिर से शुरू करने के लिए कभी भी /book भेजें।",
		msgAskName:         "कृपया अपना पूरा नाम दर्ज करें:",
		msgAskAge:          "धन्यवाद, %s! आपकी आयु क्या है?",
		msgAskGender:       "कृपया अपना लिंग चुनें:",
		msgAskPhone:        "कृपया अपना फ़ोन नंबर दर्ज करें (जैसे +1 555-123-4567):",
		msgAskEmail:        "कृपया अपना ईमेल पता दर्ज करें:",
		msgAskComplaint:    "कृपया अपने लक्षण या आने का कारण संक्षेप में बताएं:",
		msgDoctorsHeading:  "हमारे डॉक्टर:",
		msgDoctorDays:      "उपलब्ध",
		msgAskDoctor:       "कृपया एक डॉक्टर चुनें:",
		msgAskDate:         "आप %s से कब मिलना चाहेंगे? नीचे से तारीख चुनें या YYYY-MM-DD के रूप में लिखें:",
		msgAskTime:         "%s के साथ %s को उपलब्ध समय:\n%s\n\nकृपया एक समय चुनें:",
		msgAskNotes:        "डॉक्टर के लिए कोई अतिरिक्त नोट्स? छोड़ने के लिए कोई नहीं लिखें।",
		msgCompleted:       "आपकी अपॉइंटमेंट बुक हो गई है। दूसरी बुक करने के लिए /book भेजें।",
		msgHolding:         "बढ़िया, मैं %s का समय आपके लिए %s तक रोककर रख रहा हूँ।",
		msgReviewHeading:   "कृपया अपनी अपॉइंटमेंट की जाँच करें:",
		msgReviewFooter:    "कन्फर्म करने के लिए हाँ या दूसरा डॉक्टर, तारीख या समय चुनने के लिए नहीं लिखें।",
		msgBookedHeading:   "आपकी अपॉइंटमेंट कन्फर्म हो गई है!",
		msgBookedFooter:    "कन्फर्मेशन ईमेल %s पर भेजा जा रहा है। कृपया 15 मिनट पहले पहुँचें।",
		msgChangeDetails:   "कोई बात नहीं। चलिए डॉक्टर, तारीख और समय फिर से चुनते हैं।",
		msgSlotTaken:       "क्षमा करें, %s का समय अभी किसी और ने बुक कर लिया।",
		msgSlotPassed:      "%s का समय निकल चुका है।",
		msgNoTimesLeft:     "उस तारीख पर कोई समय बाकी नहीं है।",
		msgNoLongerFree:    "क्षमा करें, वह समय अब उपलब्ध नहीं है।",
		msgHoldExpired:     "आपका आरक्षण कन्फर्म होने से पहले समाप्त हो गया।",
		msgBookedElsewhere: "क्षमा करें, वह समय किसी और ने बुक कर लिया।",
		msgChooseAgain:     "कृपया फिर से चुनें।",
		msgCommitFailed:    "हम अभी आपकी अपॉइंटमेंट सेव नहीं कर सके। फिर से कोशिश करने के लिए हाँ लिखें, या रोकने के लिए /cancel भेजें।",
		msgUnknownDoctor:   "कृपया सूची में से एक डॉक्टर चुनें।",
		msgInvalidDate:     "कृपया एक मान्य तारीख चुनें।",
		msgDoctorDaysOnly:  "%s केवल %s को उपलब्ध हैं। कृपया दूसरी तारीख चुनें।",
		msgFullyBooked:     "%s के पास %s को कोई समय खाली नहीं है। कृपया दूसरी तारीख चुनें।",
		msgUnknownSlot:     "कृपया सूची में से एक समय चुनें।",
		msgNotConsultation: "%s परामर्श का समय नहीं है। कृपया सूची में से एक समय चुनें।",
		msgConfirmYesNo:    "कन्फर्म करने के लिए हाँ या बदलाव करने के लिए नहीं लिखें।",
		msgLanguageMenu:    "भाषा चुनें:",
		msgLanguageSet:     "मैं हिंदी में जारी रखूँगा।",
		msgContact:         "संपर्क जानकारी",

		labelPatient:   "मरीज़",
		labelAge:       "आयु",
		labelGender:    "लिंग",
		labelPhone:     "फ़ोन",
		labelEmail:     "ईमेल",
		labelComplaint: "आने का कारण",
		labelDoctor:    "डॉक्टर",
		labelDate:      "तारीख",
		labelTime:      "समय",
		labelFee:       "परामर्श शुल्क",
		labelNotes:     "नोट्स",
		labelNone:      "कोई नहीं",
		labelID:        "अपॉइंटमेंट आईडी",
		labelHours:     "समय",

		optionConfirm: "अपॉइंटमेंट कन्फर्म करें",
		optionChange:  "विवरण बदलें",
		optionCancel:  "रद्द करें",
	},
}

// validationMessages translates the input checks' messages by field and code.
var validationMessages = map[Language]map[string]string{
	LangSpanish: {
		"name/required":               "Por favor ingrese su nombre completo.",
		"name/too_long":               "El nombre es demasiado largo. Use como máximo 100 caracteres.",
		"name/invalid_format":         "Por favor ingrese un nombre usando solo letras.",
		"age/required":                "Por favor ingrese su edad.",
		"age/invalid_age":             "Por favor ingrese una edad válida entre 1 y 120.",
		"gender/required":             "Por favor elija Masculino, Femenino u Otro.",
		"gender/invalid_choice":       "Por favor elija Masculino, Femenino u Otro.",
		"phone/required":              "Por favor ingrese su número de teléfono.",
		"phone/invalid_format":        "Por favor ingrese un número de teléfono válido (p. ej. +1 555-123-4567).",
		"email/required":              "Por favor ingrese su dirección de email.",
		"email/invalid_format":        "Por favor ingrese un email válido (p. ej. nombre@ejemplo.com).",
		"complaint/required":          "Por favor describa el motivo de su visita.",
		"complaint/too_long":          "Por favor use menos de 500 caracteres.",
		"notes/too_long":              "Por favor use menos de 500 caracteres en las notas.",
		"date/required":               "Por favor elija una fecha.",
		"date/invalid_date":           "Por favor ingrese la fecha como AAAA-MM-DD (p. ej. 2025-08-20).",
		"date/past_date":              "Esa fecha ya pasó. Por favor elija una fecha futura.",
		"confirmation/invalid_choice": "Por favor responda SÍ para confirmar o NO para hacer cambios.",
	},
	LangFrench: {
		"name/required":               "Veuillez entrer votre nom complet.",
		"name/too_long":               "Le nom est trop long. Utilisez au maximum 100 caractères.",
		"name/invalid_format":         "Veuillez entrer un nom composé uniquement de lettres.",
		"age/required":                "Veuillez entrer votre âge.",
		"age/invalid_age":             "Veuillez entrer un âge valide entre 1 et 120.",
		"gender/required":             "Veuillez choisir Masculin, Féminin ou Autre.",
		"gender/invalid_choice":       "Veuillez choisir Masculin, Féminin ou Autre.",
		"phone/required":              "Veuillez entrer votre numéro de téléphone.",
		"phone/invalid_format":        "Veuillez entrer un numéro de téléphone valide (ex. +1 555-123-4567).",
		"email/required":              "Veuillez entrer votre adresse email.",
		"email/invalid_format":        "Veuillez entrer un email valide (ex. nom@exemple.com).",
		"complaint/required":          "Veuillez décrire le motif de votre visite.",
		"complaint/too_long":          "Veuillez utiliser moins de 500 caractères.",
		"notes/too_long":              "Veuillez utiliser moins de 500 caractères pour les notes.",
		"date/required":               "Veuillez choisir une date.",
		"date/invalid_date":           "Veuillez écrire la date au format AAAA-MM-JJ (ex. 2025-08-20).",
		"date/past_date":              "Cette date est déjà passée. Veuillez choisir une date future.",
		"confirmation/invalid_choice": "Veuillez répondre OUI pour confirmer ou NON pour faire des modifications.",
	},
	LangHindi: {
		"name/required":               "कृपया अपना पूरा नाम दर्ज करें।",
		"name/too_long":               "नाम बहुत लंबा है। अधिकतम 100 अक्षर इस्तेमाल करें।",
		"name/invalid_format":         "कृपया केवल अक्षरों में नाम दर्ज करें।",
		"age/required":                "कृपया अपनी आयु दर्ज करें।",
		"age/invalid_age":             "कृपया 1 से 120 के बीच मान्य आयु दर्ज करें।",
		"gender/required":             "कृपया पुरुष, महिला या अन्य चुनें।",
		"gender/invalid_choice":       "कृपया पुरुष, महिला या अन्य चुनें।",
		"phone/required":              "कृपया अपना फ़ोन नंबर दर्ज करें।",
		"phone/invalid_format":        "कृपया मान्य फ़ोन नंबर दर्ज करें (जैसे +1 555-123-4567)।",
		"email/required":              "कृपया अपना ईमेल पता दर्ज करें।",
		"email/invalid_format":        "कृपया मान्य ईमेल पता दर्ज करें (जैसे name@example.com)।",
		"complaint/required":          "कृपया आने का कारण बताएं।",
		"complaint/too_long":          "कृपया 500 अक्षरों से कम में लिखें।",
		"notes/too_long":              "कृपया नोट्स 500 अक्षरों से कम में लिखें।",
		"date/required":               "कृपया एक तारीख चुनें।",
		"date/invalid_date":           "कृपया तारीख YYYY-MM-DD के रूप में लिखें (जैसे 2025-08-20)।",
		"date/past_date":              "वह तारीख निकल चुकी है। कृपया आगे की तारीख चुनें।",
		"confirmation/invalid_choice": "कन्फर्म करने के लिए हाँ या बदलाव करने के लिए नहीं लिखें।",
	},
}

// weekdays are indexed by time.Weekday, Sunday first.
var weekdays = map[Language][7]string{
	LangSpanish: {"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"},
	LangFrench:  {"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"},
	LangHindi:   {"रविवार", "सोमवार", "मंगलवार", "बुधवार", "गुरुवार", "शुक्रवार", "शनिवार"},
}

func weekdayName(lang Language, d time.Weekday) string {
	if names, ok := weekdays[lang]; ok {
		return names[d]
	}
	return d.String()
}

// say renders key in lang, falling back to English.
func say(lang Language, key msgKey, args ...any) string {
	text, ok := messages[lang][key]
	if !ok {
		text = messages[defaultLanguage][key]
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

func localizeValidation(lang Language, ve *ValidationError) string {
	if msg, ok := validationMessages[lang][ve.Field+"/"+string(ve.Code)]; ok {
		return msg
	}
	return ve.Message
}
