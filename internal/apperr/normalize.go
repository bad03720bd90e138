package apperr

import (
	"errors"
	"regexp"
	"strings"
)

// vendorPrefix is prepended to the text of every *Error.
const vendorPrefix = "fintrack: "

// GenericMessage is shown when nothing better can be derived from an error.
const GenericMessage = "An error occurred. Please try again."

var vendorPrefixes = []string{vendorPrefix, "Firebase: "}

var codePattern = regexp.MustCompile(`auth/[a-zA-Z0-9-]+`)

type entry struct {
	kind    Kind
	message string
}

var table = map[string]entry{
	CodeWrongPassword:    {KindCredential, "Incorrect password. Please try again."},
	CodeUserNotFound:     {KindCredential, "Account not found. Please create an account first."},
	CodeInvalidEmail:     {KindCredential, "Invalid email address. Please check and try again."},
	CodeTokenExpired:     {KindCredential, "Your session has expired. Please sign in again."},
	CodeEmailInUse:       {KindRegistration, "That email is already registered. Try signing in instead."},
	CodeWeakPassword:     {KindRegistration, "Password is too weak. Use at least 8 characters."},
	CodeTooManyRequests:  {KindRateLimit, "Too many attempts. Please try again later."},
	CodeNetwork:          {KindNetwork, "Network error. Check your internet connection and try again."},
	CodeProfileMissing:   {KindAuthorization, "Account not found. Please create an account first."},
	CodePermissionDenied: {KindAuthorization, "You do not have permission to do that."},
	CodeInternal:         {KindUnknown, GenericMessage},
}

// Normalize maps an arbitrary error to a user-facing message.
//
// The code field is consulted first, then the error text is scanned for an
// auth/<kebab-identifier> code, and finally the text itself is used with any
// vendor prefix stripped. Normalizing the returned message yields itself.
func Normalize(err error) string {
	if err == nil {
		return GenericMessage
	}

	text := err.Error()
	var e *Error
	if errors.As(err, &e) {
		if strings.HasPrefix(e.Code, "validation/") {
			return clean(e.Message)
		}
		if entry, ok := table[e.Code]; ok {
			return entry.message
		}
		if e.Message != "" {
			text = e.Message
		}
	}

	if entry, ok := table[scanCode(text)]; ok {
		return entry.message
	}
	return clean(text)
}

// NormalizeMessage is Normalize for a bare error text.
func NormalizeMessage(text string) string {
	return Normalize(errors.New(text))
}

func scanCode(text string) string {
	return codePattern.FindString(text)
}

func clean(text string) string {
	text = strings.TrimSpace(text)
	for stripped := true; stripped; {
		stripped = false
		for _, p := range vendorPrefixes {
			if strings.HasPrefix(text, p) {
				text = strings.TrimSpace(strings.TrimPrefix(text, p))
				stripped = true
			}
		}
	}
	if text == "" {
		return GenericMessage
	}
	return text
}
