package validation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinWeightKg = 0.5
	MaxWeightKg = 500.0
)

var (
	namePattern     = regexp.MustCompile(`^[a-zA-Z\s'-]{2,50}$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	phoneSeparators = regexp.MustCompile(`[\s()\-]`)
	emailPattern    = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	addressPattern  = regexp.MustCompile(`^[a-zA-Z0-9\s,.'-]{5,100}$`)
	decimalPattern  = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)
	trackingPattern = regexp.MustCompile(`^PKND-\d{8}-\d{5}$`)
	digitsPattern   = regexp.MustCompile(`^\d+$`)
	symbolPattern   = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>?/~` + "`" + `]`)
)

// maxDeclaredValue matches the largest amount pricing accepts.
const maxDeclaredValue = 1_000_000_000_000

var builtins = map[string]Rule{
	"name":           Name,
	"city":           City,
	"phone":          Phone,
	"phone_number":   Phone,
	"email":          Email,
	"email_optional": OptionalEmail,
	"address":        Address,
	"weight":         Weight,
	"password":       Password,
	"description":    Description,
	"declared_value": DeclaredValue,
	"value":          Value,
	"tracking_id":    TrackingID,
	"menu_choice":    MenuChoice,
}

// Name accepts 2 to 50 letters, spaces, hyphens or apostrophes.
func Name(input string) error {
	s := strings.TrimSpace(input)
	if s == "" {
		return errors.New("Name cannot be empty")
	}
	if !namePattern.MatchString(s) {
		return errors.New("Invalid name format. Only letters, spaces, hyphens and apostrophes allowed")
	}
	return nil
}

// City follows the same alphabet as Name.
func City(input string) error {
	s := strings.TrimSpace(input)
	if s == "" {
		return errors.New("City cannot be empty")
	}
	if !namePattern.MatchString(s) {
		return errors.New("Invalid city format. Only letters, spaces, hyphens and apostrophes allowed")
	}
	return nil
}

// Phone accepts 7 to 15 digits with an optional leading +, after removing
// spaces, dashes and parentheses.
func Phone(input string) error {
	s := strings.TrimSpace(input)
	if s == "" {
		return errors.New("Phone number cannot be empty")
	}
	if !phonePattern.MatchString(phoneSeparators.ReplaceAllString(s, "")) {
		return errors.New("Invalid phone number format")
	}
	return nil
}

// NormalizePhone strips the separators Phone tolerates.
func NormalizePhone(input string) string {
	return phoneSeparators.ReplaceAllString(strings.TrimSpace(input), "")
}

func Email(input string) error {
	s := strings.TrimSpace(input)
	if s == "" {
		return errors.New("Email cannot be empty")
	}
	if !emailPattern.MatchString(s) {
		return errors.New("Invalid email format")
	}
	return nil
}

// OptionalEmail accepts "0" as "no email".
func OptionalEmail(input string) error {
	if strings.TrimSpace(input) == "0" {
		return nil
	}
	return Email(input)
}

func Address(input string) error {
	s := strings.TrimSpace(input)
	if s == "" {
		return errors.New("Address cannot be empty")
	}
	if !addressPattern.MatchString(s) {
		return errors.New("Invalid address format. Please enter a valid address")
	}
	return nil
}

// Weight accepts a decimal with up to two places between 0.5 and 500 kg.
func Weight(input string) error {
	s := strings.TrimSpace(input)
	if s == "" {
		return errors.New("Weight cannot be empty")
	}
	if !decimalPattern.MatchString(s) {
		return errors.New("Invalid weight format. Enter a number with up to 2 decimal places")
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || w < MinWeightKg || w > MaxWeightKg {
		return errors.New("Weight must be between 0.5 and 500.0")
	}
	return nil
}

// Password requires 8 to 50 characters with upper, lower, digit and symbol.
func Password(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("Password cannot be empty")
	}
	n := utf8.RuneCountInString(input)
	switch {
	case n < 8:
		return errors.New("Password must be at least 8 characters long")
	case n > 50:
		return errors.New("Password must not exceed 50 characters")
	case !strings.ContainsFunc(input, isUpper):
		return errors.New("Password must contain at least one uppercase letter")
	case !strings.ContainsFunc(input, isLower):
		return errors.New("Password must contain at least one lowercase letter")
	case !strings.ContainsFunc(input, isDigit):
		return errors.New("Password must contain at least one digit")
	case !symbolPattern.MatchString(input):
		return errors.New("Password must contain at least one special character")
	}
	return nil
}

func Description(input string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(input))
	if n < 5 {
		return errors.New("Description must be at least 5 characters")
	}
	if n > 100 {
		return errors.New("Description must not exceed 100 characters")
	}
	return nil
}

// DeclaredValue accepts a strictly positive amount with up to two decimals.
func DeclaredValue(input string) error {
	s := strings.TrimSpace(input)
	if !decimalPattern.MatchString(s) {
		return errors.New("Invalid value. Enter a positive number.")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return errors.New("Invalid value. Enter a positive number.")
	}
	if v > maxDeclaredValue {
		return errors.New("Value too large.")
	}
	return nil
}

// Value accepts any decimal with up to two places.
func Value(input string) error {
	s := strings.TrimSpace(input)
	if s == "" {
		return errors.New("Value cannot be empty")
	}
	if !decimalPattern.MatchString(strings.TrimPrefix(s, "-")) {
		return errors.New("Invalid value format. Enter a number with up to 2 decimal places")
	}
	return nil
}

// TrackingID accepts PKND-YYYYMMDD-NNNNN, case-insensitively.
func TrackingID(input string) error {
	if !trackingPattern.MatchString(strings.ToUpper(strings.TrimSpace(input))) {
		return errors.New("Invalid tracking ID format")
	}
	return nil
}

func MenuChoice(input string) error {
	if !digitsPattern.MatchString(strings.TrimSpace(input)) {
		return errors.New("Please enter the number of an option")
	}
	return nil
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
