package model

import (
	"strings"
	"time"
)

// phoneLength is the exact number of digits of a valid phone number.
const phoneLength = 10

// BirthdayLayout is the text format in which birthdays are accepted and displayed.
const BirthdayLayout = "02.01.2006"

// Name is the name of a contact. It is the key of the contact within the directory.
type Name struct {
	value string
}

// NewName validates the raw name. The only requirement is that it is not blank.
func NewName(raw string) (Name, error) {
	if strings.TrimSpace(raw) == "" {
		return Name{}, &FieldError{Kind: KindName, Value: raw, Reason: "name must not be empty"}
	}
	return Name{value: raw}, nil
}

func (n Name) String() string {
	return n.value
}

// Phone is a phone number consisting of exactly ten decimal digits.
type Phone struct {
	value string
}

// NewPhone validates the raw phone number. It succeeds only if the value has exactly ten
// characters and each of them is an ASCII digit.
func NewPhone(raw string) (Phone, error) {
	if len(raw) != phoneLength || !isDigits(raw) {
		return Phone{}, &FieldError{Kind: KindPhone, Value: raw, Reason: "phone number must be 10 digits"}
	}
	return Phone{value: raw}, nil
}

func (p Phone) String() string {
	return p.value
}

// isDigits reports whether every byte of s is between '0' and '9'.
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Birthday is a date of birth. It keeps the text as entered together with the parsed date.
type Birthday struct {
	value string
	date  time.Time
}

// NewBirthday validates the raw text against the DD.MM.YYYY format. Day and month must have two
// digits, the year four, and the combination must be a real calendar date.
func NewBirthday(raw string) (Birthday, error) {
	date, err := time.Parse(BirthdayLayout, raw)
	if err != nil {
		return Birthday{}, &FieldError{Kind: KindBirthday, Value: raw, Reason: "use a real date in the format DD.MM.YYYY"}
	}
	return Birthday{value: raw, date: date}, nil
}

// Date returns the parsed date at midnight UTC.
func (b Birthday) Date() time.Time {
	return b.date
}

func (b Birthday) String() string {
	return b.value
}
