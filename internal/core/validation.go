package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FormError is a validation failure detected before any backend call.
// Message is shown to the user verbatim.
type FormError struct {
	Field   string
	Message string
}

func (e *FormError) Error() string { return e.Message }

func formError(field, msg string) *FormError {
	return &FormError{Field: field, Message: msg}
}

// ValidEmail reports whether s has the shape local@domain.tld.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidateLogin checks the login form.
func ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return formError("email", "Email is required.")
	}
	if !ValidEmail(email) {
		return formError("email", "Invalid email format.")
	}
	if password == "" {
		return formError("password", "Password is required.")
	}
	return nil
}

// ValidateRegistration checks the registration form.
func ValidateRegistration(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return formError("name", "Name is required.")
	}
	if strings.TrimSpace(email) == "" {
		return formError("email", "Email is required.")
	}
	if !ValidEmail(email) {
		return formError("email", "Invalid email format.")
	}
	if len(password) < MinPasswordLength {
		return formError("password", fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}
	return nil
}

// TransactionForm is the raw input of the add income/expense forms.
type TransactionForm struct {
	Type     TransactionType
	Amount   string
	Category string
	Note     string
	Date     string
}

// Validate checks the form and converts it into a NewTransaction. An empty
// date defaults to today.
func (f TransactionForm) Validate() (NewTransaction, error) {
	label := f.Type.Label()
	if !f.Type.Valid() {
		return NewTransaction{}, formError("type", "Unknown transaction type.")
	}
	amount, err := ParseAmount(f.Amount)
	if err != nil {
		return NewTransaction{}, formError("amount", fmt.Sprintf("Please enter a valid %s amount.", label))
	}
	category := strings.TrimSpace(f.Category)
	if category == "" {
		return NewTransaction{}, formError("category", fmt.Sprintf("Please enter an %s category.", label))
	}
	date := strings.TrimSpace(f.Date)
	if date == "" {
		date = Today()
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		return NewTransaction{}, formError("date", "Please enter a valid date.")
	}
	return NewTransaction{
		Type:     f.Type,
		Amount:   amount,
		Category: category,
		Note:     strings.TrimSpace(f.Note),
		Date:     date,
	}, nil
}

// AmountString renders the amount the way it is sent to the backend.
func (t NewTransaction) AmountString() string {
	return t.Amount.String()
}
