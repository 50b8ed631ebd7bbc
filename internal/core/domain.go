// Package core holds the transaction and account types shared by the API
// client and the page handlers, together with the form validation rules.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the kind of a transaction as the backend spells it.
type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// DateLayout is the calendar date format exchanged with the backend and
// used by the HTML date inputs.
const DateLayout = "2006-01-02"

type (
	// Transaction is a backend-owned income or expense record.
	Transaction struct {
		ID        int64           `json:"id"`
		Type      TransactionType `json:"type"`
		Amount    decimal.Decimal `json:"amount"`
		Category  string          `json:"category"`
		Note      string          `json:"note,omitempty"`
		Date      string          `json:"date"`
		ImageURL  string          `json:"imageUrl,omitempty"`
		CreatedAt string          `json:"createdAt,omitempty"`
	}

	// NewTransaction carries the fields submitted by the add income/expense forms.
	NewTransaction struct {
		Type     TransactionType
		Amount   decimal.Decimal
		Category string
		Note     string
		Date     string
		Image    *Attachment
	}

	// Attachment is an optional receipt image uploaded with a transaction.
	Attachment struct {
		Filename    string
		ContentType string
		Data        []byte
	}

	// User is the account summary returned by the login endpoint.
	User struct {
		ID    ID     `json:"id"`
		Name  string `json:"name,omitempty"`
		Email string `json:"email,omitempty"`
	}

	// Profile is the current user's profile. Only Name is rendered.
	Profile struct {
		ID    ID     `json:"id,omitempty"`
		Name  string `json:"name"`
		Email string `json:"email,omitempty"`
	}
)

// Label returns the human wording of the type, lower case.
func (t TransactionType) Label() string {
	switch t {
	case Income:
		return "income"
	case Expense:
		return "expense"
	default:
		return strings.ToLower(string(t))
	}
}

// Valid reports whether t is one of the known types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// AvatarLabel is the placeholder shown when a transaction has no image:
// the first character of its type.
func (t Transaction) AvatarLabel() string {
	for _, r := range string(t.Type) {
		return string(r)
	}
	return ""
}

// ImageSource returns the image location for the card: the transactions
// backend base URL followed by the stored path, always. The page's img-src
// policy only admits that host. It is empty when the transaction has no
// image.
func (t Transaction) ImageSource(baseURL string) string {
	if t.ImageURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + t.ImageURL
}

// Today returns the current date in DateLayout.
func Today() string {
	return time.Now().Format(DateLayout)
}

// ID is a backend identifier. The auth service may encode it as a JSON
// number or a string; both decode to the same textual form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }
