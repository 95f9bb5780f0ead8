package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

const (
	CategoryFood     Category = "food"
	CategoryFamily   Category = "family"
	CategoryMoney    Category = "money"
	CategoryDevice   Category = "device"
	CategoryShopping Category = "shopping"
	CategoryMedicine Category = "medicine"
	CategoryHaircut  Category = "haircut"
	CategoryOthers   Category = "others"
)

type (
	TransactionKind string

	Category string

	Money struct {
		Cents int64
	}

	// TransactionRecord is a single ledger entry. Records are immutable
	// once created; ID and CreatedAt are assigned by the store, never by
	// the caller, so client clocks never determine ordering.
	TransactionRecord struct {
		ID        string
		UserID    string
		Kind      TransactionKind
		Title     string
		Amount    Money
		Category  Category
		CreatedAt time.Time
	}
)

var (
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrEmptyTitle      = errors.New("empty title")
	ErrEmptyUserID     = errors.New("empty user id")
)

// Categories lists the fixed category set in display order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryFamily,
		CategoryMoney,
		CategoryDevice,
		CategoryShopping,
		CategoryMedicine,
		CategoryHaircut,
		CategoryOthers,
	}
}

func (k TransactionKind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (c Category) Validate() error {
	for _, known := range Categories() {
		if c == known {
			return nil
		}
	}
	return ErrInvalidCategory
}

// ParseCategory maps a free-form label onto the fixed category set,
// ignoring case and surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

func (m Money) Validate() error {
	// Sign is carried by the transaction kind, never by the amount.
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t TransactionRecord) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUserID
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(t.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Category.Validate(); err != nil {
		return err
	}
	return nil
}
