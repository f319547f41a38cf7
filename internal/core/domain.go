package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindReimbursement LedgerKind = "reimbursement"
	KindExpense       LedgerKind = "expense"
)

// Dimensions a record can be grouped or filtered on.
const (
	DimProject  Dimension = "project"
	DimUser     Dimension = "user"
	DimCategory Dimension = "category"
	DimItem     Dimension = "item"
)

const (
	CategoryOther       Category = "其他"
	CategoryHospitality Category = "公务接待费/食宿费"
	CategoryLabour      Category = "劳务费"
	CategoryTransport   Category = "交通费"
	CategoryMaintenance Category = "维修(护)费/设备维修费"
)

// DateLayout is the on-ledger representation of a calendar date.
const DateLayout = "2006-01-02"

type (
	LedgerKind string

	Dimension string

	Category string

	Date struct {
		time.Time
	}

	// Record is one typed ledger row. Reimbursement and Expense are the two variants.
	Record interface {
		Kind() LedgerKind
		When() Date
		Value() Amount
		// Field returns the value of a grouping dimension, or false when the
		// variant has no such column.
		Field(d Dimension) (string, bool)
		Validate() error
	}

	// Reimbursement is a row of the project reimbursement ledger.
	Reimbursement struct {
		ProjectCode string   `json:"project_code" validate:"required,notblank,max=64"`
		Date        Date     `json:"date" validate:"-"`
		Category    Category `json:"category" validate:"required,category"`
		Amount      Amount   `json:"amount" validate:"-"`
		User        string   `json:"user" validate:"required,notblank,max=64"`
		Note        string   `json:"note" validate:"max=500"`
	}

	// Expense is a row of the generic expense ledger.
	Expense struct {
		Date   Date   `json:"date" validate:"-"`
		Item   string `json:"item" validate:"required,notblank,max=200"`
		Amount Amount `json:"amount" validate:"-"`
		Note   string `json:"note" validate:"max=500"`
	}

	// ProjectKind describes a family of project codes shown in the entry form.
	ProjectKind struct {
		Name        string `json:"name"`
		Prefix      string `json:"prefix"`
		DefaultCode string `json:"default_code"`
	}
)

// Categories lists the reimbursement categories in form order.
var Categories = []Category{
	CategoryOther,
	CategoryHospitality,
	CategoryLabour,
	CategoryTransport,
	CategoryMaintenance,
}

var ProjectKinds = []ProjectKind{
	{Name: "孵化卡(FHJ)", Prefix: "FHJ", DefaultCode: "FHJ1620004"},
	{Name: "横向课题(KHJ)", Prefix: "KHJ", DefaultCode: "KHJ1625606"},
}

var (
	ErrZeroDate    = errors.New("date cannot be zero")
	ErrInvalidDate = errors.New("invalid date")
)

func (k LedgerKind) IsValid() bool {
	return k == KindReimbursement || k == KindExpense
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// ProjectKindFor returns the project kind whose prefix matches code.
func ProjectKindFor(code string) (ProjectKind, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, k := range ProjectKinds {
		if strings.HasPrefix(code, k.Prefix) {
			return k, true
		}
	}
	return ProjectKind{}, false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	"2006-01-02 15:04:05",
	"2006年1月2日",
}

// ParseDate accepts the ledger layout and the few variants people type into
// a spreadsheet by hand.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrZeroDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return Date{}, ErrInvalidDate
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// String renders the ledger layout; the zero date renders empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// Between reports whether d lies in [from, to]; zero bounds are open.
// The zero date is never inside a bounded range.
func (d Date) Between(from, to Date) bool {
	if from.IsZero() && to.IsZero() {
		return true
	}
	if d.IsZero() {
		return false
	}
	if !from.IsZero() && d.Before(from.Time) {
		return false
	}
	if !to.IsZero() && d.After(to.Time) {
		return false
	}
	return true
}

func (Reimbursement) Kind() LedgerKind { return KindReimbursement }
func (r Reimbursement) When() Date     { return r.Date }
func (r Reimbursement) Value() Amount  { return r.Amount }

func (r Reimbursement) Field(d Dimension) (string, bool) {
	switch d {
	case DimProject:
		return r.ProjectCode, true
	case DimUser:
		return r.User, true
	case DimCategory:
		return string(r.Category), true
	}
	return "", false
}

func (r Reimbursement) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	if err := r.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Reason: err.Error()}
	}
	return r.Amount.validateInput()
}

func (Expense) Kind() LedgerKind { return KindExpense }
func (e Expense) When() Date     { return e.Date }
func (e Expense) Value() Amount  { return e.Amount }

func (e Expense) Field(d Dimension) (string, bool) {
	if d == DimItem {
		return e.Item, true
	}
	return "", false
}

func (e Expense) Validate() error {
	if err := validateStruct(e); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Reason: err.Error()}
	}
	return e.Amount.validateInput()
}
