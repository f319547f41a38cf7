package ledger

import (
	"errors"
	"strings"

	"bookkeeping/internal/core"
)

// Schema binds a record variant to its positional row layout. The header is
// the schema: columns are encoded and decoded in header order.
type Schema[R core.Record] struct {
	Kind         core.LedgerKind
	Header       []string
	Title        string // names exported files
	AmountColumn int    // header index of the amount cell
	Encode       func(R) []string
	// Decode never fails outright. The returned error, if any, describes
	// which cells were malformed; the record is still usable.
	Decode func(row []string) (R, error)
}

// Width is the number of columns in a row.
func (s Schema[R]) Width() int { return len(s.Header) }

var ReimbursementSchema = Schema[core.Reimbursement]{
	Kind:         core.KindReimbursement,
	Header:       []string{"项目代码", "日期", "科目名称", "报销到账", "用户", "备注"},
	Title:        "科研经费报销记录",
	AmountColumn: 3,
	Encode: func(r core.Reimbursement) []string {
		return []string{
			r.ProjectCode,
			r.Date.String(),
			string(r.Category),
			r.Amount.String(),
			r.User,
			r.Note,
		}
	},
	Decode: func(row []string) (core.Reimbursement, error) {
		date, dateErr := decodeDate(row[1])
		amount, amountErr := decodeAmount(row[3])
		return core.Reimbursement{
			ProjectCode: strings.TrimSpace(row[0]),
			Date:        date,
			Category:    core.Category(strings.TrimSpace(row[2])),
			Amount:      amount,
			User:        strings.TrimSpace(row[4]),
			Note:        row[5],
		}, errors.Join(dateErr, amountErr)
	},
}

var ExpenseSchema = Schema[core.Expense]{
	Kind:         core.KindExpense,
	Header:       []string{"日期", "项目", "金额", "备注"},
	Title:        "支出记录",
	AmountColumn: 2,
	Encode: func(e core.Expense) []string {
		return []string{e.Date.String(), e.Item, e.Amount.String(), e.Note}
	},
	Decode: func(row []string) (core.Expense, error) {
		date, dateErr := decodeDate(row[0])
		amount, amountErr := decodeAmount(row[2])
		return core.Expense{
			Date:   date,
			Item:   strings.TrimSpace(row[1]),
			Amount: amount,
			Note:   row[3],
		}, errors.Join(dateErr, amountErr)
	},
}

func decodeDate(cell string) (core.Date, error) {
	d, err := core.ParseDate(cell)
	if err != nil {
		return core.Date{}, ErrMalformedDate
	}
	return d, nil
}

func decodeAmount(cell string) (core.Amount, error) {
	a := core.CoerceAmount(cell)
	if a.Missing() {
		return a, ErrMalformedAmount
	}
	return a, nil
}
