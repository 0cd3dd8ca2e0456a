package view

import (
	"strconv"
	"time"

	"fintrack/internal/core"
)

// FormState is everything the transaction form needs to render. A zero
// EditingID means the form creates.
type FormState struct {
	EditingID   int64
	Type        core.TxType
	Category    string
	Categories  []core.Category
	Amount      string
	Date        string
	Description string
	Error       string
}

func (f FormState) Editing() bool {
	return f.EditingID > 0
}

func (f FormState) SubmitLabel() string {
	if f.Editing() {
		return "Save changes"
	}
	return "Add transaction"
}

// IDValue is the hidden id field value; empty when creating.
func (f FormState) IDValue() string {
	if !f.Editing() {
		return ""
	}
	return strconv.FormatInt(f.EditingID, 10)
}

// NewForm is a blank expense form dated now.
func NewForm(now time.Time) FormState {
	return FormState{
		Type:       core.Expense,
		Categories: core.Categories(core.Expense),
		Date:       now.Format(core.DateTimeLocalLayout),
	}
}

func FormFromTransaction(tx core.Transaction) FormState {
	return FormState{
		EditingID:   tx.ID,
		Type:        tx.Type,
		Category:    tx.Category,
		Categories:  core.Categories(tx.Type),
		Amount:      tx.Amount.StringFixed(2),
		Date:        tx.Date.Format(core.DateTimeLocalLayout),
		Description: tx.Description,
	}
}

// FormFromInput re-renders submitted values with an error message.
func FormFromInput(editingID int64, in core.TransactionInput, errMsg string) FormState {
	t, err := core.ParseTxType(in.Type)
	if err != nil {
		t = core.Expense
	}
	return FormState{
		EditingID:   editingID,
		Type:        t,
		Category:    in.Category,
		Categories:  core.Categories(t),
		Amount:      in.Amount,
		Date:        in.Date,
		Description: in.Description,
		Error:       errMsg,
	}
}

// Input is the form's values as a TransactionInput.
func (f FormState) Input() core.TransactionInput {
	return core.TransactionInput{
		Type:        string(f.Type),
		Category:    f.Category,
		Amount:      f.Amount,
		Date:        f.Date,
		Description: f.Description,
	}
}
