package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/view"
)

type confirmData struct {
	ID int64
}

// handleForm renders a blank form, used to cancel editing.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, NewHTMXResponse(), "form", view.NewForm(s.now()))
}

// handleCategories renders the category options of the selected type.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	t, err := core.ParseTxType(r.URL.Query().Get("type"))
	if err != nil {
		t = core.Expense
	}
	s.render(w, r, NewHTMXResponse(), "category_options", view.FormState{
		Type:       t,
		Categories: core.Categories(t),
	})
}

// handleEdit loads a transaction into the form.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Header("HX-Reswap", "none").Write(w)
		return
	}
	l, _, err := s.ledgerFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tx, err := l.GetTransaction(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "form", view.FormFromTransaction(tx))
}

// handleSubmit creates a transaction, or updates the one named by the hidden
// id field. Each submission issues exactly one request to the ledger.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid form data").Header("HX-Reswap", "none").Write(w)
		return
	}
	editingID, err := parseEditingID(parser.Get("id"))
	if err != nil {
		BadRequestError(err.Error()).Header("HX-Reswap", "none").Write(w)
		return
	}
	in := core.TransactionInput{
		Type:        parser.Get("type"),
		Category:    parser.Get("category"),
		Amount:      parser.Get("amount"),
		Date:        parser.Get("date"),
		Description: parser.Get("description"),
	}

	l, scope, err := s.ledgerFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	notice := "Transaction added"
	if editingID > 0 {
		notice = "Transaction updated"
	}
	if _, err := s.txs.Save(r.Context(), l, scope, editingID, in); err != nil {
		var ve *services.ValidationError
		status, msg := http.StatusUnprocessableEntity, ""
		if errors.As(err, &ve) {
			msg = validationMessage(ve.Err)
		} else {
			status, msg = failure(err)
		}
		s.render(w, r, NewHTMXResponse().
			Status(status).
			TriggerErrorNotification(msg),
			"form", view.FormFromInput(editingID, in, msg))
		return
	}

	s.render(w, r, NewHTMXResponse().
		TriggerLedgerChanged().
		TriggerFormReset().
		TriggerSuccessNotification(notice),
		"form", view.NewForm(s.now()))
}

// handleConfirmDelete renders the confirmation dialog. It never calls the
// ledger.
func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Header("HX-Reswap", "none").Write(w)
		return
	}
	s.render(w, r, NewHTMXResponse(), "confirm", confirmData{ID: id})
}

// handleDelete deletes a transaction once the request carries confirm=yes;
// without it the confirmation dialog is rendered again.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Header("HX-Reswap", "none").Write(w)
		return
	}
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid form data").Header("HX-Reswap", "none").Write(w)
		return
	}
	if parser.Get("confirm") != "yes" {
		s.render(w, r, NewHTMXResponse(), "confirm", confirmData{ID: id})
		return
	}

	l, scope, err := s.ledgerFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.txs.Delete(r.Context(), l, scope, id); err != nil {
		status, msg := failure(err)
		ErrorResponse(status, msg).
			Header("HX-Reswap", "none").
			TriggerModalClose().
			Write(w)
		return
	}

	NewHTMXResponse().
		TriggerLedgerChanged().
		TriggerModalClose().
		TriggerSuccessNotification("Transaction deleted").
		Write(w)
}
