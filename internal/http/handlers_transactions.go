package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"finvault/internal/api"
	"finvault/internal/core"
	"finvault/internal/log"
)

// formFor returns the empty form page for kind, dated today.
func (s *Server) formFor(r *http.Request, kind core.TransactionType) transactionFormPage {
	title := strings.ToUpper(kind.Label()[:1]) + kind.Label()[1:]
	action := incomePath
	if kind == core.Expense {
		action = expensePath
	}
	return transactionFormPage{
		page:        s.dashboardPage(r, "Add "+title),
		Kind:        kind,
		KindTitle:   title,
		KindClass:   kind.Label(),
		Action:      action,
		Currency:    core.CurrencySymbol,
		MaxImageMB:  s.maxImage >> 20,
		Suggestions: categorySuggestions[kind],
		Form:        core.TransactionForm{Type: kind, Date: core.Today()},
	}
}

func (s *Server) transactionFormPage(kind core.TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderer.render(w, r, http.StatusOK, pageTransactionForm, s.formFor(r, kind))
	}
}

// createTransaction handles the add income and add expense forms. On
// success the form is shown again, emptied, with a confirmation banner.
// On failure the submitted values are kept so the user can retry.
func (s *Server) createTransaction(kind core.TransactionType) http.HandlerFunc {
	label := kind.Label()
	success := strings.ToUpper(label[:1]) + label[1:] + " added successfully!"
	failure := "Failed to add " + label + ". Please try again."

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := log.FromContext(ctx).WithComponent(log.ComponentTxn)
		sess := currentSession(r)
		data := s.formFor(r, kind)

		fail := func(status int, msg string) {
			data.Error = msg
			s.renderer.render(w, r, status, pageTransactionForm, data)
		}

		form, image, err := parseTransactionForm(w, r, kind, s.maxImage)
		data.Form = form
		switch {
		case errors.Is(err, errImageTooLarge):
			fail(http.StatusRequestEntityTooLarge, "Image is too large. The limit is "+formatMB(s.maxImage)+".")
			return
		case errors.Is(err, errNotAnImage):
			fail(http.StatusUnprocessableEntity, "The attached file is not an image.")
			return
		case err != nil:
			logger.WarnContext(ctx, "Parse transaction form failed", log.FieldError, err)
			fail(http.StatusBadRequest, "Invalid request format")
			return
		}

		txn, err := form.Validate()
		if err != nil {
			fail(http.StatusUnprocessableEntity, err.Error())
			return
		}
		txn.Image = image

		release, ok := s.inflight.begin(sess.ID + ":" + label)
		if !ok {
			fail(http.StatusConflict, "A submission is already in progress.")
			return
		}
		defer release()

		created, err := s.backend.CreateTransaction(ctx, sess.Token, txn)
		if err != nil {
			log.NewStructuredLogger(logger).LogError(ctx, "Create transaction failed", err, log.OpCreate,
				log.NewFields().WithTransaction(label, txn.AmountString(), txn.Category))
			msg := api.UserMessage(err, failure)
			if errors.Is(err, api.ErrNoToken) {
				msg = "User not logged in. Please login first."
			}
			fail(backendStatus(err), msg)
			return
		}

		if err := s.publisher.PublishTransactionCreated(ctx, sess.UserID, txn, created); err != nil {
			logger.WarnContext(ctx, "Publish transaction event failed", log.FieldTxnID, created.ID, log.FieldError, err)
		}
		log.NewStructuredLogger(logger).LogTransactionCreated(ctx, label, txn.AmountString(), txn.Category, created.ID)

		data.Form = core.TransactionForm{Type: kind, Date: core.Today()}
		data.Success = success
		s.renderer.render(w, r, http.StatusOK, pageTransactionForm, data)
	}
}

// handleHistory lists every transaction, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := currentSession(r)
	data := historyPage{page: s.dashboardPage(r, "Transaction History")}

	txns, err := s.backend.ListTransactions(ctx, sess.Token)
	if err != nil {
		msg := "Failed to fetch transactions."
		if errors.Is(err, api.ErrNoToken) {
			msg = "Token missing. Please login again."
		}
		data.Error = msg
		s.renderer.render(w, r, backendStatus(err), pageHistory, data)
		return
	}

	data.Cards = newTransactionCards(core.SortNewestFirst(txns), s.backend.TransactionsBaseURL())
	s.renderer.render(w, r, http.StatusOK, pageHistory, data)
}

func formatMB(n int64) string {
	return strconv.FormatInt(n>>20, 10) + " MB"
}
