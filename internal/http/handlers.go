package http

import (
	"net/http"
	"strings"

	"gastos/internal/bot"
	"gastos/internal/core"
	"gastos/internal/intent"
	"gastos/internal/log"
	"gastos/internal/services"
)

type replyJSON struct {
	Text     string        `json:"text"`
	Balances []balanceJSON `json:"balances,omitempty"`
	Summary  *summaryJSON  `json:"summary,omitempty"`
	Entries  []entryJSON   `json:"entries,omitempty"`
}

type messageRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

type renameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// handleMessage runs free text or a slash command through the dispatcher,
// exactly as a chat message would be handled.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	group, err := groupID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var req messageRequest
	if err := decodeJSON(body, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	reply := s.bot.Handle(r.Context(), bot.Message{UserID: req.UserID, GroupID: group, Text: sanitizeInput(req.Text)})

	out := replyJSON{
		Text:     reply.Text,
		Balances: toBalancesJSON(reply.Balances),
		Entries:  toEntriesJSON(reply.Entries),
	}
	if reply.Summary != nil {
		out.Summary = toSummaryJSON(*reply.Summary)
	}
	NewResponse().JSON(out).Write(w)
}

// handleIntent applies an already-classified intent document. Like any other
// message it drops a pending clear request.
func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	group, err := groupID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	userID, err := optionalInt64(r.URL.Query(), "user_id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	s.guard.Cancel(group)

	res, err := s.ledger.ApplyRaw(r.Context(), services.Author{UserID: userID, GroupID: group}, body)
	if err != nil {
		s.logFailure(r, "Intent rejected", err, log.OpRecord, group)
		FromError(err).Write(w)
		return
	}

	status := http.StatusOK
	if len(res.Recorded) > 0 {
		status = http.StatusCreated
	}
	NewResponse().Status(status).JSON(toResultJSON(res)).Write(w)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	group, err := groupID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	mt := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("money_type")))
	if mt == "" {
		mt = intent.MoneyTypeAll
	}
	if mt != core.Cash && mt != core.Bank && mt != intent.MoneyTypeAll {
		BadRequestError("money_type must be cash, bank or all").Write(w)
		return
	}

	a, err := s.ledger.Queries().Answer(r.Context(), group, intent.Query{QueryType: intent.Balance, MoneyType: mt})
	if err != nil {
		s.logFailure(r, "Balance query failed", err, log.OpQuery, group)
		FromError(err).Write(w)
		return
	}
	NewResponse().JSON(toAnswerJSON(a)).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	group, err := groupID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	sum, err := s.ledger.Queries().Summary(r.Context(), group)
	if err != nil {
		s.logFailure(r, "Summary query failed", err, log.OpQuery, group)
		FromError(err).Write(w)
		return
	}
	NewResponse().JSON(toSummaryJSON(sum)).Write(w)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	group, err := groupID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p, err := ParseListParams(r.URL.Query(), s.listLimit)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	p.Category = core.NormalizeName(p.Category)
	if p.Category != "" {
		names, err := s.ledger.Categories(r.Context())
		if err != nil {
			FromError(err).Write(w)
			return
		}
		known := false
		for _, n := range names {
			known = known || n == p.Category
		}
		if !known {
			NotFoundError("unknown category " + p.Category).Write(w)
			return
		}
	}

	entries, err := s.ledger.ListRecent(r.Context(), group, p.Limit, p.Category)
	if err != nil {
		s.logFailure(r, "Listing failed", err, log.OpList, group)
		FromError(err).Write(w)
		return
	}
	NewResponse().JSON(map[string]any{"transactions": toEntriesJSON(entries)}).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	group, err := groupID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	id, err := pathInt64(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	e, err := s.ledger.GetTransaction(r.Context(), group, id)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewResponse().JSON(toEntryJSON(e)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	group, err := groupID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	id, err := pathInt64(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	s.guard.Cancel(group)

	ok, err := s.ledger.DeleteTransaction(r.Context(), group, id)
	if err != nil {
		s.logFailure(r, "Delete failed", err, log.OpDelete, group)
		FromError(err).Write(w)
		return
	}
	if !ok {
		NotFoundError("transaction not found in this group").Write(w)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	names, err := s.ledger.Categories(r.Context())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewResponse().JSON(map[string]any{"categories": names}).Write(w)
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var req renameRequest
	if err := decodeJSON(body, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	from, to := core.NormalizeName(sanitizeInput(req.From)), core.NormalizeName(sanitizeInput(req.To))
	if from == "" || to == "" {
		BadRequestError("from and to are required").Write(w)
		return
	}

	if err := s.ledger.RenameCategory(r.Context(), from, to); err != nil {
		s.logFailure(r, "Rename failed", err, log.OpRename, 0)
		FromError(err).Write(w)
		return
	}
	NewResponse().JSON(renameRequest{From: from, To: to}).Write(w)
}

// handleClearRequest arms the confirmation step for a group.
func (s *Server) handleClearRequest(w http.ResponseWriter, r *http.Request) {
	group, err := groupID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	count, err := s.ledger.CountTransactions(r.Context(), group)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	s.guard.Request(group, count)
	NewResponse().Status(http.StatusAccepted).JSON(map[string]any{
		"state": s.guard.State(group).String(),
		"count": count,
	}).Write(w)
}

func (s *Server) handleClearConfirm(w http.ResponseWriter, r *http.Request) {
	group, err := groupID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if !s.guard.Confirm(group) {
		ConflictError("no clear request is pending for this group").Write(w)
		return
	}
	n, err := s.ledger.ClearAll(r.Context(), group)
	if err != nil {
		s.logFailure(r, "Clear failed", err, log.OpClear, group)
		FromError(err).Write(w)
		return
	}
	NewResponse().JSON(map[string]any{"deleted": n}).Write(w)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Ping(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) logFailure(r *http.Request, msg string, err error, op string, group int64) {
	log.FromContext(r.Context()).LogError(r.Context(), msg, err, op, log.NewFields().WithScope(group, 0))
}
