package http

import (
	"time"

	"gastos/internal/core"
	"gastos/internal/services"
)

// Wire shapes. Amounts travel as fixed two-decimal strings.
type (
	exchangeJSON struct {
		SourceCurrency string `json:"source_currency"`
		TargetCurrency string `json:"target_currency"`
		SourceAmount   string `json:"source_amount"`
		TargetAmount   string `json:"target_amount"`
		ExchangeRate   string `json:"exchange_rate"`
	}

	entryJSON struct {
		ID          int64         `json:"id"`
		UserID      int64         `json:"user_id"`
		Type        string        `json:"type"`
		Amount      string        `json:"amount"`
		Currency    string        `json:"currency"`
		Category    string        `json:"category"`
		MoneyType   string        `json:"money_type"`
		Description string        `json:"description"`
		Timestamp   time.Time     `json:"timestamp"`
		Exchange    *exchangeJSON `json:"exchange,omitempty"`
	}

	balanceJSON struct {
		Currency string `json:"currency"`
		Cash     string `json:"cash"`
		Bank     string `json:"bank"`
		Total    string `json:"total"`
	}

	categoryJSON struct {
		Name   string `json:"name"`
		Amount string `json:"amount"`
	}

	summaryJSON struct {
		GroupID    int64                     `json:"group_id"`
		Balances   []balanceJSON             `json:"balances"`
		ByCategory map[string][]categoryJSON `json:"by_category"`
		Slices     map[string][]categoryJSON `json:"expense_slices"`
	}

	answerJSON struct {
		QueryType string        `json:"query_type"`
		MoneyType string        `json:"money_type"`
		Balances  []balanceJSON `json:"balances"`
		Summary   *summaryJSON  `json:"summary,omitempty"`
	}

	resultJSON struct {
		Recorded []entryJSON `json:"recorded,omitempty"`
		Answer   *answerJSON `json:"answer,omitempty"`
	}
)

func toEntryJSON(e core.Entry) entryJSON {
	out := entryJSON{
		ID:          e.ID,
		UserID:      e.UserID,
		Type:        string(e.Type),
		Amount:      e.Amount.StringFixed(2),
		Currency:    e.Currency,
		Category:    e.Category,
		MoneyType:   e.MoneyType,
		Description: e.Description,
		Timestamp:   e.Timestamp,
	}
	if x := e.Exchange; x != nil {
		out.Exchange = &exchangeJSON{
			SourceCurrency: x.SourceCurrency,
			TargetCurrency: x.TargetCurrency,
			SourceAmount:   x.SourceAmount.StringFixed(2),
			TargetAmount:   x.TargetAmount.StringFixed(2),
			ExchangeRate:   x.ExchangeRate.StringFixed(core.RatePlaces),
		}
	}
	return out
}

func toEntriesJSON(entries []core.Entry) []entryJSON {
	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		out[i] = toEntryJSON(e)
	}
	return out
}

func toBalancesJSON(in []core.Balances) []balanceJSON {
	out := make([]balanceJSON, len(in))
	for i, b := range in {
		out[i] = balanceJSON{
			Currency: b.Currency,
			Cash:     b.Cash.StringFixed(2),
			Bank:     b.Bank.StringFixed(2),
			Total:    b.Total().StringFixed(2),
		}
	}
	return out
}

func toCategoriesJSON(in []core.CategoryAmount) []categoryJSON {
	out := make([]categoryJSON, len(in))
	for i, c := range in {
		out[i] = categoryJSON{Name: c.Name, Amount: c.Amount.StringFixed(2)}
	}
	return out
}

func toSummaryJSON(s core.Summary) *summaryJSON {
	out := &summaryJSON{
		GroupID:    s.GroupID,
		Balances:   toBalancesJSON(s.Balances),
		ByCategory: make(map[string][]categoryJSON),
		Slices:     make(map[string][]categoryJSON),
	}
	for currency, cats := range s.ByCategory {
		out.ByCategory[currency] = toCategoriesJSON(cats)
		if slices := core.ExpenseSlices(cats); len(slices) > 0 {
			out.Slices[currency] = toCategoriesJSON(slices)
		}
	}
	return out
}

func toAnswerJSON(a services.Answer) *answerJSON {
	out := &answerJSON{
		QueryType: string(a.Query.QueryType),
		MoneyType: a.Query.MoneyType,
		Balances:  toBalancesJSON(a.Balances),
	}
	if a.Summary != nil {
		out.Summary = toSummaryJSON(*a.Summary)
	}
	return out
}

func toResultJSON(res services.Result) resultJSON {
	out := resultJSON{}
	if len(res.Recorded) > 0 {
		out.Recorded = toEntriesJSON(res.Recorded)
	}
	if res.Answer != nil {
		out.Answer = toAnswerJSON(*res.Answer)
	}
	return out
}
