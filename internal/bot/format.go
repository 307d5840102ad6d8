package bot

import (
	"fmt"
	"strings"

	"gastos/internal/core"
	"gastos/internal/services"

	"github.com/Rhymond/go-money"
	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
)

// FormatAmount renders amount in the conventions of its ISO currency code.
// Unknown codes fall back to a plain two-decimal rendering.
func FormatAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	factor := decimal.New(1, int32(cur.Fraction))
	m := money.New(amount.Mul(factor).Round(0).IntPart(), cur.Code)
	return m.Display() + " " + cur.Code
}

func signedAmount(e core.Entry) string {
	s := FormatAmount(e.Amount, e.Currency)
	if e.Type == core.Income {
		return "+" + s
	}
	return s
}

func formatBalanceLines(b *strings.Builder, balances []core.Balances, moneyType string) {
	multi := len(balances) > 1
	for _, bal := range balances {
		if multi {
			fmt.Fprintf(b, "\n%s\n", bal.Currency)
		}
		switch moneyType {
		case core.Cash:
			fmt.Fprintf(b, "💵 Tu saldo en efectivo es: %s\n", FormatAmount(bal.Cash, bal.Currency))
		case core.Bank:
			fmt.Fprintf(b, "🏦 Tu saldo en banco es: %s\n", FormatAmount(bal.Bank, bal.Currency))
		default:
			fmt.Fprintf(b, "💵 Efectivo: %s\n", FormatAmount(bal.Cash, bal.Currency))
			fmt.Fprintf(b, "🏦 Banco: %s\n", FormatAmount(bal.Bank, bal.Currency))
			fmt.Fprintf(b, "💰 Total: %s\n", FormatAmount(bal.Total(), bal.Currency))
		}
	}
}

func formatAnswer(a services.Answer) string {
	var b strings.Builder
	if a.Summary == nil {
		if a.Query.MoneyType != core.Cash && a.Query.MoneyType != core.Bank {
			b.WriteString("Tus saldos:\n")
		}
		formatBalanceLines(&b, a.Balances, a.Query.MoneyType)
		return strings.TrimRight(b.String(), "\n")
	}

	b.WriteString("📊 Resumen de tus finanzas:\n")
	formatBalanceLines(&b, a.Summary.Balances, "")

	hasExpenses := false
	for _, bal := range a.Summary.Balances {
		cats := a.Summary.ByCategory[bal.Currency]
		if len(cats) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n📈 Detalle por categoría (%s):\n", bal.Currency)
		for _, c := range cats {
			fmt.Fprintf(&b, "- %s: %s\n", c.Name, FormatAmount(c.Amount, bal.Currency))
		}
		if len(core.ExpenseSlices(cats)) > 0 {
			hasExpenses = true
		}
	}
	if !hasExpenses {
		b.WriteString("\nNo hay gastos registrados para mostrar en el gráfico.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatRecorded(entries []core.Entry) string {
	if len(entries) == 1 && entries[0].Exchange != nil {
		ex := entries[0].Exchange
		return fmt.Sprintf("✅ Cambio registrado: %s → %s (cotización %s).",
			FormatAmount(ex.SourceAmount, ex.SourceCurrency),
			FormatAmount(ex.TargetAmount, ex.TargetCurrency),
			ex.ExchangeRate.StringFixed(core.RatePlaces))
	}
	if len(entries) == 1 {
		return "✅ Transacción registrada correctamente."
	}
	return fmt.Sprintf("✅ Registré %d transacciones correctamente.", len(entries))
}

func formatListing(entries []core.Entry, category string) string {
	var b strings.Builder
	if category != "" {
		fmt.Fprintf(&b, "📊 Mostrando transacciones de la categoría '%s'\n\n", category)
	} else {
		b.WriteString("🗑 Para borrar una transacción, usá /borrar seguido del ID\n\n")
	}
	b.WriteString("ID | Fecha | Tipo | Monto | Categoría | Descripción\n")
	b.WriteString(strings.Repeat("-", 50) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%d | %s | %s | %s | %s | %s\n",
			e.ID, e.Timestamp.Format("2006-01-02"), e.Type, signedAmount(e), e.Category, e.Description)
	}
	b.WriteString("\nEjemplos:\n")
	b.WriteString("/borrar 123 - Borra una transacción\n")
	b.WriteString("/listar all - Muestra todas las transacciones\n")
	b.WriteString("/listar comida - Muestra solo transacciones de comida")
	return b.String()
}

func bulletList(names []string) string {
	lines := make([]string, len(names))
	for i, n := range names {
		lines[i] = "- " + n
	}
	return strings.Join(lines, "\n")
}

// closestName returns the candidate nearest to name, or "" when nothing is
// within a third of its length.
func closestName(name string, candidates []string) string {
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(name, c)
		if bestDist == -1 || d < bestDist {
			best, bestDist = c, d
		}
	}
	limit := len([]rune(name)) / 3
	if limit < 1 {
		limit = 1
	}
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}
