package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"gastos/internal/bot"
	"gastos/internal/core"
)

func renderBalances(w io.Writer, balances []core.Balances, moneyType string) {
	if len(balances) == 0 {
		fmt.Fprintln(w, "No transactions yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	switch moneyType {
	case core.Cash, core.Bank:
		fmt.Fprintf(tw, "CURRENCY\t%s\t\n", moneyType)
	default:
		fmt.Fprintln(tw, "CURRENCY\tcash\tbank\ttotal\t")
	}
	for _, b := range balances {
		switch moneyType {
		case core.Cash:
			fmt.Fprintf(tw, "%s\t%s\t\n", b.Currency, bot.FormatAmount(b.Cash, b.Currency))
		case core.Bank:
			fmt.Fprintf(tw, "%s\t%s\t\n", b.Currency, bot.FormatAmount(b.Bank, b.Currency))
		default:
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", b.Currency,
				bot.FormatAmount(b.Cash, b.Currency),
				bot.FormatAmount(b.Bank, b.Currency),
				bot.FormatAmount(b.Total(), b.Currency))
		}
	}
	tw.Flush()
}

func renderSummary(w io.Writer, s core.Summary) {
	fmt.Fprintf(w, "Group %d\n\n", s.GroupID)
	renderBalances(w, s.Balances, "all")

	currencies := make([]string, 0, len(s.ByCategory))
	for c := range s.ByCategory {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	for _, currency := range currencies {
		fmt.Fprintf(w, "\nBy category (%s)\n", currency)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, c := range s.ByCategory[currency] {
			fmt.Fprintf(tw, "  %s\t%s\n", c.Name, bot.FormatAmount(c.Amount, currency))
		}
		tw.Flush()
	}
}

func renderEntries(w io.Writer, entries []core.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tMONEY\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			e.Type,
			bot.FormatAmount(e.Amount, e.Currency),
			e.Category,
			e.MoneyType,
			e.Description)
	}
	tw.Flush()
}
