package engine

import (
	"fmt"
	"strings"
	"time"

	"paper_trading/internal/ledger"
	"paper_trading/internal/market"
	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04:05"

func formatEventAlert(e models.MarketEvent) string {
	return fmt.Sprintf("📰 %s [%s]\nAffected: %s",
		e.Description, strings.ToUpper(string(e.Impact)), strings.Join(e.AffectedStocks, ", "))
}

func formatFillAlert(tx models.Transaction) string {
	return fmt.Sprintf("✅ FILLED: %s %d %s @ $%s",
		strings.ToUpper(string(tx.Action)), tx.Quantity, tx.Asset, tx.Price.StringFixed(2))
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}

func formatAsset(a models.Asset) string {
	icon := "🟢"
	if a.DayChange.IsNegative() {
		icon = "🔴"
	}
	return fmt.Sprintf("%s %-5s $%s  %s (%s%%)",
		icon, a.Symbol, a.Price.StringFixed(2), signed(a.DayChange), signed(a.DayChangePercentage))
}

// formatMarket lists assets grouped by sector in universe order. A non-empty
// sector restricts the listing to that sector.
func formatMarket(u market.Universe, assets []models.Asset, sector models.Sector) string {
	bySector := make(map[models.Sector][]models.Asset)
	for _, a := range assets {
		bySector[a.Sector] = append(bySector[a.Sector], a)
	}

	var sb strings.Builder
	sb.WriteString("🏛️ MARKET\n")
	for _, s := range u.Sectors {
		if sector != "" && s.Sector != sector {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n%s\n", s.Sector))
		for _, a := range bySector[s.Sector] {
			sb.WriteString(formatAsset(a))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatPrice(a models.Asset) string {
	return fmt.Sprintf("💲 %s (%s, %s)\nPrice: $%s\nSession open: $%s\nChange: %s (%s%%)",
		a.Symbol, a.Name, a.Sector,
		a.Price.StringFixed(2), a.PreviousPrice.StringFixed(2),
		signed(a.DayChange), signed(a.DayChangePercentage))
}

func formatEvents(events []models.MarketEvent) string {
	if len(events) == 0 {
		return "No market events yet."
	}
	var sb strings.Builder
	sb.WriteString("📰 MARKET EVENTS\n")
	for _, e := range events {
		sb.WriteString(fmt.Sprintf("\n%s  %s [%s]\n  %s\n",
			e.Timestamp.Format(timeLayout), e.Description, e.Impact, strings.Join(e.AffectedStocks, ", ")))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatOrder(o models.Order) string {
	line := fmt.Sprintf("%s  %s %s %d %s", o.ID, strings.ToUpper(string(o.Action)), o.Type, o.Quantity, o.Asset)
	switch o.Type {
	case models.OrderLimit, models.OrderStop:
		line += " @ $" + o.Price.StringFixed(2)
	case models.OrderStopLimit:
		line += fmt.Sprintf(" @ $%s stop $%s", o.Price.StringFixed(2), o.StopPrice.StringFixed(2))
	}
	return line + "  [" + string(o.Status) + "]"
}

func formatOrders(orders []models.Order) string {
	if len(orders) == 0 {
		return "No pending orders."
	}
	var sb strings.Builder
	sb.WriteString("📋 PENDING ORDERS\n")
	for _, o := range orders {
		sb.WriteString("\n" + formatOrder(o))
	}
	return sb.String()
}

func formatPortfolio(v ledger.Valuation, initialCash decimal.Decimal) string {
	var sb strings.Builder
	sb.WriteString("💼 PORTFOLIO\n")
	sb.WriteString(fmt.Sprintf("Cash: $%s\n", v.Cash.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Holdings: $%s\n", v.HoldingsValue.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Total: $%s\n", v.TotalValue.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Unrealized P/L: $%s\n", signed(v.ProfitLoss)))
	sb.WriteString(fmt.Sprintf("Return: $%s", signed(v.TotalValue.Sub(initialCash))))

	if len(v.Positions) == 0 {
		sb.WriteString("\n\nNo holdings.")
		return sb.String()
	}
	for _, p := range v.Positions {
		sb.WriteString(fmt.Sprintf("\n\n🔹 %s x%d\nAvg: $%s | Now: $%s\nValue: $%s | P/L: $%s (%s%%)",
			p.Symbol, p.Quantity, p.AveragePrice.StringFixed(2), p.Price.StringFixed(2),
			p.MarketValue.StringFixed(2), signed(p.ProfitLoss), signed(p.ProfitLossPct)))
	}
	return sb.String()
}

func formatHistory(txs []models.Transaction, limit int) string {
	if len(txs) == 0 {
		return "No transactions yet."
	}
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	var sb strings.Builder
	sb.WriteString("🧾 TRANSACTIONS\n")
	for _, tx := range txs {
		sb.WriteString(fmt.Sprintf("\n%s  %s %d %s @ $%s",
			tx.Timestamp.Format(timeLayout), strings.ToUpper(string(tx.Action)), tx.Quantity, tx.Asset, tx.Price.StringFixed(2)))
	}
	return sb.String()
}

// formatWatchlist joins watchlist entries with the current prices.
func formatWatchlist(items []models.WatchlistItem, prices market.Prices) string {
	if len(items) == 0 {
		return "Watchlist is empty."
	}
	var sb strings.Builder
	sb.WriteString("👀 WATCHLIST\n")
	for _, item := range items {
		price := "n/a"
		if p, ok := prices.Price(item.Symbol); ok {
			price = "$" + p.StringFixed(2)
		}
		sb.WriteString(fmt.Sprintf("\n%-5s %s  (since %s)", item.Symbol, price, item.AddedAt.Format(timeLayout)))
	}
	return sb.String()
}

func formatStatus(ticks int64, uptime time.Duration, v ledger.Valuation, pending, events int) string {
	return fmt.Sprintf("📊 STATUS\nUptime: %s\nTicks: %d\nEquity: $%s\nPending orders: %d\nLogged events: %d",
		uptime.Round(time.Second), ticks, v.TotalValue.StringFixed(2), pending, events)
}

func formatHelp(commands []CommandDoc) string {
	var sb strings.Builder
	sb.WriteString("🤖 PAPER SIM COMMANDS\n")
	for _, cmd := range commands {
		sb.WriteString(fmt.Sprintf("\n🔹 %s  %s\n   %s\n", cmd.Name, cmd.Description, cmd.Example))
	}
	return strings.TrimRight(sb.String(), "\n")
}
