package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"paper_trading/internal/ledger"
	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
)

type CommandDoc struct {
	Name        string
	Description string
	Example     string
}

func defaultCommands() []CommandDoc {
	return []CommandDoc{
		{"/ping", "Connectivity check", "/ping"},
		{"/status", "Uptime, tick count and equity", "/status"},
		{"/market", "Prices by sector", "/market [sector]"},
		{"/price", "One asset in detail", "/price <symbol>"},
		{"/events", "Recent market events, newest first", "/events"},
		{"/buy", "Place a buy order (market by default)", "/buy <symbol> <qty> [market|limit|stop|stop-limit] [price] [stop]"},
		{"/sell", "Place a sell order (market by default)", "/sell <symbol> <qty> [market|limit|stop|stop-limit] [price] [stop]"},
		{"/orders", "Pending orders", "/orders"},
		{"/cancel", "Cancel a pending order", "/cancel <order-id>"},
		{"/portfolio", "Cash, holdings and P/L", "/portfolio"},
		{"/history", "Transaction log, newest first", "/history [n]"},
		{"/watch", "Add a symbol to the watchlist", "/watch <symbol>"},
		{"/unwatch", "Remove a symbol from the watchlist", "/unwatch <symbol>"},
		{"/watchlist", "Watched symbols with prices", "/watchlist"},
		{"/reset", "Reset the portfolio or the market", "/reset portfolio|market"},
	}
}

// HandleCommand processes one operator command and returns the reply.
func (e *Engine) HandleCommand(ctx context.Context, cmd string) string {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return ""
	}
	if e.Stopped() {
		return "⏹️ Simulator stopped."
	}

	switch strings.ToLower(parts[0]) {
	case "/ping":
		return "Pong 🏓"
	case "/help":
		return formatHelp(e.commands)
	case "/status":
		return e.handleStatusCommand()
	case "/market":
		return e.handleMarketCommand(parts)
	case "/price":
		if len(parts) < 2 {
			return "Usage: /price <symbol>"
		}
		a, ok := e.Asset(strings.ToUpper(parts[1]))
		if !ok {
			return fmt.Sprintf("⚠️ Unknown symbol '%s'.", strings.ToUpper(parts[1]))
		}
		return formatPrice(a)
	case "/events":
		return formatEvents(e.Events())
	case "/buy":
		return e.handleOrderCommand(ctx, models.ActionBuy, parts)
	case "/sell":
		return e.handleOrderCommand(ctx, models.ActionSell, parts)
	case "/orders":
		return formatOrders(e.Portfolio().PendingOrders())
	case "/cancel":
		return e.handleCancelCommand(ctx, parts)
	case "/portfolio":
		return formatPortfolio(e.Valuation(), e.initialCash())
	case "/history":
		return e.handleHistoryCommand(parts)
	case "/watch":
		return e.handleWatchCommand(ctx, parts)
	case "/unwatch":
		if len(parts) < 2 {
			return "Usage: /unwatch <symbol>"
		}
		symbol := strings.ToUpper(parts[1])
		if e.RemoveFromWatchlist(ctx, symbol) == 0 {
			return fmt.Sprintf("%s is not on the watchlist.", symbol)
		}
		return fmt.Sprintf("👀 Removed %s from the watchlist.", symbol)
	case "/watchlist":
		return formatWatchlist(e.Portfolio().Watchlist, e.prices())
	case "/reset":
		return e.handleResetCommand(ctx, parts)
	default:
		return "Unknown command. Try /help."
	}
}

func (e *Engine) handleStatusCommand() string {
	e.mu.RLock()
	ticks := e.ticks
	v := e.ledger.Valuate(e.sim.Prices())
	pending := len(e.ledger.Portfolio().PendingOrders())
	events := len(e.sim.Events())
	e.mu.RUnlock()
	return formatStatus(ticks, time.Since(e.startedAt), v, pending, events)
}

func (e *Engine) handleMarketCommand(parts []string) string {
	u := e.universe()
	var sector models.Sector
	if len(parts) >= 2 {
		sector = models.Sector(strings.ToUpper(parts[1]))
		if len(u.Symbols(sector)) == 0 {
			return fmt.Sprintf("⚠️ Unknown sector '%s'.", sector)
		}
	}
	return formatMarket(u, e.Assets(), sector)
}

// handleOrderCommand parses
//
//	/buy|/sell <symbol> <qty> [type] [price] [stop]
func (e *Engine) handleOrderCommand(ctx context.Context, action models.Action, parts []string) string {
	usage := fmt.Sprintf("Usage: %s <symbol> <qty> [market|limit|stop|stop-limit] [price] [stop]", parts[0])
	if len(parts) < 3 {
		return usage
	}

	symbol := strings.ToUpper(parts[1])
	if _, ok := e.Asset(symbol); !ok {
		return fmt.Sprintf("⚠️ Unknown symbol '%s'.", symbol)
	}

	qty, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || qty <= 0 {
		return "⚠️ Quantity must be a positive whole number."
	}

	req := ledger.OrderRequest{Symbol: symbol, Type: models.OrderMarket, Action: action, Quantity: qty}
	if len(parts) >= 4 {
		if req.Type, err = models.ParseOrderType(parts[3]); err != nil {
			return "⚠️ " + err.Error() + "\n" + usage
		}
	}

	switch req.Type {
	case models.OrderLimit, models.OrderStop:
		if len(parts) < 5 {
			return fmt.Sprintf("⚠️ A %s order needs a price.\n%s", req.Type, usage)
		}
		if req.Price, err = parsePrice(parts[4]); err != nil {
			return "⚠️ " + err.Error()
		}
	case models.OrderStopLimit:
		if len(parts) < 6 {
			return "⚠️ A stop-limit order needs a limit price and a stop price.\n" + usage
		}
		if req.Price, err = parsePrice(parts[4]); err != nil {
			return "⚠️ " + err.Error()
		}
		if req.StopPrice, err = parsePrice(parts[5]); err != nil {
			return "⚠️ " + err.Error()
		}
	}

	order, err := e.PlaceOrder(ctx, req)
	if err != nil {
		return fmt.Sprintf("❌ %s %d %s rejected: %s", strings.ToUpper(string(action)), qty, symbol, rejectionReason(err))
	}
	if order.Type == models.OrderMarket {
		// The fill alert has already gone out through the notifier.
		return fmt.Sprintf("Order %s executed.", order.ID)
	}
	return "🕒 Order placed:\n" + formatOrder(order)
}

func parsePrice(s string) (decimal.Decimal, error) {
	p, err := decimal.NewFromString(strings.TrimPrefix(s, "$"))
	if err != nil || !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid price %q", s)
	}
	return p.Round(2), nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientCash):
		return "insufficient cash"
	case errors.Is(err, ledger.ErrInsufficientHoldings):
		return "insufficient holdings"
	case errors.Is(err, ledger.ErrUnknownAsset):
		return "unknown asset"
	case errors.Is(err, ledger.ErrInvalidQuantity):
		return "invalid quantity"
	}
	return err.Error()
}

func (e *Engine) handleCancelCommand(ctx context.Context, parts []string) string {
	if len(parts) < 2 {
		return "Usage: /cancel <order-id>"
	}
	if err := e.CancelOrder(ctx, parts[1]); err != nil {
		return fmt.Sprintf("⚠️ No pending order %s.", parts[1])
	}
	return fmt.Sprintf("🗑️ Order %s cancelled.", parts[1])
}

func (e *Engine) handleHistoryCommand(parts []string) string {
	limit := 10
	if len(parts) >= 2 {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n <= 0 {
			return "Usage: /history [n]"
		}
		limit = n
	}
	return formatHistory(e.Portfolio().Transactions, limit)
}

func (e *Engine) handleWatchCommand(ctx context.Context, parts []string) string {
	if len(parts) < 2 {
		return "Usage: /watch <symbol>"
	}
	symbol := strings.ToUpper(parts[1])
	if _, ok := e.Asset(symbol); !ok {
		return fmt.Sprintf("⚠️ Unknown symbol '%s'.", symbol)
	}
	if err := e.AddToWatchlist(ctx, symbol); err != nil {
		return "⚠️ " + err.Error()
	}
	return fmt.Sprintf("👀 Watching %s.", symbol)
}

func (e *Engine) handleResetCommand(ctx context.Context, parts []string) string {
	if len(parts) != 2 {
		return "Usage: /reset portfolio|market"
	}
	switch strings.ToLower(parts[1]) {
	case "portfolio":
		if err := e.ResetPortfolio(ctx); err != nil {
			return "⚠️ Portfolio reset in memory but could not be saved: " + err.Error()
		}
		return fmt.Sprintf("♻️ Portfolio reset. Cash: $%s", e.initialCash().StringFixed(2))
	case "market":
		if err := e.ResetMarketData(ctx); err != nil {
			return "⚠️ Market reset in memory but could not be saved: " + err.Error()
		}
		return "♻️ Market reset to seed prices."
	}
	return "Usage: /reset portfolio|market"
}
