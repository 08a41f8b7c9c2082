package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-desk/internal/app"
	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/config"
	"github.com/bobmcallan/vire-desk/internal/models"
	"github.com/bobmcallan/vire-desk/internal/navigator"
	"github.com/bobmcallan/vire-desk/internal/render"
)

// --- Helpers ---

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

func failed(err error) *mcp.CallToolResult {
	return errorResult(fmt.Sprintf("Error: %v", err))
}

// viewResult waits for the current view's loads and renders it.
func viewResult(a *app.App) *mcp.CallToolResult {
	a.Wait()
	return textResult(render.View(a.Snapshot()))
}

// navigate enters view and renders it.
func navigate(a *app.App, view navigator.View) *mcp.CallToolResult {
	if err := a.Navigate(view); err != nil {
		return failed(err)
	}
	return viewResult(a)
}

// entryID resolves a 1-based session log entry number.
func entryID(a *app.App, n int) (string, error) {
	entries := a.Analysis.Entries()
	if n < 1 || n > len(entries) {
		return "", fmt.Errorf("no analysis entry %d", n)
	}
	return entries[n-1].ID, nil
}

// --- Handlers ---

func handleGetVersion(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(fmt.Sprintf("vire-desk\nVersion: %s\nMode: %s\nStatus: OK",
			config.GetFullVersion(), a.Config.API.Mode)), nil
	}
}

func handleLogin(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		username, err := request.RequireString("username")
		if err != nil {
			return errorResult("Error: username parameter is required"), nil
		}
		password, err := request.RequireString("password")
		if err != nil {
			return errorResult("Error: password parameter is required"), nil
		}

		if _, err := a.Login(ctx, username, password); err != nil {
			return failed(err), nil
		}
		return viewResult(a), nil
	}
}

func handleRegister(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		username := request.GetString("username", "")
		password := request.GetString("password", "")
		role, ok := models.ParseRole(request.GetString("role", ""))
		if !ok {
			return errorResult("Error: role must be investor or analyst"), nil
		}

		if err := a.Register(ctx, username, password, role); err != nil {
			return failed(err), nil
		}
		return textResult(fmt.Sprintf("Registered %s as %s. Use login to continue.", username, role)), nil
	}
}

func handleLogout(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := a.Logout(ctx); err != nil {
			return failed(err), nil
		}
		return textResult("Logged out."), nil
	}
}

func handleWhoAmI(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap := a.Snapshot()
		return textResult(render.Session(snap.Authenticated, snap.Role, snap.State, snap.Allowed)), nil
	}
}

func handleAnalyzeStock(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil {
			return errorResult("Error: symbol parameter is required"), nil
		}

		result, err := a.Analyze(ctx, symbol)
		if err != nil {
			return failed(err), nil
		}
		return textResult(fmt.Sprintf("### [%d]\n%s", a.Analysis.Len(), render.Analysis(result))), nil
	}
}

func handleGetSessionLog(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !a.Session.Authenticated() {
			return errorResult("Error: not logged in"), nil
		}
		snap := a.Snapshot()
		return textResult(render.Chat(snap.Entries, snap.Drafts, snap.Pending)), nil
	}
}

func handleSetTradeQuantity(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := entryID(a, request.GetInt("entry", 0))
		if err != nil {
			return failed(err), nil
		}
		qty := decimal.NewFromFloat(request.GetFloat("quantity", 0))
		if err := a.SetDraftQuantity(id, qty); err != nil {
			return failed(err), nil
		}

		d, _ := a.Analysis.Draft(id)
		return textResult(fmt.Sprintf("%s: %s x %s = %s", d.Symbol,
			common.FormatQuantity(d.Quantity), common.FormatMoney(d.Price), common.FormatMoney(d.Total))), nil
	}
}

func handleTrade(a *app.App, buy bool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var err error
		if n := request.GetInt("entry", 0); n > 0 {
			var id string
			if id, err = entryID(a, n); err != nil {
				return failed(err), nil
			}
			if buy {
				err = a.BuyEntry(ctx, id)
			} else {
				err = a.SellEntry(ctx, id)
			}
		} else {
			symbol, serr := request.RequireString("symbol")
			if serr != nil {
				return errorResult("Error: pass entry, or symbol with quantity and price"), nil
			}
			qty := decimal.NewFromFloat(request.GetFloat("quantity", 0))
			price := decimal.NewFromFloat(request.GetFloat("price", 0))
			if buy {
				err = a.Buy(ctx, symbol, qty, price)
			} else {
				err = a.Sell(ctx, symbol, qty, price)
			}
		}
		if err != nil {
			return failed(err), nil
		}

		snap := a.Snapshot()
		return textResult(render.Holdings("Portfolio", snap.Holdings, snap.Summary)), nil
	}
}

func handleRemoveStock(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil {
			return errorResult("Error: symbol parameter is required"), nil
		}
		if err := a.Remove(ctx, symbol); err != nil {
			return failed(err), nil
		}
		snap := a.Snapshot()
		return textResult(render.Holdings("Portfolio", snap.Holdings, snap.Summary)), nil
	}
}

func handleGetPortfolio(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return navigate(a, navigator.ViewPortfolio), nil
	}
}

func handleGetReports(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return navigate(a, navigator.ViewReports), nil
	}
}

func handleListInvestors(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return navigate(a, navigator.ViewInvestors), nil
	}
}

func handleSelectInvestor(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := int64(request.GetInt("investor_id", 0))
		if id <= 0 {
			return errorResult("Error: investor_id parameter is required"), nil
		}

		// Selection is only offered from the investor list.
		switch a.Navigator.State().View {
		case navigator.ViewInvestors, navigator.ViewInvestorDetail:
		default:
			if err := a.Navigate(navigator.ViewInvestors); err != nil {
				return failed(err), nil
			}
		}
		a.Wait()

		if err := a.SelectInvestorByID(id); err != nil {
			return failed(err), nil
		}
		return viewResult(a), nil
	}
}
