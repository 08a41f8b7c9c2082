package main

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/vire-desk/internal/app"
)

// registerTools registers all MCP tools on the server, wiring each to a handler
// that drives the application controller.
func registerTools(s *server.MCPServer, a *app.App) {
	s.AddTool(createGetVersionTool(), handleGetVersion(a))
	s.AddTool(createLoginTool(), handleLogin(a))
	s.AddTool(createRegisterTool(), handleRegister(a))
	s.AddTool(createLogoutTool(), handleLogout(a))
	s.AddTool(createWhoAmITool(), handleWhoAmI(a))
	s.AddTool(createAnalyzeStockTool(), handleAnalyzeStock(a))
	s.AddTool(createGetSessionLogTool(), handleGetSessionLog(a))
	s.AddTool(createSetTradeQuantityTool(), handleSetTradeQuantity(a))
	s.AddTool(createBuyStockTool(), handleTrade(a, true))
	s.AddTool(createSellStockTool(), handleTrade(a, false))
	s.AddTool(createRemoveStockTool(), handleRemoveStock(a))
	s.AddTool(createGetPortfolioTool(), handleGetPortfolio(a))
	s.AddTool(createGetReportsTool(), handleGetReports(a))
	s.AddTool(createListInvestorsTool(), handleListInvestors(a))
	s.AddTool(createSelectInvestorTool(), handleSelectInvestor(a))
}

func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the vire-desk version and backend mode. Use this to verify connectivity."),
	)
}

func createLoginTool() mcp.Tool {
	return mcp.NewTool("login",
		mcp.WithDescription("Log in to the analysis platform. The session is persisted and restored on restart. Investors land on their portfolio, analysts on the investor list."),
		mcp.WithString("username", mcp.Required(), mcp.Description("Account username")),
		mcp.WithString("password", mcp.Required(), mcp.Description("Account password")),
	)
}

func createRegisterTool() mcp.Tool {
	return mcp.NewTool("register",
		mcp.WithDescription("Create an account. Log in afterwards."),
		mcp.WithString("username", mcp.Required(), mcp.Description("Account username")),
		mcp.WithString("password", mcp.Required(), mcp.Description("Account password")),
		mcp.WithString("role", mcp.Required(), mcp.Enum("investor", "analyst"), mcp.Description("Account role")),
	)
}

func createLogoutTool() mcp.Tool {
	return mcp.NewTool("logout",
		mcp.WithDescription("Log out and clear every piece of session state, including the analysis log and trade drafts."),
	)
}

func createWhoAmITool() mcp.Tool {
	return mcp.NewTool("whoami",
		mcp.WithDescription("Show the logged-in role, the current view, and the views the role can reach."),
	)
}

func createAnalyzeStockTool() mcp.Tool {
	return mcp.NewTool("analyze_stock",
		mcp.WithDescription("Request an AI analysis of a stock symbol: price, daily change, recommendation, suggested allocation and a 30-day chart. The result is appended to the session log and can be traded by entry number."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Ticker symbol (e.g., 'AAPL'). Case-insensitive.")),
	)
}

func createGetSessionLogTool() mcp.Tool {
	return mcp.NewTool("get_session_log",
		mcp.WithDescription("List every analysis requested this session with entry numbers and trade drafts."),
	)
}

func createSetTradeQuantityTool() mcp.Tool {
	return mcp.NewTool("set_trade_quantity",
		mcp.WithDescription("Set the quantity drafted for an analysis entry. Drafts default to 1 share at the analyzed price."),
		mcp.WithNumber("entry", mcp.Required(), mcp.Description("Entry number from get_session_log (1-based)")),
		mcp.WithNumber("quantity", mcp.Required(), mcp.Description("Share quantity, greater than zero")),
	)
}

func createBuyStockTool() mcp.Tool {
	return mcp.NewTool("buy_stock",
		mcp.WithDescription("INVESTORS ONLY: Buy shares. Either pass entry to buy an analysis entry's draft at its analyzed price, or pass symbol, quantity and price."),
		mcp.WithNumber("entry", mcp.Description("Entry number from get_session_log")),
		mcp.WithString("symbol", mcp.Description("Ticker symbol when not trading an entry")),
		mcp.WithNumber("quantity", mcp.Description("Share quantity when not trading an entry")),
		mcp.WithNumber("price", mcp.Description("Price per share when not trading an entry")),
	)
}

func createSellStockTool() mcp.Tool {
	return mcp.NewTool("sell_stock",
		mcp.WithDescription("INVESTORS ONLY: Sell shares. Either pass entry to sell an analysis entry's draft at its analyzed price, or pass symbol, quantity and price. Selling more than held closes the position."),
		mcp.WithNumber("entry", mcp.Description("Entry number from get_session_log")),
		mcp.WithString("symbol", mcp.Description("Ticker symbol when not trading an entry")),
		mcp.WithNumber("quantity", mcp.Description("Share quantity when not trading an entry")),
		mcp.WithNumber("price", mcp.Description("Price per share when not trading an entry")),
	)
}

func createRemoveStockTool() mcp.Tool {
	return mcp.NewTool("remove_stock",
		mcp.WithDescription("INVESTORS ONLY: Remove every position in a symbol from the portfolio."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Ticker symbol to remove")),
	)
}

func createGetPortfolioTool() mcp.Tool {
	return mcp.NewTool("get_portfolio",
		mcp.WithDescription("INVESTORS ONLY: Get consolidated holdings with weighted average cost, current value and profit/loss."),
	)
}

func createGetReportsTool() mcp.Tool {
	return mcp.NewTool("get_reports",
		mcp.WithDescription("INVESTORS ONLY: List past analysis reports, newest first."),
	)
}

func createListInvestorsTool() mcp.Tool {
	return mcp.NewTool("list_investors",
		mcp.WithDescription("ANALYSTS ONLY: List investor accounts."),
	)
}

func createSelectInvestorTool() mcp.Tool {
	return mcp.NewTool("select_investor",
		mcp.WithDescription("ANALYSTS ONLY: Show one investor's portfolio and report history (read-only). Call list_investors first."),
		mcp.WithNumber("investor_id", mcp.Required(), mcp.Description("Investor id from list_investors")),
	)
}
