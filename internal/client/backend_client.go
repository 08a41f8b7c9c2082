// Package client implements interfaces.Backend over the analysis platform's
// REST API.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-desk/internal/cache"
	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/config"
	"github.com/bobmcallan/vire-desk/internal/errs"
	"github.com/bobmcallan/vire-desk/internal/models"
)

// BackendClient communicates with the analysis backend. The token is passed
// as a query parameter on every authenticated call.
type BackendClient struct {
	client *resty.Client
	logger *common.Logger
	cache  *cache.ResponseCache
}

// NewBackendClient creates a client targeting baseURL.
func NewBackendClient(baseURL string, timeout time.Duration, logger *common.Logger) *BackendClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := resty.New()
	c.SetBaseURL(strings.TrimRight(baseURL, "/"))
	c.SetTimeout(timeout)
	c.SetHeader("User-Agent", config.UserAgent())
	c.SetHeader("Accept", "application/json")

	return &BackendClient{client: c, logger: logger}
}

// SetCache attaches a response cache for authenticated reads. Writes made
// with a token drop that token's entries.
func (c *BackendClient) SetCache(rc *cache.ResponseCache) {
	c.cache = rc
}

// errorBody is the backend's failure payload.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// detail extracts the human-readable reason. Validation failures carry a
// list of objects rather than a string; their first msg is used.
func (e errorBody) detail() string {
	if len(e.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(e.Detail, &items); err == nil && len(items) > 0 {
		return items[0].Msg
	}
	return string(e.Detail)
}

// classify maps a completed response to the error taxonomy. It returns nil
// for 2xx responses.
func classify(op string, resp *resty.Response) error {
	code := resp.StatusCode()
	if code < http.StatusBadRequest {
		return nil
	}

	var body errorBody
	_ = json.Unmarshal(resp.Body(), &body)
	msg := body.detail()
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errs.Auth(op, msg)
	case code == http.StatusConflict:
		return errs.Conflict(op, msg)
	case code == http.StatusBadRequest && op == "register":
		return errs.Conflict(op, msg)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return &errs.Error{Kind: errs.KindValidation, Op: op, Message: msg}
	default:
		return errs.Server(op, msg)
	}
}

// execute runs req and returns the body of a successful response.
func (c *BackendClient) execute(op string, req *resty.Request, method, path string) ([]byte, error) {
	log := common.FromContext(req.Context(), c.logger)
	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		log.Warn().Str("op", op).Str("path", path).Err(err).Msg("backend unreachable")
		return nil, errs.Network(op, err)
	}

	log.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Dur("elapsed", time.Since(start)).
		Msg("backend call")

	if err := classify(op, resp); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// do executes req and decodes a successful body into out (when non-nil).
func (c *BackendClient) do(op string, req *resty.Request, method, path string, out any) error {
	body, err := c.execute(op, req, method, path)
	if err != nil {
		return err
	}
	return decode(op, body, out)
}

// get performs an authenticated read, served from the cache when possible.
func (c *BackendClient) get(ctx context.Context, op, token, path string, out any) error {
	key := cache.MakeKey(token, http.MethodGet, path)
	var gen uint64
	if c.cache != nil {
		gen = c.cache.Generation(token)
		if body, ok := c.cache.Get(key); ok {
			common.FromContext(ctx, c.logger).Debug().Str("op", op).Str("path", path).Msg("backend cache hit")
			return decode(op, body, out)
		}
	}

	req := c.client.R().SetContext(ctx).SetQueryParam("token", token)
	body, err := c.execute(op, req, http.MethodGet, path)
	if err != nil {
		return err
	}
	if err := decode(op, body, out); err != nil {
		return err
	}
	if c.cache != nil && !c.cache.SetIfCurrent(token, gen, key, body) {
		common.FromContext(ctx, c.logger).Debug().Str("op", op).Str("path", path).Msg("read overtaken by a write, not cached")
	}
	return nil
}

// write performs a mutating call and drops the token's cached reads.
func (c *BackendClient) write(op, token string, req *resty.Request, method, path string, out any) error {
	err := c.do(op, req, method, path, out)
	if c.cache != nil {
		c.cache.InvalidateToken(token)
	}
	return err
}

func decode(op string, body []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errs.Server(op, "failed to parse response: "+err.Error())
	}
	return nil
}

// Login authenticates and returns the issued session.
// POST /login {username,password} -> {access_token, token_type, role}
func (c *BackendClient) Login(ctx context.Context, username, password string) (models.Session, error) {
	var result struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		Role        string `json:"role"`
	}
	req := c.client.R().SetContext(ctx).SetBody(map[string]string{
		"username": username,
		"password": password,
	})
	if err := c.do("login", req, http.MethodPost, "/login", &result); err != nil {
		return models.Session{}, err
	}

	role, ok := models.ParseRole(result.Role)
	if !ok || result.AccessToken == "" {
		return models.Session{}, errs.Server("login", "backend returned an incomplete session")
	}
	return models.Session{Token: result.AccessToken, Role: role}, nil
}

// Register creates an account. It does not authenticate.
// POST /register {username,password,role} -> {message}
func (c *BackendClient) Register(ctx context.Context, username, password string, role models.Role) error {
	req := c.client.R().SetContext(ctx).SetBody(map[string]string{
		"username": username,
		"password": password,
		"role":     string(role),
	})
	return c.do("register", req, http.MethodPost, "/register", nil)
}

type chatResponse struct {
	StockData struct {
		Symbol        string          `json:"symbol"`
		Name          string          `json:"name"`
		Price         decimal.Decimal `json:"price"`
		Change        decimal.Decimal `json:"change"`
		PercentChange decimal.Decimal `json:"percent_change"`
	} `json:"stock_data"`
	Analysis struct {
		Analysis         string          `json:"analysis"`
		Recommendation   string          `json:"recommendation"`
		PortfolioPercent decimal.Decimal `json:"portfolio_percent"`
		Reasoning        string          `json:"reasoning"`
	} `json:"analysis"`
	ChartData *struct {
		Labels []string          `json:"labels"`
		Prices []decimal.Decimal `json:"prices"`
	} `json:"chart_data"`
}

func (r chatResponse) result(requested string) models.AnalysisResult {
	out := models.AnalysisResult{
		Symbol:         r.StockData.Symbol,
		Name:           r.StockData.Name,
		Price:          r.StockData.Price,
		ChangeAbs:      r.StockData.Change,
		ChangePct:      r.StockData.PercentChange,
		AnalysisText:   r.Analysis.Analysis,
		Recommendation: r.Analysis.Recommendation,
		AllocationPct:  r.Analysis.PortfolioPercent,
		Reasoning:      r.Analysis.Reasoning,
	}
	if out.Symbol == "" {
		out.Symbol = requested
	}
	if out.Name == "" {
		out.Name = out.Symbol
	}
	if r.ChartData != nil {
		n := min(len(r.ChartData.Labels), len(r.ChartData.Prices))
		for i := 0; i < n; i++ {
			out.Chart = append(out.Chart, models.ChartPoint{Label: r.ChartData.Labels[i], Price: r.ChartData.Prices[i]})
		}
	}
	return out
}

// Analyze requests a quote plus AI analysis for symbol.
// POST /chat?token= {stock_symbol, question}
func (c *BackendClient) Analyze(ctx context.Context, token, symbol, question string) (models.AnalysisResult, error) {
	var result chatResponse
	req := c.client.R().SetContext(ctx).
		SetQueryParam("token", token).
		SetBody(map[string]string{
			"stock_symbol": symbol,
			"question":     question,
		})
	if err := c.write("analyze", token, req, http.MethodPost, "/chat", &result); err != nil {
		return models.AnalysisResult{}, err
	}
	return result.result(symbol), nil
}

// GetReports returns report history for the caller (owner 0) or an investor.
// GET /reports?token= or GET /reports/{owner}?token= -> {reports}
func (c *BackendClient) GetReports(ctx context.Context, token string, owner int64) ([]models.Report, error) {
	path := "/reports"
	if owner != 0 {
		path = "/reports/" + strconv.FormatInt(owner, 10)
	}

	var result struct {
		Reports []models.Report `json:"reports"`
	}
	if err := c.get(ctx, "reports", token, path, &result); err != nil {
		return nil, err
	}
	return result.Reports, nil
}

// ApplyTransaction appends one signed ledger entry.
// POST /portfolio/add?token=&stock_symbol=&quantity=&purchase_price=
func (c *BackendClient) ApplyTransaction(ctx context.Context, token string, tx models.Transaction) error {
	req := c.client.R().SetContext(ctx).SetQueryParams(map[string]string{
		"token":          token,
		"stock_symbol":   tx.Symbol,
		"quantity":       tx.Quantity.String(),
		"purchase_price": tx.Price.String(),
	})
	return c.write("portfolio.add", token, req, http.MethodPost, "/portfolio/add", nil)
}

// RemoveSymbol deletes every ledger entry for symbol.
// DELETE /portfolio/remove?stock_symbol=&token=
func (c *BackendClient) RemoveSymbol(ctx context.Context, token, symbol string) error {
	req := c.client.R().SetContext(ctx).SetQueryParams(map[string]string{
		"token":        token,
		"stock_symbol": symbol,
	})
	return c.write("portfolio.remove", token, req, http.MethodDelete, "/portfolio/remove", nil)
}

// GetPortfolio returns the consolidated view for the caller (owner 0) or an
// investor.
// GET /portfolio/consolidated/{owner|me}?token= -> {portfolio, summary}
func (c *BackendClient) GetPortfolio(ctx context.Context, token string, owner int64) (models.Portfolio, error) {
	id := "me"
	if owner != 0 {
		id = strconv.FormatInt(owner, 10)
	}

	var result models.Portfolio
	if err := c.get(ctx, "portfolio.get", token, "/portfolio/consolidated/"+id, &result); err != nil {
		return models.Portfolio{}, err
	}
	return result, nil
}

// ListInvestors returns the investors visible to an analyst.
// GET /investors?token= -> {investors}
func (c *BackendClient) ListInvestors(ctx context.Context, token string) ([]models.InvestorRef, error) {
	var result struct {
		Investors []models.InvestorRef `json:"investors"`
	}
	if err := c.get(ctx, "investors", token, "/investors", &result); err != nil {
		return nil, err
	}
	return result.Investors, nil
}
