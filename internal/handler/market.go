package handler

import (
	"net/http"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/service"
	"github.com/shopspring/decimal"
)

// MarketHandler handles HTTP requests for the dashboard's read models.
type MarketHandler struct {
	marketSvc   *service.MarketService
	bookDepth   int
	tradesLimit int
}

// NewMarketHandler creates a new MarketHandler. bookDepth and tradesLimit
// are the defaults when a request does not set depth or limit.
func NewMarketHandler(marketSvc *service.MarketService, bookDepth, tradesLimit int) *MarketHandler {
	return &MarketHandler{
		marketSvc:   marketSvc,
		bookDepth:   bookDepth,
		tradesLimit: tradesLimit,
	}
}

const maxRows = 100

type marketResponse struct {
	Symbol        string  `json:"symbol"`
	Ready         bool    `json:"ready"`
	LastPrice     string  `json:"last_price"`
	OpenPrice     string  `json:"open_price"`
	HighPrice     string  `json:"high_price"`
	LowPrice      string  `json:"low_price"`
	Volume        string  `json:"volume"`
	ChangePercent string  `json:"change_percent"`
	UpdatedAt     *string `json:"updated_at"`
	Error         *string `json:"error"`
}

type bookRowResponse struct {
	Price  string  `json:"price"`
	Amount string  `json:"amount"`
	Origin string  `json:"origin"`
	Status *string `json:"status"`
}

type bookResponse struct {
	Symbol    string            `json:"symbol"`
	Asks      []bookRowResponse `json:"asks"`
	Bids      []bookRowResponse `json:"bids"`
	Spread    *string           `json:"spread"`
	LastPrice *string           `json:"last_price"`
	UpdatedAt *string           `json:"updated_at"`
	Error     *string           `json:"error"`
}

type tradeRowResponse struct {
	Time   string `json:"time"`
	Price  string `json:"price"`
	Amount string `json:"amount"`
	Side   string `json:"side"`
	Origin string `json:"origin"`
}

type balanceResponse struct {
	Asset    string `json:"asset"`
	Free     string `json:"free"`
	Reserved string `json:"reserved"`
	Total    string `json:"total"`
}

type portfolioResponse struct {
	Balances     []balanceResponse `json:"balances"`
	LastPrice    string            `json:"last_price"`
	TotalValue   string            `json:"total_value"`
	InitialValue string            `json:"initial_value"`
	PnL          string            `json:"pnl"`
	PnLPercent   string            `json:"pnl_percent"`
}

type priceResponse struct {
	Price string `json:"price"`
}

// GetMarket handles GET /api/market.
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	m := h.marketSvc.Market()
	WriteJSON(w, http.StatusOK, marketResponse{
		Symbol:        m.Symbol,
		Ready:         m.Ready,
		LastPrice:     domain.FormatPrice(m.Ticker.LastPrice),
		OpenPrice:     domain.FormatPrice(m.Ticker.OpenPrice),
		HighPrice:     domain.FormatPrice(m.Ticker.HighPrice),
		LowPrice:      domain.FormatPrice(m.Ticker.LowPrice),
		Volume:        m.Ticker.Volume.String(),
		ChangePercent: m.Ticker.ChangePercent.StringFixed(2),
		UpdatedAt:     formatTimePtr(m.UpdatedAt),
		Error:         errString(m.MarketErr),
	})
}

// GetBook handles GET /api/book.
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	depth, ok := queryInt(w, r, "depth", h.bookDepth)
	if !ok {
		return
	}
	if depth < 1 || depth > maxRows {
		WriteError(w, http.StatusBadRequest, "validation_error", "depth must be between 1 and 100")
		return
	}

	view := h.marketSvc.Book(depth)
	WriteJSON(w, http.StatusOK, bookResponse{
		Symbol:    view.Symbol,
		Asks:      buildBookRows(view.Asks),
		Bids:      buildBookRows(view.Bids),
		Spread:    priceString(view.Spread),
		LastPrice: priceString(view.LastPrice),
		UpdatedAt: formatTimePtr(view.UpdatedAt),
		Error:     errString(view.MarketErr),
	})
}

// GetTrades handles GET /api/trades.
func (h *MarketHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", h.tradesLimit)
	if !ok {
		return
	}
	if limit < 1 || limit > maxRows {
		WriteError(w, http.StatusBadRequest, "validation_error", "limit must be between 1 and 100")
		return
	}

	rows := h.marketSvc.Trades(limit)
	resp := make([]tradeRowResponse, len(rows))
	for i, t := range rows {
		resp[i] = tradeRowResponse{
			Time:   formatTime(t.Time),
			Price:  domain.FormatPrice(t.Price),
			Amount: domain.FormatAmount(t.Amount),
			Side:   string(t.Side),
			Origin: string(t.Origin),
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetPortfolio handles GET /api/portfolio.
func (h *MarketHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.marketSvc.Portfolio(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	balances := make([]balanceResponse, len(p.Balances))
	for i, b := range p.Balances {
		balances[i] = balanceResponse{
			Asset:    b.Asset,
			Free:     b.Free.String(),
			Reserved: b.Reserved.String(),
			Total:    b.Total.String(),
		}
	}
	WriteJSON(w, http.StatusOK, portfolioResponse{
		Balances:     balances,
		LastPrice:    domain.FormatPrice(p.LastPrice),
		TotalValue:   domain.FormatPrice(p.TotalValue),
		InitialValue: domain.FormatPrice(p.InitialValue),
		PnL:          domain.FormatPrice(p.PnL),
		PnLPercent:   p.PnLPercent.StringFixed(2),
	})
}

// GetPrice handles GET /api/price.
func (h *MarketHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	p, err := h.marketSvc.Price(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, priceResponse{Price: domain.FormatPrice(p)})
}

func buildBookRows(rows []service.BookRow) []bookRowResponse {
	out := make([]bookRowResponse, len(rows))
	for i, row := range rows {
		out[i] = bookRowResponse{
			Price:  domain.FormatPrice(row.Price),
			Amount: domain.FormatAmount(row.Amount),
			Origin: string(row.Origin),
		}
		if row.Status != "" {
			s := string(row.Status)
			out[i].Status = &s
		}
	}
	return out
}

func priceString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := domain.FormatPrice(*d)
	return &s
}

func errString(err error) *string {
	if err == nil {
		return nil
	}
	s := err.Error()
	return &s
}
