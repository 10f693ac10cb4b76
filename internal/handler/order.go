package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /api/orders.
type submitOrderRequest struct {
	Type   string `json:"type"`
	Side   string `json:"side"`
	Amount string `json:"amount"`
	Price  string `json:"price"`
}

// orderResponse is a single order.
type orderResponse struct {
	OrderID         string `json:"order_id"`
	Side            string `json:"side"`
	Symbol          string `json:"symbol"`
	Amount          string `json:"amount"`
	Price           string `json:"price"`
	FilledAmount    string `json:"filled_amount"`
	RemainingAmount string `json:"remaining_amount"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
}

// tradeResponse is a single execution of a placed order.
type tradeResponse struct {
	TradeID    string `json:"trade_id"`
	Price      string `json:"price"`
	Amount     string `json:"amount"`
	Total      string `json:"total"`
	Maker      string `json:"maker"`
	ExecutedAt string `json:"executed_at"`
}

// fillResponse summarizes the executions of a placed order.
type fillResponse struct {
	Filled       string  `json:"filled"`
	AveragePrice *string `json:"average_price"`
	Total        string  `json:"total"`
	FullyFilled  bool    `json:"fully_filled"`
	Remaining    string  `json:"remaining"`
}

// placeOrderResponse is the JSON response for POST /api/orders.
type placeOrderResponse struct {
	Type   string          `json:"type"`
	Order  orderResponse   `json:"order"`
	Fill   fillResponse    `json:"fill"`
	Trades []tradeResponse `json:"trades"`
}

// orderListResponse is the JSON response for GET /api/orders.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

// SubmitOrder handles POST /api/orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.orderSvc.SubmitOrder(r.Context(), service.SubmitOrderRequest{
		Type:   domain.OrderType(req.Type),
		Side:   domain.Side(req.Side),
		Amount: req.Amount,
		Price:  req.Price,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	fill := fillResponse{
		Filled:      domain.FormatAmount(res.Summary.Filled),
		Total:       domain.FormatPrice(res.Summary.Total),
		FullyFilled: res.FullyFilled(),
		Remaining:   domain.FormatAmount(res.Order.RemainingAmount),
	}
	if res.Summary.Filled.IsPositive() {
		avg := domain.FormatPrice(res.Summary.AveragePrice)
		fill.AveragePrice = &avg
	}

	WriteJSON(w, http.StatusCreated, placeOrderResponse{
		Type:   req.Type,
		Order:  buildOrderResponse(res.Order),
		Fill:   fill,
		Trades: buildTradeResponses(res.Trades),
	})
}

// GetOrder handles GET /api/orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.GetOrder(chi.URLParam(r, "order_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// ListOrders handles GET /api/orders.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var statusFilter *domain.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.OrderStatus(s)
		statusFilter = &status
	}

	page, ok := queryInt(w, r, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", 20)
	if !ok {
		return
	}

	orders, total, err := h.orderSvc.ListOrders(statusFilter, page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := orderListResponse{
		Orders: make([]orderResponse, len(orders)),
		Total:  total,
		Page:   page,
		Limit:  limit,
	}
	for i, o := range orders {
		resp.Orders[i] = buildOrderResponse(o)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// queryInt reads an integer query parameter, writing a 400 response and
// returning false when it is malformed.
func queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", key+" must be a valid integer")
		return 0, false
	}
	return n, true
}

func buildOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		OrderID:         o.ID,
		Side:            string(o.Side),
		Symbol:          o.Symbol,
		Amount:          domain.FormatAmount(o.Amount),
		Price:           domain.FormatPrice(o.Price),
		FilledAmount:    domain.FormatAmount(o.FilledAmount),
		RemainingAmount: domain.FormatAmount(o.RemainingAmount),
		Status:          string(o.Status),
		CreatedAt:       formatTime(o.CreatedAt),
	}
}

func buildTradeResponses(trades []*domain.Trade) []tradeResponse {
	result := make([]tradeResponse, len(trades))
	for i, t := range trades {
		maker := "user"
		if t.MakerTraderID == domain.MarketTraderID {
			maker = "market"
		}
		result[i] = tradeResponse{
			TradeID:    t.ID,
			Price:      domain.FormatPrice(t.Price),
			Amount:     domain.FormatAmount(t.Amount),
			Total:      domain.FormatPrice(t.Total),
			Maker:      maker,
			ExecutedAt: formatTime(t.ExecutedAt),
		}
	}
	return result
}
