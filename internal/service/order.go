package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/engine"
	"github.com/shopspring/decimal"
)

// ValidOrderStatuses lists all valid order status values for validation.
var ValidOrderStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusPending:         true,
	domain.OrderStatusPartiallyFilled: true,
	domain.OrderStatusFilled:          true,
	domain.OrderStatusCancelled:       true,
}

// SubmitOrderRequest represents the input for order placement. Amount and
// Price are decimal strings; Price is ignored for market orders.
type SubmitOrderRequest struct {
	Type   domain.OrderType
	Side   domain.Side
	Amount string
	Price  string
}

// OrderResult is a placed order together with its executions.
type OrderResult struct {
	Order   domain.Order
	Trades  []*domain.Trade
	Summary domain.FillSummary
}

// FullyFilled reports whether nothing is left of the order.
func (r OrderResult) FullyFilled() bool {
	return r.Order.Status == domain.OrderStatusFilled
}

// OrderService handles order placement, retrieval and listing.
type OrderService struct {
	exchange *engine.Exchange
	logger   *slog.Logger
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(exchange *engine.Exchange, logger *slog.Logger) *OrderService {
	return &OrderService{
		exchange: exchange,
		logger:   logger,
	}
}

// SubmitOrder validates the request and places it on the exchange.
func (s *OrderService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*OrderResult, error) {
	if !req.Type.Valid() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("unknown order type %q, must be one of: market, limit", req.Type),
		}
	}
	if !req.Side.Valid() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("unknown side %q, must be one of: buy, sell", req.Side),
		}
	}
	amount, err := domain.ParsePositive("amount", req.Amount, domain.AmountPlaces)
	if err != nil {
		return nil, err
	}

	var p engine.Placement
	if req.Type == domain.OrderTypeMarket {
		p, err = s.submitMarket(ctx, req.Side, amount)
	} else {
		p, err = s.submitLimit(req, amount)
	}
	if err != nil {
		s.logger.Warn("order rejected",
			slog.String("type", string(req.Type)),
			slog.String("side", string(req.Side)),
			slog.String("amount", req.Amount),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	res := &OrderResult{
		Order:   p.Order,
		Trades:  p.Trades,
		Summary: domain.Summarize(p.Trades),
	}
	s.logger.Info("order placed",
		slog.String("order_id", p.Order.ID),
		slog.String("type", string(req.Type)),
		slog.String("side", string(req.Side)),
		slog.String("amount", amount.String()),
		slog.String("filled", res.Summary.Filled.String()),
		slog.Int("trades", res.Summary.Trades),
		slog.String("status", string(p.Order.Status)),
	)
	return res, nil
}

func (s *OrderService) submitMarket(ctx context.Context, side domain.Side, amount decimal.Decimal) (engine.Placement, error) {
	if side == domain.SideBuy {
		return s.exchange.MarketBuy(ctx, amount)
	}
	return s.exchange.MarketSell(ctx, amount)
}

func (s *OrderService) submitLimit(req SubmitOrderRequest, amount decimal.Decimal) (engine.Placement, error) {
	price, err := domain.ParsePositive("price", req.Price, domain.PricePlaces)
	if err != nil {
		return engine.Placement{}, err
	}
	if req.Side == domain.SideBuy {
		return s.exchange.LimitBuy(amount, price)
	}
	return s.exchange.LimitSell(amount, price)
}

// GetOrder retrieves one of the trader's orders by ID.
func (s *OrderService) GetOrder(orderID string) (domain.Order, error) {
	return s.exchange.Order(orderID)
}

// ListOrders returns a paginated list of the trader's orders with optional
// status filtering.
func (s *OrderService) ListOrders(status *domain.OrderStatus, page, limit int) ([]domain.Order, int, error) {
	if status != nil && !ValidOrderStatuses[*status] {
		return nil, 0, &domain.ValidationError{
			Message: fmt.Sprintf("invalid status filter %q, must be one of: pending, partially_filled, filled, cancelled", *status),
		}
	}
	if page < 1 {
		return nil, 0, &domain.ValidationError{
			Message: "page must be >= 1",
		}
	}
	if limit < 1 || limit > 100 {
		return nil, 0, &domain.ValidationError{
			Message: "limit must be between 1 and 100",
		}
	}

	orders, total := s.exchange.Orders(status, page, limit)
	return orders, total, nil
}
