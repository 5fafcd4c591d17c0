package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"food-gateway/internal/core/domain"
	"food-gateway/internal/core/ports"
	"food-gateway/internal/observability"
)

const tracerName = "food-gateway/app"

// service is the implementation of the FoodService port
type service struct {
	upstream  ports.UpstreamClient
	publisher ports.EventPublisher
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option tweaks a service at construction time.
type Option func(*service)

// WithClock replaces the wall clock used for txn_date normalization.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// NewFoodService is the constructor of our service.
// It accepts its dependencies through the ports (Dependency Injection).
func NewFoodService(upstream ports.UpstreamClient, publisher ports.EventPublisher, logger *slog.Logger, opts ...Option) ports.FoodService {
	s := &service{
		upstream:  upstream,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Check(ctx context.Context, req domain.CheckRequest) (domain.Response, error) {
	req.Command = domain.CommandCheck
	return s.forward(ctx, req.Command, req)
}

func (s *service) Pay(ctx context.Context, req domain.PayRequest) (domain.Response, error) {
	req.Command = domain.CommandPay
	req.TxnDate = domain.NormalizeTxnDate(req.TxnDate, s.now)

	resp, err := s.forward(ctx, req.Command, req)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.CommandEvent{
		Command:     req.Command,
		Account:     req.Account,
		Agent:       req.Agent,
		ServiceType: req.ServiceType,
		TxnID:       req.TxnID.String(),
		TxnDate:     *req.TxnDate,
	}, resp)
	return resp, nil
}

func (s *service) GetMenu(ctx context.Context, req domain.GetMenuRequest) (domain.Response, error) {
	req.Command = domain.CommandGetMenu
	return s.forward(ctx, req.Command, req)
}

// SendCheck prices buffet items identified by product_id from the provider menu before
// submitting the check. Items priced by the caller (product_code) are forwarded as they are.
func (s *service) SendCheck(ctx context.Context, req domain.SendCheckRequest) (domain.Response, error) {
	req.Command = domain.CommandSendCheck

	switch {
	case req.ServiceType == domain.ServiceBuffet && req.HasProductID():
		products, err := s.enrichProducts(ctx, req)
		if err != nil {
			return nil, err
		}
		req.Products = products
		return s.submitCheck(ctx, req, true)
	case req.HasProductCode():
		return s.submitCheck(ctx, req, false)
	default:
		return nil, domain.InvalidRequest("Products must have either product_id or product_code")
	}
}

func (s *service) GetReport(ctx context.Context, req domain.GetReportRequest) (domain.Response, error) {
	req.Command = domain.CommandGetReport
	return s.forward(ctx, req.Command, req)
}

func (s *service) GetPayments(ctx context.Context, req domain.GetPaymentsRequest) (domain.Response, error) {
	req.Command = domain.CommandGetPayments
	return s.forward(ctx, req.Command, req)
}

func (s *service) GetAccounts(ctx context.Context, req domain.GetAccountsRequest) (domain.Response, error) {
	req.Command = domain.CommandGetAccounts
	return s.forward(ctx, req.Command, req)
}

// enrichProducts fetches the buffet menu once and replaces the price of every product_id item
// with the menu price. A single unknown product_id rejects the whole check.
func (s *service) enrichProducts(ctx context.Context, req domain.SendCheckRequest) ([]domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "food.send_check.enrich")
	defer span.End()

	menu, err := s.fetchMenu(ctx, domain.GetMenuRequest{
		Command:     domain.CommandGetMenu,
		Account:     req.Account,
		AccountType: domain.AccountProvider,
		ServiceType: domain.ServiceBuffet,
		Agent:       req.Agent,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("food.menu.products", len(menu.Products)),
		attribute.Int("food.check.products", len(req.Products)),
	)

	enriched := make([]domain.Product, 0, len(req.Products))
	for _, p := range req.Products {
		if p.ProductID == "" {
			enriched = append(enriched, p)
			continue
		}
		item, ok := menu.FindProduct(p.ProductID)
		if !ok {
			err := domain.InvalidRequest("Product %s not found", p.ProductID)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		enriched = append(enriched, domain.Product{
			ProductID: p.ProductID,
			Price:     item.Price,
			Count:     p.Count,
		})
	}
	return enriched, nil
}

func (s *service) submitCheck(ctx context.Context, req domain.SendCheckRequest, enriched bool) (domain.Response, error) {
	req.TxnDate = domain.NormalizeTxnDate(req.TxnDate, s.now)

	resp, err := s.forward(ctx, req.Command, req)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.CommandEvent{
		Command:     req.Command,
		Account:     req.Account,
		Agent:       req.Agent,
		ServiceType: req.ServiceType,
		TxnID:       req.TxnID.String(),
		TxnDate:     *req.TxnDate,
		Enriched:    enriched,
	}, resp)
	return resp, nil
}

func (s *service) fetchMenu(ctx context.Context, req domain.GetMenuRequest) (*domain.Menu, error) {
	raw, err := s.upstream.Post(ctx, req.Command, req)
	if err != nil {
		return nil, err
	}

	var menu domain.Menu
	if err := json.Unmarshal(raw, &menu); err != nil {
		s.logger.ErrorContext(ctx, "failed to decode menu", "account", req.Account, "error", err)
		return nil, domain.Internal()
	}
	return &menu, nil
}

// forward performs exactly one upstream call and decodes the reply as a JSON object.
func (s *service) forward(ctx context.Context, command domain.Command, payload any) (domain.Response, error) {
	ctx, span := s.tracer.Start(ctx, "food."+string(command))
	defer span.End()

	raw, err := s.upstream.Post(ctx, command, payload)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp := domain.Response{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		s.logger.ErrorContext(ctx, "failed to decode upstream response", "command", command, "error", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.Internal()
	}
	return resp, nil
}

// publish announces an accepted command. The command already succeeded upstream,
// so a broker failure is only logged. Delivery is async and must outlive the request.
func (s *service) publish(ctx context.Context, event domain.CommandEvent, resp domain.Response) {
	if s.publisher == nil {
		return
	}
	if result, ok := resp["result"]; ok {
		event.Result = fmt.Sprint(result)
	}
	event.RequestID = observability.RequestID(ctx)
	event.ProcessedAt = s.now()

	if err := s.publisher.PublishCommandProcessed(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish command event", "command", event.Command, "error", err)
	}
}
