package ports

import (
	"context"
	"encoding/json"
	"time"

	"food-gateway/internal/core/domain"
)

// UpstreamClient is an "outgoing port" to the payment processor API.
// Errors returned by Post are always *domain.CommandError.
type UpstreamClient interface {
	Post(ctx context.Context, command domain.Command, payload any) (json.RawMessage, error)
}

// EventPublisher is another outgoing port for announcing accepted commands.
type EventPublisher interface {
	PublishCommandProcessed(ctx context.Context, event domain.CommandEvent) error
}

// RateLimiterRepository counts requests of a key inside a window.
type RateLimiterRepository interface {
	IsAllowed(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// FoodService is an "incoming port" that defines how the outside world can interact with our kernel.
type FoodService interface {
	Check(ctx context.Context, req domain.CheckRequest) (domain.Response, error)
	Pay(ctx context.Context, req domain.PayRequest) (domain.Response, error)
	GetMenu(ctx context.Context, req domain.GetMenuRequest) (domain.Response, error)
	SendCheck(ctx context.Context, req domain.SendCheckRequest) (domain.Response, error)
	GetReport(ctx context.Context, req domain.GetReportRequest) (domain.Response, error)
	GetPayments(ctx context.Context, req domain.GetPaymentsRequest) (domain.Response, error)
	GetAccounts(ctx context.Context, req domain.GetAccountsRequest) (domain.Response, error)
}
