package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	"food-gateway/internal/core/domain"
	"food-gateway/internal/core/ports"
	"food-gateway/internal/core/validation"
	"food-gateway/internal/observability"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// FoodHandler stores all its dependencies.
type FoodHandler struct {
	service ports.FoodService
	logger  *slog.Logger
	query   *schema.Decoder
}

// NewFoodHandler accepts the orchestrator and a logger as dependencies.
func NewFoodHandler(service ports.FoodService, logger *slog.Logger) *FoodHandler {
	query := schema.NewDecoder()
	query.IgnoreUnknownKeys(true)
	return &FoodHandler{
		service: service,
		logger:  logger,
		query:   query,
	}
}

// Routes mounts every command twice: GET answers XML, POST answers JSON.
func (h *FoodHandler) Routes(r chi.Router) {
	h.mount(r, "/check", h.check)
	h.mount(r, "/pay", h.pay)
	h.mount(r, "/get-menu", h.getMenu)
	h.mount(r, "/send-check", h.sendCheck)
	h.mount(r, "/get-report", h.getReport)
	h.mount(r, "/get-payments", h.getPayments)
	h.mount(r, "/get-accounts", h.getAccounts)
}

type commandFunc func(r *http.Request, f format) (domain.Response, error)

func (h *FoodHandler) mount(r chi.Router, path string, fn commandFunc) {
	r.Get(path, h.serve(formatXML, fn))
	r.Post(path, h.serve(formatJSON, fn))
}

func (h *FoodHandler) serve(f format, fn commandFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := fn(r, f)
		if err != nil {
			h.handleError(w, r, f, err)
			return
		}
		writeBody(w, f, http.StatusOK, resp, h.requestLogger(r))
	}
}

func (h *FoodHandler) check(r *http.Request, f format) (domain.Response, error) {
	var req domain.CheckRequest
	if err := h.decode(r, f, &req); err != nil {
		return nil, err
	}
	req.Command = domain.CommandCheck
	if err := validation.ValidateCheck(req); err != nil {
		return nil, err
	}
	return h.service.Check(r.Context(), req)
}

func (h *FoodHandler) pay(r *http.Request, f format) (domain.Response, error) {
	var req domain.PayRequest
	if err := h.decode(r, f, &req); err != nil {
		return nil, err
	}
	req.Command = domain.CommandPay
	if err := validation.ValidatePay(req); err != nil {
		return nil, err
	}
	return h.service.Pay(r.Context(), req)
}

func (h *FoodHandler) getMenu(r *http.Request, f format) (domain.Response, error) {
	var req domain.GetMenuRequest
	if err := h.decode(r, f, &req); err != nil {
		return nil, err
	}
	req.Command = domain.CommandGetMenu
	if err := validation.ValidateGetMenu(req); err != nil {
		return nil, err
	}
	return h.service.GetMenu(r.Context(), req)
}

func (h *FoodHandler) sendCheck(r *http.Request, f format) (domain.Response, error) {
	var req domain.SendCheckRequest
	if err := h.decode(r, f, &req); err != nil {
		return nil, err
	}
	req.Command = domain.CommandSendCheck
	if err := validation.ValidateSendCheck(req); err != nil {
		return nil, err
	}
	return h.service.SendCheck(r.Context(), req)
}

func (h *FoodHandler) getReport(r *http.Request, f format) (domain.Response, error) {
	var req domain.GetReportRequest
	if err := h.decode(r, f, &req); err != nil {
		return nil, err
	}
	req.Command = domain.CommandGetReport
	if err := validation.ValidateGetReport(req); err != nil {
		return nil, err
	}
	return h.service.GetReport(r.Context(), req)
}

func (h *FoodHandler) getPayments(r *http.Request, f format) (domain.Response, error) {
	var req domain.GetPaymentsRequest
	if err := h.decode(r, f, &req); err != nil {
		return nil, err
	}
	req.Command = domain.CommandGetPayments
	if err := validation.ValidateGetPayments(req); err != nil {
		return nil, err
	}
	return h.service.GetPayments(r.Context(), req)
}

func (h *FoodHandler) getAccounts(r *http.Request, f format) (domain.Response, error) {
	var req domain.GetAccountsRequest
	if err := h.decode(r, f, &req); err != nil {
		return nil, err
	}
	req.Command = domain.CommandGetAccounts
	if err := validation.ValidateGetAccounts(req); err != nil {
		return nil, err
	}
	return h.service.GetAccounts(r.Context(), req)
}

// decode fills dst from the query string (XML flavour) or the JSON body.
func (h *FoodHandler) decode(r *http.Request, f format, dst any) error {
	if f == formatXML {
		if err := h.query.Decode(dst, r.URL.Query()); err != nil {
			ce := domain.InvalidRequest("invalid query parameters")
			var multi schema.MultiError
			if errors.As(err, &multi) {
				for _, e := range multi {
					ce.Details = append(ce.Details, e.Error())
				}
				sort.Strings(ce.Details)
			} else {
				ce.Details = []string{err.Error()}
			}
			return ce
		}
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return domain.InvalidRequest("invalid request body")
	}
	return nil
}

func (h *FoodHandler) handleError(w http.ResponseWriter, r *http.Request, f format, err error) {
	logger := h.requestLogger(r)

	ce, ok := domain.AsCommandError(err)
	if !ok {
		logger.Error("unclassified error reached the handler", "error", err)
		ce = domain.Internal()
	}

	status := statusFor(ce)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Warn("command failed", "path", r.URL.Path, "status", status, "error", ce.Message)
	default:
		logger.Debug("command rejected", "path", r.URL.Path, "status", status, "error", ce.Message)
	}

	writeError(w, f, status, ErrorResponse{Error: ce.Message, Details: ce.Details}, logger)
}

// statusFor maps an error kind to the HTTP status the caller sees.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *FoodHandler) requestLogger(r *http.Request) *slog.Logger {
	logger := observability.LoggerFromContext(r.Context(), h.logger)
	if user, ok := UserFromContext(r.Context()); ok {
		logger = logger.With("user", user)
	}
	return logger
}
