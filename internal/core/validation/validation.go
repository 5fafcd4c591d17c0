// Package validation holds one explicit schema per command. Each validator checks the
// whole parsed request and reports every violation at once.
package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"

	"food-gateway/internal/core/domain"
)

const (
	minTxnDate = 19000101000000
	maxTxnDate = 99991231235959
)

var maxTxnID = decimal.RequireFromString("99999999999999999999")

// FieldError is a single violation.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// violations accumulates field errors for one request.
type violations struct {
	errs *multierror.Error
}

func (v *violations) add(field, format string, args ...any) {
	v.errs = multierror.Append(v.errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// result turns the collected violations into an InvalidRequest error, or nil.
func (v *violations) result() error {
	if v.errs == nil || len(v.errs.Errors) == 0 {
		return nil
	}
	details := make([]string, 0, len(v.errs.Errors))
	for _, e := range v.errs.Errors {
		details = append(details, e.Error())
	}
	return &domain.CommandError{
		Kind:    domain.ErrInvalidRequest,
		Message: "Validation failed",
		Details: details,
	}
}

func (v *violations) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "must not be empty")
	}
}

func (v *violations) accountType(value domain.AccountType, allowed ...domain.AccountType) {
	if !slices.Contains(allowed, value) {
		v.add("account_type", "must be one of %s", join(allowed))
	}
}

func (v *violations) serviceType(value domain.ServiceType) {
	if !slices.Contains(domain.ServiceTypes, value) {
		v.add("service_type", "must be one of %s", join(domain.ServiceTypes))
	}
}

// money checks a non-negative amount with at most two decimal places.
func (v *violations) money(field string, value float64) {
	d := decimal.NewFromFloat(value)
	if d.IsNegative() {
		v.add(field, "must not be less than 0")
	}
	if d.Exponent() < -2 {
		v.add(field, "must have at most 2 decimal places")
	}
}

func (v *violations) txnID(value string) {
	if value == "" {
		return
	}
	d, err := decimal.NewFromString(value)
	if err != nil || !d.IsInteger() {
		v.add("txn_id", "must be an integer")
		return
	}
	if d.IsNegative() || d.GreaterThan(maxTxnID) {
		v.add("txn_id", "must be between 0 and %s", maxTxnID)
	}
}

func (v *violations) txnDate(value *int64) {
	if value == nil {
		return
	}
	if *value < minTxnDate || *value > maxTxnDate {
		v.add("txn_date", "must be between %d and %d", int64(minTxnDate), int64(maxTxnDate))
	}
}

// dateRange checks begin_date/end_date as a pair.
func (v *violations) dateRange(begin, end int) {
	if begin == 0 {
		v.add("begin_date", "must not be empty")
	}
	if end == 0 {
		v.add("end_date", "must not be empty")
	}
	if begin == 0 || end == 0 {
		return
	}
	if _, ok := domain.ParseDate(begin); !ok {
		v.add("begin_date", "must be a valid YYYYMMDD date")
		return
	}
	if _, ok := domain.ParseDate(end); !ok {
		v.add("end_date", "must be a valid YYYYMMDD date")
		return
	}
	days, _ := domain.DaysBetween(begin, end)
	switch {
	case days < 0:
		v.add("end_date", "must not precede begin_date")
	case days > domain.MaxReportDays:
		v.add("end_date", "interval is %d days, max %d days", days, domain.MaxReportDays)
	}
}

func join[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func ValidateCheck(req domain.CheckRequest) error {
	var v violations
	v.txnID(req.TxnID.String())
	v.required("account", req.Account)
	v.accountType(req.AccountType, domain.PersonalAccountTypes...)
	if req.Sum != nil {
		v.money("sum", *req.Sum)
	}
	v.required("agent", req.Agent)
	v.serviceType(req.ServiceType)
	return v.result()
}

func ValidatePay(req domain.PayRequest) error {
	var v violations
	v.txnID(req.TxnID.String())
	v.required("account", req.Account)
	v.accountType(req.AccountType, domain.PersonalAccountTypes...)
	if req.Sum == nil {
		v.add("sum", "must not be empty")
	} else {
		v.money("sum", *req.Sum)
	}
	v.required("agent", req.Agent)
	v.txnDate(req.TxnDate)
	v.serviceType(req.ServiceType)
	return v.result()
}

func ValidateGetMenu(req domain.GetMenuRequest) error {
	var v violations
	v.txnID(req.TxnID.String())
	v.required("account", req.Account)
	v.accountType(req.AccountType, domain.AccountProvider)
	v.required("agent", req.Agent)
	v.serviceType(req.ServiceType)
	return v.result()
}

// ValidateSendCheck also enforces the product identifier rule: every item carries either
// product_id or product_code with name, never both and never neither.
func ValidateSendCheck(req domain.SendCheckRequest) error {
	var v violations
	v.txnID(req.TxnID.String())
	v.required("account", req.Account)
	v.accountType(req.AccountType, domain.PersonalAccountTypes...)
	if req.Sum == nil {
		v.add("sum", "must not be empty")
	} else {
		v.money("sum", *req.Sum)
	}
	v.required("agent", req.Agent)
	v.txnDate(req.TxnDate)
	v.serviceType(req.ServiceType)

	if req.ServiceType == domain.ServiceDiningRoom {
		if req.Subsidy == nil {
			v.add("subsidy", "must not be empty for diningroom")
		} else {
			v.money("subsidy", *req.Subsidy)
		}
	}

	for i, p := range req.Products {
		field := fmt.Sprintf("products[%d]", i)
		v.money(field+".price", p.Price)
		if p.Count < 1 {
			v.add(field+".count", "must not be less than 1")
		}
		byID := p.ProductID != "" && p.ProductCode == ""
		byCode := p.ProductCode != "" && p.Name != "" && p.ProductID == ""
		if !byID && !byCode {
			v.add(field, "product must have either product_id or product_code with name")
		}
	}
	return v.result()
}

func ValidateGetReport(req domain.GetReportRequest) error {
	var v violations
	v.required("account", req.Account)
	v.accountType(req.AccountType, domain.AccountProvider)
	v.required("agent", req.Agent)
	v.serviceType(req.ServiceType)
	v.dateRange(req.BeginDate, req.EndDate)
	return v.result()
}

func ValidateGetPayments(req domain.GetPaymentsRequest) error {
	var v violations
	v.required("account", req.Account)
	v.accountType(req.AccountType, domain.AccountProvider)
	v.required("agent", req.Agent)
	v.serviceType(req.ServiceType)
	v.dateRange(req.BeginDate, req.EndDate)
	v.required("school_id", req.SchoolID)
	return v.result()
}

func ValidateGetAccounts(req domain.GetAccountsRequest) error {
	var v violations
	v.required("account", req.Account)
	v.accountType(req.AccountType, domain.AccountProvider)
	v.required("agent", req.Agent)
	v.required("school_id", req.SchoolID)
	return v.result()
}
