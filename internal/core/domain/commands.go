package domain

import (
	"encoding/json"
	"time"
)

// Command is our own type for command names to avoid "magic strings".
type Command string

const (
	CommandCheck       Command = "check"
	CommandPay         Command = "pay"
	CommandGetMenu     Command = "get_menu"
	CommandSendCheck   Command = "send_check"
	CommandGetReport   Command = "get_report"
	CommandGetPayments Command = "get_payments"
	CommandGetAccounts Command = "get_accounts"
)

// AccountType discriminates what the account field identifies.
type AccountType string

const (
	AccountLS       AccountType = "ls"
	AccountCard     AccountType = "card"
	AccountMifare   AccountType = "mifare"
	AccountProvider AccountType = "provider"
)

// PersonalAccountTypes are accepted by balance, payment and check submission commands.
var PersonalAccountTypes = []AccountType{AccountLS, AccountCard, AccountMifare}

// ServiceType is the food service point.
type ServiceType string

const (
	ServiceBuffet     ServiceType = "buffet"
	ServiceDiningRoom ServiceType = "diningroom"
)

var ServiceTypes = []ServiceType{ServiceBuffet, ServiceDiningRoom}

// Response is the upstream JSON object, passed through to the caller.
type Response map[string]any

// CheckRequest asks for the balance of a personal account.
type CheckRequest struct {
	Command     Command     `json:"command" schema:"-"`
	TxnID       json.Number `json:"txn_id,omitempty" schema:"txn_id"`
	Account     string      `json:"account" schema:"account"`
	AccountType AccountType `json:"account_type" schema:"account_type"`
	Sum         *float64    `json:"sum,omitempty" schema:"sum"`
	Agent       string      `json:"agent" schema:"agent"`
	TxnDate     *int64      `json:"txn_date,omitempty" schema:"txn_date"`
	ServiceType ServiceType `json:"service_type" schema:"service_type"`
}

// PayRequest tops up a personal account.
type PayRequest struct {
	Command     Command     `json:"command" schema:"-"`
	TxnID       json.Number `json:"txn_id,omitempty" schema:"txn_id"`
	Account     string      `json:"account" schema:"account"`
	AccountType AccountType `json:"account_type" schema:"account_type"`
	Sum         *float64    `json:"sum" schema:"sum"`
	Agent       string      `json:"agent" schema:"agent"`
	TxnDate     *int64      `json:"txn_date,omitempty" schema:"txn_date"`
	ServiceType ServiceType `json:"service_type" schema:"service_type"`
}

// GetMenuRequest asks a provider for its current menu.
type GetMenuRequest struct {
	Command     Command     `json:"command" schema:"-"`
	TxnID       json.Number `json:"txn_id,omitempty" schema:"txn_id"`
	Account     string      `json:"account" schema:"account"`
	AccountType AccountType `json:"account_type" schema:"account_type"`
	Sum         *float64    `json:"sum,omitempty" schema:"sum"`
	Agent       string      `json:"agent" schema:"agent"`
	TxnDate     *int64      `json:"txn_date,omitempty" schema:"txn_date"`
	ServiceType ServiceType `json:"service_type" schema:"service_type"`
}

// Product is a line item of a submitted check. It is identified either by ProductID
// (priced from the menu) or by ProductCode and Name (priced by the caller).
type Product struct {
	ProductID   string  `json:"product_id,omitempty" schema:"product_id"`
	ProductCode string  `json:"product_code,omitempty" schema:"product_code"`
	Name        string  `json:"name,omitempty" schema:"name"`
	Price       float64 `json:"price" schema:"price"`
	Count       int     `json:"count" schema:"count"`
}

// SendCheckRequest submits a sales check.
type SendCheckRequest struct {
	Command     Command     `json:"command" schema:"-"`
	TxnID       json.Number `json:"txn_id,omitempty" schema:"txn_id"`
	Account     string      `json:"account" schema:"account"`
	AccountType AccountType `json:"account_type" schema:"account_type"`
	Sum         *float64    `json:"sum" schema:"sum"`
	Agent       string      `json:"agent" schema:"agent"`
	TxnDate     *int64      `json:"txn_date,omitempty" schema:"txn_date"`
	ServiceType ServiceType `json:"service_type" schema:"service_type"`
	Subsidy     *float64    `json:"subsidy,omitempty" schema:"subsidy"`
	MenuID      string      `json:"menu_id,omitempty" schema:"menu_id"`
	Products    []Product   `json:"products,omitempty" schema:"products"`
}

// HasProductID reports whether any line item needs menu pricing.
func (r SendCheckRequest) HasProductID() bool {
	for _, p := range r.Products {
		if p.ProductID != "" {
			return true
		}
	}
	return false
}

// HasProductCode reports whether any line item is priced by the caller.
func (r SendCheckRequest) HasProductCode() bool {
	for _, p := range r.Products {
		if p.ProductCode != "" {
			return true
		}
	}
	return false
}

// GetReportRequest asks for a provider report over a date range.
type GetReportRequest struct {
	Command     Command     `json:"command" schema:"-"`
	Account     string      `json:"account" schema:"account"`
	AccountType AccountType `json:"account_type" schema:"account_type"`
	Agent       string      `json:"agent" schema:"agent"`
	ServiceType ServiceType `json:"service_type" schema:"service_type"`
	BeginDate   int         `json:"begin_date" schema:"begin_date"`
	EndDate     int         `json:"end_date" schema:"end_date"`
}

// GetPaymentsRequest asks for payments of a school over a date range.
type GetPaymentsRequest struct {
	Command     Command     `json:"command" schema:"-"`
	Account     string      `json:"account" schema:"account"`
	AccountType AccountType `json:"account_type" schema:"account_type"`
	Agent       string      `json:"agent" schema:"agent"`
	ServiceType ServiceType `json:"service_type" schema:"service_type"`
	BeginDate   int         `json:"begin_date" schema:"begin_date"`
	EndDate     int         `json:"end_date" schema:"end_date"`
	SchoolID    string      `json:"school_id" schema:"school_id"`
}

// GetAccountsRequest lists the accounts of a school.
type GetAccountsRequest struct {
	Command     Command     `json:"command" schema:"-"`
	Account     string      `json:"account" schema:"account"`
	AccountType AccountType `json:"account_type" schema:"account_type"`
	Agent       string      `json:"agent" schema:"agent"`
	SchoolID    string      `json:"school_id" schema:"school_id"`
}

// CommandEvent is emitted after a payment or check was accepted upstream.
type CommandEvent struct {
	Command     Command
	Account     string
	Agent       string
	ServiceType ServiceType
	TxnID       string
	TxnDate     int64
	Result      string
	RequestID   string
	Enriched    bool
	ProcessedAt time.Time
}
