package model

import (
	"strings"
	"time"
)

// Role identifies a requester's authorization scope.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
	RoleSales Role = "SALES"
)

// Requester is the authenticated identity a workflow call acts on behalf of.
type Requester struct {
	UserID int64
	Email  string
	Role   Role
}

// Customer represents a buyer account. Purchase statistics are derived from
// orders at query time, never stored redundantly.
type Customer struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	Document    string    `json:"-" db:"document"`
	Phone       string    `json:"phone" db:"phone"`
	Address     string    `json:"address" db:"address"`
	City        string    `json:"city" db:"city"`
	State       string    `json:"state" db:"state"`
	ZipCode     string    `json:"zipCode" db:"zip_code"`
	CreditLimit float64   `json:"-" db:"credit_limit"`
	SalesRepID  *int64    `json:"-" db:"sales_rep_id"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// PurchaseStats aggregates a customer's completed-order history.
type PurchaseStats struct {
	TotalPurchases float64
	OrderCount     int
}

// CreditProfile is the aggregate snapshot the credit policy decides over.
type CreditProfile struct {
	CreditLimit     float64
	Outstanding     float64
	CompletedOrders int
	OverdueCount    int
}

// CustomerView is the role-scoped projection of a customer attached to an
// order view. Which fields are populated depends on the requester's role.
type CustomerView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
}

// MaskDocument hides the middle digits of an identity document, keeping the
// first and last three.
func MaskDocument(document string) string {
	if len(document) < 7 {
		return strings.Repeat("*", len(document))
	}
	return document[:3] + strings.Repeat("*", len(document)-6) + document[len(document)-3:]
}
