package db

import (
	"time"
)

// PlanName identifies the entitlement tier a user is on.
type PlanName string

const (
	PlanStarter  PlanName = "starter"
	PlanGrowth   PlanName = "growth"
	PlanPro      PlanName = "pro"
	PlanCanceled PlanName = "canceled"
	PlanUnknown  PlanName = "unknown"
)

// validPlans is a map that contains the plan names that can be purchased
var validPlans = map[PlanName]bool{
	PlanStarter: true,
	PlanGrowth:  true,
	PlanPro:     true,
}

// IsPurchasablePlan function checks if the plan name is one of the purchasable tiers
func IsPurchasablePlan(plan PlanName) bool {
	return validPlans[plan]
}

// User holds the entitlement state of a single user. The document key is the
// identity subject issued by the external identity service. Plan and
// SessionCredits are mutated only by payment reconciliation.
type User struct {
	UID            string   `json:"uid" bson:"_id"`
	Email          string   `json:"email" bson:"email,omitempty"`
	CustomerID     string   `json:"customerID" bson:"customerID,omitempty"`
	Plan           PlanName `json:"plan" bson:"plan,omitempty"`
	SessionCredits int64    `json:"sessionCredits" bson:"sessionCredits"`
}

// PaymentReceipt records a checkout session that has been applied to a user's
// entitlement. The document key is the provider checkout-session identifier,
// so its existence is the idempotency witness for that session. Receipts are
// immutable after creation, they are never updated or deleted.
type PaymentReceipt struct {
	SessionID       string    `json:"sessionID" bson:"_id"`
	UserID          string    `json:"userID" bson:"userID"`
	PriceID         string    `json:"priceID" bson:"priceID"`
	Plan            PlanName  `json:"plan" bson:"plan"`
	Credits         int64     `json:"credits" bson:"credits"`
	Amount          float64   `json:"amount" bson:"amount"`
	Currency        string    `json:"currency" bson:"currency"`
	Status          string    `json:"status" bson:"status"`
	PaymentIntentID string    `json:"paymentIntentID" bson:"paymentIntentID,omitempty"`
	CustomerID      string    `json:"customerID" bson:"customerID,omitempty"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
}
