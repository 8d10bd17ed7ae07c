package stripe

import (
	"fmt"

	"github.com/avadhworkzone/qna/db"
)

// Config holds the complete Stripe configuration: the API secret, the webhook
// shared secret and the price identifier of each purchasable tier. The values
// are supplied out of band and passed explicitly wherever they are needed,
// they are never captured in package state.
type Config struct {
	APIKey        string `yaml:"api_key" json:"api_key"`
	WebhookSecret string `yaml:"webhook_secret" json:"webhook_secret"`
	PriceStarter  string `yaml:"price_starter" json:"price_starter"`
	PriceGrowth   string `yaml:"price_growth" json:"price_growth"`
	PricePro      string `yaml:"price_pro" json:"price_pro"`
}

// Validate checks that the configuration carries everything the service needs
// to talk to the provider.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("stripe API secret is required")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is required")
	}
	return nil
}

// Tier describes a purchasable entitlement tier.
type Tier struct {
	Plan     db.PlanName
	Sessions int64
	// Amount is the nominal tier price in minor currency units, used as a
	// fallback when the provider does not report a session total.
	Amount int64
}

// TierByPrice resolves a provider price identifier into its tier. The mapping
// is rebuilt from the configuration on every call, so rotated price
// identifiers take effect without restarting anything and an empty identifier
// never resolves.
func (c *Config) TierByPrice(priceID string) (Tier, bool) {
	if priceID == "" {
		return Tier{}, false
	}
	switch priceID {
	case c.PriceStarter:
		return Tier{Plan: db.PlanStarter, Sessions: 1, Amount: 900}, true
	case c.PriceGrowth:
		return Tier{Plan: db.PlanGrowth, Sessions: 5, Amount: 3900}, true
	case c.PricePro:
		return Tier{Plan: db.PlanPro, Sessions: 10, Amount: 6900}, true
	}
	return Tier{}, false
}
