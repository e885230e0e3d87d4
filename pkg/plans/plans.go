// Package plans holds the subscription plan catalog and post limits.
package plans

import (
	"time"

	"snapbuzz/pkg/config"
)

const (
	Basic       = "Basic"
	Standard    = "Standard"
	Premium     = "Premium"
	Free        = "Free"
	NotChosen   = "Not selected Yet!"
	TwentyPosts = "20-posts"
	Unlimited   = "Unlimited"
)

// NoLimit marks a plan without a post cap.
const NoLimit = -1

type Plan struct {
	Name      string
	PriceID   string
	PostLimit int
	period    func(time.Time) time.Time
}

type Catalog struct {
	byPrice map[string]Plan
}

func NewCatalog(cfg *config.Config) *Catalog {
	return NewCatalogFromPrices(cfg.StripePriceBasic, cfg.StripePriceStandard, cfg.StripePricePremium)
}

func NewCatalogFromPrices(basic, standard, premium string) *Catalog {
	c := &Catalog{byPrice: make(map[string]Plan, 3)}
	c.byPrice[basic] = Plan{Name: Basic, PriceID: basic, PostLimit: 20, period: func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }}
	c.byPrice[standard] = Plan{Name: Standard, PriceID: standard, PostLimit: 100, period: func(t time.Time) time.Time { return t.AddDate(0, 0, 30) }}
	c.byPrice[premium] = Plan{Name: Premium, PriceID: premium, PostLimit: NoLimit, period: func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }}
	return c
}

func (c *Catalog) ByPriceID(priceID string) (Plan, bool) {
	p, ok := c.byPrice[priceID]
	return p, ok
}

// PeriodEnd returns when a plan bought at now lapses.
func (c *Catalog) PeriodEnd(priceID string, now time.Time) (time.Time, bool) {
	p, ok := c.byPrice[priceID]
	if !ok {
		return time.Time{}, false
	}
	return p.period(now), true
}

// PostLimit returns the number of posts a plan allows, or NoLimit.
func PostLimit(plan string) int {
	switch plan {
	case Free, NotChosen, "":
		return 5
	case TwentyPosts, Basic:
		return 20
	case Standard:
		return 100
	case Unlimited, Premium:
		return NoLimit
	default:
		return 0
	}
}

func CanPost(plan string, postCount int) bool {
	limit := PostLimit(plan)
	return limit == NoLimit || postCount < limit
}
