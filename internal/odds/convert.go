// Package odds converts betting prices to implied probabilities and
// collects moneyline, spread and total prices from the odds API.
package odds

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseAmerican parses an American price such as "-150" or "+120".
func ParseAmerican(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	o, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
	if err != nil || math.IsNaN(o) || math.IsInf(o, 0) {
		return 0, false
	}
	return o, true
}

// AmericanToProb returns the implied probability of an American price:
// |o|/(|o|+100) for favorites (o < 0), 100/(o+100) otherwise.
func AmericanToProb(o float64) float64 {
	if o < 0 {
		return -o / (-o + 100)
	}
	return 100 / (o + 100)
}

// ImpliedProb parses s as an American price and returns its implied
// probability, or nil when s is not a usable number.
func ImpliedProb(s string) *float64 {
	o, ok := ParseAmerican(s)
	if !ok {
		return nil
	}
	p := AmericanToProb(o)
	return &p
}

// DecimalToProb returns 1/d for decimal prices above 1.
func DecimalToProb(d float64) (float64, bool) {
	if d <= 1 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	return 1 / d, true
}

// DecimalToAmerican converts a decimal price: (d-1)*100 at evens or longer,
// -100/(d-1) for favorites.
func DecimalToAmerican(d float64) (float64, bool) {
	if d <= 1 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	if d >= 2 {
		return math.Round((d-1)*100*100) / 100, true
	}
	return math.Round(-100/(d-1)*100) / 100, true
}

// TierOdds maps confidence tiers 1..5 to proxy American prices.
type TierOdds [5]int

// DefaultTierOdds is the proxy table used when no market price exists.
var DefaultTierOdds = TierOdds{120, 105, -110, -125, -140}

// NewTierOdds builds a table from five configured prices.
func NewTierOdds(prices []int) (TierOdds, error) {
	var t TierOdds
	if len(prices) != len(t) {
		return t, eris.Errorf("odds: tier table needs %d prices, got %d", len(t), len(prices))
	}
	copy(t[:], prices)
	return t, nil
}

// For returns the proxy price of tier (1..5).
func (t TierOdds) For(tier int) (float64, bool) {
	if tier < 1 || tier > len(t) {
		return 0, false
	}
	return float64(t[tier-1]), true
}
