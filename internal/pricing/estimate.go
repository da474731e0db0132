// Package pricing holds the service catalog, the destination fee schedule
// and the quote arithmetic built on them.
package pricing

import (
	"fmt"
	"strings"
)

// Estimator defines the interface for quote engines.
type Estimator interface {
	Estimate(serviceID string, addOnIDs []string, tier Tier, miles float64) Quote
}

var _ Estimator = (*Catalog)(nil)

// Quote is a priced job. Nothing is rounded; display with two decimals.
type Quote struct {
	ServiceID      string   `json:"service_id"`
	AddOnIDs       []string `json:"add_on_ids"`
	Tier           Tier     `json:"tier"`
	Miles          float64  `json:"miles"`
	ServicePrice   float64  `json:"service_price"`
	AddOnsTotal    float64  `json:"add_ons_total"`
	DestinationFee float64  `json:"destination_fee"`
	Total          float64  `json:"total"`

	serviceName string
	addOnNames  []string
}

// Estimate prices a service with add-ons for tier and adds the destination
// fee. Unknown ids contribute 0.
func (c *Catalog) Estimate(serviceID string, addOnIDs []string, tier Tier, miles float64) Quote {
	q := Quote{
		ServiceID: serviceID,
		AddOnIDs:  append([]string(nil), addOnIDs...),
		Tier:      tier,
		Miles:     miles,
	}
	q.ServicePrice = c.Price(serviceID, tier)
	if s, ok := c.Service(serviceID); ok {
		q.serviceName = s.Name
	}
	for _, id := range addOnIDs {
		q.AddOnsTotal += c.Price(id, tier)
		if a, ok := c.AddOn(id); ok {
			q.addOnNames = append(q.addOnNames, a.Name)
		}
	}
	q.DestinationFee = DestinationFee(miles)
	q.Total = q.ServicePrice + q.AddOnsTotal + q.DestinationFee
	return q
}

// Summary renders the quote as the plain text handed to invoices, emails
// and notification banners.
func (q Quote) Summary() string {
	var b strings.Builder
	name := q.serviceName
	if name == "" {
		name = q.ServiceID
	}
	fmt.Fprintf(&b, "%s (%s): $%.2f\n", name, q.Tier, q.ServicePrice)
	if len(q.addOnNames) > 0 {
		fmt.Fprintf(&b, "Add-ons (%s): $%.2f\n", strings.Join(q.addOnNames, ", "), q.AddOnsTotal)
	}
	if q.DestinationFee > 0 {
		fmt.Fprintf(&b, "Destination fee (%.1f mi): $%.2f\n", q.Miles, q.DestinationFee)
	}
	fmt.Fprintf(&b, "Total: $%.2f", q.Total)
	return b.String()
}
