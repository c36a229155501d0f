// Package export publishes enriched leads once a batch reaches its success
// threshold: to an XLSX workbook, an external command or a Notion database.
package export

import (
	"context"
	"errors"
	"strings"

	"github.com/sells-group/contact-enricher/internal/model"
)

// Outreach tiers derived from the contact phone.
const (
	TierDirectDial = "P1: Direct Dial"
	TierEmailOnly  = "P2: Email Only"
)

// Exporter publishes the current state of the lead store.
type Exporter interface {
	Export(ctx context.Context) error
}

// LeadSource is the read side of the lead store used by exporters.
type LeadSource interface {
	ListLeads(ctx context.Context) ([]model.Lead, error)
	ListHighValue(ctx context.Context) ([]model.Lead, error)
}

// OutreachTier reports whether a lead can be called directly.
func OutreachTier(phone string) string {
	p := strings.TrimSpace(phone)
	if p == "" || strings.EqualFold(p, "none") {
		return TierEmailOnly
	}
	return TierDirectDial
}

// Multi runs every exporter in order and joins their errors.
type Multi []Exporter

// Export runs each exporter even when an earlier one fails.
func (m Multi) Export(ctx context.Context) error {
	var errs []error
	for _, e := range m {
		if err := e.Export(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
