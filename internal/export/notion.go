package export

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/pkg/notion"
)

// NotionExporter mirrors high-value leads into a Notion database.
type NotionExporter struct {
	src    LeadSource
	client notion.Client
	dbID   string
}

// NewNotionExporter creates an exporter writing to the database dbID.
func NewNotionExporter(src LeadSource, client notion.Client, dbID string) *NotionExporter {
	return &NotionExporter{src: src, client: client, dbID: dbID}
}

// Export creates a page per high-value lead whose email is not already in
// the database, so repeated runs do not duplicate work.
func (e *NotionExporter) Export(ctx context.Context) error {
	leads, err := e.src.ListHighValue(ctx)
	if err != nil {
		return eris.Wrap(err, "export: list high-value leads")
	}

	existing, err := notion.PropertyValues(ctx, e.client, e.dbID, notion.PropEmail)
	if err != nil {
		return eris.Wrap(err, "export: load notion emails")
	}

	created, skipped := 0, 0
	for _, l := range leads {
		key := strings.ToLower(strings.TrimSpace(l.ContactEmail))
		if key == "" || existing[key] {
			skipped++
			continue
		}

		_, err := notion.CreateLeadPage(ctx, e.client, e.dbID, notion.LeadPage{
			Company:       l.Name,
			Website:       l.WebsiteURL,
			DecisionMaker: l.ContactName,
			Email:         l.ContactEmail,
			Phone:         l.ContactPhone,
			OutreachTier:  OutreachTier(l.ContactPhone),
		})
		if err != nil {
			return eris.Wrapf(err, "export: notion lead %d", l.ID)
		}
		existing[key] = true
		created++
	}

	zap.L().Info("export: notion sync complete",
		zap.Int("created", created),
		zap.Int("skipped", skipped),
	)
	return nil
}
