package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Lead database property names.
const (
	PropCompany       = "Company"
	PropWebsite       = "Website"
	PropDecisionMaker = "Decision Maker"
	PropEmail         = "Email"
	PropPhone         = "Phone"
	PropOutreachTier  = "Outreach Tier"
)

// LeadPage is one row of the Notion lead database.
type LeadPage struct {
	Company       string
	Website       string
	DecisionMaker string
	Email         string
	Phone         string
	OutreachTier  string
}

// LeadProperties converts a lead to Notion page properties. Empty optional
// values are left out so Notion keeps its column defaults.
func LeadProperties(l LeadPage) notionapi.Properties {
	props := notionapi.Properties{
		PropCompany: notionapi.TitleProperty{
			Type: notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: l.Company}},
			},
		},
	}
	if l.Website != "" {
		props[PropWebsite] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  l.Website,
		}
	}
	if l.DecisionMaker != "" {
		props[PropDecisionMaker] = notionapi.RichTextProperty{
			Type: notionapi.PropertyTypeRichText,
			RichText: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: l.DecisionMaker}},
			},
		}
	}
	if l.Email != "" {
		props[PropEmail] = notionapi.EmailProperty{
			Type:  notionapi.PropertyTypeEmail,
			Email: l.Email,
		}
	}
	if l.Phone != "" {
		props[PropPhone] = notionapi.PhoneNumberProperty{
			Type:        notionapi.PropertyTypePhoneNumber,
			PhoneNumber: l.Phone,
		}
	}
	if l.OutreachTier != "" {
		props[PropOutreachTier] = notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: l.OutreachTier},
		}
	}
	return props
}

// CreateLeadPage adds one lead to the database.
func CreateLeadPage(ctx context.Context, c Client, dbID string, l LeadPage) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: LeadProperties(l),
	}
	page, err := c.CreatePage(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: create lead page %q", l.Company)
	}
	return page, nil
}
