package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches all pages from a Notion database, following cursors
// until Notion reports no more results.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page

	req := &notionapi.DatabaseQueryRequest{}
	if filter != nil {
		req.Filter = filter.Filter
		req.Sorts = filter.Sorts
		req.PageSize = filter.PageSize
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "notion: query all cancelled")
		}

		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		req.StartCursor = resp.NextCursor
	}
}

// PropertyText returns the plain text of a title, rich text, email, URL
// or phone property. Other property types yield "".
func PropertyText(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok {
		return ""
	}

	var s string
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		for _, rt := range p.Title {
			s += rt.PlainText
		}
	case *notionapi.RichTextProperty:
		for _, rt := range p.RichText {
			s += rt.PlainText
		}
	case *notionapi.EmailProperty:
		s = p.Email
	case *notionapi.URLProperty:
		s = p.URL
	case *notionapi.PhoneNumberProperty:
		s = p.PhoneNumber
	}
	return strings.TrimSpace(s)
}

// PropertyValues collects the lowercased text of one property across every
// page in the database. Empty values are omitted.
func PropertyValues(ctx context.Context, c Client, dbID, name string) (map[string]bool, error) {
	pages, err := QueryAll(ctx, c, dbID, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: collect %q values", name)
	}

	values := make(map[string]bool, len(pages))
	for _, p := range pages {
		if v := strings.ToLower(PropertyText(p, name)); v != "" {
			values[v] = true
		}
	}
	return values, nil
}
