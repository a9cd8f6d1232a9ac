package ledger

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/shortsale-cli/internal/model"
	"github.com/sells-group/shortsale-cli/pkg/notion"
)

// NotionLedger appends rows as pages in a Notion database.
type NotionLedger struct {
	client notion.Client
	dbID   string
}

// NewNotionLedger creates a Notion-backed sink writing to the given
// database.
func NewNotionLedger(client notion.Client, dbID string) *NotionLedger {
	return &NotionLedger{client: client, dbID: dbID}
}

func (l *NotionLedger) Append(ctx context.Context, row model.LedgerRow) error {
	ts := notionapi.Date(row.Timestamp)

	_, err := l.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(l.dbID),
		},
		Properties: notionapi.Properties{
			"Address": notionapi.TitleProperty{
				Title: []notionapi.RichText{{Text: &notionapi.Text{Content: row.Address}}},
			},
			"Timestamp": notionapi.DateProperty{
				Date: &notionapi.DateObject{Start: &ts},
			},
			"Phone": notionapi.PhoneNumberProperty{PhoneNumber: row.Phone},
			"Email": notionapi.EmailProperty{Email: row.Email},
			"Agent": notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: row.AgentName}}},
			},
			"Detail URL": notionapi.URLProperty{URL: row.DetailURL},
		},
	})
	if err != nil {
		return eris.Wrap(err, "ledger: notion append")
	}
	return nil
}
