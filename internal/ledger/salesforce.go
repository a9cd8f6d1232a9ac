package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/shortsale-cli/internal/model"
	"github.com/sells-group/shortsale-cli/pkg/salesforce"
)

// SalesforceLedger inserts one Lead record per notified listing.
type SalesforceLedger struct {
	client salesforce.Client
}

// NewSalesforceLedger creates a CRM-backed sink.
func NewSalesforceLedger(client salesforce.Client) *SalesforceLedger {
	return &SalesforceLedger{client: client}
}

func (l *SalesforceLedger) Append(ctx context.Context, row model.LedgerRow) error {
	// Salesforce requires LastName and Company on Lead.
	lastName := row.AgentName
	if parts := strings.Fields(row.AgentName); len(parts) > 1 {
		lastName = parts[len(parts)-1]
	}
	if lastName == "" {
		lastName = "Unknown"
	}

	_, err := l.client.InsertOne(ctx, "Lead", map[string]any{
		"LastName":    lastName,
		"Company":     "Short Sale Listing",
		"Phone":       row.Phone,
		"Email":       row.Email,
		"Street":      row.Address,
		"Website":     row.DetailURL,
		"Description": "Short sale lead captured " + row.Timestamp.Format(time.RFC3339),
		"LeadSource":  "Listing Monitor",
	})
	if err != nil {
		return eris.Wrap(err, "ledger: salesforce append")
	}
	return nil
}
