package lookup

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shortsale-cli/internal/contact"
	"github.com/sells-group/shortsale-cli/internal/model"
	"github.com/sells-group/shortsale-cli/pkg/jina"
)

type jinaProvider struct {
	client   jina.Client
	maxLinks int
}

// NewJina creates the tertiary provider: Jina search with reader
// fallback for results whose snippets carry no contact info.
func NewJina(client jina.Client, maxLinks int) Provider {
	if maxLinks <= 0 {
		maxLinks = 5
	}
	return &jinaProvider{client: client, maxLinks: maxLinks}
}

func (j *jinaProvider) Name() string { return "jina" }

func (j *jinaProvider) Lookup(ctx context.Context, agent, locality, _ string) (model.Contact, error) {
	query := fmt.Sprintf("%q %s phone email", agent, locality)

	resp, err := j.client.Search(ctx, query)
	if err != nil {
		return model.Contact{}, eris.Wrap(err, "lookup: jina search")
	}

	for i, result := range resp.Data {
		if i >= j.maxLinks {
			break
		}

		// Search often returns enough page content to extract from
		// without a second round trip.
		if found := contact.Extract(result.Content + "\n" + result.Description); !found.Empty() {
			return found, nil
		}

		read, readErr := j.client.Read(ctx, result.URL)
		if readErr != nil {
			zap.L().Debug("jina read failed",
				zap.String("url", result.URL),
				zap.Error(readErr))
			continue
		}
		if found := contact.Extract(read.Data.Content); !found.Empty() {
			return found, nil
		}
	}

	return model.Contact{}, nil
}
