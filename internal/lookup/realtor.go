package lookup

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/shortsale-cli/internal/contact"
	"github.com/sells-group/shortsale-cli/internal/model"
	"github.com/sells-group/shortsale-cli/pkg/apify"
)

// DefaultRealtorActor is the Apify actor that scrapes realtor.com agent
// profiles.
const DefaultRealtorActor = "drobnikj~realtor-agent-scraper"

type realtorProvider struct {
	client apify.Client
	actor  string
}

// NewRealtor creates the secondary provider backed by the realtor.com
// agent scraper actor.
func NewRealtor(client apify.Client, actor string) Provider {
	if actor == "" {
		actor = DefaultRealtorActor
	}
	return &realtorProvider{client: client, actor: actor}
}

func (r *realtorProvider) Name() string { return "realtor" }

func (r *realtorProvider) Lookup(ctx context.Context, agent, locality, _ string) (model.Contact, error) {
	items, err := r.client.RunActorSync(ctx, r.actor, map[string]any{
		"search": agent,
		"state":  locality,
	})
	if err != nil {
		return model.Contact{}, eris.Wrap(err, "lookup: realtor actor")
	}
	if len(items) == 0 {
		return model.Contact{}, nil
	}

	rec := items[0]
	phone := itemString(rec, "mobilePhone")
	if phone == "" {
		phone = itemString(rec, "officePhone")
	}

	return model.Contact{
		Phone: contact.NormalizePhone(phone),
		Email: itemString(rec, "email"),
	}, nil
}

func itemString(item apify.Item, key string) string {
	if v, ok := item[key].(string); ok {
		return v
	}
	return ""
}
