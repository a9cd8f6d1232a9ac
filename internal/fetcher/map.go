package fetcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/shortsale-cli/internal/model"
	"github.com/sells-group/shortsale-cli/pkg/apify"
)

// Agent names scraped from listings often carry license suffixes.
var stripTrailRe = regexp.MustCompile(`(?i)\b(TREC|DRE|Lic\.?|License)\b.*$`)

// CleanAgentName drops trailing license identifiers from a scraped name.
func CleanAgentName(name string) string {
	return strings.TrimSpace(stripTrailRe.ReplaceAllString(name, ""))
}

// MapItem converts one raw scraped record into a Listing. Upstream
// actors disagree on field names, so every field falls through a list
// of known spellings.
func MapItem(item apify.Item) model.Listing {
	return model.Listing{
		ID:          itemID(item),
		Address:     itemAddress(item),
		AgentName:   CleanAgentName(itemAgent(item)),
		BrokerName:  strField(item, "brokerName"),
		Description: itemDescription(item),
		DetailURL:   firstStr(item, "detailUrl", "url"),
	}
}

// MapItems converts a raw batch, dropping records with no identifier.
func MapItems(items []apify.Item) []model.Listing {
	listings := make([]model.Listing, 0, len(items))
	for _, item := range items {
		l := MapItem(item)
		if l.ID == "" {
			continue
		}
		listings = append(listings, l)
	}
	return listings
}

func itemID(item apify.Item) string {
	for _, key := range []string{"zpid", "id"} {
		switch v := item[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}

func itemAddress(item apify.Item) string {
	if addr := strField(item, "address"); addr != "" {
		return addr
	}

	// Some actors split the address into components.
	parts := make([]string, 0, 3)
	for _, key := range []string{"street", "city", "state"} {
		if v := strField(item, key); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

func itemAgent(item apify.Item) string {
	if provider, ok := item["listingProvider"].(map[string]any); ok {
		if agents, ok := provider["agents"].([]any); ok && len(agents) > 0 {
			if first, ok := agents[0].(map[string]any); ok {
				if name, ok := first["name"].(string); ok && name != "" {
					return name
				}
			}
		}
	}
	if name := strField(item, "listingAgentName"); name != "" {
		return name
	}
	if agent, ok := item["listingAgent"].(map[string]any); ok {
		if name, ok := agent["name"].(string); ok && name != "" {
			return name
		}
	}
	return strField(item, "agentName")
}

func itemDescription(item apify.Item) string {
	if desc := firstStr(item, "fullText", "homeDescription", "descriptionPlainText", "description"); desc != "" {
		return desc
	}
	for _, outer := range []string{"detail", "hdpData"} {
		if nested, ok := item[outer].(map[string]any); ok {
			if info, ok := nested["homeInfo"].(map[string]any); ok {
				if desc, ok := info["homeDescription"].(string); ok {
					if trimmed := strings.TrimSpace(desc); trimmed != "" {
						return trimmed
					}
				}
			}
		}
	}
	return ""
}

func strField(item apify.Item, key string) string {
	if v, ok := item[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func firstStr(item apify.Item, keys ...string) string {
	for _, key := range keys {
		if v := strField(item, key); v != "" {
			return v
		}
	}
	return ""
}
