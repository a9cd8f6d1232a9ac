package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/shortsale-cli/pkg/apify"
)

func TestCleanAgentName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane Doe TREC #123456", "Jane Doe"},
		{"Jane Doe DRE 01234567", "Jane Doe"},
		{"Jane Doe Lic. 555", "Jane Doe"},
		{"Jane Doe License #9", "Jane Doe"},
		{"Jane Doe", "Jane Doe"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanAgentName(tt.in))
	}
}

func TestMapItem_AgentNameFallbacks(t *testing.T) {
	tests := []struct {
		name string
		item apify.Item
		want string
	}{
		{
			"provider agents first",
			apify.Item{
				"zpid":            "1",
				"listingProvider": map[string]any{"agents": []any{map[string]any{"name": "Provider Agent"}}},
				"agentName":       "Plain Agent",
			},
			"Provider Agent",
		},
		{
			"listingAgentName second",
			apify.Item{"zpid": "1", "listingAgentName": "Named Agent", "agentName": "Plain Agent"},
			"Named Agent",
		},
		{
			"nested listingAgent third",
			apify.Item{"zpid": "1", "listingAgent": map[string]any{"name": "Nested Agent"}},
			"Nested Agent",
		},
		{
			"agentName last",
			apify.Item{"zpid": "1", "agentName": "Plain Agent"},
			"Plain Agent",
		},
		{
			"none",
			apify.Item{"zpid": "1"},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapItem(tt.item).AgentName)
		})
	}
}

func TestMapItem_DescriptionFallbacks(t *testing.T) {
	tests := []struct {
		name string
		item apify.Item
		want string
	}{
		{
			"fullText wins",
			apify.Item{"zpid": "1", "fullText": "full", "description": "plain"},
			"full",
		},
		{
			"description fallback",
			apify.Item{"zpid": "1", "description": "plain"},
			"plain",
		},
		{
			"nested detail",
			apify.Item{"zpid": "1", "detail": map[string]any{"homeInfo": map[string]any{"homeDescription": "nested"}}},
			"nested",
		},
		{
			"nested hdpData",
			apify.Item{"zpid": "1", "hdpData": map[string]any{"homeInfo": map[string]any{"homeDescription": "hdp"}}},
			"hdp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapItem(tt.item).Description)
		})
	}
}

func TestMapItem_NumericID(t *testing.T) {
	// JSON numbers decode as float64.
	l := MapItem(apify.Item{"zpid": float64(44123456)})
	assert.Equal(t, "44123456", l.ID)
}

func TestMapItems_DropsMissingIDs(t *testing.T) {
	listings := MapItems([]apify.Item{
		{"zpid": "1"},
		{"address": "nowhere"},
		{"id": "2"},
	})
	assert.Len(t, listings, 2)
}
