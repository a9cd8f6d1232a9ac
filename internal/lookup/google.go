package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shortsale-cli/internal/contact"
	"github.com/sells-group/shortsale-cli/internal/model"
	"github.com/sells-group/shortsale-cli/internal/resilience"
	"github.com/sells-group/shortsale-cli/pkg/anthropic"
	"github.com/sells-group/shortsale-cli/pkg/googlesearch"
)

// maxPageBytes caps how much of a result page is read for extraction.
const maxPageBytes = 512 * 1024

// llmPageChars caps how much page text is handed to the LLM extractor.
const llmPageChars = 3500

// GoogleConfig controls the Custom Search provider.
type GoogleConfig struct {
	// MaxLinks bounds how many search results are fetched per query.
	MaxLinks int
	// PageTimeout bounds each result-page fetch.
	PageTimeout time.Duration
	// LLMExtract enables a Claude pass over pages where the regex
	// extraction found nothing.
	LLMExtract bool
	// Model is the Claude model used for LLM extraction.
	Model string
}

type googleProvider struct {
	search googlesearch.Client
	ai     anthropic.Client
	http   *http.Client
	cfg    GoogleConfig
}

// NewGoogle creates the primary provider: Custom Search plus result-page
// extraction. ai may be nil when LLM extraction is disabled.
func NewGoogle(search googlesearch.Client, ai anthropic.Client, cfg GoogleConfig) Provider {
	if cfg.MaxLinks <= 0 {
		cfg.MaxLinks = 5
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 12 * time.Second
	}
	return &googleProvider{
		search: search,
		ai:     ai,
		http:   &http.Client{Timeout: cfg.PageTimeout},
		cfg:    cfg,
	}
}

func (g *googleProvider) Name() string { return "google" }

func (g *googleProvider) Lookup(ctx context.Context, agent, locality, broker string) (model.Contact, error) {
	queries := []string{
		fmt.Sprintf("%q %s phone email", agent, locality),
	}
	if broker != "" {
		queries = append(queries, fmt.Sprintf("%q %q phone email", agent, broker))
	}

	for _, q := range queries {
		resp, err := g.search.Search(ctx, q, g.cfg.MaxLinks)
		if err != nil {
			var apiErr *googlesearch.APIError
			if errors.As(err, &apiErr) {
				// 403 is the CSE quota signal; 5xx/429 are retryable.
				// Anything else (bad request) is a permanent error.
				if apiErr.StatusCode == 403 || resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
					return model.Contact{}, resilience.NewTransientError(err, apiErr.StatusCode)
				}
			}
			return model.Contact{}, eris.Wrap(err, "lookup: google search")
		}

		for i, item := range resp.Items {
			if i >= g.cfg.MaxLinks {
				break
			}
			page, fetchErr := g.fetchPage(ctx, item.Link)
			if fetchErr != nil {
				zap.L().Debug("result page fetch failed",
					zap.String("url", item.Link),
					zap.Error(fetchErr))
				continue
			}

			found := contact.Extract(page)
			if found.Empty() && g.cfg.LLMExtract && g.ai != nil {
				found = g.llmExtract(ctx, item.Link, page)
			}
			if !found.Empty() {
				return found, nil
			}
		}
	}

	return model.Contact{}, nil
}

func (g *googleProvider) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "lookup: create page request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; shortsale-cli/1.0)")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "lookup: fetch page")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("lookup: page status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", eris.Wrap(err, "lookup: read page")
	}
	return string(body), nil
}

type llmContact struct {
	Phone *string `json:"phone"`
	Email *string `json:"email"`
}

// llmExtract asks Claude to pull a phone and email out of page text the
// regexes could not handle. Any failure just yields an empty contact.
func (g *googleProvider) llmExtract(ctx context.Context, pageURL, page string) model.Contact {
	if len(page) > llmPageChars {
		cut := llmPageChars
		for cut > 0 && !utf8.RuneStart(page[cut]) {
			cut--
		}
		page = page[:cut]
	}

	prompt := fmt.Sprintf(
		"Extract a phone number and an email address from the page text below.\n"+
			"Return strictly JSON like {\"phone\":\"...\",\"email\":\"...\"}; use null if missing. Do NOT guess.\n\n"+
			"URL: %s\n\nPage text:\n%s", pageURL, page)

	resp, err := g.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.cfg.Model,
		MaxTokens: 64,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		zap.L().Debug("llm extraction failed", zap.String("url", pageURL), zap.Error(err))
		return model.Contact{}
	}

	text := resp.FirstText()
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return model.Contact{}
	}

	var out llmContact
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		zap.L().Debug("llm extraction returned bad JSON", zap.String("url", pageURL), zap.Error(err))
		return model.Contact{}
	}

	var c model.Contact
	if out.Phone != nil {
		c.Phone = contact.NormalizePhone(*out.Phone)
	}
	if out.Email != nil && contact.ExtractEmail(*out.Email) != "" {
		c.Email = *out.Email
	}
	return c
}
