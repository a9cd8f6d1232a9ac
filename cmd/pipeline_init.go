package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shortsale-cli/internal/contact"
	"github.com/sells-group/shortsale-cli/internal/fetcher"
	"github.com/sells-group/shortsale-cli/internal/ledger"
	"github.com/sells-group/shortsale-cli/internal/lookup"
	"github.com/sells-group/shortsale-cli/internal/notify"
	"github.com/sells-group/shortsale-cli/internal/pipeline"
	"github.com/sells-group/shortsale-cli/internal/qualify"
	"github.com/sells-group/shortsale-cli/internal/resilience"
	"github.com/sells-group/shortsale-cli/internal/store"
	anthropicpkg "github.com/sells-group/shortsale-cli/pkg/anthropic"
	"github.com/sells-group/shortsale-cli/pkg/apify"
	"github.com/sells-group/shortsale-cli/pkg/googlesearch"
	"github.com/sells-group/shortsale-cli/pkg/jina"
	"github.com/sells-group/shortsale-cli/pkg/notion"
	"github.com/sells-group/shortsale-cli/pkg/smsgateway"
)

// pipelineEnv holds the initialized store, listing source, and pipeline
// needed by the run/poll/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Source   fetcher.Source
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, all API clients, the lookup chain, the
// ledger sinks, and the notifier, then builds the Pipeline. Callers should
// defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	filter := qualify.New(anthropicClient, cfg.Anthropic.Model, cfg.Anthropic.MaxChars)

	var apifyClient apify.Client
	if cfg.Apify.Token != "" {
		apifyClient = apify.NewClient(cfg.Apify.Token, apify.WithBaseURL(cfg.Apify.BaseURL))
	}

	// Lookup chain: Custom Search primary, then Jina, then the Apify
	// realtor scraper. Providers without credentials are left out.
	breakers := resilience.NewProviderBreakers(resilience.CoolOffConfig{
		FailureThreshold: cfg.Lookup.FailureThreshold,
		Window:           time.Duration(cfg.Lookup.CoolOffSecs) * time.Second,
	})

	var providers []lookup.Provider
	if cfg.Google.Key != "" && cfg.Google.CSEID != "" {
		searchClient := googlesearch.NewClient(cfg.Google.Key, cfg.Google.CSEID,
			googlesearch.WithBaseURL(cfg.Google.BaseURL))
		providers = append(providers, lookup.NewGoogle(searchClient, anthropicClient, lookup.GoogleConfig{
			MaxLinks:    cfg.Lookup.MaxLinks,
			PageTimeout: time.Duration(cfg.Lookup.PageTimeoutSecs) * time.Second,
			LLMExtract:  cfg.Lookup.LLMExtract,
			Model:       cfg.Anthropic.Model,
		}))
	} else {
		zap.L().Debug("SHORTSALE_GOOGLE_KEY or SHORTSALE_GOOGLE_CSE_ID not set, custom search lookup disabled")
	}
	if cfg.Jina.Key != "" {
		jinaClient := jina.NewClient(cfg.Jina.Key,
			jina.WithBaseURL(cfg.Jina.BaseURL),
			jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
		providers = append(providers, lookup.NewJina(jinaClient, cfg.Lookup.MaxLinks))
	}
	if apifyClient != nil {
		providers = append(providers, lookup.NewRealtor(apifyClient, cfg.Apify.RealtorActor))
	}
	if len(providers) == 0 {
		zap.L().Warn("no lookup providers configured, every listing will be uncontactable")
	}

	chain := lookup.NewChain(breakers, time.Duration(cfg.Lookup.TimeoutSecs)*time.Second, providers...)
	resolver := contact.NewResolver(st, chain)

	// Ledger: the local store mirror always records, external sinks are
	// added when configured.
	sinks := []ledger.Ledger{ledger.NewStoreLedger(st)}
	if cfg.Notion.Token != "" && cfg.Notion.LedgerDB != "" {
		notionClient := notion.NewClient(cfg.Notion.Token)
		sinks = append(sinks, ledger.NewNotionLedger(notionClient, cfg.Notion.LedgerDB))
		zap.L().Info("notion ledger sink enabled")
	}
	sfClient, err := initSalesforce()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if sfClient != nil {
		sinks = append(sinks, ledger.NewSalesforceLedger(sfClient))
		zap.L().Info("salesforce ledger sink enabled")
	}

	notifier, err := initNotifier()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	source, err := initSource(apifyClient, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	contactField := "phone"
	if cfg.Notify.Channel == "email" {
		contactField = "email"
	}

	p := pipeline.New(st, filter, resolver, ledger.NewMulti(sinks...), notifier,
		pipeline.WithMaxConcurrent(cfg.Pipeline.MaxConcurrent),
		pipeline.WithSeenPolicy(cfg.Pipeline.SeenPolicy),
		pipeline.WithContactField(contactField),
	)

	return &pipelineEnv{
		Store:    st,
		Source:   source,
		Pipeline: p,
	}, nil
}

// initNotifier builds the outbound channel selected by notify.channel.
func initNotifier() (notify.Notifier, error) {
	tmpl, err := notify.LoadTemplates(cfg.Notify.TemplateFile)
	if err != nil {
		return nil, err
	}

	switch cfg.Notify.Channel {
	case "sms":
		smsClient := smsgateway.NewClient(cfg.SMS.Key, smsgateway.WithBaseURL(cfg.SMS.BaseURL))
		return notify.NewSMS(smsClient, tmpl), nil
	case "email":
		return notify.NewEmail(notify.EmailConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		}, tmpl), nil
	default:
		return nil, eris.Errorf("unsupported notify channel: %s", cfg.Notify.Channel)
	}
}

// initSource builds the listing source selected by source.kind.
func initSource(apifyClient apify.Client, progress fetcher.ProgressStore) (fetcher.Source, error) {
	switch cfg.Source.Kind {
	case "file":
		return fetcher.NewFileSource(cfg.Source.Path), nil
	case "http":
		return fetcher.NewHTTPSource(cfg.Source.Path), nil
	case "ftp":
		return fetcher.NewFTPSource(cfg.Source.Path), nil
	case "apify":
		if apifyClient == nil {
			return nil, eris.New("apify source requires SHORTSALE_APIFY_TOKEN")
		}
		if cfg.Apify.DatasetID == "" {
			return nil, eris.New("apify source requires SHORTSALE_APIFY_DATASET_ID")
		}
		return fetcher.NewApifySource(apifyClient, progress, cfg.Apify.DatasetID), nil
	default:
		return nil, eris.Errorf("unsupported source kind: %s", cfg.Source.Kind)
	}
}
