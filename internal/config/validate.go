package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the configuration carries everything the named mode
// needs before any listing is processed. Missing mandatory credentials fail
// the whole run at startup.
func (c *Config) Validate(mode string) error {
	var problems []string

	requireStore := func() {
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
	}

	requireNotifier := func() {
		switch c.Notify.Channel {
		case "sms":
			if c.SMS.Key == "" {
				problems = append(problems, "sms.key is required for the sms channel")
			}
		case "email":
			if c.Email.Host == "" || c.Email.From == "" {
				problems = append(problems, "email.host and email.from are required for the email channel")
			}
		default:
			problems = append(problems, "notify.channel must be sms or email")
		}
	}

	requirePipeline := func() {
		requireStore()
		requireNotifier()
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		switch c.Pipeline.SeenPolicy {
		case SeenPolicyBestEffortOnce, SeenPolicyRetryUntilNotified:
		default:
			problems = append(problems, "pipeline.seen_policy must be best_effort_once or retry_until_notified")
		}
	}

	switch mode {
	case "pipeline":
		requirePipeline()
	case "serve":
		requirePipeline()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "export":
		requireStore()
	case "replay":
		requireStore()
		requireNotifier()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
