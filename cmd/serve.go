package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/shortsale-cli/internal/fetcher"
	"github.com/sells-group/shortsale-cli/internal/model"
	"github.com/sells-group/shortsale-cli/pkg/apify"
)

var servePort int

// maxHookBytes caps how much of a webhook body is read.
const maxHookBytes = 16 << 20

// writeAccepted replies 202. received is -1 when the batch size is not yet
// known (dataset fetch still pending).
func writeAccepted(w http.ResponseWriter, received int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	resp := map[string]any{"status": "accepted"}
	if received >= 0 {
		resp["received"] = received
	}
	json.NewEncoder(w).Encode(resp)
}

// seenLister is the slice of the store the export-ids endpoint needs.
type seenLister interface {
	SeenIDs(ctx context.Context) ([]string, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server for pushed listing batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		run := func(runCtx context.Context, listings []model.Listing) {
			stats, err := env.Pipeline.Run(runCtx, listings)
			if err != nil {
				zap.L().Error("webhook batch failed", zap.Error(err))
				return
			}
			zap.L().Info("webhook batch complete",
				zap.Int("received", stats.Received),
				zap.Int("notified", stats.Notified),
			)
		}

		// Dataset-id hooks pull rows through the offset-tracking source.
		var fetchDataset datasetFetcher
		if cfg.Apify.Token != "" {
			apifyClient := apify.NewClient(cfg.Apify.Token, apify.WithBaseURL(cfg.Apify.BaseURL))
			fetchDataset = func(fetchCtx context.Context, datasetID string) ([]model.Listing, error) {
				return fetcher.NewApifySource(apifyClient, env.Store, datasetID).Fetch(fetchCtx)
			}
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(ctx, env.Store, run, fetchDataset),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// datasetFetcher pulls new rows from an Apify dataset. nil when Apify is not
// configured.
type datasetFetcher func(ctx context.Context, datasetID string) ([]model.Listing, error)

// newRouter builds the HTTP surface: a health check, the Apify push webhook,
// and a seen-id export for the scraper's exclude list. Webhook batches run
// asynchronously on baseCtx so a closed request context does not cancel them.
func newRouter(baseCtx context.Context, st seenLister, run func(context.Context, []model.Listing), fetchDataset datasetFetcher) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Accepts either a raw JSON array of listing rows or an Apify run
	// webhook payload naming the dataset to pull.
	r.Post("/hooks/apify", func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(io.LimitReader(req.Body, maxHookBytes))
		if err != nil {
			http.Error(w, `{"error":"read body"}`, http.StatusBadRequest)
			return
		}

		trimmed := bytes.TrimSpace(body)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var items []apify.Item
			if err := json.Unmarshal(trimmed, &items); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			listings := fetcher.MapItems(items)
			go run(baseCtx, listings)
			writeAccepted(w, len(listings))
			return
		}

		datasetID := req.URL.Query().Get("datasetId")
		if datasetID == "" && len(trimmed) > 0 {
			var hook struct {
				Resource struct {
					DefaultDatasetID string `json:"defaultDatasetId"`
				} `json:"resource"`
			}
			if err := json.Unmarshal(trimmed, &hook); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			datasetID = hook.Resource.DefaultDatasetID
		}
		if datasetID == "" {
			http.Error(w, `{"error":"no listings or dataset id in request"}`, http.StatusBadRequest)
			return
		}
		if fetchDataset == nil {
			http.Error(w, `{"error":"apify is not configured"}`, http.StatusBadRequest)
			return
		}

		go func() {
			listings, err := fetchDataset(baseCtx, datasetID)
			if err != nil {
				zap.L().Error("webhook dataset fetch failed",
					zap.String("dataset_id", datasetID),
					zap.Error(err),
				)
				return
			}
			run(baseCtx, listings)
		}()
		writeAccepted(w, -1)
	})

	r.Get("/export-ids", func(w http.ResponseWriter, req *http.Request) {
		ids, err := st.SeenIDs(req.Context())
		if err != nil {
			zap.L().Error("list seen ids failed", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(ids)
	})

	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
