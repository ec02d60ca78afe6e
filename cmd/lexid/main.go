// Package main implements the lexid daemon and its operational subcommands.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexilabs/lexid/internal/casefile"
	"github.com/lexilabs/lexid/internal/config"
	"github.com/lexilabs/lexid/internal/constitution"
	"github.com/lexilabs/lexid/internal/embeddings"
	"github.com/lexilabs/lexid/internal/extract"
	"github.com/lexilabs/lexid/internal/grounding"
	"github.com/lexilabs/lexid/internal/httpapi"
	"github.com/lexilabs/lexid/internal/llm"
	"github.com/lexilabs/lexid/internal/logging"
	"github.com/lexilabs/lexid/internal/store"
	"github.com/lexilabs/lexid/internal/telemetry"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "lexid",
	Short:   "Evidence grounding and verdict pipeline daemon",
	Long:    `lexid ingests case evidence, extracts incident-anchored facts, gates them through a semantic grounding check, and serves deterministic, explainable verdicts.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (optional)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loadConstitutionCmd)
	rootCmd.AddCommand(healthCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lexid HTTP server",
	Long: `Run the lexid HTTP server.

Examples:
  # Serve with environment configuration
  STORE_BASE_URL=https://db.example.com STORE_API_KEY=... lexid serve

  # Serve with a config file
  lexid serve --config /etc/lexid/config.yaml`,
	RunE: runServe,
}

var loadConstitutionCmd = &cobra.Command{
	Use:   "load-constitution <pdf>",
	Short: "Load the constitution corpus from a PDF",
	Long: `Parse a constitution PDF into articles, embed each article body, and
insert the rows into the constitution corpus for similarity search.

Examples:
  lexid load-constitution data/constitution.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runLoadConstitution,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether a running lexid server is healthy",
	Long: `Probe the /health endpoint of a running lexid server using the
configured server host and port. Exits non-zero when the server is
unreachable or unhealthy.`,
	RunE: runHealth,
}

// buildServices wires the shared dependency graph: one store client, one
// embedding client, one extractor, constructed once and injected everywhere.
func buildServices(cfg *config.Config, logger *zap.Logger) (*store.Store, *embeddings.Client, *extract.Extractor, error) {
	storeClient, err := store.NewClient(cfg.Store)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("store client: %w", err)
	}
	st := store.New(storeClient, store.PolicyFromConfig(cfg.Store), logger.Named("store"))

	embedder, err := embeddings.NewClient(cfg.Embeddings)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("embeddings client: %w", err)
	}

	extractor := extract.New(extract.NewTesseractOCR(), logger.Named("extract"))

	return st, embedder, extractor, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	tel, err := telemetry.Setup(cmd.Context(), cfg.Telemetry, version, logger.Named("telemetry"))
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	st, embedder, extractor, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}

	completer, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("completion client: %w", err)
	}

	uploads, err := casefile.NewUploadDir(cfg.Uploads.Dir)
	if err != nil {
		return err
	}

	gate := grounding.NewGate(embedder, cfg.Grounding.Threshold, logger.Named("grounding"))
	factExtractor := llm.NewFactExtractor(completer, logger.Named("facts"))

	cases, err := casefile.NewService(st, embedder, extractor, factExtractor, gate, completer, uploads, logger.Named("casefile"))
	if err != nil {
		return err
	}

	srv, err := httpapi.NewServer(cases, logger.Named("http"), cfg.Server)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("lexid listening",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	if err := srv.Start(ctx); err != nil && err != http.ErrServerClosed {
		return err
	}
	logger.Info("lexid stopped")
	return nil
}

func runLoadConstitution(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	st, embedder, extractor, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}

	loader := constitution.NewLoader(st, embedder, extractor, logger.Named("constitution"))
	inserted, err := loader.LoadPDF(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("loaded %d constitution articles\n", inserted)
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	host := cfg.Server.Host
	if host == "0.0.0.0" || host == "" {
		host = "127.0.0.1"
	}
	endpoint := fmt.Sprintf("http://%s:%d/health", host, cfg.Server.Port)

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable at %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}
	fmt.Println("ok")
	return nil
}
