package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voyagemail/internal/archive"
	"voyagemail/internal/config"
	"voyagemail/internal/events"
	"voyagemail/internal/ingest"
	"voyagemail/internal/mailclient"
	"voyagemail/internal/repository"
	"voyagemail/pkg/db"
	"voyagemail/pkg/dedup"
	"voyagemail/pkg/logger"
	"voyagemail/pkg/metrics"
	"voyagemail/pkg/mq"
	redisclient "voyagemail/pkg/redis"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "voyagemail",
		Short:        "Ingest CSV-bearing emails into per-document database tables",
		RunE:         run,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "Path to the configuration file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration, then exit",
		RunE:  validate,
	}
	rootCmd.AddCommand(validateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	// 1. Load config; pattern and format compilation happens here
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger, tag the whole pass with a run id
	log := logger.NewLogger()
	defer log.Sync()
	runID := uuid.NewString()
	log = logger.WithRun(runID, log)

	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Metrics listener (optional)
	if cfg.Metrics.Addr != "" {
		go metrics.Serve(cfg.Metrics.Addr, log)
	}

	// 4. Init DB
	dbpool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	// 5. Optional collaborators: event publisher, dedup store
	var notifier ingest.Notifier
	if cfg.Events.URL != "" {
		pub, err := mq.NewPublisher(cfg.Events.URL)
		if err != nil {
			return fmt.Errorf("connect event broker: %w", err)
		}
		defer pub.Close()
		notifier = events.NewPublisher(pub, runID)
	}

	var guard ingest.Deduper
	if cfg.Dedupe.Enabled {
		rdb := redisclient.NewClient(cfg.Dedupe)
		defer rdb.Close()
		guard = dedup.New(rdb, cfg.Dedupe.TTL.Std(), log)
	}

	// 6. Wire the ingestion service
	store := repository.NewTableStore(dbpool, log)
	archiver := archive.NewFileArchiver(cfg.ArchiveDir, log)
	svc := ingest.NewService(cfg.Types, store, archiver, notifier, log)
	runner := ingest.NewRunner(svc, guard, log)

	// 7. Open the mail source and run one ingestion pass
	src, err := openSource(cfg.Mail, log)
	if err != nil {
		return err
	}
	defer src.Close()

	if _, err := runner.Run(ctx, src); err != nil {
		log.Error("ingestion pass failed", zap.Error(err))
		return err
	}
	return nil
}

func openSource(cfg config.MailConfig, log *zap.Logger) (ingest.Source, error) {
	switch cfg.Mode {
	case config.ModeMbox:
		return mailclient.OpenMbox(cfg.Mbox.Path, log)
	default:
		return mailclient.DialIMAP(cfg.IMAP, log)
	}
}

func validate(cmd *cobra.Command, args []string) error {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	fmt.Printf("configuration OK: %d document type(s)\n", len(cfg.Types))
	for _, dt := range cfg.Types {
		fmt.Printf("  - %s (sender %s)\n", dt.Name, dt.Sender)
	}
	for _, w := range cfg.Warnings() {
		fmt.Printf("  warning: %s\n", w)
	}
	return nil
}
