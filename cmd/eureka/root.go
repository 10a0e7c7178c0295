// ABOUTME: Root command, configuration loading and backend wiring.
// ABOUTME: Opens the note store and waits for its first snapshot before commands run.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/harper/eureka/internal/analysis"
	"github.com/harper/eureka/internal/charm"
	"github.com/harper/eureka/internal/config"
	"github.com/harper/eureka/internal/db"
	"github.com/harper/eureka/internal/imaging"
	"github.com/harper/eureka/internal/notebook"
	"github.com/harper/eureka/internal/pdf"
	"github.com/harper/eureka/internal/ui"
	"github.com/spf13/cobra"
)

// annotationNoStore marks commands that run without opening the note store.
const annotationNoStore = "eureka/no-store"

var (
	cfg         *config.Config
	logger      *log.Logger
	charmClient *charm.Client
	noteStore   *notebook.Store
	noteSub     *notebook.Subscription
	closers     []func()

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "eureka",
	Short: "Study-mistake journal",
	Long: `Record the mistakes you make while studying, together with the
correction, and review them later. Notes sync through Charm cloud (or a
local SQLite file), can be analysed by an AI model and exported to a
pocket-sized PDF.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "eureka"})
		logger.SetLevel(log.WarnLevel)
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}

		if err := config.LoadDotEnv(); err != nil {
			logger.Warn("could not load .env", "err", err)
		}
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if cfg.Backend == config.BackendCharm {
			charmClient, err = charm.NewClient(cfg, charm.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("init charm client: %w", err)
			}
		}

		if skipStore(cmd) {
			return nil
		}
		return openStore(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeAll()
	},
}

func Execute() error {
	rootCmd.Version = fmt.Sprintf("%s (%s, %s)", version, commit, date)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		closeAll()
		fmt.Fprintln(os.Stderr, ui.Error(err.Error()))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")
}

func skipStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNoStore] == "true" {
			return true
		}
	}
	return false
}

// openStore connects the configured backend, subscribes to the session
// user's notes and waits for the first snapshot.
func openStore(ctx context.Context) error {
	var (
		remote notebook.Remote
		userID string
	)

	switch cfg.Backend {
	case config.BackendLocal:
		sqlDB, err := db.Open(cfg.LocalDBPath())
		if err != nil {
			return err
		}
		local := db.NewStore(sqlDB,
			db.WithPollInterval(cfg.PollInterval.Std()),
			db.WithLogger(logger))
		closers = append(closers, func() { _ = local.Close() })
		remote = local
		userID = cfg.UserID
		if userID == "" {
			userID = "local"
		}
	default:
		id, err := charmClient.ID()
		if err != nil {
			return fmt.Errorf("get charm id (run 'eureka sync link' first?): %w", err)
		}
		remote = charmClient
		userID = id
	}

	noteStore = notebook.New(remote, notebook.Session{UserID: userID},
		notebook.WithLogger(logger),
		notebook.WithTimeout(cfg.RemoteTimeout.Std()))

	sub, err := noteStore.Subscribe(ctx, "")
	if err != nil {
		return err
	}
	noteSub = sub
	closers = append(closers, sub.Stop)

	waitCtx, cancel := context.WithTimeout(ctx, cfg.RemoteTimeout.Std())
	defer cancel()
	if _, err := sub.Next(waitCtx); err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	logger.Debug("notes loaded", "user", userID, "count", len(noteStore.Notes()))
	return nil
}

func closeAll() {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	closers = nil
}

func newAnalyst() *analysis.Client {
	return analysis.New(cfg.AI, analysis.WithLogger(logger))
}

func newExporter() *pdf.Exporter {
	resolver := imaging.NewResolver(
		imaging.WithMaxWidth(cfg.Export.MaxImageWidth),
		imaging.WithQuality(cfg.Export.JPEGQuality),
		imaging.WithTimeout(cfg.Export.ImageTimeout.Std()),
		imaging.WithConcurrency(cfg.Export.ImageConcurrency),
		imaging.WithLogger(logger),
	)
	return pdf.NewExporter(
		pdf.WithFonts(pdf.FontConfig{File: cfg.Export.FontFile}),
		pdf.WithResolver(resolver),
		pdf.WithLogger(logger),
	)
}
