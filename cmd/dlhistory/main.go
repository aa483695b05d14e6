package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ericstone57/dl-history/internal/app"
	"github.com/ericstone57/dl-history/internal/domain"
	"github.com/ericstone57/dl-history/internal/infrastructure"
	"github.com/ericstone57/dl-history/pkg/logger"
)

var (
	configPath    string
	dbPath        string
	ignoreHistory bool
	ignoreCache   bool
	rootCmd       = &cobra.Command{
		Use:           "dlhistory",
		Short:         "dlhistory - download history and content cache store",
		Long:          `Inspect and maintain the SQLite file that records which media files were downloaded and caches fetched pages.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./configs/config.yaml or $HOME/.dl-history/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "History database path, overrides the config file")
	rootCmd.PersistentFlags().BoolVar(&ignoreHistory, "ignore-history", false, "Report every file as not yet downloaded")
	rootCmd.PersistentFlags().BoolVar(&ignoreCache, "ignore-cache", false, "Report every cache read as a miss")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session is everything a command needs once the store is ready
type session struct {
	config   *domain.Config
	log      *zap.Logger
	store    *infrastructure.HistoryStore
	multiLog *logger.MultiLogger
	grown    bool
}

// openSession loads configuration, sets up logging, then opens and
// initializes the store. The caller must defer close.
func openSession(cmd *cobra.Command) (*session, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		config.Store.DatabasePath = dbPath
	}
	if cmd.Flags().Changed("ignore-history") {
		config.Store.IgnoreHistory = ignoreHistory
	}
	if cmd.Flags().Changed("ignore-cache") {
		config.Store.IgnoreCache = ignoreCache
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	s := &session{config: config, log: log}
	if config.Logging.LogsDir != "" {
		s.multiLog, err = logger.NewMultiLogger(logger.MultiLoggerConfig{
			Level:   config.Logging.Level,
			LogsDir: config.Logging.LogsDir,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		s.log = s.multiLog.Attach(log)
	}

	s.store, err = infrastructure.Open(config.Store, s.log)
	if err != nil {
		s.closeLogs()
		return nil, err
	}

	// Measured before Initialize so init can report whether the file grew
	before, _ := fileSize(config.Store.DatabasePath)
	if err := s.store.Initialize(); err != nil {
		s.close()
		return nil, fmt.Errorf("failed to initialize %s: %w", config.Store.DatabasePath, err)
	}
	after, _ := fileSize(config.Store.DatabasePath)
	s.grown = after-before >= infrastructure.ReservationBytes

	return s, nil
}

func (s *session) close() {
	s.store.Shutdown()
	s.closeLogs()
}

func (s *session) closeLogs() {
	_ = s.log.Sync()
	if s.multiLog != nil {
		if err := s.multiLog.Sync(); err != nil {
			s.log.Warn("Failed to flush log files", zap.Error(err))
		}
		if err := s.multiLog.Close(); err != nil {
			s.log.Warn("Failed to close log files", zap.Error(err))
		}
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or open the history database and prepare it for a run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		fmt.Printf("Database:       %s\n", s.store.Path())
		fmt.Printf("Schema:         %s\n", s.store.SchemaVersion())
		fmt.Printf("Space reserved: %t\n", s.grown)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download history statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		stats, err := s.store.Stats()
		if err != nil {
			return err
		}

		fmt.Println("Download History:")
		fmt.Printf("  Records:       %s\n", humanize.Comma(stats.Records))
		fmt.Printf("  Completed:     %s\n", humanize.Comma(stats.Completed))
		fmt.Printf("  Pending:       %s\n", humanize.Comma(stats.Pending))
		fmt.Printf("  Temp names:    %s\n", humanize.Comma(stats.TempNames))
		fmt.Printf("  Cached pages:  %s\n", humanize.Comma(stats.CacheEntries))
		fmt.Printf("  Schema:        %s\n", stats.SchemaVersion)
		fmt.Printf("  File size:     %s\n", humanize.IBytes(uint64(stats.FileSize)))
		fmt.Printf("  Free space:    %s (%s pages)\n",
			humanize.IBytes(uint64(stats.FreePages*stats.PageSize)), humanize.Comma(stats.FreePages))
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [domain] [url...]",
	Short: "Check whether files were already downloaded",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		manager := app.NewHistoryManager(s.store, s.log)
		domainName, urls := args[0], args[1:]
		done := make([]bool, len(urls))

		var g errgroup.Group
		g.SetLimit(8)
		for i, rawURL := range urls {
			i, rawURL := i, rawURL
			g.Go(func() error {
				urlPath, err := domain.DBPath(rawURL)
				if err != nil {
					return err
				}
				done[i], err = manager.ShouldSkip(domainName, urlPath)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "URL\tDOWNLOADED")
		for i, rawURL := range urls {
			fmt.Fprintf(w, "%s\t%t\n", rawURL, done[i])
		}
		return w.Flush()
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup [url] [original-filename]",
	Short: "Show the local filename chosen for a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		urlPath, err := domain.DBPath(args[0])
		if err != nil {
			return err
		}
		name, found, err := s.store.LookupDownloadedFilename(urlPath, args[1])
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("No download filename recorded")
			return nil
		}
		fmt.Println(name)
		return nil
	},
}

var recordCmd = &cobra.Command{
	Use:   "record [cascade.json]",
	Short: "Record scrape results as pending downloads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read cascade: %w", err)
		}
		var cascade domain.Cascade
		if err := json.Unmarshal(data, &cascade); err != nil {
			return fmt.Errorf("failed to parse cascade %s: %w", args[0], err)
		}
		if cascade.IsEmpty() {
			fmt.Println("Nothing to record")
			return nil
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		n, err := app.NewHistoryManager(s.store, s.log).RecordCascade(cascade)
		if err != nil {
			return err
		}
		fmt.Printf("Recorded %s files\n", humanize.Comma(int64(n)))
		return nil
	},
}
