// Package root contains the root command and the wiring shared by all
// subcommands.
package root

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"statement-ingest/internal/common"
	"statement-ingest/internal/config"
	"statement-ingest/internal/ingest"
	"statement-ingest/internal/pdftext"
	"statement-ingest/internal/store"
	"statement-ingest/internal/tableparser"
)

// CommonFlags are the flags shared by multiple commands.
type CommonFlags struct {
	Input     string
	Output    string
	User      string
	Statement string
}

var (
	// Log is the shared logger instance for commands.
	Log = logrus.New()

	// Cfg is the loaded configuration, available after PersistentPreRun.
	Cfg *config.Config

	// SharedFlags are accessible to all commands.
	SharedFlags = CommonFlags{}

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "statement-ingest",
		Short: "Parse bank and credit-card statements and ingest transactions.",
		Long: `statement-ingest extracts transactions from text-based PDF statements,
stages them for duplicate review and commits accepted transactions to the
local ledger.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to statement-ingest!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv()

			cfg, err := config.InitializeConfig()
			if err != nil {
				Log.Fatalf("Failed to initialize configuration: %v", err)
			}
			Cfg = cfg
			Log = config.ConfigureLoggingFromConfig(cfg)

			tableparser.SetLogger(Log)
			pdftext.SetLogger(Log)
			store.SetLogger(Log)
			ingest.SetLogger(Log)
			common.SetLogger(Log)

			common.SetDelimiter([]rune(cfg.CSV.Delimiter)[0])

			if SharedFlags.User == "" {
				SharedFlags.User = cfg.Ingest.DefaultUser
			}
		},
	}
)

// Init registers the persistent flags.
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Input, "input", "i", "", "Input statement file")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output CSV file")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.User, "user", "u", "", "User the statement belongs to")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Statement, "statement", "s", "", "Statement ID")
}

// NewExtractor builds the table extractor from configuration.
func NewExtractor() *tableparser.Extractor {
	return tableparser.NewExtractor(nil, tableparser.Options{
		MinTextLength:        Cfg.Parser.MinTextLength,
		MinRowsPerTable:      Cfg.Parser.MinRowsPerTable,
		MaxDescriptionLength: Cfg.Parser.MaxDescriptionLength,
	})
}

// NewService builds the ingestion service backed by the file store.
func NewService() *ingest.Service {
	st, err := store.NewFileStore(Cfg.Data.Directory)
	if err != nil {
		Log.Fatalf("Failed to open data directory: %v", err)
	}
	return ingest.NewService(st, NewExtractor(), Cfg.Ingest.DefaultCurrency)
}
