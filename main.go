package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"statement-ingest/cmd/commit"
	"statement-ingest/cmd/export"
	"statement-ingest/cmd/ingestcmd"
	"statement-ingest/cmd/months"
	"statement-ingest/cmd/parse"
	"statement-ingest/cmd/review"
	"statement-ingest/cmd/root"
	"statement-ingest/internal/logging"
)

func init() {
	// Load environment variables silently before any logging happens.
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	// Configure the global log level before any logger is used.
	logLevel := configureLogLevel()
	logging.SetAllLogLevels(logLevel)

	root.Init()
	root.Cmd.AddCommand(parse.Cmd)
	root.Cmd.AddCommand(ingestcmd.Cmd)
	root.Cmd.AddCommand(review.Cmd)
	root.Cmd.AddCommand(commit.Cmd)
	root.Cmd.AddCommand(months.Cmd)
	root.Cmd.AddCommand(export.Cmd)
}

// configureLogLevel sets the global logrus level from LOG_LEVEL, defaulting
// to info. This runs before config loading so early logs honor it too.
func configureLogLevel() logrus.Level {
	logLevelStr := os.Getenv("LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	logLevel, err := logrus.ParseLevel(strings.ToLower(logLevelStr))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
	return logLevel
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
