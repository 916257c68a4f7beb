package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/swarmguard/needlescan/services/needlescan/report"
	"github.com/swarmguard/needlescan/services/needlescan/scanner"
)

const reporterNATS = "nats"

type config struct {
	Duration    time.Duration
	Searcher    string
	Reporter    string
	NATSURL     string
	NATSSubject string
	Progress    string
}

// loadConfig reads environment defaults and lets flags override them.
func loadConfig(args []string, stderr io.Writer) (config, error) {
	var cfg config
	duration, err := time.ParseDuration(getEnvDefault("NEEDLESCAN_DURATION", "100s"))
	if err != nil {
		return cfg, fmt.Errorf("NEEDLESCAN_DURATION: %w", err)
	}

	fs := flag.NewFlagSet("needlescan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.DurationVar(&cfg.Duration, "duration", duration, "how long to search before stopping")
	fs.StringVar(&cfg.Searcher, "searcher", getEnvDefault("NEEDLESCAN_SEARCHER", "horspool"),
		"search algorithm: "+strings.Join(scanner.Names, "|"))
	fs.StringVar(&cfg.Reporter, "reporter", getEnvDefault("NEEDLESCAN_REPORTER", "console"),
		"match sink: "+strings.Join(reporterNames(), "|"))
	fs.StringVar(&cfg.NATSURL, "nats-url", getEnvDefault("NATS_URL", "nats://127.0.0.1:4222"), "NATS server for the nats reporter")
	fs.StringVar(&cfg.NATSSubject, "nats-subject", getEnvDefault("NEEDLESCAN_NATS_SUBJECT", "needlescan.matches"), "subject for published matches")
	fs.StringVar(&cfg.Progress, "progress", getEnvDefault("NEEDLESCAN_PROGRESS_CRON", "@every 10s"), "progress log schedule; empty disables")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", c.Duration)
	}
	if !slices.Contains(scanner.Names, strings.ToLower(c.Searcher)) {
		return fmt.Errorf("unknown searcher %q", c.Searcher)
	}
	if !slices.Contains(reporterNames(), strings.ToLower(c.Reporter)) {
		return fmt.Errorf("unknown reporter %q", c.Reporter)
	}
	if strings.EqualFold(c.Reporter, reporterNATS) {
		if c.NATSURL == "" {
			return fmt.Errorf("nats reporter requires a server url")
		}
		if c.NATSSubject == "" {
			return fmt.Errorf("nats reporter requires a subject")
		}
	}
	return nil
}

func reporterNames() []string {
	return append(slices.Clone(report.Names), reporterNATS)
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
