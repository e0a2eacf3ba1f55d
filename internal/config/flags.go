package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/draftkeeper/internal/flagx"
)

var knownFlags = []string{
	"-b", "-d", "-u", "-k", "-s", "-t", "-l", "-f", "-delay", "-window",
}

// parseFlags populates selected Config fields from command-line flags.
//
//	-b string     remote backend (memory, postgres, supabase)
//	-d string     postgres DSN
//	-u string     supabase URL
//	-k string     supabase API key
//	-s string     session SQLite DSN
//	-t string     access token
//	-l string     log level
//	-f string     log format (text, json, zap)
//	-delay dur    autosave delay
//	-window dur   recent remote draft window
//
// args is filtered with flagx.FilterArgs first so that -c/-config and
// anything else aimed at other layers is left alone.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("draftctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Backend, "b", cfg.Backend, "remote backend")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "postgres DSN")
	fs.StringVar(&cfg.SupabaseURL, "u", cfg.SupabaseURL, "supabase URL")
	fs.StringVar(&cfg.SupabaseKey, "k", cfg.SupabaseKey, "supabase API key")
	fs.StringVar(&cfg.SessionDSN, "s", cfg.SessionDSN, "session SQLite DSN")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format")
	fs.DurationVar(&cfg.AutosaveDelay, "delay", cfg.AutosaveDelay, "autosave delay")
	fs.DurationVar(&cfg.RemoteDraftWindow, "window", cfg.RemoteDraftWindow, "recent remote draft window")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
