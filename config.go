package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/akimizu21/percent-app-sample/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind         string
	corsOrigins  []string
	natsSubject  string
	natsURL      string
	port         int
	prefix       string
	preload      []string
	profile      bool
	publicURL    string
	pushInterval time.Duration
	storage      string
	tlsCert      string
	tlsKey       string
	verbose      bool
	version      bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.pushInterval <= 0 {
		return fmt.Errorf("invalid push interval (must be positive): %s", c.pushInterval)
	}
	if !storage.ValidDSN(c.storage) {
		return fmt.Errorf("invalid storage (want memory:, sqlite:<path> or postgres://...): %q", c.storage)
	}
	if c.publicURL != "" {
		u, err := url.Parse(c.publicURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid public url (must be absolute): %q", c.publicURL)
		}
	}
	if c.natsURL != "" && strings.TrimSpace(c.natsSubject) == "" {
		return errors.New("--nats-subject must not be empty when --nats-url is set")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PERCENT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "percent",
		Short:         "Game server for a two-screen percentage party quiz.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			setupLogging(cfg)
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PERCENT_BIND)")
	fs.StringSliceVar(&cfg.corsOrigins, "cors-origin", []string{"*"}, "origin allowed to call the api, repeatable (env: PERCENT_CORS_ORIGIN)")
	fs.StringVar(&cfg.natsSubject, "nats-subject", "percent.games", "subject prefix for game change events (env: PERCENT_NATS_SUBJECT)")
	fs.StringVar(&cfg.natsURL, "nats-url", "", "publish game change events to this nats server (env: PERCENT_NATS_URL)")
	fs.IntVarP(&cfg.port, "port", "p", 5000, "port to listen on (env: PERCENT_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: PERCENT_PREFIX)")
	fs.StringSliceVar(&cfg.preload, "preload", nil, "yaml game pack to create at startup, repeatable (env: PERCENT_PRELOAD)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: PERCENT_PROFILE)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "externally reachable base url used in qr codes (env: PERCENT_PUBLIC_URL)")
	fs.DurationVar(&cfg.pushInterval, "push-interval", 2*time.Second, "interval between keepalive pings on display sockets (env: PERCENT_PUSH_INTERVAL)")
	fs.StringVarP(&cfg.storage, "storage", "s", "memory:", "memory:, sqlite:<path> or postgres://... (env: PERCENT_STORAGE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: PERCENT_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: PERCENT_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PERCENT_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: PERCENT_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	// DATABASE_URL is what most hosting platforms hand out.
	_ = v.BindEnv("database_url", "DATABASE_URL")
	if !v.IsSet("storage") {
		if dsn := v.GetString("database_url"); dsn != "" {
			_ = fs.Set("storage", dsn)
		}
	}

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("percent v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
