package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mockidp/mockidp/pkg/config"
	"github.com/mockidp/mockidp/pkg/logging"
	"github.com/mockidp/mockidp/pkg/server"
)

// serveOptions holds the flag values of one serve command instance.
type serveOptions struct {
	configFile    string
	port          int
	tlsEnabled    bool
	hostname      string
	realm         string
	algorithm     string
	tokenLifetime string
	logLevel      string
	logFormat     string
}

func newServeCmd() (*cobra.Command, *serveOptions) {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mock identity provider (foreground)",
		Example: `  # Start with defaults (realm "master", HTTP on port 8000)
  mockidp serve

  # Serve a custom realm over TLS with an EC key
  mockidp serve --realm tenant-a --tls --port 8443 --algorithm ES256

  # Start from a config file
  mockidp serve --config mockidp.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configFile, "config", "c", "", "path to a YAML configuration file")
	f.IntVarP(&opts.port, "port", "p", 8000, "port to listen on (0 for an ephemeral port)")
	f.BoolVar(&opts.tlsEnabled, "tls", false, "serve over HTTPS with a self-signed certificate")
	f.StringVar(&opts.hostname, "hostname", "localhost", "hostname used in the default base URL")
	f.StringVar(&opts.realm, "realm", "master", "default realm")
	f.StringVar(&opts.algorithm, "algorithm", "RS256", "signing algorithm (RS256, ES256, HS256)")
	f.StringVar(&opts.tokenLifetime, "token-lifetime", "", "default token validity, e.g. 30m (default 10h)")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")

	return cmd, opts
}

func init() {
	cmd, _ := newServeCmd()
	rootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := loadServeConfig(cmd, opts)
	if err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
	})

	m, err := server.New(cfg, server.WithLogger(log))
	if err != nil {
		return err
	}
	if err := m.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	return m.Stop()
}

// loadServeConfig builds the effective configuration: file values first,
// then explicit flag overrides.
func loadServeConfig(cmd *cobra.Command, opts *serveOptions) (*config.ServerConfig, error) {
	cfg := config.DefaultServerConfig()
	if opts.configFile != "" {
		loaded, err := config.LoadFromFile(opts.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("port") {
		cfg.Port = opts.port
	}
	if f.Changed("tls") {
		cfg.TLS = opts.tlsEnabled
	}
	if f.Changed("hostname") {
		cfg.Hostname = opts.hostname
	}
	if f.Changed("realm") {
		cfg.Realm = opts.realm
	}
	if f.Changed("algorithm") {
		cfg.Algorithm = opts.algorithm
	}
	if f.Changed("token-lifetime") {
		cfg.TokenLifetime = opts.tokenLifetime
	}
	if f.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
