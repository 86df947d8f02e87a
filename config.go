/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/amasilva36/secret-santa/santa"
	"github.com/google/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind            string
	maxAttempts     int
	metrics         bool
	minParticipants int
	port            int
	prefix          string
	profile         bool
	sessionTimeout  time.Duration
	tlsCert         string
	tlsKey          string
	verbose         bool
	version         bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	return c.validateDraw()
}

func (c *Config) validateDraw() error {
	if c.minParticipants < santa.AbsoluteMinimum {
		return fmt.Errorf("invalid minimum participants (must be at least %d): %d", santa.AbsoluteMinimum, c.minParticipants)
	}
	if c.maxAttempts < 1 {
		return fmt.Errorf("invalid max attempts (must be positive): %d", c.maxAttempts)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newGenerator(cfg *Config, m *Metrics) *santa.Generator {
	return santa.NewGenerator(
		santa.WithMaxAttempts(cfg.maxAttempts),
		santa.WithObserver(m.observeGeneration),
	)
}

// bindEnv lets every flag in fs be set from SECRETSANTA_<FLAG>, unless it was
// given on the command line.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SECRETSANTA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var logs *logger.Logger

	cmd := &cobra.Command{
		Use:           "secret-santa",
		Short:         "Draws secret santa pairs and reveals them one giver at a time.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logs = logger.Init("secret-santa", cfg.verbose, false, io.Discard)
			logger.SetFlags(0)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logs != nil {
				logs.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.IntVar(&cfg.maxAttempts, "max-attempts", santa.DefaultMaxAttempts, "shuffles to try before giving up on a draw (env: SECRETSANTA_MAX_ATTEMPTS)")
	pfs.IntVar(&cfg.minParticipants, "min-participants", 3, "smallest roster accepted for a draw (env: SECRETSANTA_MIN_PARTICIPANTS)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SECRETSANTA_VERBOSE)")

	fs := cmd.Flags()
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SECRETSANTA_BIND)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "expose prometheus metrics at /metrics (env: SECRETSANTA_METRICS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SECRETSANTA_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SECRETSANTA_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SECRETSANTA_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle draws are discarded (env: SECRETSANTA_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SECRETSANTA_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SECRETSANTA_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SECRETSANTA_VERSION)")

	bindEnv(v, pfs)
	bindEnv(v, fs)

	cmd.AddCommand(newDrawCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("secret-santa v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
