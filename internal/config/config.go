package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DoyleJ11/insane-brain-backend/internal/engine"
)

const EnvPrefix = "INSANE"

type Config struct {
	Addr           string
	PublicURL      string
	OriginPatterns []string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ArchiveTTL    time.Duration

	TokenSecret string
	TokenTTL    time.Duration

	MaxPlayers  int
	AnswerTime  time.Duration
	VoteTime    time.Duration
	WinPoints   int
	IdleTimeout time.Duration

	Verbose bool
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("--addr must not be empty")
	}
	if len(c.TokenSecret) < 16 {
		return errors.New("--token-secret must be at least 16 bytes")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("invalid --token-ttl: %s", c.TokenTTL)
	}
	if c.MaxPlayers < 2 {
		return fmt.Errorf("invalid --max-players (must be at least 2): %d", c.MaxPlayers)
	}
	if c.AnswerTime <= 0 || c.VoteTime <= 0 {
		return errors.New("--answer-time and --vote-time must be positive")
	}
	if c.WinPoints < 0 {
		return fmt.Errorf("invalid --win-points: %d", c.WinPoints)
	}
	if longest := max(c.AnswerTime, c.VoteTime); c.IdleTimeout > 0 && c.IdleTimeout <= longest {
		return fmt.Errorf("--idle-timeout (%s) must be longer than the longest phase (%s) or 0", c.IdleTimeout, longest)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("invalid --redis-db: %d", c.RedisDB)
	}
	return nil
}

// Rules returns the per-session rules configured for new games.
func (c *Config) Rules() engine.Rules {
	return engine.Rules{
		MaxPlayers: c.MaxPlayers,
		AnswerTime: c.AnswerTime,
		VoteTime:   c.VoteTime,
		WinPoints:  c.WinPoints,
	}
}

// NewCommand builds the root command. Every flag can also be set through
// an INSANE_ prefixed environment variable; an explicit flag wins.
func NewCommand(cfg *Config, run func(cmd *cobra.Command, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "insane-brain",
		Short: "Realtime backend for a team fill-in-the-blank story game.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	rules := engine.DefaultRules()

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Addr, "addr", "a", ":8080", "address to listen on (env: INSANE_ADDR)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "base URL used in join links and QR codes (env: INSANE_PUBLIC_URL)")
	fs.StringSliceVar(&cfg.OriginPatterns, "origin", nil, "extra websocket origin patterns to accept (env: INSANE_ORIGIN)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres DSN; accounts and history are disabled when empty (env: INSANE_DATABASE_URL)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "", "redis address for snapshot fan-out and archive (env: INSANE_REDIS_ADDR)")
	fs.StringVar(&cfg.RedisPassword, "redis-password", "", "redis password (env: INSANE_REDIS_PASSWORD)")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "redis database number (env: INSANE_REDIS_DB)")
	fs.DurationVar(&cfg.ArchiveTTL, "archive-ttl", 24*time.Hour, "how long finished sessions stay readable (env: INSANE_ARCHIVE_TTL)")
	fs.StringVar(&cfg.TokenSecret, "token-secret", "", "HMAC secret for player tokens (env: INSANE_TOKEN_SECRET)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 12*time.Hour, "player token lifetime (env: INSANE_TOKEN_TTL)")
	fs.IntVar(&cfg.MaxPlayers, "max-players", rules.MaxPlayers, "players allowed per session (env: INSANE_MAX_PLAYERS)")
	fs.DurationVar(&cfg.AnswerTime, "answer-time", rules.AnswerTime, "time to fill in the blanks (env: INSANE_ANSWER_TIME)")
	fs.DurationVar(&cfg.VoteTime, "vote-time", rules.VoteTime, "time to vote (env: INSANE_VOTE_TIME)")
	fs.IntVar(&cfg.WinPoints, "win-points", rules.WinPoints, "points awarded to each member of the winning team (env: INSANE_WIN_POINTS)")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", 30*time.Minute, "time before idle sessions are torn down, 0 disables (env: INSANE_IDLE_TIMEOUT)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "development logging (env: INSANE_VERBOSE)")

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		return bindEnv(v, cmd.Flags())
	}

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// bindEnv copies environment values into flags the user did not set.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := fs.Set(f.Name, v.GetString(f.Name)); err != nil {
			errs = append(errs, fmt.Errorf("env %s_%s: %w", EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), err))
		}
	})
	return errors.Join(errs...)
}
