package config

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raceline/typerace/globals"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultAdminUser         = "admin"
	defaultMaxPlayers        = 4
	defaultGoalDistance      = 500
	defaultCountdownMs       = 3000
	defaultDurationMs        = 60000
	defaultMinChunks         = 5
	defaultMaxChunks         = 7
	defaultEventRetentionMin = 60
)

// Config is the global configuration object which is filled via the configuration file
type Config struct {
	GameConfig        GameConfig        `mapstructure:"game"`
	PersistenceConfig PersistenceConfig `mapstructure:"persistence"`
	OIDCConfigs       []OIDCConfig      `mapstructure:"oidc"`
	CorpusConfig      CorpusConfig      `mapstructure:"corpus"`
	LogLevel          string            `mapstructure:"log_level"`
	AdminUser         string            `mapstructure:"admin_user"`
}

// GameConfig holds the race parameters.
type GameConfig struct {
	MaxPlayers        int     `mapstructure:"max_players"`
	GoalDistance      float64 `mapstructure:"goal_distance"`
	CountdownMs       int64   `mapstructure:"countdown_ms"`
	DefaultDurationMs int64   `mapstructure:"default_duration_ms"`
	MinChunks         int     `mapstructure:"min_chunks"`
	MaxChunks         int     `mapstructure:"max_chunks"`
	EventRetentionMin int     `mapstructure:"event_retention_min"`
}

func (g GameConfig) Countdown() time.Duration {
	return time.Duration(g.CountdownMs) * time.Millisecond
}

func (g GameConfig) DefaultDuration() time.Duration {
	return time.Duration(g.DefaultDurationMs) * time.Millisecond
}

func (g GameConfig) EventRetention() time.Duration {
	return time.Duration(g.EventRetentionMin) * time.Minute
}

// An OIDCConfig object configures an OpenID Connect provider that is used to authenticate users. Users provide
// an ID token and the name of the provider, the authentication is then performed via verification of the token.
type OIDCConfig struct {
	Name        string `mapstructure:"name"`
	ClientId    string `mapstructure:"client_id"`
	ProviderUrl string `mapstructure:"provider_url"` // f.e. "https://accounts.google.com", this is used to construct the discovery url and subsequently discover the openid endpoints
}

// PersistenceConfig configures the persistence backend. Type is one of
// "buntdb", "sqlite" or "postgres"; DSN is the file name for buntdb/sqlite or
// the connection string for postgres.
type PersistenceConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

// CorpusConfig optionally points at a TOML file with race text chunks.
type CorpusConfig struct {
	Path string `mapstructure:"path"`
}

func GetFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("configuration", pflag.ContinueOnError)
	flagSet.StringP("admin-user", "a", "", "id of the admin user")
	return flagSet
}

// wordSepNormalizeFunc allows for normalization of the flag names (which use - as a separator)
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	from := "-"
	to := "_"
	name = strings.Replace(name, from, to, -1)
	return pflag.NormalizedName(name)
}

// ReadConfiguration reads and parses the configuration located at configPath, which can either point to a single TOML
// file or to a directory, in which case all *.toml files in this directory are concatenated. It returns a Config
// object.
func ReadConfiguration(configPath string, flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Config{}
	flagSet.SetNormalizeFunc(wordSepNormalizeFunc)
	viper.SetDefault("admin_user", defaultAdminUser)
	viper.SetDefault("game.max_players", defaultMaxPlayers)
	viper.SetDefault("game.goal_distance", defaultGoalDistance)
	viper.SetDefault("game.countdown_ms", defaultCountdownMs)
	viper.SetDefault("game.default_duration_ms", defaultDurationMs)
	viper.SetDefault("game.min_chunks", defaultMinChunks)
	viper.SetDefault("game.max_chunks", defaultMaxChunks)
	viper.SetDefault("game.event_retention_min", defaultEventRetentionMin)
	err := viper.BindPFlags(flagSet)
	if err != nil {
		globals.AppLogger.Error("could not bind flags (ignored)", "error", err)
	}
	viper.SetEnvPrefix("TYPERACE")
	viper.AutomaticEnv()
	if configPath != "" {
		fi, err := os.Stat(configPath)
		if err != nil {
			return nil, err
		}
		contents := make([]byte, 0)
		files := []string{configPath}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(configPath, "*.toml"))
			if err != nil {
				return nil, err
			}
		}
		for _, configFile := range files {
			fileContents, err := ioutil.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			contents = append(contents, fileContents...)
			contents = append(contents, '\n')
		}
		viper.SetConfigType("toml")
		err = viper.ReadConfig(bytes.NewBuffer(contents))
		if err != nil {
			globals.AppLogger.Error("could not read config:", "error", err)
		}
	}
	err = viper.Unmarshal(&cfg)
	if err != nil {
		globals.AppLogger.Error("could not unmarshal config:", "error", err)
	}

	globals.AppLogger.Debug("config", "cfg", cfg, "all", viper.AllSettings())
	return &cfg, nil
}
