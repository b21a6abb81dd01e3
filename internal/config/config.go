// Package config merges configuration from file, environment and flags.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL        string
	Monitored     string
	WrappedNative string

	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	DedupSize         int

	ProbeTimeout            time.Duration
	SocialKeys              []string
	StringMapGetters        []string
	Bytes32MapGetters       []string
	NumericGetters          []string
	FlagGetters             []string
	MechanismMapGetters     []string
	MechanismBytes32Getters []string
	DenominatorGetters      []string
	PreferredDenominators   []string

	CatalogDir       string
	CreateEventNames []string
	LockEventNames   []string

	RateEndpoint string

	TelegramToken  string
	TelegramChatID int64
	ExplorerBase   string

	MetricsAddr string
	LogLevel    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LAUNCHSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("dedup-size", 4096)
	v.SetDefault("probe-timeout", 3*time.Second)
	v.SetDefault("explorer", "https://bscscan.com")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:                  v.GetString("rpc"),
		Monitored:               v.GetString("monitored"),
		WrappedNative:           v.GetString("wrapped-native"),
		FromBlock:               v.GetUint64("from"),
		ToBlock:                 v.GetUint64("to"),
		BatchSize:               v.GetUint64("batch-size"),
		Checkpoint:              v.GetString("checkpoint"),
		CheckpointEnabled:       v.GetBool("checkpoint-enabled"),
		MaxRetries:              v.GetInt("max-retries"),
		RetryBackoff:            v.GetDuration("retry-backoff"),
		DedupSize:               v.GetInt("dedup-size"),
		ProbeTimeout:            v.GetDuration("probe-timeout"),
		SocialKeys:              getStringSlice(v, "social-keys"),
		StringMapGetters:        getStringSlice(v, "string-map-getters"),
		Bytes32MapGetters:       getStringSlice(v, "bytes32-map-getters"),
		NumericGetters:          getStringSlice(v, "numeric-getters"),
		FlagGetters:             getStringSlice(v, "flag-getters"),
		MechanismMapGetters:     getStringSlice(v, "mechanism-map-getters"),
		MechanismBytes32Getters: getStringSlice(v, "mechanism-bytes32-getters"),
		DenominatorGetters:      getStringSlice(v, "denominator-getters"),
		PreferredDenominators:   getStringSlice(v, "preferred-denominators"),
		CatalogDir:              v.GetString("catalog-dir"),
		CreateEventNames:        getStringSlice(v, "create-event-names"),
		LockEventNames:          getStringSlice(v, "lock-event-names"),
		RateEndpoint:            v.GetString("rate-endpoint"),
		TelegramToken:           v.GetString("telegram-token"),
		TelegramChatID:          v.GetInt64("telegram-chat-id"),
		ExplorerBase:            v.GetString("explorer"),
		MetricsAddr:             v.GetString("metrics-addr"),
		LogLevel:                v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate rejects configurations the watcher cannot start with.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.Monitored == "" {
		return fmt.Errorf("monitored contract address is required")
	}
	if c.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	return nil
}

// ParseDenominators turns "key=value" entries into a per-key
// denominator table. Malformed entries are an error, not a skip.
func ParseDenominators(entries []string) (map[string]int64, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]int64, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid denominator entry %q, want key=value", entry)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid denominator value in %q", entry)
		}
		out[strings.TrimSpace(key)] = n
	}
	return out, nil
}

// ParseKeyedGetters turns "key=getter" entries into a per-key candidate
// list, preserving entry order within each key.
func ParseKeyedGetters(entries []string) (map[string][]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(entries))
	for _, entry := range entries {
		key, getter, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid getter entry %q, want key=getter", entry)
		}
		key = strings.TrimSpace(key)
		getter = strings.TrimSpace(getter)
		if key == "" || getter == "" {
			return nil, fmt.Errorf("invalid getter entry %q, want key=getter", entry)
		}
		out[key] = append(out[key], getter)
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
