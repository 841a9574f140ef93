// Package config loads node configuration from flags, environment, and
// config files via spf13/viper + spf13/pflag, the way the teacher's own
// node/config package layers pflag defaults under a viper-backed file,
// generalized to spec.md §6's enumerated key set.
package config

import (
	"time"

	"github.com/mitchellh/mapstructure"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config enumerates every tunable named in spec.md §6.
type Config struct {
	SlotSecs     int64 `mapstructure:"slot_secs"`
	GenesisTS    int64 `mapstructure:"genesis_ts"`
	ChainID      string `mapstructure:"chain_id"`

	AvalancheK         int `mapstructure:"avalanche_k"`
	AvalancheAlpha     int `mapstructure:"avalanche_alpha"`
	AvalancheBetaLocal int `mapstructure:"avalanche_beta_local"`
	AvalancheBetaMax   int `mapstructure:"avalanche_beta_max"`
	PollTimeoutMS      int `mapstructure:"poll_timeout_ms"`

	QFinalityNumerator   int `mapstructure:"q_finality_numerator"`
	QFinalityDenominator int `mapstructure:"q_finality_denominator"`

	HeartbeatPeriodSecs int64 `mapstructure:"heartbeat_period_secs"`
	HeartbeatTTLSecs    int64 `mapstructure:"heartbeat_ttl_secs"`
	WitnessMin          int   `mapstructure:"witness_min"`

	MempoolTxMax    int `mapstructure:"mempool_tx_max"`
	MempoolBytesMax int `mapstructure:"mempool_bytes_max"`
	BlockBytesMax   int `mapstructure:"block_bytes_max"`
	TxBytesMax      int `mapstructure:"tx_bytes_max"`

	DustThreshold uint64 `mapstructure:"dust_threshold"`
	MinFee        uint64 `mapstructure:"min_fee"`

	ReorgDepthMax int `mapstructure:"reorg_depth_max"`

	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
}

// Defaults mirrors spec.md §6's enumerated defaults exactly.
func Defaults() Config {
	return Config{
		SlotSecs: 600,

		AvalancheK:         20,
		AvalancheAlpha:     14,
		AvalancheBetaLocal: 20,
		AvalancheBetaMax:   100,
		PollTimeoutMS:      200,

		QFinalityNumerator:   2,
		QFinalityDenominator: 3,

		HeartbeatPeriodSecs: 60,
		HeartbeatTTLSecs:    180,
		WitnessMin:          3,

		MempoolTxMax:    10_000,
		MempoolBytesMax: 300_000_000,
		BlockBytesMax:   2_000_000,
		TxBytesMax:      1_000_000,

		DustThreshold: 546,
		MinFee:        1000,

		ReorgDepthMax: 1000,

		DataDir:  "./data",
		LogLevel: "info",
	}
}

// PollTimeout returns the poll timeout as a time.Duration.
func (c Config) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutMS) * time.Millisecond
}

// RegisterFlags binds every Config field to a pflag flag, defaulted from
// d, the way the teacher's node/flags.go registers its own config
// surface.
func RegisterFlags(fs *flag.FlagSet, d Config) {
	fs.Int64("slot-secs", d.SlotSecs, "checkpoint slot duration in seconds")
	fs.Int64("genesis-ts", d.GenesisTS, "genesis unix timestamp")
	fs.String("chain-id", d.ChainID, "chain identifier")

	fs.Int("avalanche-k", d.AvalancheK, "avalanche sample size")
	fs.Int("avalanche-alpha", d.AvalancheAlpha, "avalanche quorum size")
	fs.Int("avalanche-beta-local", d.AvalancheBetaLocal, "local finality confidence threshold")
	fs.Int("avalanche-beta-max", d.AvalancheBetaMax, "max rounds before giving up")
	fs.Int("poll-timeout-ms", d.PollTimeoutMS, "per-query timeout in milliseconds")

	fs.Int("q-finality-numerator", d.QFinalityNumerator, "finality quorum numerator")
	fs.Int("q-finality-denominator", d.QFinalityDenominator, "finality quorum denominator")

	fs.Int64("heartbeat-period-secs", d.HeartbeatPeriodSecs, "validator heartbeat period")
	fs.Int64("heartbeat-ttl-secs", d.HeartbeatTTLSecs, "heartbeat liveness window")
	fs.Int("witness-min", d.WitnessMin, "distinct witness attestations required for liveness")

	fs.Int("mempool-tx-max", d.MempoolTxMax, "maximum pooled transaction count")
	fs.Int("mempool-bytes-max", d.MempoolBytesMax, "maximum pooled transaction bytes")
	fs.Int("block-bytes-max", d.BlockBytesMax, "maximum block size in bytes")
	fs.Int("tx-bytes-max", d.TxBytesMax, "maximum transaction size in bytes")

	fs.Uint64("dust-threshold", d.DustThreshold, "minimum non-dust output value")
	fs.Uint64("min-fee", d.MinFee, "minimum transaction fee")

	fs.Int("reorg-depth-max", d.ReorgDepthMax, "maximum accepted reorg depth")

	fs.String("data-dir", d.DataDir, "on-disk data directory")
	fs.String("log-level", d.LogLevel, "log level")
}

// Load builds a Config from defaults, an optional config file, and any
// flags already parsed into fs, in that precedence order (file
// overrides defaults, flags override the file) — the same layering the
// teacher's config loader uses.
func Load(fs *flag.FlagSet, configFile string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	d := Defaults()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(mapstructure.StringToTimeDurationHookFunc())
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook), func(dc *mapstructure.DecoderConfig) {
		dc.ZeroFields = false
	}); err != nil {
		return Config{}, err
	}
	return mergeDefaults(cfg, d), nil
}

// mergeDefaults fills any zero-valued field of cfg from d, so an
// under-specified config file or flag set still yields the spec's
// defaults rather than Go zero values.
func mergeDefaults(cfg, d Config) Config {
	if cfg.SlotSecs == 0 {
		cfg.SlotSecs = d.SlotSecs
	}
	if cfg.AvalancheK == 0 {
		cfg.AvalancheK = d.AvalancheK
	}
	if cfg.AvalancheAlpha == 0 {
		cfg.AvalancheAlpha = d.AvalancheAlpha
	}
	if cfg.AvalancheBetaLocal == 0 {
		cfg.AvalancheBetaLocal = d.AvalancheBetaLocal
	}
	if cfg.AvalancheBetaMax == 0 {
		cfg.AvalancheBetaMax = d.AvalancheBetaMax
	}
	if cfg.PollTimeoutMS == 0 {
		cfg.PollTimeoutMS = d.PollTimeoutMS
	}
	if cfg.QFinalityNumerator == 0 {
		cfg.QFinalityNumerator = d.QFinalityNumerator
	}
	if cfg.QFinalityDenominator == 0 {
		cfg.QFinalityDenominator = d.QFinalityDenominator
	}
	if cfg.HeartbeatPeriodSecs == 0 {
		cfg.HeartbeatPeriodSecs = d.HeartbeatPeriodSecs
	}
	if cfg.HeartbeatTTLSecs == 0 {
		cfg.HeartbeatTTLSecs = d.HeartbeatTTLSecs
	}
	if cfg.WitnessMin == 0 {
		cfg.WitnessMin = d.WitnessMin
	}
	if cfg.MempoolTxMax == 0 {
		cfg.MempoolTxMax = d.MempoolTxMax
	}
	if cfg.MempoolBytesMax == 0 {
		cfg.MempoolBytesMax = d.MempoolBytesMax
	}
	if cfg.BlockBytesMax == 0 {
		cfg.BlockBytesMax = d.BlockBytesMax
	}
	if cfg.TxBytesMax == 0 {
		cfg.TxBytesMax = d.TxBytesMax
	}
	if cfg.DustThreshold == 0 {
		cfg.DustThreshold = d.DustThreshold
	}
	if cfg.MinFee == 0 {
		cfg.MinFee = d.MinFee
	}
	if cfg.ReorgDepthMax == 0 {
		cfg.ReorgDepthMax = d.ReorgDepthMax
	}
	if cfg.DataDir == "" {
		cfg.DataDir = d.DataDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = d.LogLevel
	}
	return cfg
}
