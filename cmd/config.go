package cmd

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultScanTimeoutSeconds = 15
	defaultScanConcurrency    = 5
	defaultScanRateLimit      = 10
	defaultMaxArticles        = 20
	defaultMaxProducts        = 20
)

// ScanRuntimeConfig consolidates flag- and config-driven settings for scan
// commands. Flags win over config file values.
type ScanRuntimeConfig struct {
	TimeoutSecs int
	Concurrency int
	RateLimit   int
	MaxArticles int
	MaxProducts int
	DBPath      string
}

var scanConfig = ScanRuntimeConfig{
	TimeoutSecs: defaultScanTimeoutSeconds,
	Concurrency: defaultScanConcurrency,
	RateLimit:   defaultScanRateLimit,
	MaxArticles: defaultMaxArticles,
	MaxProducts: defaultMaxProducts,
}

// applyViperOverrides merges config file values into the runtime config for
// any setting the user did not explicitly pass as a flag.
func applyViperOverrides() {
	flags := scanCmd.PersistentFlags()

	if viper.IsSet("scan.timeout") {
		applyIntDefault(flags, "timeout", viper.GetInt("scan.timeout"), func(v int) {
			scanConfig.TimeoutSecs = v
		})
	}
	if viper.IsSet("scan.concurrency") {
		applyIntDefault(flags, "concurrency", viper.GetInt("scan.concurrency"), func(v int) {
			scanConfig.Concurrency = v
		})
	}
	if viper.IsSet("scan.rate_limit") {
		applyIntDefault(flags, "rate-limit", viper.GetInt("scan.rate_limit"), func(v int) {
			scanConfig.RateLimit = v
		})
	}
	if viper.IsSet("scan.max_articles") {
		applyIntDefault(flags, "max-articles", viper.GetInt("scan.max_articles"), func(v int) {
			scanConfig.MaxArticles = v
		})
	}
	if viper.IsSet("scan.max_products") {
		applyIntDefault(flags, "max-products", viper.GetInt("scan.max_products"), func(v int) {
			scanConfig.MaxProducts = v
		})
	}
	if scanConfig.DBPath == "" {
		scanConfig.DBPath = viper.GetString("db_path")
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}
