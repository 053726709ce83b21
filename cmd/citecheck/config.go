package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/citecheck/citecheck/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set pipeline parameters",
	Long: `Get or set pipeline parameters in .citecheck/pipeline.yml.

Usage:
  citecheck config                          # Show all parameters
  citecheck config fuzzy-threshold          # Get one value
  citecheck config fuzzy-threshold 0.8      # Set a value

Keys:
  fuzzy-threshold   Minimum marker-to-entry similarity for fuzzy matches
  min-score         Minimum combined score for a provider candidate
  title-weight      Title weight in the combined score
  author-weight     Author weight in the combined score
  trust-order       Comma-separated provider trust order
  provider-timeout  Per-provider query timeout (e.g. 10s)
  attempts          Existence probe retry attempts
  backoff           Base delay between probe attempts (e.g. 500ms)
  probe-timeout     Per-probe request timeout (e.g. 10s)
  grobid-url        GROBID service URL (empty disables conversion)`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	cfg := mustLoadPipeline(root)

	// No args: show all parameters
	if len(args) == 0 {
		if humanOutput {
			for _, key := range configKeys {
				fmt.Printf("%-17s %s\n", key+":", getConfigValue(cfg, key))
			}
		} else {
			all := make(map[string]string, len(configKeys))
			for _, key := range configKeys {
				all[strings.ReplaceAll(key, "-", "_")] = getConfigValue(cfg, key)
			}
			outputJSON(all)
		}
		return nil
	}

	key := normalizeKey(args[0])
	if !knownKey(key) {
		exitWithError(ExitError, "unknown configuration key: %s", args[0])
	}

	// One arg: get one value
	if len(args) == 1 {
		value := getConfigValue(cfg, key)
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{strings.ReplaceAll(key, "-", "_"): value})
		}
		return nil
	}

	// Two args: set and save
	value := args[1]
	if err := setConfigValue(cfg, key, value); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(config.PipelinePath(root)); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(map[string]string{"status": "updated", "key": key, "value": value})
	}
	return nil
}

var configKeys = []string{
	"fuzzy-threshold", "min-score", "title-weight", "author-weight",
	"trust-order", "provider-timeout", "attempts", "backoff",
	"probe-timeout", "grobid-url",
}

func knownKey(key string) bool {
	for _, k := range configKeys {
		if k == key {
			return true
		}
	}
	return false
}

// normalizeKey converts key formats (fuzzy_threshold, fuzzy-threshold) to consistent format
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "-")
	return key
}

func getConfigValue(cfg *config.Pipeline, key string) string {
	switch key {
	case "fuzzy-threshold":
		return strconv.FormatFloat(cfg.Matcher.FuzzyThreshold, 'g', -1, 64)
	case "min-score":
		return strconv.FormatFloat(cfg.Resolver.MinScore, 'g', -1, 64)
	case "title-weight":
		return strconv.FormatFloat(cfg.Resolver.TitleWeight, 'g', -1, 64)
	case "author-weight":
		return strconv.FormatFloat(cfg.Resolver.AuthorWeight, 'g', -1, 64)
	case "trust-order":
		return strings.Join(cfg.Resolver.TrustOrder, ",")
	case "provider-timeout":
		return cfg.Resolver.ProviderTimeout.String()
	case "attempts":
		return strconv.Itoa(cfg.Verifier.Attempts)
	case "backoff":
		return cfg.Verifier.Backoff.String()
	case "probe-timeout":
		return cfg.Verifier.ProbeTimeout.String()
	case "grobid-url":
		return cfg.Grobid.URL
	}
	return ""
}

func setConfigValue(cfg *config.Pipeline, key, value string) error {
	parseFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: expected a number, got %q", key, value)
		}
		return f, nil
	}
	parseDuration := func() (time.Duration, error) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("%s: expected a duration like 10s, got %q", key, value)
		}
		return d, nil
	}

	var err error
	switch key {
	case "fuzzy-threshold":
		cfg.Matcher.FuzzyThreshold, err = parseFloat()
	case "min-score":
		cfg.Resolver.MinScore, err = parseFloat()
	case "title-weight":
		cfg.Resolver.TitleWeight, err = parseFloat()
	case "author-weight":
		cfg.Resolver.AuthorWeight, err = parseFloat()
	case "trust-order":
		cfg.Resolver.TrustOrder = strings.Split(value, ",")
	case "provider-timeout":
		cfg.Resolver.ProviderTimeout, err = parseDuration()
	case "attempts":
		cfg.Verifier.Attempts, err = strconv.Atoi(value)
		if err != nil {
			err = fmt.Errorf("%s: expected an integer, got %q", key, value)
		}
	case "backoff":
		cfg.Verifier.Backoff, err = parseDuration()
	case "probe-timeout":
		cfg.Verifier.ProbeTimeout, err = parseDuration()
	case "grobid-url":
		cfg.Grobid.URL = value
	}
	return err
}
