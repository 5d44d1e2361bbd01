package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/persistorai/podrestore/client"
)

// Build-time variables set via ldflags.
var (
	version   = "0.3.0"
	commit    = ""
	buildDate = ""
)

const defaultURL = "http://localhost:3040"

var (
	apiClient *client.Client
	flagURL   string
	flagKey   string
	flagFmt   string
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("podrestore version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("podrestore version %s-dev", version)
}

type configFile struct {
	// Flat format
	URL    string `yaml:"url,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`
	// Profile format
	Profiles      map[string]configProfile `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

type configProfile struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "podrestore-cli",
		Short:   "podrestore CLI: restore pod accounts from exported archives",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveConfig()
			var opts []client.Option
			if flagKey != "" {
				opts = append(opts, client.WithAPIKey(flagKey))
			}
			apiClient = client.New(flagURL, opts...)
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "podrestore server URL (env: PODRESTORE_URL)")
	rootCmd.PersistentFlags().StringVar(&flagKey, "api-key", "", "API key (env: PODRESTORE_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")

	initCmd := newInitCmd()
	initCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {} // skip client setup
	doctorCmd := newDoctorCmd()
	doctorCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {} // skip client setup

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newRestoreCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newAccountCmd())
	rootCmd.AddCommand(newAuditCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// configPath returns ~/.podrestore/config.yaml.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".podrestore", "config.yaml"), nil
}

// loadConfigFile reads and parses the config file.
func loadConfigFile() (string, *configFile, error) {
	cfgPath, err := configPath()
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return cfgPath, nil, err
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfgPath, nil, err
	}
	return cfgPath, &cfg, nil
}

// resolveSettings applies env and then config file values to whatever the
// flags left at their defaults.
func resolveSettings(url, apiKey string, cfg *configFile) (string, string) {
	if url == defaultURL {
		if v := os.Getenv("PODRESTORE_URL"); v != "" {
			url = v
		}
	}
	if apiKey == "" {
		apiKey = os.Getenv("PODRESTORE_API_KEY")
	}

	if cfg == nil {
		return url, apiKey
	}

	// Resolve from profiles if available, fall back to flat format.
	resolvedURL := cfg.URL
	resolvedKey := cfg.APIKey
	if cfg.Profiles != nil {
		profileName := cfg.ActiveProfile
		if profileName == "" {
			profileName = "default"
		}
		if p, ok := cfg.Profiles[profileName]; ok {
			if p.URL != "" {
				resolvedURL = p.URL
			}
			if p.APIKey != "" {
				resolvedKey = p.APIKey
			}
		}
	}
	if url == defaultURL && resolvedURL != "" {
		url = resolvedURL
	}
	if apiKey == "" && resolvedKey != "" {
		apiKey = resolvedKey
	}
	return url, apiKey
}

// resolveConfig fills flagURL and flagKey. Flag takes precedence, then env,
// then config file.
func resolveConfig() {
	_, cfg, _ := loadConfigFile()
	flagURL, flagKey = resolveSettings(flagURL, flagKey, cfg)
}
