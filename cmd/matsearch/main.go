// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the matsearch CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/matsearch/internal/secrets"
	"github.com/pdiddy/matsearch/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg is the resolved configuration, loaded before any subcommand runs.
var cfg types.Config

// rootCmd is the base command for the matsearch CLI.
var rootCmd = &cobra.Command{
	Use:   "matsearch",
	Short: "Search backend for materials science papers",
	Long: `matsearch answers boolean, field-scoped and semantic searches over an
Elasticsearch index of materials science papers. Results are paged, sorted,
highlighted and cached.

Use serve to run the HTTP API, mcp to expose the same operations as MCP
tools, and query or paper for one-shot lookups from the shell.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(viper.GetString("log.level"), viper.GetString("log.format"), os.Stderr); err != nil {
			return err
		}

		loaded, err := loadConfig()
		if err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		applied, err := secrets.Resolve(dir, &loaded)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", applied)
		}

		cfg = loaded
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./matsearch.yaml or ~/.config/matsearch/matsearch.yaml)")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of secret files")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")

	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", pf.Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("matsearch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "matsearch"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("MATSEARCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
