// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the convertmd CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the convertmd CLI.
var rootCmd = &cobra.Command{
	Use:   "convertmd",
	Short: "Convert documents to Markdown",
	Long: `convertmd converts documents (PDF, Word, PowerPoint, Excel, EPUB) to
Markdown using the markitdown container image. A single file produces a .md
file; multiple files are converted in parallel and packaged into one ZIP
archive together with a report of any per-file failures.

The serve subcommand exposes the same pipeline over HTTP for UI frontends.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./convertmd.yaml or ~/.config/convertmd/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("convertmd")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "convertmd"))
		}
	}

	viper.SetEnvPrefix("CONVERTMD")
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
