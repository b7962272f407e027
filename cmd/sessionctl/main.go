package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

// cliConfig is the environment-driven configuration. Flags override it.
type cliConfig struct {
	API     string `default:"http://localhost:8080"`
	DataDir string `split_words:"true"`
}

var (
	apiFlag     string
	dataDirFlag string
	rootCmd     = &cobra.Command{
		Use:   "sessionctl",
		Short: "CLI for the learning-app session engine",
	}
)

func main() {
	var cfg cliConfig
	if err := envconfig.Process("sessionkit", &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DataDir = filepath.Join(home, ".sessionkit")
		} else {
			cfg.DataDir = ".sessionkit"
		}
	}

	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", cfg.API, "identity provider base URL")
	rootCmd.PersistentFlags().StringVarP(&dataDirFlag, "data-dir", "d", cfg.DataDir, "local session state directory")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
