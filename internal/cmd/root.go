// Package cmd wires the flexpool CLI: a root command with configuration
// loading, a run command that drives a synthetic workload through the
// pool, and a watch command with a live dashboard.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AndreaCadonna/flexpool/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "flexpool",
	Short: "Adaptive worker pool with elastic scaling and crash recovery",
	Long: `Flexpool runs submitted tasks on a dynamically sized set of isolated
execution units. The pool grows under queue backlog and shrinks when
idle, restarts crashed units transparently, and exposes metrics and a
live dashboard for observing its behavior.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/flexpool/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/flexpool")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FLEXPOOL")
	// Replace dots with underscores for nested keys in env vars
	// e.g., FLEXPOOL_POOL_MAX_UNITS for pool.max_units
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
