// Package cli implements the adminauthd command tree.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adminauthd",
		Short: "Admin authentication and session service",
		Long: `adminauthd exposes admin login, two-factor enrollment, and session
validation over HTTP, backed by SQLite or Redis. Every authentication
decision is recorded in an append-only audit trail.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./adminauthd.yaml)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("adminauthd")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.adminauthd")
	}

	viper.SetEnvPrefix("ADMINAUTH")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
