// file: cmd/root.go
// version: 2.0.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jdfalk/media-acquirer/internal/config"
	"github.com/jdfalk/media-acquirer/internal/logger"
	"github.com/jdfalk/media-acquirer/internal/metrics"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "media-acquirer",
	Short: "Pick, fetch and track media releases",
	Long: `media-acquirer classifies release titles, ranks candidates against
quality profiles and custom formats, hands the winner to Deluge,
Transmission or SABnzbd, and blacklists releases that fail.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := logger.Setup(config.AppConfig.LogLevel, config.AppConfig.LogFormat); err != nil {
			return err
		}
		metrics.Register()
		return ensureDatabaseDir(config.AppConfig.DatabasePath)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.media-acquirer.yaml)")
	flags.String("db", "media-acquirer.db", "path to database")
	flags.String("db-type", "pebble", "database type: pebble (default) or sqlite")
	flags.Bool("enable-sqlite3-i-know-the-risks", false, "enable SQLite3 database (WARNING: cgo required, PebbleDB recommended)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")

	viper.BindPFlag("database_path", flags.Lookup("db"))
	viper.BindPFlag("database_type", flags.Lookup("db-type"))
	viper.BindPFlag("enable_sqlite3_i_know_the_risks", flags.Lookup("enable-sqlite3-i-know-the-risks"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(acquireCmd)
	rootCmd.AddCommand(blacklistCmd)
	rootCmd.AddCommand(backendCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(diagnosticsCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".media-acquirer")
	}

	viper.SetEnvPrefix("MEDIA_ACQUIRER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func ensureDatabaseDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}
