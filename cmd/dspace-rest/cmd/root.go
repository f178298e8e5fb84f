package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dspace/dspace-rest/cmd/dspace-rest/cmd/groups"
	"github.com/dspace/dspace-rest/cmd/dspace-rest/cmd/policy"
	"github.com/dspace/dspace-rest/cmd/dspace-rest/cmd/users"
	"github.com/dspace/dspace-rest/internal/config"
)

var (
	cfg        *config.Config
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "dspace-rest",
	Short: "DSpace REST API server",
	Long: `dspace-rest serves the DSpace REST authentication and authorization endpoints.
It also carries the database and access administration commands.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a config file (yaml, json or toml)")
	flags.String("db-url", "", "Database connection URL (env: DSPACE_DATABASE_URL)")
	flags.String("server-addr", "", "Server bind address (env: DSPACE_SERVER_ADDR)")
	flags.String("server-url", "", "Public base URL of the REST API (env: DSPACE_SERVER_URL)")
	flags.Bool("debug", false, "Enable debug mode (env: DSPACE_DEBUG)")

	_ = viper.BindPFlag("database_url", flags.Lookup("db-url"))
	_ = viper.BindPFlag("server_addr", flags.Lookup("server-addr"))
	_ = viper.BindPFlag("server_url", flags.Lookup("server-url"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(users.UsersCmd)
	rootCmd.AddCommand(groups.GroupsCmd)
	rootCmd.AddCommand(policy.PolicyCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
