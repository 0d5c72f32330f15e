/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/fxtree/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap a FreyjaDB configuration file",
	Long: `Create a FreyjaDB configuration file with freshly generated API keys.

This is the one-time setup step before running "freyja up" or "freyja serve":
it writes a YAML config containing the data directory, listen address, and
generated keys, so subsequent commands don't need them passed on every
invocation.

Examples:
  freyja init --data-dir=./data
  freyja init --config=./custom-config.yaml --force`,
	Run: func(cmd *cobra.Command, args []string) {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		configPath, _ := cmd.Flags().GetString("config")
		force, _ := cmd.Flags().GetBool("force")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		if config.ConfigExists(configPath) && !force {
			cmd.Printf("Config already exists at %s. Use --force to overwrite.\n", configPath)
			return
		}

		cfg, err := config.BootstrapConfig(configPath, dataDir)
		if err != nil {
			cmd.Printf("Error bootstrapping config: %v\n", err)
			os.Exit(1)
		}

		cmd.Printf("✅ Configuration created at %s\n", configPath)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		cmd.Printf("\n🔑 Generated Keys:\n")
		cmd.Printf("System Key: %s\n", cfg.Security.SystemKey)
		cmd.Printf("System API Key: %s\n", cfg.Security.SystemAPIKey)
		cmd.Printf("Client API Key: %s\n", cfg.Security.ClientAPIKey)
		cmd.Printf("\nYou can now start the server with:\n  freyja up --config=%s\n", configPath)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().String("data-dir", "./data", "Data directory for freyja")
	initCmd.Flags().String("config", "", "Path to config file (default: OS-specific location)")
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
}
