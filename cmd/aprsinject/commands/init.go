package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openaprs/aprsinject/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample aprsinject configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/aprsinject/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  aprsinject init

  # Initialize with custom path
  aprsinject init --config /etc/aprsinject/config.yaml

  # Force overwrite existing config
  aprsinject init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		// Use custom path
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		// Use default path
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file with your broker and database credentials")
	fmt.Println("  2. Start the worker with: aprsinject start")
	fmt.Printf("  3. Or specify custom config: aprsinject start --config %s\n", configPath)

	return nil
}
