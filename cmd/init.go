package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/querybee/querybee/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a querybee configuration file",
	Long: `Writes a .querybee.yml with default settings. With --interactive a wizard
asks for the project, knowledge base, transport and service-account key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(cfgFile); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
		}

		if interactive {
			_, err := config.RunWizard(cfgFile)
			return err
		}

		if err := config.DefaultConfig().Save(cfgFile); err != nil {
			return err
		}
		fmt.Printf("Wrote %s. Set DIALOGFLOW_ACCESS_TOKEN or GOOGLE_APPLICATION_CREDENTIALS before starting the server.\n", cfgFile)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolP("interactive", "i", false, "run the configuration wizard")
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
