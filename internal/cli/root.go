package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	token      string
	userID     string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "dailyquiz",
		Short: "Live daily-quiz client: joins the quiz channel and plays a session",
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&token, "token", os.Getenv("QUIZ_TOKEN"), "auth bearer token (overrides config)")
	cmd.PersistentFlags().StringVar(&userID, "user", os.Getenv("QUIZ_USER_ID"), "participant id (overrides config)")
	cmd.AddCommand(NewPlayCmd(&configPath, &token, &userID))
	cmd.AddCommand(NewDeviceCmd(&configPath))
	return cmd
}
