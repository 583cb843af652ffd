package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"dailyquiz-client/internal/config"
	"dailyquiz-client/internal/device"
	"dailyquiz-client/internal/logger"
)

// NewDeviceCmd prints (creating if necessary) this installation's device
// identifier, the value that distinguishes concurrent logins of one account.
func NewDeviceCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Print this installation's device identifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

			store, err := buildStateStore(cfg)
			if err != nil {
				return err
			}
			devices := device.NewStore(store, clockwork.NewRealClock(), log)
			fmt.Fprintln(cmd.OutOrStdout(), devices.GetOrCreate(cmd.Context()))
			return nil
		},
	}
}
