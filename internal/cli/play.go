package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"dailyquiz-client/internal/api"
	"dailyquiz-client/internal/channel"
	"dailyquiz-client/internal/config"
	"dailyquiz-client/internal/device"
	filestore "dailyquiz-client/internal/infra/file"
	redisstore "dailyquiz-client/internal/infra/redis"
	"dailyquiz-client/internal/logger"
	"dailyquiz-client/internal/session"
)

// NewPlayCmd builds the subcommand that runs one full quiz session.
func NewPlayCmd(configPath, token, userID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Join today's quiz and play it live",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath, *token, *userID)
		},
	}
}

func runPlay(ctx context.Context, configPath, tokenFlag, userFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	token := tokenFlag
	if token == "" {
		token = cfg.Auth.Token
	}
	user := userFlag
	if user == "" {
		user = cfg.Auth.UserID
	}

	store, err := buildStateStore(cfg)
	if err != nil {
		return err
	}
	clock := clockwork.NewRealClock()
	devices := device.NewStore(store, clock, log)
	apiClient := api.NewClient(cfg.Server.BaseURL, token, log)

	listener := &consoleListener{out: os.Stdout}

	var coord *session.Coordinator
	dial := session.Dialer(func(ctx context.Context) (session.Channel, error) {
		ch, err := channel.Dial(ctx, cfg.Server.SocketURL, token, log)
		if err != nil {
			return nil, err
		}
		ch.Listen(coord.DeliverChannelEvent, coord.TransportClosed)
		return ch, nil
	})

	coord = session.New(session.Options{
		UserID:   user,
		API:      apiClient,
		Dial:     dial,
		Devices:  devices,
		Cache:    store,
		Listener: listener,
		Clock:    clock,
		Log:      log,
		Timing: session.Timing{
			Debounce:     config.Duration(cfg.Timing.Debounce, session.DefaultDebounce),
			RetryDelay:   config.Duration(cfg.Timing.RetryDelay, session.DefaultRetryDelay),
			RedirectStep: config.Duration(cfg.Timing.RedirectStep, 0),
		},
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Answer input: one option number per line.
	go readSelections(os.Stdin, coord)

	log.Info().Str("server", cfg.Server.BaseURL).Msg("starting quiz session")
	if err := coord.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// buildStateStore picks the redis backend when configured, otherwise a
// state file next to the user's config.
func buildStateStore(cfg config.Config) (device.StateStore, error) {
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ttl := config.Duration(cfg.Redis.TTL, 0)
		return redisstore.NewStateStore(client, ttl), nil
	}

	path := cfg.State.Path
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve state path: %w", err)
		}
		path = filepath.Join(dir, "dailyquiz", "state.json")
	}
	return filestore.NewStateStore(path), nil
}

func readSelections(in *os.File, coord *session.Coordinator) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 {
			fmt.Println("type the option number and press enter")
			continue
		}
		coord.SelectOption(n - 1)
	}
}
