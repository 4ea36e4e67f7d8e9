package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cryptid-vote-backend/cache"
	"cryptid-vote-backend/config"
	"cryptid-vote-backend/repository"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const programName = "cryptid"

// app carries the resolved settings shared by every subcommand
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configFile string
	apiURL     string
	keypair    string
	debug      bool

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Browse the cryptid catalog and vote with a local wallet",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "path to yaml config file")
	flags.StringVar(&a.apiURL, "api", "", "backend base url (overrides CRYPTID_API_URL)")
	flags.StringVar(&a.keypair, "keypair", "", "wallet keypair file (overrides WALLET_KEYPAIR)")
	flags.BoolVarP(&a.debug, "debug", "D", false, "enable debug logging")

	rootCmd.AddCommand(
		catalogCommand(a),
		votingCommand(a),
		voteCommand(a),
		reportSightingCommand(a),
		keygenCommand(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("api") {
		cfg.APIURL = a.apiURL
	}
	if cmd.Flags().Changed("keypair") {
		cfg.WalletKeypair = a.keypair
	}
	a.cfg = cfg

	level := cfg.SlogLevel()
	if a.debug {
		level = slog.LevelDebug
	}
	// the cli only speaks up on warnings unless asked
	if level < slog.LevelWarn && !a.debug {
		level = slog.LevelWarn
	}
	a.log = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *app) gateway() repository.Gateway {
	return repository.NewHTTPGateway(a.cfg.APIURL, nil)
}

// redisLatch returns a cross-process latch when redis is configured and
// reachable. The caller closes the client.
func (a *app) redisLatch(ctx context.Context) (*cache.RedisLatch, *redis.Client) {
	if a.cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb, err := cache.Connect(ctx, a.cfg, a.log)
	if err != nil {
		a.log.Warn("redis unavailable, using in-process vote latch", "error", err)
		return nil, nil
	}
	return cache.NewRedisLatch(cache.NewLockService(rdb), voteLatchExpiry), rdb
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
