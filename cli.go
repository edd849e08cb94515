package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	"wave-portal-tui/rpc"
	"wave-portal-tui/wallet"
	"wave-portal-tui/waveportal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v3"
)

// ErrNoRPC is returned by headless commands when no endpoint is configured.
var ErrNoRPC = errors.New("no RPC endpoint: set ETH_RPC_URL or --rpc")

// ErrWatchEnded is returned by watch when the node closes the event stream.
var ErrWatchEnded = errors.New("node closed the NewWave stream")

// newApp builds the command tree. Without a subcommand the TUI runs.
func newApp() *cli.Command {
	return &cli.Command{
		EnableShellCompletion: true,
		Name:                  "waveportal",
		Usage:                 "wave at the WavePortal contract from the terminal",
		Description:           "Connect a wallet, send a message with your wave and watch everyone else's arrive.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "rpc", Usage: "Ethereum RPC endpoint (overrides ETH_RPC_URL)"},
			&cli.StringFlag{Name: "contract", Usage: "WavePortal address (overrides WAVE_CONTRACT_ADDRESS)"},
			&cli.StringFlag{Name: "wallet", Usage: "wallet kind: rpc or keystore (overrides WAVE_WALLET)"},
			&cli.StringFlag{Name: "keystore", Usage: "keystore directory (overrides WAVE_KEYSTORE_DIR)"},
			&cli.Uint64Flag{Name: "gas-limit", Usage: "gas ceiling of a wave (overrides WAVE_GAS_LIMIT)"},
			&cli.StringFlag{Name: "explorer", Usage: "block explorer base URL (overrides WAVE_EXPLORER_URL)"},
			&cli.BoolFlag{Name: "debug", Usage: "debug logging (overrides WAVE_LOG)"},
		},
		Action: runTUI,
		Commands: []*cli.Command{
			waveCommand(),
			totalCommand(),
			listCommand(),
			watchCommand(),
		},
	}
}

// loadEnv reads the environment and applies flag overrides before validating.
func loadEnv(c *cli.Command) (config.Env, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return config.Env{}, err
	}
	env = applyFlags(env, c)
	if err := env.Validate(); err != nil {
		return config.Env{}, err
	}
	return env, nil
}

func applyFlags(env config.Env, c *cli.Command) config.Env {
	if c.IsSet("rpc") {
		env.RPCURL = c.String("rpc")
	}
	if c.IsSet("contract") {
		env.ContractAddress = c.String("contract")
	}
	if c.IsSet("wallet") {
		env.Wallet = c.String("wallet")
	}
	if c.IsSet("keystore") {
		env.KeystoreDir = c.String("keystore")
	}
	if c.IsSet("gas-limit") {
		env.GasLimit = c.Uint64("gas-limit")
	}
	if c.IsSet("explorer") {
		env.ExplorerURL = c.String("explorer")
	}
	if c.IsSet("debug") {
		env.Logger = c.Bool("debug")
	}
	return env
}

func runTUI(ctx context.Context, c *cli.Command) error {
	env, err := loadEnv(c)
	if err != nil {
		return err
	}

	m := newModel(env, config.DefaultPath())
	defer func() {
		m.teardown()
		m.cancel()
	}()

	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// -------------------- HEADLESS --------------------

// session is one headless connection: node, wallet and contract client.
type session struct {
	env    config.Env
	client *rpc.Client
	wallet wallet.Provider
	portal *waveportal.Client
	logger *log.Logger
	out    io.Writer
}

func openSession(ctx context.Context, c *cli.Command) (*session, error) {
	env, err := loadEnv(c)
	if err != nil {
		return nil, err
	}
	if env.RPCURL == "" {
		return nil, ErrNoRPC
	}

	logger := newHeadlessLogger(env.Logger)

	result := rpc.Connect(env.RPCURL)
	if result.Error != nil {
		return nil, fmt.Errorf("connect %s: %w", env.RPCURL, result.Error)
	}
	logger.Debug("RPC connected", "url", env.RPCURL, "push", result.Client.SupportsSubscriptions())

	var provider wallet.Provider
	if env.WalletKind() == config.WalletKeystore {
		ks := wallet.NewKeystoreProvider(env.KeystoreDir, result.Client, wallet.WithPrompt(promptPassphrase))
		if env.Passphrase != "" {
			addr, err := ks.UnlockFirst(env.Passphrase)
			if err != nil {
				result.Client.Close()
				return nil, err
			}
			logger.Debug("Unlocked keystore account", "account", addr.Hex())
		}
		provider = ks
	} else {
		provider = wallet.NewRPCProvider(result.Client.Client.Client())
	}

	return &session{
		env:    env,
		client: result.Client,
		wallet: provider,
		portal: waveportal.New(
			common.HexToAddress(env.ContractAddress),
			result.Client,
			provider,
			waveportal.WithGasLimit(env.GasLimit),
			waveportal.WithLogger(logger),
		),
		logger: logger,
		out:    outWriter(c),
	}, nil
}

func outWriter(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func (s *session) Close() {
	s.client.Close()
}

func newHeadlessLogger(debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// promptPassphrase asks for the keystore passphrase on the terminal
func promptPassphrase(ctx context.Context, account accounts.Account) (string, error) {
	var passphrase string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Unlock " + helpers.ShortenAddr(account.Address.Hex())).
				EchoMode(huh.EchoModePassword).
				Value(&passphrase),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", wallet.ErrUserRejected
		}
		return "", err
	}
	return passphrase, nil
}

// promptMessage asks for the wave message on the terminal
func promptMessage(ctx context.Context) (string, error) {
	var message string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Message").
				Description("Say something with your wave").
				CharLimit(waveportal.MaxMessageLength).
				Validate(waveportal.ValidateMessage).
				Value(&message),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}
	return message, nil
}

// account returns the authorized account, prompting the wallet if needed
func (s *session) account(ctx context.Context) (common.Address, error) {
	addr, found, err := wallet.CheckExistingConnection(ctx, s.wallet)
	if err != nil {
		return common.Address{}, err
	}
	if found {
		s.logger.Debug("Found an authorized account", "account", addr.Hex())
		return addr, nil
	}
	return wallet.Connect(ctx, s.wallet)
}

func waveCommand() *cli.Command {
	return &cli.Command{
		Name:        "wave",
		Usage:       "Sends a wave, waits for it to be mined and prints the new total.",
		Description: "Submit wave(message) from the connected wallet. Without an argument the message is prompted for.",
		ArgsUsage:   "[message]",
		Action: func(ctx context.Context, c *cli.Command) error {
			message := strings.Join(c.Args().Slice(), " ")
			if c.Args().Len() == 0 {
				var err error
				if message, err = promptMessage(ctx); err != nil {
					return err
				}
			}
			if err := waveportal.ValidateMessage(message); err != nil {
				return err
			}

			s, err := openSession(ctx, c)
			if err != nil {
				return err
			}
			defer s.Close()

			return s.wave(ctx, message)
		},
	}
}

func (s *session) wave(ctx context.Context, message string) error {
	from, err := s.account(ctx)
	if err != nil {
		return err
	}

	tx, err := s.portal.SubmitWave(ctx, from, message)
	if err != nil {
		return err
	}
	s.logger.Info("Mining...", "tx", tx.Hash.Hex())
	if link := rpc.ExplorerTxURL(s.env.ExplorerURL, tx.Hash.Hex()); link != "" {
		s.logger.Info("Explorer", "url", link)
	}

	if _, err := tx.Wait(ctx); err != nil {
		return fmt.Errorf("wave %s: %w", tx.Hash.Hex(), err)
	}
	s.logger.Info("Mined", "tx", tx.Hash.Hex())

	total, err := s.portal.TotalWaves(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Total waves %s\n", total)
	return nil
}

func totalCommand() *cli.Command {
	return &cli.Command{
		Name:        "total",
		Usage:       "Prints the total number of waves.",
		Description: "Read getTotalWaves() from the contract.",
		Action: func(ctx context.Context, c *cli.Command) error {
			s, err := openSession(ctx, c)
			if err != nil {
				return err
			}
			defer s.Close()

			total, err := s.portal.TotalWaves(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Total waves %s\n", total)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "Prints every wave, oldest first.",
		Description: "Read getAllWaves() from the contract.",
		Action: func(ctx context.Context, c *cli.Command) error {
			s, err := openSession(ctx, c)
			if err != nil {
				return err
			}
			defer s.Close()

			waves, err := s.portal.AllWaves(ctx)
			if err != nil {
				return err
			}
			for _, w := range waves {
				fmt.Fprintln(s.out, formatWaveLine(w))
			}
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:        "watch",
		Usage:       "Prints new waves as they are mined until interrupted.",
		Description: "Follow NewWave events of the contract. Terminates gracefully on Ctrl+C.",
		Action: func(ctx context.Context, c *cli.Command) error {
			s, err := openSession(ctx, c)
			if err != nil {
				return err
			}
			defer s.Close()

			return s.watch(ctx)
		},
	}
}

func (s *session) watch(ctx context.Context) error {
	sub, err := s.portal.Subscribe(ctx, func(w waveportal.Wave) {
		fmt.Fprintln(s.out, formatWaveLine(w))
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()
	s.logger.Info("Watching for new waves", "contract", s.portal.Address().Hex())

	select {
	case <-ctx.Done():
		return nil
	case <-sub.Done():
	}

	select {
	case err := <-sub.Err():
		return err
	default:
		return ErrWatchEnded
	}
}

// formatWaveLine renders a wave as one tab separated line
func formatWaveLine(w waveportal.Wave) string {
	return strings.Join([]string{
		w.Address.Hex(),
		helpers.FormatWaveTime(w.Timestamp),
		w.Message,
	}, "\t")
}
