package main

import (
	"context"
	"io"
	"strings"
	"sync"

	"wave-portal-tui/board"
	"wave-portal-tui/config"
	"wave-portal-tui/rpc"
	"wave-portal-tui/styles"
	"wave-portal-tui/wallet"
	"wave-portal-tui/waveportal"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- MODEL --------------------

// model represents the application state following The Elm Architecture
type model struct {
	w, h int

	ctx    context.Context
	cancel context.CancelFunc

	activePage config.Page
	env        config.Env

	// view state
	state      board.State
	connecting bool // connect prompt outstanding
	submitting bool // waiting for the wallet to return a hash
	composing  bool // message input focused
	input      textinput.Model
	spin       spinner.Model

	// chain access
	rpcURL        string
	ethClient     *rpc.Client
	rpcConnected  bool
	rpcConnecting bool
	provider      wallet.Provider
	keystore      *wallet.KeystoreProvider
	portal        *waveportal.Client

	// live waves
	sub        *waveportal.Subscription
	wavesCtx   context.Context
	stopWavesF context.CancelFunc
	waveCh     chan waveportal.Wave

	// keystore unlock prompt
	promptCh    chan passphraseRequest
	unlockForm  *huh.Form
	unlockReply chan passphraseReply

	// last submitted wave
	lastTx    common.Hash
	showQR    bool
	copiedMsg string

	// settings state
	rpcURLs        []config.RPCUrl
	selectedRPCIdx int
	settingsAdding bool
	form           *huh.Form
	configPath     string

	// logger panel
	logEnabled  bool
	logger      *log.Logger
	logBuffer   *logBuffer
	logViewport viewport.Model
	logReady    bool
	logLen      int
	logSpinner  spinner.Model
}

// logBuffer is the log panel's backing store. The subscription goroutines
// log into it too.
type logBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

// -------------------- INIT --------------------

// newModel creates and initializes a new model from the environment and the settings file
func newModel(env config.Env, configPath string) model {
	cfg := config.Load(configPath).WithEnvRPC(env.RPCURL)

	in := textinput.New()
	in.Placeholder = "Write your message here..."
	in.Prompt = "Message: "
	in.PromptStyle = lipgloss.NewStyle().Foreground(styles.CAccent)
	in.TextStyle = lipgloss.NewStyle().Foreground(styles.CText)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)
	in.CharLimit = waveportal.MaxMessageLength
	in.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	vp := viewport.New(0, 20) // resized on the first WindowSizeMsg
	vp.Style = lipgloss.NewStyle().
		Foreground(styles.CText).
		Background(styles.CPanel)

	logSpin := spinner.New()
	logSpin.Spinner = spinner.Dot
	logSpin.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	ctx, cancel := context.WithCancel(context.Background())
	buf := &logBuffer{}

	m := model{
		ctx:         ctx,
		cancel:      cancel,
		activePage:  config.PagePortal,
		env:         env,
		input:       in,
		spin:        sp,
		rpcURL:      cfg.ActiveRPC(env.RPCURL),
		rpcURLs:     cfg.RPCURLs,
		configPath:  configPath,
		logEnabled:  cfg.Logger || env.Logger,
		logBuffer:   buf,
		logger:      newPanelLogger(buf),
		logViewport: vp,
		logSpinner:  logSpin,
		promptCh:    make(chan passphraseRequest),
	}

	if env.WalletKind() == config.WalletKeystore {
		m.keystore = wallet.NewKeystoreProvider(env.KeystoreDir, nil, wallet.WithPrompt(passphrasePrompter(m.promptCh)))
		m.provider = m.keystore
	}

	return m
}

// newPanelLogger creates the logger shown in the log panel
func newPanelLogger(w io.Writer) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           log.DebugLevel,
	})
	logger.SetStyles(&log.Styles{
		Timestamp: lipgloss.NewStyle().Foreground(styles.CMuted),
		Caller:    lipgloss.NewStyle().Faint(true),
		Prefix:    lipgloss.NewStyle().Bold(true).Foreground(styles.CAccent2),
		Message:   lipgloss.NewStyle().Foreground(styles.CText),
		Key:       lipgloss.NewStyle().Foreground(styles.CAccent),
		Value:     lipgloss.NewStyle().Foreground(styles.CText),
		Separator: lipgloss.NewStyle().Faint(true),
		Levels: map[log.Level]lipgloss.Style{
			log.DebugLevel: lipgloss.NewStyle().Foreground(styles.CMuted).SetString("DEBUG"),
			log.InfoLevel:  lipgloss.NewStyle().Foreground(styles.CAccent2).SetString("INFO"),
			log.WarnLevel:  lipgloss.NewStyle().Foreground(styles.CWarn).SetString("WARN"),
			log.ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).SetString("ERROR"),
		},
	})
	return logger
}

// Init implements tea.Model interface and returns initial commands
func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, textinput.Blink}
	if m.logEnabled {
		cmds = append(cmds, initLogViewport(), m.logSpinner.Tick)
	}
	if m.keystore != nil {
		cmds = append(cmds, waitForPassphraseRequest(m.ctx, m.promptCh))
		if m.env.Passphrase != "" {
			cmds = append(cmds, unlockKeystore(m.keystore, m.env.Passphrase))
		}
	}
	if m.rpcURL != "" {
		m.rpcConnecting = true
		cmds = append(cmds, connectRPC(m.rpcURL))
	}
	return tea.Batch(cmds...)
}

// bind rebuilds the wallet provider and contract client on a fresh RPC connection
func (m *model) bind(client *rpc.Client) {
	m.ethClient = client
	if m.keystore != nil {
		m.keystore.SetBackend(client)
	} else {
		m.provider = wallet.NewRPCProvider(client.Client.Client())
	}
	m.portal = waveportal.New(
		common.HexToAddress(m.env.ContractAddress),
		client,
		m.provider,
		waveportal.WithGasLimit(m.env.GasLimit),
		waveportal.WithLogger(m.logger),
	)
}

// startWaves subscribes to NewWave and starts draining the forwarding channel
func (m *model) startWaves() tea.Cmd {
	if m.portal == nil {
		return nil
	}
	m.wavesCtx, m.stopWavesF = context.WithCancel(m.ctx)
	m.waveCh = make(chan waveportal.Wave, 16)
	return tea.Batch(
		subscribeWaves(m.wavesCtx, m.portal, m.waveCh),
		waitForWave(m.wavesCtx, m.waveCh),
	)
}

// stopWaves releases the subscription. The forwarding context is canceled
// first so a callback blocked on the channel returns.
func (m *model) stopWaves() {
	if m.stopWavesF != nil {
		m.stopWavesF()
		m.stopWavesF = nil
	}
	if m.sub != nil {
		m.sub.Unsubscribe()
		m.sub = nil
	}
}

// teardown releases everything bound to the current connection
func (m *model) teardown() {
	m.stopWaves()
	if m.ethClient != nil {
		m.ethClient.Close()
		m.ethClient = nil
	}
	m.portal = nil
	m.rpcConnected = false
}
