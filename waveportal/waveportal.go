// Package waveportal is the client for the WavePortal contract: it submits
// waves, reads the counter and history, and follows NewWave events.
package waveportal

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"wave-portal-tui/wallet"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/go-playground/validator/v10"
)

//go:embed WavePortal.abi.json
var abiJSON string

// ABI is the parsed WavePortal interface.
var ABI = mustParseABI(abiJSON)

const (
	// MaxMessageLength is the longest message accepted, in characters.
	MaxMessageLength = 140
	// DefaultGasLimit is the fixed gas ceiling of a wave transaction.
	DefaultGasLimit = 300000

	defaultPollInterval = 2 * time.Second

	methodWave     = "wave"
	methodTotal    = "getTotalWaves"
	methodAllWaves = "getAllWaves"
	eventNewWave   = "NewWave"
)

var (
	ErrMessageTooLong = fmt.Errorf("message longer than %d characters", MaxMessageLength)
	ErrNoContract     = errors.New("no contract code at address")
	ErrReverted       = errors.New("transaction reverted")
)

// Wave is one logged interaction.
type Wave struct {
	Address   common.Address
	Timestamp time.Time
	Message   string
}

// waveRecord mirrors the contract's Wave struct as returned by getAllWaves.
type waveRecord struct {
	Waver     common.Address
	Message   string
	Timestamp *big.Int
}

// Backend is the chain access the client needs. ethclient.Client satisfies it.
type Backend interface {
	ethereum.ContractCaller
	ethereum.LogFilterer
	ethereum.BlockNumberReader
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Client binds the contract address and ABI to a backend and a signer.
type Client struct {
	address      common.Address
	backend      Backend
	signer       wallet.Provider
	gasLimit     uint64
	pollInterval time.Duration
	logger       *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithGasLimit overrides DefaultGasLimit.
func WithGasLimit(gas uint64) Option {
	return func(c *Client) {
		if gas > 0 {
			c.gasLimit = gas
		}
	}
}

// WithPollInterval sets how often logs are polled when the transport has no push support.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithLogger sets the logger for background subscription diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the contract at address.
func New(address common.Address, backend Backend, signer wallet.Provider, opts ...Option) *Client {
	c := &Client{
		address:      address,
		backend:      backend,
		signer:       signer,
		gasLimit:     DefaultGasLimit,
		pollInterval: defaultPollInterval,
		logger:       log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the bound contract address.
func (c *Client) Address() common.Address {
	return c.address
}

var validate = validator.New()

type waveInput struct {
	Message string `validate:"max=140"`
}

// ValidateMessage rejects messages the compose form must not submit.
func ValidateMessage(message string) error {
	if err := validate.Struct(waveInput{Message: message}); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return ErrMessageTooLong
		}
		return err
	}
	return nil
}

// SubmitWave sends wave(message) from the given account. The returned
// transaction is only submitted; callers Wait for it to be mined.
func (c *Client) SubmitWave(ctx context.Context, from common.Address, message string) (*Transaction, error) {
	if err := ValidateMessage(message); err != nil {
		return nil, err
	}
	if c.signer == nil {
		return nil, wallet.ErrNoWallet
	}

	data, err := ABI.Pack(methodWave, message)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", methodWave, err)
	}

	hash, err := c.signer.SendTransaction(ctx, wallet.TxRequest{
		From: from,
		To:   c.address,
		Data: data,
		Gas:  c.gasLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("submit wave: %w", err)
	}

	return &Transaction{Hash: hash, client: c}, nil
}

// TotalWaves reads the contract's wave counter.
func (c *Client) TotalWaves(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, methodTotal)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// AllWaves reads the full ordered wave history.
func (c *Client) AllWaves(ctx context.Context) ([]Wave, error) {
	out, err := c.call(ctx, methodAllWaves)
	if err != nil {
		return nil, err
	}
	records := *abi.ConvertType(out[0], new([]waveRecord)).(*[]waveRecord)

	waves := make([]Wave, 0, len(records))
	for _, r := range records {
		waves = append(waves, Wave{
			Address:   r.Waver,
			Timestamp: unixTime(r.Timestamp),
			Message:   r.Message,
		})
	}
	return waves, nil
}

func (c *Client) call(ctx context.Context, method string) ([]interface{}, error) {
	data, err := ABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s: %w", method, ErrNoContract)
	}

	res, err := ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return res, nil
}

// decodeNewWave turns a NewWave log into a Wave.
func decodeNewWave(l types.Log) (Wave, error) {
	event := ABI.Events[eventNewWave]
	if len(l.Topics) < 2 || l.Topics[0] != event.ID {
		return Wave{}, fmt.Errorf("log %s is not a %s event", l.TxHash.Hex(), eventNewWave)
	}

	var fields struct {
		Timestamp *big.Int
		Message   string
	}
	if err := ABI.UnpackIntoInterface(&fields, eventNewWave, l.Data); err != nil {
		return Wave{}, fmt.Errorf("unpack %s: %w", eventNewWave, err)
	}

	return Wave{
		Address:   common.BytesToAddress(l.Topics[1].Bytes()),
		Timestamp: unixTime(fields.Timestamp),
		Message:   fields.Message,
	}, nil
}

func unixTime(ts *big.Int) time.Time {
	if ts == nil || !ts.IsInt64() {
		return time.Time{}
	}
	return time.Unix(ts.Int64(), 0)
}

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("waveportal: bad embedded ABI: %v", err))
	}
	return parsed
}
