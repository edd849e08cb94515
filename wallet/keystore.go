package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrNotAuthorized is returned when signing for an account that was never unlocked.
var ErrNotAuthorized = errors.New("account not authorized")

// PassphrasePrompt asks the user for the passphrase of account. Returning
// ErrUserRejected (or an empty passphrase) declines the connection.
type PassphrasePrompt func(ctx context.Context, account accounts.Account) (string, error)

// TxBackend fills in and broadcasts locally signed transactions.
// ethclient.Client satisfies it.
type TxBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// KeystoreProvider is a wallet backed by a go-ethereum keystore directory.
// An account counts as authorized once it has been unlocked.
type KeystoreProvider struct {
	ks      *keystore.KeyStore
	backend TxBackend
	prompt  PassphrasePrompt

	mu         sync.Mutex
	authorized []common.Address
}

// KeystoreOption configures a KeystoreProvider.
type KeystoreOption func(*keystoreConfig)

type keystoreConfig struct {
	scryptN, scryptP int
	prompt           PassphrasePrompt
}

// WithPrompt sets the passphrase prompt used by RequestAccounts.
func WithPrompt(p PassphrasePrompt) KeystoreOption {
	return func(c *keystoreConfig) { c.prompt = p }
}

// WithScrypt overrides the key derivation cost (tests use the light parameters).
func WithScrypt(n, p int) KeystoreOption {
	return func(c *keystoreConfig) {
		c.scryptN = n
		c.scryptP = p
	}
}

// NewKeystoreProvider opens the keystore in dir.
func NewKeystoreProvider(dir string, backend TxBackend, opts ...KeystoreOption) *KeystoreProvider {
	cfg := keystoreConfig{scryptN: keystore.StandardScryptN, scryptP: keystore.StandardScryptP}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &KeystoreProvider{
		ks:      keystore.NewKeyStore(dir, cfg.scryptN, cfg.scryptP),
		backend: backend,
		prompt:  cfg.prompt,
	}
}

// KeyStore exposes the underlying keystore.
func (k *KeystoreProvider) KeyStore() *keystore.KeyStore {
	return k.ks
}

// SetBackend rebinds the provider to another node. Unlocked accounts stay
// authorized.
func (k *KeystoreProvider) SetBackend(b TxBackend) {
	k.mu.Lock()
	k.backend = b
	k.mu.Unlock()
}

// Unlock decrypts the key of addr and marks it authorized.
func (k *KeystoreProvider) Unlock(addr common.Address, passphrase string) error {
	if err := k.ks.Unlock(accounts.Account{Address: addr}, passphrase); err != nil {
		return fmt.Errorf("unlock %s: %w", addr.Hex(), err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for _, a := range k.authorized {
		if a == addr {
			return nil
		}
	}
	k.authorized = append(k.authorized, addr)
	return nil
}

// UnlockFirst unlocks the first account of the keystore.
func (k *KeystoreProvider) UnlockFirst(passphrase string) (common.Address, error) {
	accs := k.ks.Accounts()
	if len(accs) == 0 {
		return common.Address{}, ErrNoWallet
	}
	return accs[0].Address, k.Unlock(accs[0].Address, passphrase)
}

func (k *KeystoreProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]common.Address, len(k.authorized))
	copy(out, k.authorized)
	return out, nil
}

func (k *KeystoreProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if authorized, _ := k.Accounts(ctx); len(authorized) > 0 {
		return authorized, nil
	}

	accs := k.ks.Accounts()
	if len(accs) == 0 {
		return nil, ErrNoWallet
	}

	k.mu.Lock()
	prompt := k.prompt
	k.mu.Unlock()
	if prompt == nil {
		return nil, fmt.Errorf("%w: no passphrase prompt", ErrNoWallet)
	}

	passphrase, err := prompt(ctx, accs[0])
	if err != nil {
		return nil, err
	}
	if passphrase == "" {
		return nil, ErrUserRejected
	}
	if err := k.Unlock(accs[0].Address, passphrase); err != nil {
		return nil, err
	}
	return k.Accounts(ctx)
}

func (k *KeystoreProvider) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	if !k.isAuthorized(req.From) {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrNotAuthorized, req.From.Hex())
	}
	k.mu.Lock()
	backend := k.backend
	k.mu.Unlock()
	if backend == nil {
		return common.Hash{}, errors.New("keystore wallet has no backend")
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := backend.PendingNonceAt(ctx, req.From)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas price: %w", err)
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      req.Gas,
		To:       &to,
		Value:    value,
		Data:     req.Data,
	})

	signed, err := k.ks.SignTx(accounts.Account{Address: req.From}, tx, chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err)
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("broadcast: %w", err)
	}
	return signed.Hash(), nil
}

func (k *KeystoreProvider) isAuthorized(addr common.Address) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, a := range k.authorized {
		if a == addr {
			return true
		}
	}
	return false
}
