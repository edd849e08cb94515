package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// DefaultContractAddress is the deployed WavePortal contract
const DefaultContractAddress = "0x9b764018b5e6e46971e979998355161E2B94415f"

// Wallet kinds accepted by WAVE_WALLET
const (
	WalletRPC      = "rpc"
	WalletKeystore = "keystore"
)

// ErrInvalid is the first error of the chain returned by Validate
var ErrInvalid = errors.New("invalid configuration")

// Env is the process configuration read from environment variables.
type Env struct {
	RPCURL          string `envconfig:"ETH_RPC_URL" validate:"omitempty,url"`
	ContractAddress string `envconfig:"WAVE_CONTRACT_ADDRESS" default:"0x9b764018b5e6e46971e979998355161E2B94415f" validate:"required,eth_addr"`
	Wallet          string `envconfig:"WAVE_WALLET" validate:"omitempty,oneof=rpc keystore"`
	KeystoreDir     string `envconfig:"WAVE_KEYSTORE_DIR" validate:"required_if=Wallet keystore"`
	Passphrase      string `envconfig:"WAVE_KEYSTORE_PASSPHRASE"`
	GasLimit        uint64 `envconfig:"WAVE_GAS_LIMIT" default:"300000" validate:"gte=21000"`
	ExplorerURL     string `envconfig:"WAVE_EXPLORER_URL" default:"https://rinkeby.etherscan.io" validate:"omitempty,url"`
	Logger          bool   `envconfig:"WAVE_LOG"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadEnv processes the environment into an Env. It does not validate, so
// flags can still override values before Validate is called.
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Env{}, fmt.Errorf("read environment: %w", err)
	}
	return env, nil
}

// WalletKind resolves which wallet provider to use. Without an explicit
// choice a keystore directory selects the keystore wallet.
func (e Env) WalletKind() string {
	if e.Wallet != "" {
		return e.Wallet
	}
	if e.KeystoreDir != "" {
		return WalletKeystore
	}
	return WalletRPC
}

// Validate checks the tagged constraints and joins one error per failing field.
func (e Env) Validate() error {
	err := validate.Struct(e)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := []error{ErrInvalid}
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("'%s': value '%v' fails '%s'", fe.Field(), fe.Value(), fe.Tag()))
	}
	return errors.Join(errs...)
}
