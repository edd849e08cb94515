// Package board holds the state the wave portal screen is drawn from.
package board

import (
	"math/big"

	"wave-portal-tui/waveportal"

	"github.com/ethereum/go-ethereum/common"
)

// State is the whole view state. Its zero value is the disconnected screen.
type State struct {
	Account common.Address
	Pending bool
	Total   *big.Int
	Waves   []waveportal.Wave
}

// Connected reports whether an account has been adopted.
func (s *State) Connected() bool {
	return s.Account != (common.Address{})
}

// AdoptAccount sets the current account. The zero address is ignored and
// an adopted account is never cleared.
func (s *State) AdoptAccount(addr common.Address) bool {
	if addr == (common.Address{}) {
		return false
	}
	s.Account = addr
	return true
}

// BeginPending marks a submitted transaction as awaiting confirmation.
func (s *State) BeginPending() {
	s.Pending = true
}

// EndPending clears the pending flag.
func (s *State) EndPending() {
	s.Pending = false
}

// SetTotal mirrors the contract counter.
func (s *State) SetTotal(total *big.Int) {
	if total == nil {
		return
	}
	s.Total = new(big.Int).Set(total)
}

// TotalString renders the counter, "0" before the first read.
func (s *State) TotalString() string {
	if s.Total == nil {
		return "0"
	}
	return s.Total.String()
}

// ReplaceWaves swaps in a fresh bulk read of the history.
func (s *State) ReplaceWaves(waves []waveportal.Wave) {
	s.Waves = append([]waveportal.Wave(nil), waves...)
}

// AppendWave adds one event-delivered wave to the end of the list. Waves are
// not de-duplicated against the bulk read.
func (s *State) AppendWave(w waveportal.Wave) {
	s.Waves = append(s.Waves, w)
}
