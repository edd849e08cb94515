package rpc

import (
	"strings"

	"github.com/mdp/qrterminal/v3"
)

// GenerateQRCode renders data as a half-block QR code for the terminal
func GenerateQRCode(data string) string {
	if data == "" {
		return ""
	}
	var sb strings.Builder
	qrterminal.GenerateWithConfig(data, qrterminal.Config{
		Level:          qrterminal.L,
		Writer:         &sb,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		QuietZone:      1,
	})
	return sb.String()
}

// ExplorerTxURL joins a block explorer base URL and a transaction hash
func ExplorerTxURL(explorer, hash string) string {
	if explorer == "" || hash == "" {
		return ""
	}
	return strings.TrimRight(explorer, "/") + "/tx/" + hash
}
