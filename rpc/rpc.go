package rpc

import (
	"context"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps an Ethereum RPC client
type Client struct {
	*ethclient.Client
	URL string
}

// ConnectResult holds the result of an RPC connection attempt
type ConnectResult struct {
	Client *Client
	Error  error
}

// Dial attempts used by Connect. Only dialing is retried; calls made through
// the returned client are not.
const (
	dialAttempts = 3
	dialDelay    = 500 * time.Millisecond
	dialMaxDelay = 3 * time.Second
)

// Connect attempts to connect to an Ethereum RPC endpoint
func Connect(url string) ConnectResult {
	return ConnectWithTimeout(url, 8*time.Second)
}

// ConnectWithTimeout attempts to connect with a custom timeout covering all dial attempts
func ConnectWithTimeout(url string, timeout time.Duration) ConnectResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var client *ethclient.Client
	err := retry.Do(
		func() error {
			c, err := ethclient.DialContext(ctx, url)
			if err != nil {
				return err
			}
			// Dial is lazy for HTTP; make one round trip so a dead endpoint fails here.
			if _, err := c.ChainID(ctx); err != nil {
				c.Close()
				return err
			}
			client = c
			return nil
		},
		retry.Attempts(dialAttempts),
		retry.Delay(dialDelay),
		retry.MaxDelay(dialMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return ConnectResult{Client: nil, Error: err}
	}

	return ConnectResult{
		Client: &Client{
			Client: client,
			URL:    url,
		},
		Error: nil,
	}
}

// SupportsSubscriptions reports whether the transport can push notifications
// (eth_subscribe). HTTP endpoints cannot.
func (c *Client) SupportsSubscriptions() bool {
	if c == nil {
		return false
	}
	u := strings.ToLower(c.URL)
	return strings.HasPrefix(u, "ws://") || strings.HasPrefix(u, "wss://") || strings.HasSuffix(u, ".ipc")
}
