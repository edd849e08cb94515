package waveportal

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Subscription delivers NewWave events to a callback until Unsubscribe.
type Subscription struct {
	onNewWave func(Wave)

	mu     sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	errc   chan error
	once   sync.Once
}

// Err reports a terminal failure of the underlying stream. It is never
// closed; a failed subscription delivers at most one error.
func (s *Subscription) Err() <-chan error {
	return s.errc
}

// Unsubscribe stops delivery. Once it returns the callback is not invoked
// again. It must not be called from inside the callback.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cancel()
	})
}

// Done is closed when the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) deliver(w Wave) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.onNewWave(w)
}

func (s *Subscription) fail(err error) {
	select {
	case s.errc <- err:
	default:
	}
}

// Subscribe registers onNewWave for every future NewWave event of the
// contract. Push notifications are used when the transport supports them;
// otherwise new blocks are polled with eth_getLogs.
func (c *Client) Subscribe(ctx context.Context, onNewWave func(Wave)) (*Subscription, error) {
	if onNewWave == nil {
		return nil, errors.New("nil NewWave callback")
	}

	subCtx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		onNewWave: onNewWave,
		ctx:       subCtx,
		cancel:    cancel,
		done:      make(chan struct{}),
		errc:      make(chan error, 1),
	}

	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{ABI.Events[eventNewWave].ID}},
	}

	logs := make(chan types.Log)
	stream, err := c.backend.SubscribeFilterLogs(ctx, query, logs)
	if err == nil {
		c.logger.Debug("Subscribed to NewWave", "mode", "push", "contract", c.address.Hex())
		go c.runPush(sub, stream, logs)
		return sub, nil
	}
	if !errors.Is(err, gethrpc.ErrNotificationsUnsupported) {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", eventNewWave, err)
	}

	head, err := c.backend.BlockNumber(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: block number: %w", eventNewWave, err)
	}
	c.logger.Debug("Subscribed to NewWave", "mode", "poll", "from", head+1, "contract", c.address.Hex())
	go c.runPoll(sub, query, head+1)
	return sub, nil
}

func (c *Client) runPush(sub *Subscription, stream ethereum.Subscription, logs <-chan types.Log) {
	defer close(sub.done)
	defer stream.Unsubscribe()

	for {
		select {
		case <-sub.ctx.Done():
			return
		case err := <-stream.Err():
			if err != nil {
				c.logger.Error("NewWave subscription dropped", "err", err)
				sub.fail(err)
			}
			return
		case l := <-logs:
			c.handleLog(sub, l)
		}
	}
}

func (c *Client) runPoll(sub *Subscription, query ethereum.FilterQuery, next uint64) {
	defer close(sub.done)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sub.ctx.Done():
			return
		case <-ticker.C:
		}

		head, err := c.backend.BlockNumber(sub.ctx)
		if err != nil {
			c.stopPoll(sub, fmt.Errorf("poll %s: block number: %w", eventNewWave, err))
			return
		}
		if head < next {
			continue
		}

		q := query
		q.FromBlock = new(big.Int).SetUint64(next)
		q.ToBlock = new(big.Int).SetUint64(head)
		logs, err := c.backend.FilterLogs(sub.ctx, q)
		if err != nil {
			c.stopPoll(sub, fmt.Errorf("poll %s logs %d-%d: %w", eventNewWave, next, head, err))
			return
		}
		for _, l := range logs {
			c.handleLog(sub, l)
		}
		next = head + 1
	}
}

// stopPoll ends a polling subscription. A failure caused by Unsubscribe is
// not reported.
func (c *Client) stopPoll(sub *Subscription, err error) {
	if sub.ctx.Err() != nil {
		return
	}
	c.logger.Error("NewWave polling stopped", "err", err)
	sub.fail(err)
}

func (c *Client) handleLog(sub *Subscription, l types.Log) {
	if l.Removed {
		c.logger.Debug("Ignoring removed NewWave log", "tx", l.TxHash.Hex())
		return
	}
	w, err := decodeNewWave(l)
	if err != nil {
		c.logger.Warn("Undecodable NewWave log", "err", err)
		return
	}
	sub.deliver(w)
}
