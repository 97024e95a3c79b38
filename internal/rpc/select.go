// Package rpc picks the endpoint the dashboard talks to when a network has
// several candidate RPC URLs.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3dash/internal/chain"
)

// ErrNoHealthyRPC is returned when no candidate endpoint is usable.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// ErrWrongChain marks an endpoint serving a different chain than expected.
var ErrWrongChain = errors.New("endpoint serves a different chain")

// Discard nodes more than this many blocks behind the best.
const staleBlockThreshold = 3

// Endpoint is one probed RPC URL.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     int64
	Err         error
}

// Healthy reports whether the probe succeeded.
func (e Endpoint) Healthy() bool { return e.Err == nil }

// Probe pings every url in parallel. An endpoint whose chain ID differs from
// wantChainID (when non-zero) is marked with ErrWrongChain.
func Probe(ctx context.Context, urls []string, wantChainID int64) []Endpoint {
	out := make([]Endpoint, len(urls))
	var g errgroup.Group
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			c := chain.NewEVMClient(u)
			ep := Endpoint{URL: u}
			ep.Latency, ep.BlockNumber, ep.Err = c.Ping(ctx)
			if ep.Err == nil {
				ep.ChainID, ep.Err = c.ChainID(ctx)
			}
			if ep.Err == nil && wantChainID != 0 && ep.ChainID != wantChainID {
				ep.Err = fmt.Errorf("%w: got %d, want %d", ErrWrongChain, ep.ChainID, wantChainID)
			}
			out[i] = ep
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Best returns the fastest healthy endpoint that is not stale. Ties keep
// the order of endpoints, so earlier candidates win.
func Best(endpoints []Endpoint) (Endpoint, error) {
	var bestBlock uint64
	for _, e := range endpoints {
		if e.Healthy() && e.BlockNumber > bestBlock {
			bestBlock = e.BlockNumber
		}
	}

	candidates := make([]Endpoint, 0, len(endpoints))
	for _, e := range endpoints {
		if !e.Healthy() || bestBlock-e.BlockNumber > staleBlockThreshold {
			continue
		}
		candidates = append(candidates, e)
	}
	if len(candidates) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Latency < candidates[j].Latency
	})
	return candidates[0], nil
}

// Select probes urls and returns the best one. A single candidate is
// returned without probing.
func Select(ctx context.Context, urls []string, wantChainID int64, log *zap.Logger) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	endpoints := Probe(ctx, urls, wantChainID)
	for _, e := range endpoints {
		if e.Err != nil {
			log.Debug("rpc probe failed", zap.String("url", e.URL), zap.Error(e.Err))
		}
	}
	best, err := Best(endpoints)
	if err != nil {
		return "", err
	}
	log.Debug("rpc selected",
		zap.String("url", best.URL),
		zap.Duration("latency", best.Latency),
		zap.Uint64("block", best.BlockNumber))
	return best.URL, nil
}
