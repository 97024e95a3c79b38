package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// node answers eth_blockNumber and eth_chainId after delay.
func node(t *testing.T, chainID, block uint64, delay time.Duration) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int    `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		time.Sleep(delay)
		result := fmt.Sprintf("0x%x", block)
		if req.Method == "eth_chainId" {
			result = fmt.Sprintf("0x%x", chainID)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result}) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestBestPicksFastest(t *testing.T) {
	best, err := Best([]Endpoint{
		{URL: "slow", Latency: 200 * time.Millisecond, BlockNumber: 100},
		{URL: "fast", Latency: 30 * time.Millisecond, BlockNumber: 100},
		{URL: "medium", Latency: 80 * time.Millisecond, BlockNumber: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, "fast", best.URL)
}

func TestBestDiscardsStaleAndFailed(t *testing.T) {
	best, err := Best([]Endpoint{
		{URL: "fresh", Latency: 50 * time.Millisecond, BlockNumber: 1000},
		{URL: "stale", Latency: 10 * time.Millisecond, BlockNumber: 990},
		{URL: "down", Err: assert.AnError},
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", best.URL)
}

func TestBestTieKeepsOrder(t *testing.T) {
	best, err := Best([]Endpoint{
		{URL: "first", Latency: time.Millisecond, BlockNumber: 5},
		{URL: "second", Latency: time.Millisecond, BlockNumber: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, "first", best.URL)
}

func TestBestNoneHealthy(t *testing.T) {
	_, err := Best([]Endpoint{{URL: "a", Err: assert.AnError}})
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
	_, err = Best(nil)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

func TestProbeMarksWrongChainAndDown(t *testing.T) {
	good := node(t, 11155111, 50, 0)
	wrong := node(t, 1, 50, 0)
	down := deadURL(t)

	eps := Probe(context.Background(), []string{good, wrong, down}, 11155111)
	require.Len(t, eps, 3)
	assert.NoError(t, eps[0].Err)
	assert.Equal(t, int64(11155111), eps[0].ChainID)
	assert.Equal(t, uint64(50), eps[0].BlockNumber)
	assert.ErrorIs(t, eps[1].Err, ErrWrongChain)
	assert.Error(t, eps[2].Err)
}

func TestSelect(t *testing.T) {
	slow := node(t, 11155111, 50, 80*time.Millisecond)
	fast := node(t, 11155111, 50, 0)
	wrong := node(t, 1, 50, 0)

	url, err := Select(context.Background(), []string{slow, wrong, fast}, 11155111, nil)
	require.NoError(t, err)
	assert.Equal(t, fast, url)
}

func TestSelectSingleSkipsProbe(t *testing.T) {
	url, err := Select(context.Background(), []string{"http://127.0.0.1:1"}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:1", url)

	_, err = Select(context.Background(), nil, 1, nil)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

func TestSelectAllDown(t *testing.T) {
	_, err := Select(context.Background(), []string{deadURL(t), deadURL(t)}, 1, nil)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}
