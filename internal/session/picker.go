package session

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Mohsinsiddi/w3dash/internal/errs"
	"github.com/Mohsinsiddi/w3dash/internal/provider"
)

// ErrConnectPending is returned when a connection attempt is already running.
var ErrConnectPending = errors.New("connection already pending")

// Picker lists connectors and performs one connection attempt at a time.
type Picker struct {
	p       provider.Provider
	log     *zap.Logger
	pending atomic.Bool
}

// NewPicker creates a Picker over p.
func NewPicker(p provider.Provider, log *zap.Logger) *Picker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Picker{p: p, log: log.Named("picker")}
}

// ListConnectors returns the provider's connectors.
func (pk *Picker) ListConnectors() []provider.Connector {
	return pk.p.Connectors()
}

// Pending reports whether a connection attempt is in flight.
func (pk *Picker) Pending() bool { return pk.pending.Load() }

// SelectConnector connects through id. Every failure is an
// *errs.ConnectionError.
func (pk *Picker) SelectConnector(ctx context.Context, id string) (provider.Account, error) {
	if !pk.pending.CompareAndSwap(false, true) {
		return provider.Account{}, &errs.ConnectionError{Connector: id, Err: ErrConnectPending}
	}
	defer pk.pending.Store(false)

	pk.log.Debug("connecting", zap.String("connector", id))
	acct, err := pk.p.Connect(ctx, id)
	if err != nil {
		var ce *errs.ConnectionError
		if !errors.As(err, &ce) {
			err = &errs.ConnectionError{Connector: id, Err: err}
		}
		return provider.Account{}, err
	}
	return acct, nil
}

// Disconnect ends the session. It never fails.
func (pk *Picker) Disconnect() {
	if err := pk.p.Disconnect(); err != nil {
		pk.log.Warn("disconnect", zap.Error(err))
	}
}
