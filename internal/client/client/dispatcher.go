package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/sheharfix/civicsync/internal/common"
	"github.com/sheharfix/civicsync/internal/logging"
)

// Mode selects how the Dispatcher routes calls.
type Mode string

const (
	// ModeMockFirst tries the mock and falls back to the network only for
	// routes the mock does not model.
	ModeMockFirst Mode = "mock-first"
	// ModeNetworkOnly bypasses the mock.
	ModeNetworkOnly Mode = "network-only"
	// ModeMockOnly never touches the network.
	ModeMockOnly Mode = "mock-only"
)

var ErrInvalidMode = errors.New("invalid dispatch mode")

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeMockFirst, nil
	case ModeMockFirst, ModeNetworkOnly, ModeMockOnly:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// MockBackend is the in-process backend consulted first.
type MockBackend interface {
	Handle(ctx context.Context, method, path string, body []byte) ([]byte, error)
}

// Transport performs a real backend call.
type Transport interface {
	Do(ctx context.Context, req Request) ([]byte, error)
}

// Dispatcher routes each call to the mock backend or the network.
type Dispatcher struct {
	mock    MockBackend
	network Transport
	mode    Mode
	log     logging.Logger
}

type DispatcherOption func(*Dispatcher)

func WithMode(m Mode) DispatcherOption {
	return func(d *Dispatcher) { d.mode = m }
}

func WithDispatchLogger(l logging.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = l }
}

// NewDispatcher builds a Dispatcher. A nil mock behaves like ModeNetworkOnly.
func NewDispatcher(mock MockBackend, network Transport, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{mock: mock, network: network, mode: ModeMockFirst, log: logging.Nop()}
	for _, o := range opts {
		o(d)
	}
	if d.mock == nil {
		d.mode = ModeNetworkOnly
	}
	return d
}

func (d *Dispatcher) Mode() Mode { return d.mode }

// Do runs req through the routing policy.
//
// In ModeMockFirst only common.ErrUnimplementedRoute from the mock leads to
// exactly one network attempt; any other mock error is returned as is.
// When the network attempt fails too, the result combines both errors with
// the mock error first, so errors.Is matches either.
func (d *Dispatcher) Do(ctx context.Context, req Request) ([]byte, error) {
	switch d.mode {
	case ModeNetworkOnly:
		return d.network.Do(ctx, req)
	case ModeMockOnly:
		return d.mock.Handle(ctx, req.Method, req.Path, req.Body)
	}

	out, mockErr := d.mock.Handle(ctx, req.Method, req.Path, req.Body)
	if mockErr == nil {
		return out, nil
	}
	if !errors.Is(mockErr, common.ErrUnimplementedRoute) {
		return nil, mockErr
	}
	if d.network == nil {
		return nil, mockErr
	}

	d.log.Debug(ctx, "mock route not modelled, using network", "method", req.Method, "path", req.Path)

	out, netErr := d.network.Do(ctx, req)
	if netErr != nil {
		return nil, multierr.Combine(mockErr, netErr)
	}
	return out, nil
}
