// Package paylens answers natural-language questions about employee salary
// data.
//
// Usage:
//
//	import "github.com/spektr-org/paylens"
//
//	cfg := config.Default()
//	d, err := paylens.NewDispatcher(cfg, slog.Default())
//	out, err := d.Dispatch(ctx, dispatch.Request{Question: q, Table: &table})
//
// Two interpreters share one result contract. The pattern interpreter is
// local and deterministic. The capability interpreter asks an AI service for
// a declarative plan, validates it against the dataset's columns and runs it
// locally; the AI never sees more than column metadata and a few redacted
// sample rows. Any capability failure falls back to the pattern interpreter.
package paylens

import (
	"errors"
	"log/slog"

	"github.com/spektr-org/paylens/config"
	"github.com/spektr-org/paylens/dispatch"
	"github.com/spektr-org/paylens/pattern"
	"github.com/spektr-org/paylens/translator"
)

// Version is the release version.
const Version = "0.3.0"

// NewDispatcher wires a dispatcher from cfg. A missing API key is not an
// error: the capability interpreter is left unconfigured and every question
// is answered by the pattern interpreter.
func NewDispatcher(cfg *config.Config, logger *slog.Logger) (*dispatch.Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	capability := translator.New(provider,
		translator.WithUnit(cfg.Unit),
		translator.WithSampleRows(cfg.SampleRows()),
		translator.WithRedactNames(cfg.RedactNames()),
		translator.WithLogger(logger),
	)
	return dispatch.New(
		dispatch.WithCapability(capability),
		dispatch.WithPattern(pattern.New(pattern.WithUnit(cfg.Unit))),
		dispatch.WithTimeout(cfg.Capability.Timeout),
		dispatch.WithLogger(logger),
	), nil
}

// NewProvider builds the configured AI provider. It returns nil, nil when no
// credential is set.
func NewProvider(cfg *config.Config) (translator.Provider, error) {
	provider, err := translator.NewProvider(cfg.ProviderConfig())
	if errors.Is(err, translator.ErrCapabilityUnavailable) {
		return nil, nil
	}
	return provider, err
}
