//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"pushstreak/config"
)

// BuildApp wires the server components using Google Wire.
func BuildApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		provideLogger,
		provideHub,
		provideStorage,
		provideTracker,
		provideDispatcher,
		provideScheduler,
		provideHandler,
		provideServer,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
