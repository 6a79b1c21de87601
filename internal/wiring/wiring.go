// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/ember/internal/adapters/config"
	_ "go.trai.ch/ember/internal/adapters/fs"
	_ "go.trai.ch/ember/internal/adapters/logger"
	_ "go.trai.ch/ember/internal/adapters/runtime"
	_ "go.trai.ch/ember/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/ember/internal/app"
	_ "go.trai.ch/ember/internal/engine/tracker"
)
