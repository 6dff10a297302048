// Package timeouts defines shared timeout constants used by jibe processes.
package timeouts

import "time"

// Shutdown limits how long the gRPC server drains in-flight calls and the
// turn watcher finishes its current batch.
const Shutdown = 5 * time.Second

// StoreOpen caps the initial SQLite ping during startup.
const StoreOpen = 5 * time.Second
