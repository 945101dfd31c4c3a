// Package blob opens the object store provenance reports are exported to.
// Callers depend on the Store contract re-exported here; the concrete drivers
// under internal/infra/blob are reachable only through Open.
package blob

import "producechain/internal/blob/core"

type (
	Driver           = core.Driver
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
	Info             = core.Info
	Store            = core.Store
)

const (
	DriverS3     = core.DriverS3
	DriverMemory = core.DriverMemory

	DefaultURLExpiry = core.DefaultURLExpiry
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
)
