// Package blob is the entry point for snapshot blob storage. Callers depend
// on Store and open a backend with Open; the infra implementations stay
// behind this package.
package blob

import (
	"taskcore/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrNotFound is returned for a key that holds no blob.
	ErrNotFound = core.ErrNotFound
	// ErrExists is returned when writing to a key that is already taken.
	ErrExists = core.ErrExists
)

// CloneMetadata copies blob metadata.
func CloneMetadata(in map[string]string) map[string]string { return core.CloneMetadata(in) }
