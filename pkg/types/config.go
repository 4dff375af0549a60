package types

import "errors"

// DefaultBatchSize is the number of rows converted per transaction by the
// parent-key migration engine. Batching bounds memory and transaction size
// on large tables while still allowing partial progress on abort.
const DefaultBatchSize = 1000

// Config holds the parameters for opening a lattice database.
type Config struct {
	DBPath    string `json:"db_path" yaml:"db_path"`
	BatchSize int    `json:"batch_size" yaml:"batch_size"`
}

// Config validation errors.
var (
	ErrDBPathEmpty      = errors.New("db_path must not be empty")
	ErrBatchSizeInvalid = errors.New("batch_size must be positive")
)

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return ErrDBPathEmpty
	}
	if c.BatchSize < 0 {
		return ErrBatchSizeInvalid
	}
	return nil
}

// EffectiveBatchSize returns the configured batch size, or DefaultBatchSize
// when unset.
func (c Config) EffectiveBatchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return DefaultBatchSize
}
