package setting

import "time"

// Publish holds tuning knobs for the publish coordinator (§4.E) and the
// by-hash cleanup sweeper (§4.F).
type Publish struct {
	// ByHashGraceWindow is how long a superseded by-hash object stays
	// available after being replaced, per §4.F's recommended 30 minutes.
	ByHashGraceWindow time.Duration `envconfig:"PUBLISH_BY_HASH_GRACE_WINDOW" default:"30m"`

	// SerializableRetryLimit bounds the internal retries of
	// CatalogConflict per §7's propagation policy.
	SerializableRetryLimit int `envconfig:"PUBLISH_SERIALIZABLE_RETRY_LIMIT" default:"3"`

	// StorageRetryLimit is loaded from the environment, but no code path
	// reads it: object-storage calls are not retried internally, and a
	// StorageUnavailable error propagates on its first occurrence.
	StorageRetryLimit int `envconfig:"PUBLISH_STORAGE_RETRY_LIMIT" default:"3"`
}
