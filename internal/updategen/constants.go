package updategen

import "time"

// Generation constants.
const (
	maxExamples       = 1000
	centerRange       = 1.0
	seedStride        = 0x9e3779b97f4a7c15
	defaultDimension  = 16
	defaultClients    = 100
	defaultSpread     = 0.5
	defaultClip       = 2.0
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)
