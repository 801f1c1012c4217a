package scheduler

import (
	"time"

	pkgconfig "catchup-feed/internal/pkg/config"
)

// Config is the Poller's operator-facing policy: the two cadences, the
// startup delay before the first sweep, the fan-out bound for a sweep's
// concurrent source fetches, and the batch-wide deadline.
type Config struct {
	SweepInterval        time.Duration
	BatchInterval        time.Duration
	InitialSweepDelay    time.Duration
	MaxConcurrentSources int
	BatchTimeout         time.Duration
	Timezone             string
}

// LoadConfig reads the Poller's cadences from the environment, falling
// back to the fixed defaults: 30s sweep, 30m batch, 5s initial delay, 8
// concurrent source fetches, 10m batch-wide timeout.
func LoadConfig() Config {
	sweepInterval := pkgconfig.LoadEnvDuration("POLLER_SWEEP_INTERVAL", 30*time.Second, pkgconfig.ValidatePositiveDuration).Value.(time.Duration)
	batchInterval := pkgconfig.LoadEnvDuration("POLLER_BATCH_INTERVAL", 30*time.Minute, pkgconfig.ValidatePositiveDuration).Value.(time.Duration)
	initialDelay := pkgconfig.LoadEnvDuration("POLLER_INITIAL_SWEEP_DELAY", 5*time.Second, pkgconfig.ValidatePositiveDuration).Value.(time.Duration)
	maxConcurrent := pkgconfig.LoadEnvInt("POLLER_MAX_CONCURRENT_SOURCES", 8, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 64)
	}).Value.(int)
	batchTimeout := pkgconfig.LoadEnvDuration("POLLER_BATCH_TIMEOUT", 10*time.Minute, pkgconfig.ValidatePositiveDuration).Value.(time.Duration)
	timezone := pkgconfig.LoadEnvString("POLLER_TIMEZONE", "UTC")

	return Config{
		SweepInterval:        sweepInterval,
		BatchInterval:        batchInterval,
		InitialSweepDelay:    initialDelay,
		MaxConcurrentSources: maxConcurrent,
		BatchTimeout:         batchTimeout,
		Timezone:             timezone,
	}
}
