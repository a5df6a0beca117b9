package auth

import (
	"crypto/rand"
	"math/big"
	"time"
)

// TimingConfig controls how long failed credential checks are padded.
type TimingConfig struct {
	BaseDelay   time.Duration
	RandomDelay time.Duration
}

// TimingDelay pads failed signins so that unknown accounts, wrong roles and
// wrong passwords take about the same time to answer.
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config, sleep: time.Sleep}
}

// WaitFrom sleeps until at least base plus a random jitter has elapsed since start.
// Successful attempts are never delayed.
func (td *TimingDelay) WaitFrom(start time.Time, success bool) {
	if success {
		return
	}
	target := td.config.BaseDelay + td.jitter()
	if elapsed := time.Since(start); elapsed < target {
		td.sleep(target - elapsed)
	}
}

func (td *TimingDelay) jitter() time.Duration {
	if td.config.RandomDelay <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(td.config.RandomDelay)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
