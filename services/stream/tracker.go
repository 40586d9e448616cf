package stream

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ruutu-tools/ruutu-client/services/storage"
)

// watchedThresholdPercent decides whether a stopped playback counts as
// finished or resumable.
const watchedThresholdPercent = 90

// PositionFunc samples the player. playing=false signals that playback
// ended or was stopped by the host.
type PositionFunc func() (positionSeconds, totalSeconds float64, playing bool)

// Tracker samples playback position on a fixed interval for the lifetime
// of one playback session and reports the outcome to the history store.
// Cancel the context to abort; the final progress report is flushed
// synchronously before Run returns.
type Tracker struct {
	store    *storage.Client
	interval time.Duration
}

func NewTracker(store *storage.Client) *Tracker {
	return &Tracker{
		store:    store,
		interval: time.Second,
	}
}

// Run polls until playback stops or ctx is cancelled, then flushes: a
// position past the watched threshold clears the unfinished marker,
// anything else records the resume point. The flush error is the only
// error surfaced; sampling itself never fails.
func (t *Tracker) Run(ctx context.Context, videoID int64, sample PositionFunc) error {
	var lastPos, total float64

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return t.flush(videoID, lastPos, total)
		case <-ticker.C:
			pos, tot, playing := sample()
			if !playing {
				return t.flush(videoID, lastPos, total)
			}
			lastPos, total = pos, tot
		}
	}
}

func (t *Tracker) flush(videoID int64, lastPos, total float64) error {
	// The flush must not inherit the cancelled playback context.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if total <= 0 {
		log.WithField("video", videoID).Debug("no position sampled, skipping progress report")
		return nil
	}
	if lastPos/total*100 >= watchedThresholdPercent {
		return t.store.ReportFinished(ctx, videoID)
	}
	return t.store.ReportProgress(ctx, videoID, lastPos)
}
