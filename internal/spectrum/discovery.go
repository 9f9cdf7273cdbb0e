// SPDX-License-Identifier: MIT
package spectrum

import (
	"context"
	"time"
)

// Discover resolves the source list once. It waits for ready to close, which a
// caller signals when every source has attached; if ready never fires (or is nil)
// the settle delay acts as the fallback. An empty result is logged, not retried:
// sources attaching after discovery are not picked up.
func Discover(ctx context.Context, ready <-chan struct{}, delay time.Duration, provider func() []Source) ([]Source, error) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ready:
		logger.Debugf("discovery: sources signalled ready")
	case <-timer.C:
		logger.Debugf("discovery: settle delay %s elapsed", delay)
	}

	if provider == nil {
		logger.Errorf("discovery: no source provider configured")
		return nil, nil
	}

	sources := provider()
	if len(sources) == 0 {
		logger.Warnf("discovery: no sound sources found")
	} else {
		logger.Infof("discovery: found %d sound sources", len(sources))
	}
	return sources, nil
}
