package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type purgerStub struct {
	calls  int32
	purged int
	err    error
}

func (p *purgerStub) PurgeExpired(ctx context.Context) (int, error) {
	atomic.AddInt32(&p.calls, 1)
	return p.purged, p.err
}

func TestSweeperRunOnce(t *testing.T) {
	purger := &purgerStub{purged: 3}
	sweeper := NewSweeperService(purger, nil, time.Hour, nil)

	sweeper.RunOnce(context.Background())
	require.Equal(t, int32(1), atomic.LoadInt32(&purger.calls))
}

func TestSweeperLoopTicksAndStops(t *testing.T) {
	purger := &purgerStub{}
	sweeper := NewSweeperService(purger, nil, 10*time.Millisecond, nil)

	sweeper.Start(context.Background())
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&purger.calls) >= 2
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	after := atomic.LoadInt32(&purger.calls)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, atomic.LoadInt32(&purger.calls))
}

func TestSweeperStartIsIdempotent(t *testing.T) {
	purger := &purgerStub{}
	sweeper := NewSweeperService(purger, nil, time.Hour, nil)

	sweeper.Start(context.Background())
	sweeper.Start(context.Background())
	sweeper.Stop()
	sweeper.Stop()
}
