package journey

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPoller 记录每次tick的时间
type recordingPoller struct {
	mu    sync.Mutex
	ticks []time.Time
}

func (p *recordingPoller) PollOnce(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks = append(p.ticks, time.Now())
}

func (p *recordingPoller) snapshot() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Time(nil), p.ticks...)
}

func TestSchedulerWidensExactlyOnce(t *testing.T) {
	// 按比例缩小的节奏：30ms起步，300ms后放宽到75ms
	cfg := SchedulerConfig{
		InitialInterval: 30 * time.Millisecond,
		SlowInterval:    75 * time.Millisecond,
		WidenAfter:      300 * time.Millisecond,
		TickTimeout:     time.Second,
	}

	poller := &recordingPoller{}
	scheduler := NewScheduler(poller, cfg)
	start := time.Now()
	scheduler.Start()

	time.Sleep(600 * time.Millisecond)
	scheduler.Stop()

	ticks := poller.snapshot()
	require.NotEmpty(t, ticks)

	var early, late int
	for _, tick := range ticks {
		if tick.Sub(start) <= cfg.WidenAfter+cfg.InitialInterval {
			early++
		} else {
			late++
		}
	}

	// 放宽前约每30ms一次（~10次），放宽后约每75ms一次（~4次）
	// 给调度抖动留出余量，只验证节奏确实变了
	assert.GreaterOrEqual(t, early, 6, "fast phase should tick densely")
	assert.GreaterOrEqual(t, late, 2, "slow phase keeps ticking")
	assert.Less(t, late, early, "cadence must widen after the threshold")
}

func TestSchedulerStopCancelsFutureTicks(t *testing.T) {
	cfg := SchedulerConfig{
		InitialInterval: 20 * time.Millisecond,
		SlowInterval:    40 * time.Millisecond,
		WidenAfter:      time.Second,
		TickTimeout:     time.Second,
	}

	poller := &recordingPoller{}
	scheduler := NewScheduler(poller, cfg)
	scheduler.Start()

	time.Sleep(100 * time.Millisecond)
	scheduler.Stop()

	count := len(poller.snapshot())
	assert.Greater(t, count, 0)

	// Stop 返回后不再有任何tick
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, count, len(poller.snapshot()))
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	scheduler := NewScheduler(&recordingPoller{}, DefaultSchedulerConfig())
	scheduler.Start()
	scheduler.Stop()
	scheduler.Stop()
}
