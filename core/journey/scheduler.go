package journey

import (
	"context"
	"sync"
	"time"

	"ReadTune/logger"
)

// SchedulerConfig 轮询节奏配置
type SchedulerConfig struct {
	InitialInterval time.Duration // 起始tick间隔
	SlowInterval    time.Duration // 放宽后的tick间隔
	WidenAfter      time.Duration // 启动后累计多久放宽间隔
	TickTimeout     time.Duration // 单次轮询的超时
}

// DefaultSchedulerConfig 默认节奏：前30秒每3秒一次，之后每5秒一次
// 生成任务通常几十秒内完成，前期密集轮询换取感知上的即时性
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		InitialInterval: 3 * time.Second,
		SlowInterval:    5 * time.Second,
		WidenAfter:      30 * time.Second,
		TickTimeout:     10 * time.Second,
	}
}

// Poller 调度器每个tick驱动的对象
type Poller interface {
	PollOnce(ctx context.Context)
}

// Scheduler 自适应轮询调度器
// 会话生命周期内只启动一次，间隔放宽只发生一次（单向棘轮，不是重复退避）
// 在途集合为空时tick照常触发但轮询内部跳过，集合重新非空后自动恢复真实轮询
// 只有会话销毁才停止调度
type Scheduler struct {
	poller Poller
	config SchedulerConfig

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler driving the given poller.
func NewScheduler(poller Poller, config SchedulerConfig) *Scheduler {
	return &Scheduler{
		poller:   poller,
		config:   config,
		stopChan: make(chan struct{}),
	}
}

// Start 启动调度循环
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop 停止调度，等待循环退出后返回
// 返回后不会再有任何tick回调
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.InitialInterval)
	defer func() { ticker.Stop() }()

	start := time.Now()
	widened := false

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if !widened && time.Since(start) > s.config.WidenAfter {
				ticker.Stop()
				ticker = time.NewTicker(s.config.SlowInterval)
				widened = true
				logger.Debug("轮询间隔已放宽",
					logger.Duration("interval", s.config.SlowInterval))
			}
			s.tick()
		}
	}
}

// tick 单个tick内的轮询串行完成，不会重入
func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.TickTimeout)
	defer cancel()
	s.poller.PollOnce(ctx)
}
