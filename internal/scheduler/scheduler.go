package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DuePublisher promotes scheduled posts whose publish time has passed.
type DuePublisher interface {
	PublishDue(ctx context.Context, now time.Time) (int, error)
}

// Scheduler 按 cron 表达式定期发布到期的定时文章。
type Scheduler struct {
	cron      *cron.Cron
	publisher DuePublisher
	logger    *zap.Logger
	now       func() time.Time
	timeout   time.Duration
}

func New(publisher DuePublisher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:      cron.New(),
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		timeout:   30 * time.Second,
	}
}

// Schedule registers the publish job; spec is a standard cron expression or
// a descriptor such as "@every 1m".
func (s *Scheduler) Schedule(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return fmt.Errorf("schedule publisher %q: %w", spec, err)
	}
	return nil
}

// RunOnce 执行一次发布检查，错误只记录日志。
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.publisher.PublishDue(ctx, s.now())
	if err != nil {
		s.logger.Error("publish scheduled posts", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("published scheduled posts", zap.Int("count", n))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
