package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/martinsmeder/AI-agent-test/internal/logger"
)

// Job は定期実行される処理です。
type Job func(ctx context.Context) error

// Scheduler は cron 書式に従って Job を繰り返し実行します。
// 前回の実行が終わっていない場合、その回は実行しません。
type Scheduler struct {
	cron    *cron.Cron
	job     Job
	mu      sync.Mutex
	running bool
	ctx     context.Context
}

// New は Scheduler を生成します。spec は5フィールドの標準的な cron 書式です。
func New(spec string, job Job) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler.New: Job cannot be nil")
	}
	c := cron.New()
	s := &Scheduler{cron: c, job: job, ctx: context.Background()}

	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("cron の書式が不正です (%s): %w", spec, err)
	}
	return s, nil
}

// Run は、ctx がキャンセルされるまでスケジュールに従って Job を実行します。
// runNow が true の場合は、スケジュールを開始する前に Job を1回実行します。
// 戻る前に実行中の Job の完了を待ちます。
func (s *Scheduler) Run(ctx context.Context, runNow bool) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if runNow {
		s.runOnce()
	}

	s.cron.Start()
	for _, e := range s.cron.Entries() {
		logger.Log.Infof("次回の実行予定: %s", e.Next.Format("2006-01-02 15:04:05"))
	}

	<-ctx.Done()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Log.Warn("前回の実行が終わっていないためスキップします")
		return
	}
	s.running = true
	ctx := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	logger.Log.Info("定期実行を開始します")
	if err := s.job(ctx); err != nil {
		logger.Log.WithError(err).Error("定期実行に失敗しました")
		return
	}
	logger.Log.Info("定期実行が完了しました")
}
