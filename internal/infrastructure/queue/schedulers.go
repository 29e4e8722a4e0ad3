package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"library-backend/internal/config"
	"library-backend/internal/shared"
	"library-backend/internal/shared/utils"
	"library-backend/pkg/logger"
)

// TaskRegistrar là phần asynq.Scheduler mà Scheduler cần (test thay bằng fake)
type TaskRegistrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
	Run() error
	Shutdown()
}

type Scheduler struct {
	scheduler TaskRegistrar
	jobConfig config.JobsConfig
}

func NewScheduler(redisOpt asynq.RedisClientOpt, jobConfig config.JobsConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return newScheduler(scheduler, jobConfig)
}

func newScheduler(registrar TaskRegistrar, jobConfig config.JobsConfig) *Scheduler {
	return &Scheduler{
		scheduler: registrar,
		jobConfig: jobConfig,
	}
}

func (s *Scheduler) RegisterJobs() error {
	return s.registerExpireOverdueReservationsJob()
}

// ================================================
// JOB: Expire Overdue Reservations (default every 15 minutes)
// ================================================
// Task expire theo từng reservation có thể bị mất (Redis flush, enqueue lỗi
// sau commit); job quét này bắt nốt các reservation pending đã quá hạn.
func (s *Scheduler) registerExpireOverdueReservationsJob() error {
	task, err := utils.NewTask(shared.TypeExpireOverdueReservations, shared.ExpireOverduePayload{
		Limit: s.jobConfig.ExpireBatchSize,
	})
	if err != nil {
		return err
	}

	_, err = s.scheduler.Register(
		s.jobConfig.ExpireReservationsAt,
		task,
		asynq.Queue(shared.QueueReservation),
		asynq.MaxRetry(2),
		asynq.Timeout(5*time.Minute),
		// lần chạy trước chưa xong thì không enqueue chồng
		asynq.Unique(10*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register ExpireOverdueReservations job", err)
		return err
	}

	logger.Info("✓ Registered ExpireOverdueReservations", map[string]interface{}{
		"cron":  s.jobConfig.ExpireReservationsAt,
		"limit": s.jobConfig.ExpireBatchSize,
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
