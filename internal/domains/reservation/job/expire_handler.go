package job

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"library-backend/internal/domains/reservation/model"
	"library-backend/internal/domains/reservation/service"
	"library-backend/internal/shared"
	"library-backend/internal/shared/utils"
	"library-backend/pkg/logger"
)

// ================================================
// EXPIRE ONE RESERVATION (enqueued at Create, ProcessAt = expires_at)
// ================================================

type ExpireReservationHandler struct {
	service service.ServiceInterface
}

func NewExpireReservationHandler(svc service.ServiceInterface) *ExpireReservationHandler {
	return &ExpireReservationHandler{service: svc}
}

func (h *ExpireReservationHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.ExpireReservationPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	id := utils.ParseStringToUUID(payload.ReservationID)
	if id == uuid.Nil {
		return fmt.Errorf("invalid reservation id %q: %w", payload.ReservationID, asynq.SkipRetry)
	}

	r, err := h.service.Expire(ctx, id)
	if err != nil {
		// Đã approved / canceled / ... trước khi hết hạn: không còn gì để làm
		if model.IsInvalidTransition(err) || model.IsReservationNotFound(err) {
			logger.Info("Reservation no longer pending, skip expiry", map[string]interface{}{
				"reservation_id": payload.ReservationID,
			})
			return nil
		}
		return fmt.Errorf("expire reservation: %w", err)
	}

	logger.Info("Reservation expired", map[string]interface{}{
		"reservation_id": r.ID,
		"code":           r.Code,
	})
	return nil
}

// ================================================
// SWEEP OVERDUE RESERVATIONS (scheduled)
// ================================================

type ExpireOverdueHandler struct {
	service service.ServiceInterface
}

func NewExpireOverdueHandler(svc service.ServiceInterface) *ExpireOverdueHandler {
	return &ExpireOverdueHandler{service: svc}
}

func (h *ExpireOverdueHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.ExpireOverduePayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	start := time.Now()
	expired, err := h.service.ExpireOverdue(ctx, payload.Limit)
	if err != nil {
		logger.Error("Failed to expire overdue reservations", err)
		return fmt.Errorf("expire overdue reservations: %w", err)
	}

	logger.Info("Expired overdue reservations", map[string]interface{}{
		"expired":  expired,
		"duration": time.Since(start).String(),
	})
	return nil
}

// ================================================
// SCHEDULER (service.ExpiryScheduler on asynq.Client)
// ================================================

// Enqueuer là phần asynq.Client mà scheduler cần
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type ExpiryScheduler struct {
	client Enqueuer
}

var _ service.ExpiryScheduler = (*ExpiryScheduler)(nil)

func NewExpiryScheduler(client Enqueuer) *ExpiryScheduler {
	return &ExpiryScheduler{client: client}
}

// ScheduleExpiry enqueue task với TaskID cố định theo reservation để
// không enqueue trùng khi retry.
func (s *ExpiryScheduler) ScheduleExpiry(ctx context.Context, id uuid.UUID, at time.Time) error {
	task, err := utils.NewTask(shared.TypeExpireReservation, shared.ExpireReservationPayload{
		ReservationID: id.String(),
	})
	if err != nil {
		return err
	}

	_, err = s.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.Queue(shared.QueueReservation),
		asynq.TaskID("reservation-expire:"+id.String()),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		return fmt.Errorf("enqueue reservation expiry: %w", err)
	}
	return nil
}
