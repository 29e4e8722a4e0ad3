package main

import (
	"github.com/hibiken/asynq"

	reservationJob "library-backend/internal/domains/reservation/job"
	"library-backend/internal/shared"
	"library-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	expireReservation *reservationJob.ExpireReservationHandler
	expireOverdue     *reservationJob.ExpireOverdueHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		expireReservation: reservationJob.NewExpireReservationHandler(c.ReservationService),
		expireOverdue:     reservationJob.NewExpireOverdueHandler(c.ReservationService),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeExpireReservation, h.expireReservation.ProcessTask)
	mux.HandleFunc(shared.TypeExpireOverdueReservations, h.expireOverdue.ProcessTask)
}
