package mq

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Kind names one notification job type.
type Kind string

const (
	KindBookingCreated   Kind = "booking_created"
	KindBookingConfirmed Kind = "booking_confirmed"
	KindScheduleReminder Kind = "schedule_reminder"
	KindBookingReminder  Kind = "booking_reminder"
)

// Job is the envelope carried by every queue.
type Job struct {
	ID            string `json:"id"`
	Kind          Kind   `json:"kind"`
	ReservationID uint   `json:"reservation_id"`
	HoursBefore   int    `json:"hours_before,omitempty"`
	Attempt       int    `json:"attempt"`
}

func NewJob(kind Kind, reservationID uint) Job {
	return Job{ID: uuid.NewString(), Kind: kind, ReservationID: reservationID}
}

// Handler processes one job. A non-nil error requeues the job until the
// queue's attempt limit is reached.
type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Publish(ctx context.Context, job Job) error
	// Consume starts delivering jobs to h in the background and returns.
	Consume(ctx context.Context, h Handler) error
	Close() error
}

const DefaultMaxAttempts = 3

var (
	ErrQueueClosed = errors.New("mq: queue closed")
	ErrQueueFull   = errors.New("mq: queue full")
)
