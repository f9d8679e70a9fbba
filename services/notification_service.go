package services

import (
	"context"
	"time"

	"github.com/yeremiapane/restobooker/mq"
	"github.com/yeremiapane/restobooker/utils"
)

// Notifier hands lifecycle events to asynchronous delivery. Implementations must not
// block the caller and must never fail it: errors are logged, not returned.
type Notifier interface {
	NotifyCreated(reservationID uint)
	NotifyConfirmed(reservationID uint)
	ScheduleReminder(reservationID uint, hoursBefore int)
}

type NopNotifier struct{}

func (NopNotifier) NotifyCreated(uint)         {}
func (NopNotifier) NotifyConfirmed(uint)       {}
func (NopNotifier) ScheduleReminder(uint, int) {}

// NotificationDispatcher publishes notification jobs to a queue.
type NotificationDispatcher struct {
	queue   mq.Queue
	timeout time.Duration
}

func NewNotificationDispatcher(queue mq.Queue, timeout time.Duration) *NotificationDispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &NotificationDispatcher{queue: queue, timeout: timeout}
}

func (d *NotificationDispatcher) publish(job mq.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.queue.Publish(ctx, job); err != nil {
		utils.ErrorLogger.Printf("Failed to enqueue %s for reservation %d: %v", job.Kind, job.ReservationID, err)
	}
}

func (d *NotificationDispatcher) NotifyCreated(reservationID uint) {
	d.publish(mq.NewJob(mq.KindBookingCreated, reservationID))
}

func (d *NotificationDispatcher) NotifyConfirmed(reservationID uint) {
	d.publish(mq.NewJob(mq.KindBookingConfirmed, reservationID))
}

func (d *NotificationDispatcher) ScheduleReminder(reservationID uint, hoursBefore int) {
	job := mq.NewJob(mq.KindScheduleReminder, reservationID)
	job.HoursBefore = hoursBefore
	d.publish(job)
}
