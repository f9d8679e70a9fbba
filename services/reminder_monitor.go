package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/mq"
	"github.com/yeremiapane/restobooker/utils"
	"gorm.io/gorm"
)

// ReminderMonitor polls for due reminders and hands them to the notification queue.
type ReminderMonitor struct {
	DB       *gorm.DB
	Queue    mq.Queue
	Clock    Clock
	StopChan chan struct{}
	Interval time.Duration
	Batch    int

	stopOnce sync.Once
}

func NewReminderMonitor(db *gorm.DB, queue mq.Queue, clock Clock) *ReminderMonitor {
	if clock == nil {
		clock = RealClock{}
	}
	return &ReminderMonitor{
		DB:       db,
		Queue:    queue,
		Clock:    clock,
		StopChan: make(chan struct{}),
		Interval: 30 * time.Second,
		Batch:    100,
	}
}

func (rm *ReminderMonitor) Start() {
	go func() {
		ticker := time.NewTicker(rm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := rm.CheckDue(); err != nil {
					utils.ErrorLogger.Printf("Reminder check failed: %v", err)
				}
			case <-rm.StopChan:
				return
			}
		}
	}()
}

// Stop ends the polling loop. Calling it more than once is a no-op.
func (rm *ReminderMonitor) Stop() {
	rm.stopOnce.Do(func() { close(rm.StopChan) })
}

// CheckDue publishes every unprocessed reminder whose fire time has passed and marks
// it processed. A publish failure rolls the batch back so it is retried next tick.
func (rm *ReminderMonitor) CheckDue() (int, error) {
	var due []models.ScheduledReminder
	published := 0

	err := rm.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("processed = ? AND fire_at <= ?", false, rm.Clock.Now().UTC()).
			Order("fire_at ASC").
			Limit(rm.Batch).
			Find(&due).Error; err != nil {
			return err
		}

		for _, reminder := range due {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := rm.Queue.Publish(ctx, mq.NewJob(mq.KindBookingReminder, reminder.ReservationID))
			cancel()
			if err != nil {
				return err
			}
			if err := tx.Model(&models.ScheduledReminder{}).
				Where("id = ?", reminder.ID).
				Update("processed", true).Error; err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 {
		utils.InfoLogger.Printf("Queued %d due reminders", published)
	}
	return published, nil
}
