package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/skip2/go-qrcode"
	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/mq"
	"github.com/yeremiapane/restobooker/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const displayTimeLayout = "02.01.2006 15:04"

type NotificationMetrics struct {
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Skipped int64 `json:"skipped"`
}

// NotificationWorker renders and sends the mails behind each notification job and
// keeps the delivery log.
type NotificationWorker struct {
	db           *gorm.DB
	mailer       utils.Mailer
	tokens       *SignedTokens
	site         SiteInfo
	clock        Clock
	managerEmail string

	// deliveries counts mails by kind and outcome (sent, failed, skipped).
	deliveries *prometheus.CounterVec
}

func NewNotificationWorker(db *gorm.DB, mailer utils.Mailer, tokens *SignedTokens, site SiteInfo, clock Clock, managerEmail string) *NotificationWorker {
	if clock == nil {
		clock = RealClock{}
	}
	return &NotificationWorker{
		db:           db,
		mailer:       mailer,
		tokens:       tokens,
		site:         site,
		clock:        clock,
		managerEmail: managerEmail,
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "restobooker",
			Name:      "notifications_total",
			Help:      "Booking notification mails by kind and outcome.",
		}, []string{"kind", "status"}),
	}
}

// Register exposes the delivery counters on reg.
func (w *NotificationWorker) Register(reg prometheus.Registerer) error {
	return reg.Register(w.deliveries)
}

// Metrics sums the delivery counters over all kinds.
func (w *NotificationWorker) Metrics() NotificationMetrics {
	var m NotificationMetrics
	ch := make(chan prometheus.Metric, 16)
	go func() {
		w.deliveries.Collect(ch)
		close(ch)
	}()
	for metric := range ch {
		var out dto.Metric
		if err := metric.Write(&out); err != nil {
			continue
		}
		var status string
		for _, label := range out.GetLabel() {
			if label.GetName() == "status" {
				status = label.GetValue()
			}
		}
		n := int64(out.GetCounter().GetValue())
		switch status {
		case models.NotificationSent:
			m.Sent += n
		case models.NotificationFailed:
			m.Failed += n
		case models.NotificationSkipped:
			m.Skipped += n
		}
	}
	return m
}

// Handle is the mq.Handler of the notification queue.
func (w *NotificationWorker) Handle(ctx context.Context, job mq.Job) error {
	r, err := w.loadReservation(job.ReservationID)
	if err != nil {
		return err
	}
	if r == nil {
		utils.InfoLogger.Printf("Job %s: reservation %d no longer exists", job.ID, job.ReservationID)
		return nil
	}

	switch job.Kind {
	case mq.KindBookingCreated:
		return w.deliver(r, job.Kind, w.createdMessage(r))
	case mq.KindBookingConfirmed:
		msg, err := w.confirmedMessage(r)
		if err != nil {
			return err
		}
		return w.deliver(r, job.Kind, msg)
	case mq.KindScheduleReminder:
		return w.scheduleReminder(r, job.HoursBefore)
	case mq.KindBookingReminder:
		if !r.Status.IsActive() {
			utils.InfoLogger.Printf("Reminder for reservation %d skipped: status %s", r.ID, r.Status)
			w.record(r.ID, job.Kind, "", models.NotificationSkipped, nil, map[string]interface{}{"reason": "status " + string(r.Status)})
			return nil
		}
		return w.deliver(r, job.Kind, w.reminderMessage(r))
	}
	utils.ErrorLogger.Printf("Job %s: unknown kind %q", job.ID, job.Kind)
	return nil
}

func (w *NotificationWorker) loadReservation(id uint) (*models.Reservation, error) {
	var r models.Reservation
	err := w.db.Preload("Table.Area").First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (w *NotificationWorker) recipient(r *models.Reservation) string {
	if r.Email != "" {
		return r.Email
	}
	return w.managerEmail
}

func (w *NotificationWorker) deliver(r *models.Reservation, kind mq.Kind, msg utils.MailMessage) error {
	to := w.recipient(r)
	attachments := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attachments = append(attachments, a.Filename)
	}
	meta := map[string]interface{}{"subject": msg.Subject, "attachments": attachments}

	if to == "" {
		utils.InfoLogger.Printf("No recipient for %s of reservation %d", kind, r.ID)
		w.record(r.ID, kind, "", models.NotificationSkipped, nil, meta)
		return nil
	}
	msg.To = []string{to}
	if err := w.mailer.Send(msg); err != nil {
		utils.ErrorLogger.Printf("Failed to send %s for reservation %d: %v", kind, r.ID, err)
		w.record(r.ID, kind, to, models.NotificationFailed, err, meta)
		return err
	}
	w.record(r.ID, kind, to, models.NotificationSent, nil, meta)
	return nil
}

func (w *NotificationWorker) record(reservationID uint, kind mq.Kind, recipient, status string, sendErr error, meta map[string]interface{}) {
	w.deliveries.WithLabelValues(string(kind), status).Inc()

	entry := models.Notification{
		ReservationID: reservationID,
		Kind:          string(kind),
		Recipient:     recipient,
		Status:        status,
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	if raw, err := json.Marshal(meta); err == nil {
		entry.Meta = datatypes.JSON(raw)
	}
	if err := w.db.Create(&entry).Error; err != nil {
		utils.ErrorLogger.Printf("Failed to log notification for reservation %d: %v", reservationID, err)
	}
}

func (w *NotificationWorker) when(r *models.Reservation) string {
	return r.DatetimeStart.In(w.site.location()).Format(displayTimeLayout)
}

func (w *NotificationWorker) details(r *models.Reservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date and time: %s - %s\n", w.when(r), r.DatetimeEnd.In(w.site.location()).Format("15:04"))
	fmt.Fprintf(&b, "Table: %s (%s)\n", r.Table.Name, r.Table.Area.Name)
	fmt.Fprintf(&b, "Guests: %d\n", r.Guests)
	fmt.Fprintf(&b, "Name: %s\n", r.Name)
	if r.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", r.Phone)
	}
	if r.Comment != "" {
		fmt.Fprintf(&b, "Comment: %s\n", r.Comment)
	}
	return b.String()
}

func (w *NotificationWorker) createdMessage(r *models.Reservation) utils.MailMessage {
	return utils.MailMessage{
		Subject: "Booking request received - " + w.when(r),
		Body: "Thank you, we have received your booking request.\n\n" + w.details(r) +
			"\nWe will let you know as soon as it is confirmed.\n",
	}
}

func (w *NotificationWorker) confirmedMessage(r *models.Reservation) (utils.MailMessage, error) {
	qrToken, err := w.tokens.MakeQRToken(r.ID)
	if err != nil {
		return utils.MailMessage{}, err
	}
	png, err := qrcode.Encode(qrToken, qrcode.Medium, 256)
	if err != nil {
		return utils.MailMessage{}, fmt.Errorf("render QR code: %w", err)
	}
	icsToken, err := w.tokens.MakeICSToken(r.ID)
	if err != nil {
		return utils.MailMessage{}, err
	}
	ics := BuildReservationICS(*r, w.site, w.clock.Now())

	return utils.MailMessage{
		Subject: fmt.Sprintf("Booking confirmed - %s - table %s", w.when(r), r.Table.Name),
		Body: "Your booking is confirmed.\n\n" + w.details(r) +
			"\nShow the attached QR code at arrival.\n" +
			"Add the visit to your calendar: " + w.site.ICSURL(icsToken) + "\n",
		Attachments: []utils.Attachment{
			{Filename: fmt.Sprintf("booking_%d.png", r.ID), ContentType: "image/png", Data: png},
			{Filename: ICSFilename(r.ID), ContentType: "text/calendar; charset=utf-8", Data: []byte(ics)},
		},
	}, nil
}

func (w *NotificationWorker) reminderMessage(r *models.Reservation) utils.MailMessage {
	return utils.MailMessage{
		Subject: "Booking reminder - " + w.when(r),
		Body:    "This is a reminder about your booking.\n\n" + w.details(r) + "\nSee you soon!\n",
	}
}

// scheduleReminder stores a reminder hoursBefore the start. Reminders whose fire
// time has already passed are dropped.
func (w *NotificationWorker) scheduleReminder(r *models.Reservation, hoursBefore int) error {
	fireAt := r.DatetimeStart.Add(-time.Duration(hoursBefore) * time.Hour)
	if !fireAt.After(w.clock.Now()) {
		utils.InfoLogger.Printf("Reminder for reservation %d not scheduled: fire time %s has passed", r.ID, fireAt.Format(time.RFC3339))
		return nil
	}

	var existing models.ScheduledReminder
	err := w.db.Where("reservation_id = ? AND processed = ?", r.ID, false).First(&existing).Error
	switch {
	case err == nil:
		existing.FireAt = fireAt
		return w.db.Save(&existing).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return w.db.Create(&models.ScheduledReminder{ReservationID: r.ID, FireAt: fireAt}).Error
	default:
		return err
	}
}
