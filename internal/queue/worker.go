package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
	"github.com/postforge/autoposter/internal/models"
	"gopkg.in/gomail.v2"
)

func (j *Queue) HandleNotifyTask(ctx context.Context, task *asynq.Task) error {
	var payload NotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return j.Deliver(ctx, payload)
}

// Deliver stores the in-app notification and, for the types a user has
// to act on, sends an email as well. Email failures are returned so
// asynq retries the task; the notification insert is idempotent enough
// to tolerate that.
func (j *Queue) Deliver(ctx context.Context, payload NotificationPayload) error {
	notification := models.Notification{
		UserID: payload.UserID,
		Type:   payload.Type,
		Title:  payload.Title,
		Body:   payload.Body,
		PostID: payload.PostID,
	}

	if _, err := j.nr.Create(ctx, &notification); err != nil {
		return err
	}

	if j.cfg.SMTP.Host == "" {
		return nil
	}
	if payload.Type != models.NotificationDraftReady && payload.Type != models.NotificationPublishFailed {
		return nil
	}

	user, found, err := j.ur.GetByID(ctx, payload.UserID)
	if err != nil {
		return err
	}
	if !found || user.Email == "" {
		log.Printf("No email recipient for user %d", payload.UserID)
		return nil
	}

	return j.sendEmail(user.Email, payload.Title, payload.Body)
}

func (j *Queue) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", j.cfg.SMTP.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(j.cfg.SMTP.Host, j.cfg.SMTP.Port, j.cfg.SMTP.Username, j.cfg.SMTP.Password)
	if err := d.DialAndSend(m); err != nil {
		log.Printf("Error sending email to %s: %v", to, err)
		return err
	}

	return nil
}
