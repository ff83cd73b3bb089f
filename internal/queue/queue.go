package queue

import (
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

func EnqueueNotification(asynqClient *asynq.Client, payload NotificationPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeNotify, taskPayload)

	_, err = asynqClient.Enqueue(task, asynq.MaxRetry(5))
	if err != nil {
		return err
	}

	log.Printf("Notification queued: %+v", payload)
	return nil
}
