package utils

import (
	"log"
	"time"

	"astrolab/config"

	"github.com/go-resty/resty/v2"
)

// GradebookEvent is the passback payload posted to the LMS when a group
// submits a round.
type GradebookEvent struct {
	GroupID          uint      `json:"group_id"`
	ModuleID         uint      `json:"module_id"`
	SubmissionNumber int64     `json:"submission_number"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// NotifyGradebook posts a submission event to the configured webhook. The
// webhook is optional; an empty URL disables passback.
func NotifyGradebook(event GradebookEvent) {
	url := config.AppConfig.GradebookWebhookURL
	if url == "" {
		return
	}

	client := resty.New().SetTimeout(10 * time.Second)

	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(url)
	if err != nil {
		log.Printf("[GRADEBOOK] Error posting submission event for group %d: %v", event.GroupID, err)
		return
	}
	if resp.IsError() {
		log.Printf("[GRADEBOOK] Passback for group %d rejected, response code: %d", event.GroupID, resp.StatusCode())
		return
	}

	log.Printf("[GRADEBOOK] Passback sent for group %d, round %d", event.GroupID, event.SubmissionNumber)
}
