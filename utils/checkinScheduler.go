package utils

import (
	"log"
	"time"

	"astrolab/database"
	"astrolab/models"

	"github.com/robfig/cron/v3"
)

// InitializeCheckinScheduler sets up the checkin session pruning scheduler
func InitializeCheckinScheduler() {
	log.Println("[CHECKIN-SCHEDULER] Initializing checkin scheduler...")

	c := cron.New()

	// Run hourly to drop expired checkin sessions
	c.AddFunc("@hourly", func() {
		log.Println("[CHECKIN-SCHEDULER] Running checkin session cleanup...")
		PruneExpiredCheckins()
	})

	c.Start()
	log.Println("[CHECKIN-SCHEDULER] Checkin scheduler started - runs hourly")
}

// PruneExpiredCheckins hard-deletes checkin sessions past their expiry.
// A pruned session simply means the member has to check in again.
func PruneExpiredCheckins() {
	db := database.Database.Db

	result := db.Unscoped().
		Where("expires_at < ?", time.Now()).
		Delete(&models.CheckinSession{})
	if result.Error != nil {
		log.Printf("[CHECKIN-SCHEDULER] Error pruning checkin sessions: %v", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		log.Printf("[CHECKIN-SCHEDULER] Pruned %d expired checkin sessions", result.RowsAffected)
	}
}
