package groupController

import (
	"time"

	"astrolab/config"
	"astrolab/database"
	"astrolab/middleware"
	"astrolab/models"
	"astrolab/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Checkin verifies a group member's identity for this lab session and
// records a CheckinSession. The lock endpoint counts live sessions
// server-side, so the token is informational for the client.
func Checkin(c *fiber.Ctx) error {
	groupID := c.Locals("groupID").(uint)
	reqData, ok := c.Locals("validatedCheckin").(*struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	service := services.NewGroupService(database.Database.Db)
	member, err := service.Checkin(reqData.Email, reqData.Password, groupID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Checkin failed!", nil)
	}
	if member == nil {
		// Expected outcome, not an error: wrong password or not a member
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Checkin not successful.", nil)
	}

	ttl := time.Duration(config.AppConfig.CheckinTTLMinutes) * time.Minute
	session := models.CheckinSession{
		ModuleGroupID: groupID,
		CourseUserID:  member.ID,
		Token:         uuid.NewString(),
		ExpiresAt:     time.Now().Add(ttl),
	}
	if err := database.Database.Db.Create(&session).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Checkin failed!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Checkin successful!", fiber.Map{
		"member":     member,
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
	})
}

// LockStatus reports whether every active member of the group has a live
// checkin session, i.e. all expected participants are present.
func LockStatus(c *fiber.Ctx) error {
	groupID := c.Locals("groupID").(uint)

	db := database.Database.Db

	var checkedIn []uint
	err := db.Model(&models.CheckinSession{}).
		Where("module_group_id = ? AND expires_at > ?", groupID, time.Now()).
		Distinct().
		Pluck("course_user_id", &checkedIn).Error
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch lock status!", nil)
	}

	service := services.NewGroupService(db)
	hasLock, err := service.HasLock(groupID, checkedIn)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch lock status!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lock status.", fiber.Map{
		"has_lock":   hasLock,
		"checked_in": checkedIn,
	})
}
