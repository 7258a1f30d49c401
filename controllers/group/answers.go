package groupController

import (
	"encoding/json"
	"log"
	"time"

	"astrolab/database"
	"astrolab/middleware"
	"astrolab/models"
	"astrolab/services"
	"astrolab/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

// GetAnswers returns the group's drafts (?drafts=true) or its most recent
// submitted round.
func GetAnswers(c *fiber.Ctx) error {
	groupID := c.Locals("groupID").(uint)
	wantDrafts := c.QueryBool("drafts", false)

	service := services.NewGroupService(database.Database.Db)
	answers, err := service.GetAnswers(groupID, wantDrafts)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch answers!", nil)
	}

	if answers == nil {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "No answers yet.", []models.Answer{})
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Answers.", answers)
}

// SaveAnswers updates the group's draft answers in place.
func SaveAnswers(c *fiber.Ctx) error {
	groupID := c.Locals("groupID").(uint)
	reqData, ok := c.Locals("validatedAnswers").(*struct {
		Answers map[uint]string `json:"answers"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	service := services.NewGroupService(database.Database.Db)
	drafts, err := service.SaveAnswers(reqData.Answers, groupID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save answers!", nil)
	}

	if drafts == nil {
		// Drafts only exist after the group is finalized
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Group has no draft answers yet.", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Answers saved!", drafts)
}

// FinalizeGroup locks the group and seeds its draft answers. Instructor
// only; the role gate runs before this handler.
func FinalizeGroup(c *fiber.Ctx) error {
	groupID := c.Locals("groupID").(uint)

	service := services.NewGroupService(database.Database.Db)
	if err := service.FinalizeGroup(groupID); err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to finalize group!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Group finalized!", nil)
}

// SubmitAnswers records a new submission round from the group's drafts,
// writes an audit receipt and notifies members and the gradebook.
func SubmitAnswers(c *fiber.Ctx) error {
	groupID := c.Locals("groupID").(uint)

	db := database.Database.Db
	service := services.NewGroupService(db)

	answers, err := service.SubmitAnswers(groupID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to submit answers!", nil)
	}
	if len(answers) == 0 {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Group has nothing to submit.", nil)
	}

	round := answers[0].SubmissionNumber

	// Audit receipt with the full round snapshot
	payload, err := json.Marshal(answers)
	if err == nil {
		receipt := models.SubmissionReceipt{
			ModuleGroupID:    groupID,
			SubmissionNumber: round,
			Payload:          datatypes.JSON(payload),
		}
		if err := db.Create(&receipt).Error; err != nil {
			log.Printf("Error saving submission receipt for group %d: %v", groupID, err)
		}
	}

	go notifySubmission(groupID, round)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Answers submitted!", answers)
}

// notifySubmission emails the group members and posts the gradebook
// passback event.
func notifySubmission(groupID uint, round int64) {
	db := database.Database.Db
	service := services.NewGroupService(db)

	members, err := service.GetUsersInGroup(groupID)
	if err != nil {
		log.Printf("Error fetching members for submission notification: %v", err)
		return
	}

	recipients := make([]string, 0, len(members))
	for _, member := range members {
		if member.User.Email != "" {
			recipients = append(recipients, member.User.Email)
		}
	}
	utils.SendSubmissionReceiptEmail(recipients, groupID, round)

	var group models.ModuleGroup
	if err := db.First(&group, groupID).Error; err != nil {
		return
	}
	utils.NotifyGradebook(utils.GradebookEvent{
		GroupID:          groupID,
		ModuleID:         group.ModuleID,
		SubmissionNumber: round,
		SubmittedAt:      time.Now(),
	})
}

// GetSubmissionNumber returns the group's highest recorded round.
func GetSubmissionNumber(c *fiber.Ctx) error {
	groupID := c.Locals("groupID").(uint)

	service := services.NewGroupService(database.Database.Db)
	number, ok, err := service.SubmissionNumber(groupID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch submission number!", nil)
	}
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "No submissions yet.", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Submission number.", fiber.Map{
		"submission_number": number,
	})
}
