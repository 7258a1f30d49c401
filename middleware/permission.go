package middleware

import (
	"strconv"

	"astrolab/database"
	"astrolab/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RequireGroupRole returns a middleware that checks the caller holds the
// given role in the course the group's module belongs to. It expects a
// :group_id path parameter and the userId set by JWTMiddleware.
func RequireGroupRole(requiredRole string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userId").(uint)
		if !ok {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
		}

		groupID, err := strconv.Atoi(c.Params("group_id"))
		if err != nil || groupID < 1 {
			return JsonResponse(c, fiber.StatusBadRequest, false, "Invalid group id!", nil)
		}

		db := database.Database.Db

		var group models.ModuleGroup
		if err := db.First(&group, groupID).Error; err != nil {
			return JsonResponse(c, fiber.StatusNotFound, false, "Group not found!", nil)
		}

		var module models.Module
		if err := db.First(&module, group.ModuleID).Error; err != nil {
			return JsonResponse(c, fiber.StatusNotFound, false, "Module not found!", nil)
		}

		var enrollment models.CourseUser
		err = db.Where("user_id = ? AND course_id = ? AND role = ? AND is_active = ?",
			userID, module.CourseID, requiredRole, true).First(&enrollment).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
			}
			return JsonResponse(c, fiber.StatusInternalServerError, false, "Server error while checking permissions!", nil)
		}

		c.Locals("groupID", uint(groupID))
		c.Locals("courseUserId", enrollment.ID)
		return c.Next()
	}
}
