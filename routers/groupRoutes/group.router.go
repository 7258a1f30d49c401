package groupRoutes

import (
	groupController "astrolab/controllers/group"
	"astrolab/middleware"
	"astrolab/models"
	groupValidator "astrolab/validators/group"

	"github.com/gofiber/fiber/v2"
)

// SetupGroupRoutes sets up all module-group routes
func SetupGroupRoutes(app *fiber.App) {
	moduleGroup := app.Group("/module")

	// Membership
	moduleGroup.Post("/:module_id/group", middleware.JWTMiddleware, groupValidator.ModuleParam(), groupController.CreateGroup)
	moduleGroup.Post("/:module_id/group/:group_id/join", middleware.JWTMiddleware, groupValidator.ModuleParam(), groupValidator.GroupParam(), groupController.JoinGroup)
	moduleGroup.Get("/:module_id/group", middleware.JWTMiddleware, groupValidator.ModuleParam(), groupController.GetMyGroup)

	groupGroup := app.Group("/group")

	groupGroup.Delete("/:group_id/member", middleware.JWTMiddleware, groupValidator.GroupParam(), groupController.LeaveGroup)
	groupGroup.Get("/:group_id/members", middleware.JWTMiddleware, groupValidator.GroupParam(), groupController.GetGroupMembers)

	// Checkin and lock
	groupGroup.Post("/:group_id/checkin", middleware.JWTMiddleware, groupValidator.GroupParam(), groupValidator.Checkin(), groupController.Checkin)
	groupGroup.Get("/:group_id/lock", middleware.JWTMiddleware, groupValidator.GroupParam(), groupController.LockStatus)

	// Answer lifecycle
	groupGroup.Get("/:group_id/answers", middleware.JWTMiddleware, groupValidator.GroupParam(), groupController.GetAnswers)
	groupGroup.Put("/:group_id/answers", middleware.JWTMiddleware, groupValidator.GroupParam(), groupValidator.SaveAnswers(), groupController.SaveAnswers)
	groupGroup.Post("/:group_id/submit", middleware.JWTMiddleware, groupValidator.GroupParam(), groupController.SubmitAnswers)
	groupGroup.Get("/:group_id/submission-number", middleware.JWTMiddleware, groupValidator.GroupParam(), groupController.GetSubmissionNumber)

	// Finalization is an instructor action
	groupGroup.Post("/:group_id/finalize", middleware.JWTMiddleware, middleware.RequireGroupRole(models.RoleInstructor), groupController.FinalizeGroup)

	// Free users for group formation
	courseGroup := app.Group("/course")
	courseGroup.Get("/:course_id/module/:module_id/free", middleware.JWTMiddleware, groupValidator.FreeUsersParams(), groupController.GetFreeUsers)
}
