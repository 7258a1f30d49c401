package groupController

import (
	"errors"

	"astrolab/database"
	"astrolab/middleware"
	"astrolab/models"
	"astrolab/services"

	"github.com/gofiber/fiber/v2"
)

// currentCourseUser resolves the caller's enrollment in the course the
// module belongs to.
func currentCourseUser(c *fiber.Ctx, moduleID uint) (*models.CourseUser, bool) {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return nil, false
	}

	db := database.Database.Db

	var module models.Module
	if err := db.First(&module, moduleID).Error; err != nil {
		return nil, false
	}

	var enrollment models.CourseUser
	err := db.Where("user_id = ? AND course_id = ? AND is_active = ?",
		userID, module.CourseID, true).First(&enrollment).Error
	if err != nil {
		return nil, false
	}
	return &enrollment, true
}

// groupModuleID looks up the module a group belongs to.
func groupModuleID(groupID uint) (uint, bool) {
	var group models.ModuleGroup
	if err := database.Database.Db.First(&group, groupID).Error; err != nil {
		return 0, false
	}
	return group.ModuleID, true
}

// respondAlterationError translates the domain error into a 409; anything
// else is a server error.
func respondAlterationError(c *fiber.Ctx, err error) error {
	var alteration *services.GroupAlterationError
	if errors.As(err, &alteration) {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, alteration.Message, nil)
	}
	return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update group!", nil)
}

// CreateGroup creates a new group for the module with the caller as its
// first member.
func CreateGroup(c *fiber.Ctx) error {
	moduleID := c.Locals("moduleID").(uint)

	enrollment, ok := currentCourseUser(c, moduleID)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You are not enrolled in this course!", nil)
	}

	service := services.NewGroupService(database.Database.Db)
	group, err := service.CreateGroup(enrollment.ID, moduleID)
	if err != nil {
		return respondAlterationError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Group created!", group)
}

// JoinGroup adds the caller to an existing group in the module.
func JoinGroup(c *fiber.Ctx) error {
	moduleID := c.Locals("moduleID").(uint)
	groupID := c.Locals("groupID").(uint)

	enrollment, ok := currentCourseUser(c, moduleID)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You are not enrolled in this course!", nil)
	}

	service := services.NewGroupService(database.Database.Db)
	members, err := service.JoinGroup(enrollment.ID, moduleID, groupID)
	if err != nil {
		return respondAlterationError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Joined group!", members)
}

// LeaveGroup removes the caller from the group. When the last member
// leaves, the group itself is removed.
func LeaveGroup(c *fiber.Ctx) error {
	groupID := c.Locals("groupID").(uint)

	moduleID, ok := groupModuleID(groupID)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Group not found!", nil)
	}

	enrollment, ok := currentCourseUser(c, moduleID)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You are not enrolled in this course!", nil)
	}

	service := services.NewGroupService(database.Database.Db)
	members, err := service.RemoveFromGroup(groupID, enrollment.ID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to leave group!", nil)
	}

	if members == nil {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Left group; group removed.", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Left group!", members)
}

// GetMyGroup returns the caller's group for the module, if any.
func GetMyGroup(c *fiber.Ctx) error {
	moduleID := c.Locals("moduleID").(uint)

	enrollment, ok := currentCourseUser(c, moduleID)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You are not enrolled in this course!", nil)
	}

	service := services.NewGroupService(database.Database.Db)
	group, err := service.GetGroup(enrollment.ID, moduleID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch group!", nil)
	}

	if group == nil {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "No group yet.", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Group found!", group)
}

// GetGroupMembers returns the active, enabled members of a group.
func GetGroupMembers(c *fiber.Ctx) error {
	groupID := c.Locals("groupID").(uint)

	service := services.NewGroupService(database.Database.Db)
	members, err := service.GetUsersInGroup(groupID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch members!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Group members.", members)
}

// GetFreeUsers lists students of the course who are not yet in a group for
// the module.
func GetFreeUsers(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uint)
	moduleID := c.Locals("moduleID").(uint)

	service := services.NewGroupService(database.Database.Db)
	users, err := service.GetFreeUsers(courseID, moduleID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch free users!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Free users.", users)
}
