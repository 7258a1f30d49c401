package groupValidator

import (
	"strconv"
	"strings"

	"astrolab/middleware"

	"github.com/gofiber/fiber/v2"
)

// parseIDParam reads a positive integer path parameter
func parseIDParam(c *fiber.Ctx, name string) (uint, bool) {
	value, err := strconv.Atoi(c.Params(name))
	if err != nil || value < 1 {
		return 0, false
	}
	return uint(value), true
}

// ModuleParam validates the :module_id path parameter
func ModuleParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		moduleID, ok := parseIDParam(c, "module_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid module id!", nil)
		}
		c.Locals("moduleID", moduleID)
		return c.Next()
	}
}

// GroupParam validates the :group_id path parameter
func GroupParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		groupID, ok := parseIDParam(c, "group_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid group id!", nil)
		}
		c.Locals("groupID", groupID)
		return c.Next()
	}
}

// FreeUsersParams validates the :course_id and :module_id path parameters
func FreeUsersParams() fiber.Handler {
	return func(c *fiber.Ctx) error {
		errors := make(map[string]string)

		courseID, ok := parseIDParam(c, "course_id")
		if !ok {
			errors["course_id"] = "Invalid course id!"
		}
		moduleID, ok := parseIDParam(c, "module_id")
		if !ok {
			errors["module_id"] = "Invalid module id!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("courseID", courseID)
		c.Locals("moduleID", moduleID)
		return c.Next()
	}
}

// Checkin validates the checkin request body
func Checkin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if strings.TrimSpace(reqData.Email) == "" {
			errors["email"] = "Email is required!"
		}
		if reqData.Password == "" {
			errors["password"] = "Password is required!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCheckin", reqData)
		return c.Next()
	}
}

// SaveAnswers validates the draft update body
func SaveAnswers() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Answers map[uint]string `json:"answers"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if len(reqData.Answers) == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"answers": "At least one answer is required!",
			})
		}

		c.Locals("validatedAnswers", reqData)
		return c.Next()
	}
}
