package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
}

// SendSuccess writes a 200 envelope.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return send(c, fiber.StatusOK, true, orDefault(message, "success"), data)
}

// SendError writes a failure envelope without details.
func SendError(c *fiber.Ctx, status int, message string) error {
	return send(c, status, false, orDefault(message, "error"), nil)
}

// SendErrorWithData writes a failure envelope whose data explains the rejection, such as
// the offending field or the submissions blocking a publish.
func SendErrorWithData(c *fiber.Ctx, status int, message string, data interface{}) error {
	return send(c, status, false, orDefault(message, "error"), data)
}

func send(c *fiber.Ctx, status int, success bool, message string, data interface{}) error {
	if status == 0 {
		status = fiber.StatusInternalServerError
		if success {
			status = fiber.StatusOK
		}
	}
	return c.Status(status).JSON(APIResponse{Success: success, Data: data, Message: message})
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
