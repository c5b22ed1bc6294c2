package validation

import "github.com/gofiber/fiber/v2"

// Respond writes a 400 with the Laravel-style error shape.
func Respond(c *fiber.Ctx, errs map[string][]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errs,
	})
}

// Field builds a single-field error map, for checks the validator cannot express.
func Field(name, msg string) map[string][]string {
	return map[string][]string{name: {msg}}
}
