package identity

import (
	"github.com/dukex/pcp/pkg/models"
	"github.com/gofiber/fiber/v3"
)

const callerKey = "pcp.caller"

// Middleware resolves the caller of every request and stores it in the request locals.
// Requests with invalid credentials stop here with a 401.
func Middleware(a *Authenticator) fiber.Handler {
	return func(c fiber.Ctx) error {
		caller, err := a.Resolve(c.Get(fiber.HeaderAuthorization), func(name string) string {
			return c.Get(name)
		})
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		c.Locals(callerKey, caller)

		return c.Next()
	}
}

// Caller returns the caller resolved by Middleware, or the anonymous caller.
func Caller(c fiber.Ctx) models.Caller {
	caller, ok := c.Locals(callerKey).(models.Caller)
	if !ok {
		return models.Caller{}
	}

	return caller
}
