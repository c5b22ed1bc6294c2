package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aldoetobex/jis-backend/internal/logger"
	"github.com/aldoetobex/jis-backend/pkg/apperrors"
	"github.com/aldoetobex/jis-backend/pkg/models"
)

/* ============================== JWT Claims ============================== */

// Claims represents the JWT payload we issue and expect.
type Claims struct {
	Sub  string `json:"sub"`  // user ID
	Role string `json:"role"` // "judge" | "lawyer" | "registrar"
	jwt.RegisteredClaims
}

/* ============================== JWT Helpers ============================= */

// Issuer signs and verifies HS256 tokens with a fixed secret and lifetime.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an issuer. A non-positive ttl falls back to 7 days.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given user and role.
func (i *Issuer) Issue(userID uuid.UUID, role models.Role) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:  userID.String(),
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}

// Parse verifies a token and returns its claims.
func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, apperrors.ErrUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	if _, err := uuid.Parse(claims.Sub); err != nil || !models.Role(claims.Role).Valid() {
		return nil, apperrors.ErrUnauthorized
	}
	return claims, nil
}

/* ============================== Middleware ============================== */

// RequireAuth validates a Bearer JWT and injects userID and role into the context.
func (i *Issuer) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			return apperrors.ErrUnauthorized
		}

		claims, err := i.Parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			return err
		}

		c.Locals("userID", claims.Sub)
		c.Locals("role", claims.Role)
		return c.Next()
	}
}

// MustUserID reads the authenticated user ID from context or panics (programming error).
func MustUserID(c *fiber.Ctx) string {
	if v := c.Locals("userID"); v != nil {
		return v.(string)
	}
	panic(errors.New("user not in context"))
}

// MustRole reads the authenticated user role from context or panics (programming error).
func MustRole(c *fiber.Ctx) string {
	if v := c.Locals("role"); v != nil {
		return v.(string)
	}
	panic(errors.New("role not in context"))
}

// ActorFrom builds the request actor from the values RequireAuth stored.
func ActorFrom(c *fiber.Ctx) models.Actor {
	id, _ := uuid.Parse(MustUserID(c))
	return models.Actor{
		UserID: id,
		Role:   models.Role(MustRole(c)),
		IP:     c.IP(),
	}
}

// RequireRole ensures the authenticated user holds one of the given roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := models.Role(MustRole(c))
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return apperrors.ErrForbidden
	}
}

/* =========================== Error Formatting =========================== */

// httpCodeToString converts an HTTP status code to a short, stable string.
func httpCodeToString(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusPaymentRequired:
		return "PAYMENT_REQUIRED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusUnprocessableEntity:
		return "UNPROCESSABLE_ENTITY"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

// ErrorHandler is a global Fiber error handler that returns a consistent JSON shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// Service errors carry their own code and status
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.StatusCode >= fiber.StatusInternalServerError {
			logger.Get().Errorw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"code", appErr.Code,
				"error", appErr.Internal,
			)
		}
		return c.Status(appErr.StatusCode).JSON(models.ErrorResponse{
			Code:    appErr.Code,
			Error:   true,
			Message: appErr.Message,
		})
	}

	// Defaults
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	// Fiber errors carry status codes
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if strings.TrimSpace(fe.Message) != "" {
			msg = fe.Message
		}
	} else {
		logger.Get().Errorw("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Code:    httpCodeToString(code),
		Error:   true,
		Message: msg,
	})
}
