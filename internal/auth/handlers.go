package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/aldoetobex/jis-backend/pkg/apperrors"
	"github.com/aldoetobex/jis-backend/pkg/models"
	"github.com/aldoetobex/jis-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

// Request body for /signup
type SignupRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=120"`
	FullName string `json:"full_name" validate:"required,min=2,max=120"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required,role"`
}

// Request body for /login. Login accepts a username or an e-mail address.
type LoginRequest struct {
	Login    string `json:"login" validate:"required,max=120"`
	Password string `json:"password" validate:"required"`
}

// Standard auth response
type AuthResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// Profile response for /me
type UserProfileResponse struct {
	ID        uuid.UUID   `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FullName  string      `json:"full_name"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

/* ============================== Handler ================================= */

// SignupHook runs after a new user has been stored.
type SignupHook func(ctx context.Context, u models.User, ip string)

type Handler struct {
	db       *gorm.DB
	issuer   *Issuer
	onSignup []SignupHook
}

func NewHandler(db *gorm.DB, issuer *Issuer, onSignup ...SignupHook) *Handler {
	return &Handler{db: db, issuer: issuer, onSignup: onSignup}
}

/* =============================== Signup ================================= */

// @Summary      Sign up
// @Description  Register a new judge, lawyer or registrar
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  SignupRequest  true  "Signup payload"
// @Success      201      {object}  AuthResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      409      {object}  models.ErrorResponse  "username or email already exists"
// @Router       /signup [post]
func (h *Handler) Signup(c *fiber.Ctx) error {
	var in SignupRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	u := models.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: string(hash),
		Role:         models.Role(in.Role),
	}
	if err := h.db.WithContext(c.UserContext()).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateUser
		}
		return apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	for _, hook := range h.onSignup {
		hook(c.UserContext(), u, c.IP())
	}

	token, err := h.issuer.Issue(u.ID, u.Role)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{Token: token, Role: string(u.Role)})
}

/* ================================ Login ================================= */

// @Summary      Login
// @Description  Authenticate with username or email and receive a JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  LoginRequest  true  "Login payload"
// @Success      200      {object}  AuthResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      401      {object}  models.ErrorResponse
// @Router       /login [post]
func (h *Handler) Login(c *fiber.Ctx) error {
	var in LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	in.Login = strings.TrimSpace(in.Login)

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var u models.User
	err := h.db.WithContext(c.UserContext()).
		Where("username = ? OR email = ?", in.Login, strings.ToLower(in.Login)).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidCredentials
		}
		return apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return apperrors.ErrInvalidCredentials
	}

	token, err := h.issuer.Issue(u.ID, u.Role)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return c.JSON(AuthResponse{Token: token, Role: string(u.Role)})
}

/* ================================= Me =================================== */

// @Summary      Get current user profile
// @Description  Return the profile of the authenticated user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  UserProfileResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /me [get]
func (h *Handler) Me(c *fiber.Ctx) error {
	actor := ActorFrom(c)

	var u models.User
	if err := h.db.WithContext(c.UserContext()).First(&u, "id = ?", actor.UserID).Error; err != nil {
		return apperrors.ErrUnauthorized
	}

	return c.JSON(UserProfileResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	})
}
