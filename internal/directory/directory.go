// Package directory lists judges, lawyers and registrars for the scheduling
// and assignment forms. Listings are cached per role.
package directory

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/aldoetobex/jis-backend/pkg/apperrors"
	"github.com/aldoetobex/jis-backend/pkg/models"
)

// Person is the public view of a user.
type Person struct {
	ID       uuid.UUID   `json:"id"`
	Username string      `json:"username"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
}

// Directory serves role listings from a TTL cache backed by the users table.
type Directory struct {
	db    *gorm.DB
	cache *cache.Cache
}

// New creates a directory whose entries expire after ttl.
func New(db *gorm.DB, ttl time.Duration) *Directory {
	return &Directory{
		db:    db,
		cache: cache.New(ttl, ttl*2),
	}
}

func cacheKey(role models.Role) string { return "directory:" + string(role) }

// ByRole returns every user with the given role ordered by full name.
func (d *Directory) ByRole(ctx context.Context, role models.Role) ([]Person, error) {
	if !role.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown role")
	}
	if data, found := d.cache.Get(cacheKey(role)); found {
		if people, ok := data.([]Person); ok {
			return people, nil
		}
	}

	people := make([]Person, 0)
	if err := d.db.WithContext(ctx).
		Model(&models.User{}).
		Select("id, username, full_name, role").
		Where("role = ?", role).
		Order("full_name ASC").
		Scan(&people).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	d.cache.Set(cacheKey(role), people, cache.DefaultExpiration)
	return people, nil
}

// Invalidate drops the cached listing for role.
func (d *Directory) Invalidate(role models.Role) {
	d.cache.Delete(cacheKey(role))
}

// UserCreated drops the listing the new user belongs to.
func (d *Directory) UserCreated(_ context.Context, u models.User, _ string) {
	d.Invalidate(u.Role)
}

/* ============================== Handler ================================= */

// @Summary      List users by role
// @Description  Judges, lawyers or registrars for assignment and scheduling forms
// @Tags         directory
// @Security     BearerAuth
// @Produce      json
// @Param        role  path  string  true  "judge | lawyer | registrar"
// @Success      200   {array}   Person
// @Failure      400   {object}  models.ErrorResponse
// @Router       /directory/{role} [get]
func (d *Directory) List(c *fiber.Ctx) error {
	people, err := d.ByRole(c.UserContext(), models.Role(c.Params("role")))
	if err != nil {
		return err
	}
	return c.JSON(people)
}
