package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/jis-backend/pkg/models"
)

// CreateUser inserts a user with the given role and a random username.
func CreateUser(t *testing.T, db *gorm.DB, role models.Role) models.User {
	t.Helper()
	short := uuid.NewString()[:8]
	u := models.User{
		Username:     string(role) + "_" + short,
		Email:        string(role) + "_" + short + "@court.test",
		FullName:     "Test " + string(role),
		PasswordHash: "x",
		Role:         role,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

// CreateCase inserts a case with the given CIN and defendant.
func CreateCase(t *testing.T, db *gorm.DB, cin, defendant string, status models.CaseStatus) models.Case {
	t.Helper()
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	cs := models.Case{
		CIN:              cin,
		DefendantName:    defendant,
		DefendantAddress: "12 Court Road",
		CrimeType:        "theft",
		CrimeDate:        day.AddDate(0, 0, -7),
		CrimeLocation:    "Market street",
		ArrestingOfficer: "Officer Reyes",
		ArrestDate:       day.AddDate(0, 0, -5),
		ProsecutorName:   "P. Mason",
		SeverityLevel:    "medium",
		ComplexityLevel:  "moderate",
		Status:           status,
		StartDate:        day,
	}
	if err := db.Create(&cs).Error; err != nil {
		t.Fatalf("failed to create case: %v", err)
	}
	return cs
}

// Assign inserts an active assignment of user to the case in the given role.
func Assign(t *testing.T, db *gorm.DB, caseID, userID uuid.UUID, role models.Role) models.CaseAssignment {
	t.Helper()
	a := models.CaseAssignment{
		CaseID:     caseID,
		UserID:     userID,
		Role:       role,
		Status:     models.AssignmentActive,
		AssignedAt: time.Now().UTC(),
	}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("failed to create assignment: %v", err)
	}
	return a
}

// Actor builds a request actor for the given user.
func Actor(u models.User) models.Actor {
	return models.Actor{UserID: u.ID, Role: u.Role, IP: "127.0.0.1"}
}

// Count returns the number of rows of model matching the optional condition.
func Count(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return n
}
