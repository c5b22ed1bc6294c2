// Package access decides whether a lawyer may view a case's full record and
// charges the one-time browsing fee.
package access

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aldoetobex/jis-backend/internal/assignments"
	"github.com/aldoetobex/jis-backend/internal/audit"
	"github.com/aldoetobex/jis-backend/internal/metrics"
	"github.com/aldoetobex/jis-backend/pkg/apperrors"
	"github.com/aldoetobex/jis-backend/pkg/models"
)

// DefaultFeeCents is the browsing fee: 10.00.
const DefaultFeeCents = 1000

// GrantResult is the outcome of a payment request.
type GrantResult struct {
	Granted     bool `json:"granted"`
	AlreadyPaid bool `json:"already_paid"`
	Assigned    bool `json:"assigned"`
	FeeCents    int  `json:"fee_cents"` // charged by this call
}

// Decision says whether an actor may open a case record.
type Decision struct {
	CaseID   uuid.UUID `json:"case_id"`
	CIN      string    `json:"cin"`
	Allowed  bool      `json:"allowed"`
	Assigned bool      `json:"assigned"`
	Paid     bool      `json:"paid"`
	FeeCents int       `json:"fee_cents"` // fee due when not allowed
}

// HistoryItem is one paid access in a lawyer's history.
type HistoryItem struct {
	CaseID        uuid.UUID `json:"case_id"`
	CIN           string    `json:"cin"`
	DefendantName string    `json:"defendant_name"`
	CrimeType     string    `json:"crime_type"`
	Status        string    `json:"status"`
	FeeCents      int       `json:"fee_cents"`
	AccessedAt    time.Time `json:"accessed_at"`
}

// Gate grants and checks case access.
type Gate struct {
	db       *gorm.DB
	audit    audit.Recorder
	metrics  *metrics.Metrics
	feeCents int
	now      func() time.Time
}

// NewGate creates a gate charging feeCents per (lawyer, CIN). A non-positive
// fee falls back to DefaultFeeCents. m may be nil.
func NewGate(db *gorm.DB, rec audit.Recorder, m *metrics.Metrics, feeCents int) *Gate {
	if feeCents <= 0 {
		feeCents = DefaultFeeCents
	}
	return &Gate{db: db, audit: rec, metrics: m, feeCents: feeCents, now: time.Now}
}

// FeeCents returns the configured browsing fee.
func (g *Gate) FeeCents() int { return g.feeCents }

// Grant gives the acting lawyer access to the case. Assigned lawyers are never
// charged. Everyone else pays once per CIN; later calls report AlreadyPaid.
func (g *Gate) Grant(ctx context.Context, actor models.Actor, caseID uuid.UUID, cin string) (*GrantResult, error) {
	if !actor.Is(models.RoleLawyer) {
		return nil, apperrors.ErrForbidden
	}
	cin = strings.TrimSpace(cin)
	if caseID == uuid.Nil || cin == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid case data")
	}

	cs, err := g.loadCase(ctx, "id = ?", caseID)
	if err != nil {
		return nil, err
	}
	if cs.CIN != cin {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "case_id and cin do not match")
	}

	assigned, err := assignments.Holds(ctx, g.db, cs.ID, actor.UserID, models.RoleLawyer)
	if err != nil {
		g.metrics.ObserveGrant(metrics.GrantError, 0)
		return &GrantResult{}, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	if assigned {
		g.metrics.ObserveGrant(metrics.GrantAssigned, 0)
		return &GrantResult{Granted: true, Assigned: true}, nil
	}

	rec := models.BrowsingAccess{
		LawyerID:   actor.UserID,
		CaseID:     cs.ID,
		CIN:        cs.CIN,
		FeeCents:   g.feeCents,
		AccessedAt: g.now().UTC(),
	}
	tx := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lawyer_id"}, {Name: "cin"}},
			DoNothing: true,
		}).
		Create(&rec)
	if tx.Error != nil {
		g.metrics.ObserveGrant(metrics.GrantError, 0)
		return &GrantResult{}, apperrors.Wrap(apperrors.ErrPersistence, tx.Error)
	}
	if tx.RowsAffected == 0 {
		g.metrics.ObserveGrant(metrics.GrantAlreadyPaid, 0)
		return &GrantResult{Granted: true, AlreadyPaid: true}, nil
	}

	g.metrics.ObserveGrant(metrics.GrantCharged, g.feeCents)
	g.audit.Record(ctx, audit.ActorEntry(actor, models.AuditInsert, "case_browsing_history", rec.ID.String(), nil, rec))
	return &GrantResult{Granted: true, FeeCents: g.feeCents}, nil
}

// Check decides whether actor may open the record of the case with cin.
// Registrars and judges always may; lawyers when assigned or paid. It never
// writes.
func (g *Gate) Check(ctx context.Context, actor models.Actor, cin string) (*Decision, error) {
	cs, err := g.loadCase(ctx, "cin = ?", strings.TrimSpace(cin))
	if err != nil {
		return nil, err
	}
	return g.decide(ctx, actor, cs)
}

// CheckCase is Check keyed by case id.
func (g *Gate) CheckCase(ctx context.Context, actor models.Actor, caseID uuid.UUID) (*Decision, error) {
	cs, err := g.loadCase(ctx, "id = ?", caseID)
	if err != nil {
		return nil, err
	}
	return g.decide(ctx, actor, cs)
}

func (g *Gate) decide(ctx context.Context, actor models.Actor, cs *models.Case) (*Decision, error) {
	d := &Decision{CaseID: cs.ID, CIN: cs.CIN}
	switch actor.Role {
	case models.RoleRegistrar, models.RoleJudge:
		d.Allowed = true
		return d, nil
	case models.RoleLawyer:
	default:
		return nil, apperrors.ErrForbidden
	}

	assigned, err := assignments.Holds(ctx, g.db, cs.ID, actor.UserID, models.RoleLawyer)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	if assigned {
		d.Allowed, d.Assigned = true, true
		return d, nil
	}

	var n int64
	if err := g.db.WithContext(ctx).
		Model(&models.BrowsingAccess{}).
		Where("lawyer_id = ? AND cin = ?", actor.UserID, cs.CIN).
		Count(&n).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	if n > 0 {
		d.Allowed, d.Paid = true, true
		return d, nil
	}
	d.FeeCents = g.feeCents
	return d, nil
}

// History lists the acting lawyer's paid accesses, newest first, with the
// total spent.
func (g *Gate) History(ctx context.Context, actor models.Actor) ([]HistoryItem, int, error) {
	if !actor.Is(models.RoleLawyer) {
		return nil, 0, apperrors.ErrForbidden
	}

	items := make([]HistoryItem, 0)
	if err := g.db.WithContext(ctx).
		Table("case_browsing_history AS h").
		Select("h.case_id, h.cin, cases.defendant_name, cases.crime_type, cases.status, h.fee_cents, h.accessed_at").
		Joins("JOIN cases ON cases.id = h.case_id").
		Where("h.lawyer_id = ?", actor.UserID).
		Order("h.accessed_at DESC").
		Scan(&items).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	total := 0
	for _, it := range items {
		total += it.FeeCents
	}
	return items, total, nil
}

func (g *Gate) loadCase(ctx context.Context, query string, arg any) (*models.Case, error) {
	var cs models.Case
	if err := g.db.WithContext(ctx).First(&cs, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCaseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return &cs, nil
}
