// Package cases is the case registry: registration, listing, status changes,
// lawyer assignment, the gated full record, judgments and evidence files.
package cases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aldoetobex/jis-backend/internal/access"
	"github.com/aldoetobex/jis-backend/internal/assignments"
	"github.com/aldoetobex/jis-backend/internal/audit"
	"github.com/aldoetobex/jis-backend/internal/logger"
	"github.com/aldoetobex/jis-backend/pkg/apperrors"
	"github.com/aldoetobex/jis-backend/pkg/models"
	"github.com/aldoetobex/jis-backend/pkg/sanitize"
)

var severities = map[string]bool{"low": true, "medium": true, "high": true}
var complexities = map[string]bool{"simple": true, "moderate": true, "complex": true}

// transitions lists the statuses each status may move to.
var transitions = map[models.CaseStatus][]models.CaseStatus{
	models.CasePending:  {models.CaseClosed},
	models.CaseClosed:   {models.CaseReopened},
	models.CaseReopened: {models.CaseClosed},
}

// NewCase is a case registration.
type NewCase struct {
	CIN                    string
	DefendantName          string
	DefendantAddress       string
	CrimeType              string
	CrimeDate              time.Time
	CrimeLocation          string
	ArrestingOfficer       string
	ArrestDate             time.Time
	ProsecutorName         string
	Description            string
	SeverityLevel          string
	ComplexityLevel        string
	StartDate              time.Time
	ExpectedCompletionDate *time.Time
}

// ListFilter narrows a case listing.
type ListFilter struct {
	Status   string
	Query    string
	Page     int
	PageSize int
}

// CaseItem is one row of a case listing.
type CaseItem struct {
	ID            uuid.UUID         `json:"id"`
	CIN           string            `json:"cin"`
	DefendantName string            `json:"defendant_name"`
	CrimeType     string            `json:"crime_type"`
	Status        models.CaseStatus `json:"status"`
	StartDate     time.Time         `json:"start_date"`
	CreatedAt     time.Time         `json:"created_at"`
	JudgeID       *uuid.UUID        `json:"judge_id"`
	LawyerID      *uuid.UUID        `json:"lawyer_id"`
}

// PageCases is a page of the case listing.
type PageCases struct {
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
	Total    int64      `json:"total"`
	Pages    int        `json:"pages"`
	Items    []CaseItem `json:"items"`
}

// SearchItem is an anonymized search hit. The defendant is reduced to
// initials and the description to a redacted preview.
type SearchItem struct {
	ID                uuid.UUID         `json:"id"`
	CIN               string            `json:"cin"`
	CrimeType         string            `json:"crime_type"`
	Status            models.CaseStatus `json:"status"`
	StartDate         time.Time         `json:"start_date"`
	DefendantInitials string            `json:"defendant_initials"`
	Preview           string            `json:"preview"`
	HasAccess         bool              `json:"has_access"`
}

// PageSearch is a page of search hits.
type PageSearch struct {
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
	Total    int64        `json:"total"`
	Pages    int          `json:"pages"`
	FeeCents int          `json:"fee_cents"`
	Items    []SearchItem `json:"items"`
}

// Participant identifies an assigned judge or lawyer.
type Participant struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	FullName string    `json:"full_name"`
}

// Record is the full view of a case.
type Record struct {
	Case   models.Case      `json:"case"`
	Judge  *Participant     `json:"judge"`
	Lawyer *Participant     `json:"lawyer"`
	Access *access.Decision `json:"access"`
}

// PaymentRequiredError is returned by Record when a lawyer has not paid.
type PaymentRequiredError struct {
	Decision *access.Decision
}

func (e *PaymentRequiredError) Error() string {
	return fmt.Sprintf("payment of %d cents required for case %s", e.Decision.FeeCents, e.Decision.CIN)
}

// Unwrap lets errors.Is match apperrors.ErrPaymentRequired.
func (e *PaymentRequiredError) Unwrap() error { return apperrors.ErrPaymentRequired }

// Registry manages cases.
type Registry struct {
	db    *gorm.DB
	audit audit.Recorder
	gate  *access.Gate
	store ObjectStore
	now   func() time.Time
}

// NewRegistry creates a registry. store may be nil when evidence storage is
// not configured.
func NewRegistry(db *gorm.DB, rec audit.Recorder, gate *access.Gate, store ObjectStore) *Registry {
	return &Registry{db: db, audit: rec, gate: gate, store: store, now: time.Now}
}

/* ================================ Create ================================ */

// Create registers a new pending case.
func (r *Registry) Create(ctx context.Context, actor models.Actor, in NewCase) (*models.Case, error) {
	if !actor.Is(models.RoleRegistrar) {
		return nil, apperrors.ErrForbidden
	}
	if err := validateNewCase(&in); err != nil {
		return nil, err
	}

	cs := models.Case{
		CIN:                    in.CIN,
		DefendantName:          in.DefendantName,
		DefendantAddress:       in.DefendantAddress,
		CrimeType:              in.CrimeType,
		CrimeDate:              in.CrimeDate,
		CrimeLocation:          in.CrimeLocation,
		ArrestingOfficer:       in.ArrestingOfficer,
		ArrestDate:             in.ArrestDate,
		ProsecutorName:         in.ProsecutorName,
		Description:            in.Description,
		SeverityLevel:          in.SeverityLevel,
		ComplexityLevel:        in.ComplexityLevel,
		Status:                 models.CasePending,
		StartDate:              in.StartDate,
		ExpectedCompletionDate: in.ExpectedCompletionDate,
	}
	if err := r.db.WithContext(ctx).Create(&cs).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateCIN
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	r.audit.Record(ctx, audit.ActorEntry(actor, models.AuditInsert, "cases", cs.ID.String(), nil, cs))
	logger.Get().Infow("case registered", "case_id", cs.ID, "cin", cs.CIN)
	return &cs, nil
}

func validateNewCase(in *NewCase) error {
	in.CIN = strings.TrimSpace(in.CIN)
	in.DefendantName = strings.TrimSpace(in.DefendantName)
	in.CrimeType = strings.TrimSpace(in.CrimeType)
	if in.SeverityLevel == "" {
		in.SeverityLevel = "medium"
	}
	if in.ComplexityLevel == "" {
		in.ComplexityLevel = "moderate"
	}

	switch {
	case in.CIN == "":
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "cin is required")
	case in.DefendantName == "":
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "defendant_name is required")
	case in.CrimeType == "":
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "crime_type is required")
	case in.CrimeDate.IsZero() || in.ArrestDate.IsZero() || in.StartDate.IsZero():
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "crime_date, arrest_date and start_date are required")
	case in.CrimeDate.After(in.ArrestDate):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Crime date cannot be after arrest date")
	case in.ExpectedCompletionDate != nil && in.StartDate.After(*in.ExpectedCompletionDate):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Start date cannot be after completion date")
	case !severities[in.SeverityLevel]:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "severity_level must be low, medium or high")
	case !complexities[in.ComplexityLevel]:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "complexity_level must be simple, moderate or complex")
	}
	return nil
}

/* ================================= List ================================= */

// List returns a page of cases. Registrars see every case; judges and
// lawyers only the cases they are actively assigned to.
func (r *Registry) List(ctx context.Context, actor models.Actor, f ListFilter) (*PageCases, error) {
	page, size := normalizePage(f.Page, f.PageSize)

	q := r.db.WithContext(ctx).Model(&models.Case{})
	switch actor.Role {
	case models.RoleRegistrar:
	case models.RoleJudge, models.RoleLawyer:
		q = q.Where("id IN (?)", r.db.Model(&models.CaseAssignment{}).
			Select("case_id").
			Where("user_id = ? AND role = ? AND status = ?", actor.UserID, actor.Role, models.AssignmentActive))
	default:
		return nil, apperrors.ErrForbidden
	}
	if v := strings.TrimSpace(f.Status); v != "" {
		q = q.Where("status = ?", v)
	}
	q = keyword(q, f.Query)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	var list []models.Case
	if err := q.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&list).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	ids := make([]uuid.UUID, 0, len(list))
	for _, cs := range list {
		ids = append(ids, cs.ID)
	}
	held, err := assignments.ForCases(ctx, r.db, ids)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	items := make([]CaseItem, 0, len(list))
	for _, cs := range list {
		it := CaseItem{
			ID:            cs.ID,
			CIN:           cs.CIN,
			DefendantName: cs.DefendantName,
			CrimeType:     cs.CrimeType,
			Status:        cs.Status,
			StartDate:     cs.StartDate,
			CreatedAt:     cs.CreatedAt,
		}
		if id, ok := held[cs.ID][models.RoleJudge]; ok {
			it.JudgeID = &id
		}
		if id, ok := held[cs.ID][models.RoleLawyer]; ok {
			it.LawyerID = &id
		}
		items = append(items, it)
	}

	return &PageCases{
		Page:     page,
		PageSize: size,
		Total:    total,
		Pages:    pages(total, size),
		Items:    items,
	}, nil
}

/* ================================ Search ================================ */

// Search looks up cases by CIN, defendant or crime type across the whole
// registry and returns anonymized hits. HasAccess tells a lawyer whether the
// full record is already open to them.
func (r *Registry) Search(ctx context.Context, actor models.Actor, query string, page, size int) (*PageSearch, error) {
	if !actor.Role.Valid() {
		return nil, apperrors.ErrForbidden
	}
	page, size = normalizePage(page, size)

	q := keyword(r.db.WithContext(ctx).Model(&models.Case{}), query)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	var list []models.Case
	if err := q.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&list).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	open, err := r.openTo(ctx, actor, list)
	if err != nil {
		return nil, err
	}

	items := make([]SearchItem, 0, len(list))
	for _, cs := range list {
		items = append(items, SearchItem{
			ID:                cs.ID,
			CIN:               cs.CIN,
			CrimeType:         cs.CrimeType,
			Status:            cs.Status,
			StartDate:         cs.StartDate,
			DefendantInitials: sanitize.Initials(cs.DefendantName),
			Preview:           sanitize.Summary(sanitize.RedactPII(cs.Description), 240),
			HasAccess:         open[cs.ID],
		})
	}

	return &PageSearch{
		Page:     page,
		PageSize: size,
		Total:    total,
		Pages:    pages(total, size),
		FeeCents: r.gate.FeeCents(),
		Items:    items,
	}, nil
}

// openTo returns the cases in list whose record actor may open. Lawyers are
// resolved in two queries for the whole page.
func (r *Registry) openTo(ctx context.Context, actor models.Actor, list []models.Case) (map[uuid.UUID]bool, error) {
	open := make(map[uuid.UUID]bool, len(list))
	if !actor.Is(models.RoleLawyer) {
		for _, cs := range list {
			open[cs.ID] = true
		}
		return open, nil
	}
	if len(list) == 0 {
		return open, nil
	}

	ids := make([]uuid.UUID, 0, len(list))
	for _, cs := range list {
		ids = append(ids, cs.ID)
	}

	var paid []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.BrowsingAccess{}).
		Where("lawyer_id = ? AND case_id IN ?", actor.UserID, ids).
		Pluck("case_id", &paid).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	var assigned []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.CaseAssignment{}).
		Where("user_id = ? AND role = ? AND status = ? AND case_id IN ?", actor.UserID, models.RoleLawyer, models.AssignmentActive, ids).
		Pluck("case_id", &assigned).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	for _, id := range append(paid, assigned...) {
		open[id] = true
	}
	return open, nil
}

/* ============================= Status change ============================ */

// UpdateStatus moves a case along pending -> closed -> reopened -> closed.
func (r *Registry) UpdateStatus(ctx context.Context, actor models.Actor, caseID uuid.UUID, to models.CaseStatus) (*models.Case, error) {
	if !actor.Is(models.RoleRegistrar) {
		return nil, apperrors.ErrForbidden
	}

	var (
		cs   models.Case
		from models.CaseStatus
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cs, "id = ?", caseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrCaseNotFound
			}
			return apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		from = cs.Status
		if !allowed(from, to) {
			return apperrors.WithMessage(apperrors.ErrInvalidStatusTransition,
				fmt.Sprintf("Cannot change case status from %s to %s", from, to))
		}
		cs.Status = to
		cs.UpdatedAt = r.now().UTC()
		if err := tx.Model(&cs).Updates(map[string]any{"status": to, "updated_at": cs.UpdatedAt}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	r.audit.Record(ctx, audit.ActorEntry(actor, models.AuditUpdate, "cases", cs.ID.String(),
		map[string]any{"status": from}, map[string]any{"status": to}))
	return &cs, nil
}

func allowed(from, to models.CaseStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

/* ============================== Assignment ============================== */

// AssignLawyer makes lawyerID the case's active lawyer. It returns nil when
// the lawyer already holds the case.
func (r *Registry) AssignLawyer(ctx context.Context, actor models.Actor, caseID, lawyerID uuid.UUID) (*assignments.Change, error) {
	if !actor.Is(models.RoleRegistrar) {
		return nil, apperrors.ErrForbidden
	}

	var change *assignments.Change
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cs models.Case
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cs, "id = ?", caseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrCaseNotFound
			}
			return apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		if cs.Status == models.CaseClosed {
			return apperrors.ErrCaseClosed
		}

		var n int64
		if err := tx.Model(&models.User{}).
			Where("id = ? AND role = ?", lawyerID, models.RoleLawyer).
			Count(&n).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		if n == 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "lawyer_id must refer to a lawyer")
		}

		ch, err := assignments.Replace(ctx, tx, cs.ID, models.RoleLawyer, lawyerID, r.now().UTC())
		if err != nil {
			return apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		change = ch
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}
	if change == nil {
		return nil, nil
	}

	for _, e := range assignments.AuditEntries(actor, *change) {
		r.audit.Record(ctx, e)
	}
	return change, nil
}

/* ================================ Record ================================ */

// Record returns the full case with hearings (newest first), judgments and
// evidence. A lawyer who is neither assigned nor paid gets a
// *PaymentRequiredError carrying the fee.
func (r *Registry) Record(ctx context.Context, actor models.Actor, cin string) (*Record, error) {
	d, err := r.gate.Check(ctx, actor, cin)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, &PaymentRequiredError{Decision: d}
	}

	var cs models.Case
	if err := r.db.WithContext(ctx).
		Preload("Hearings", func(db *gorm.DB) *gorm.DB { return db.Order("scheduled_at DESC") }).
		Preload("Judgments", func(db *gorm.DB) *gorm.DB { return db.Order("judgment_date DESC") }).
		Preload("Evidence", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&cs, "id = ?", d.CaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCaseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	out := &Record{Case: cs, Access: d}
	var people []assignedPerson
	if err := r.db.WithContext(ctx).
		Table("case_assignments AS a").
		Select("users.id, users.username, users.full_name, a.role").
		Joins("JOIN users ON users.id = a.user_id").
		Where("a.case_id = ? AND a.status = ?", cs.ID, models.AssignmentActive).
		Scan(&people).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	for _, ap := range people {
		p := Participant{ID: ap.ID, Username: ap.Username, FullName: ap.FullName}
		switch ap.Role {
		case models.RoleJudge:
			out.Judge = &p
		case models.RoleLawyer:
			out.Lawyer = &p
		}
	}
	return out, nil
}

type assignedPerson struct {
	ID       uuid.UUID
	Username string
	FullName string
	Role     models.Role
}

/* =============================== Judgment =============================== */

// AddJudgment records a judgment by the case's actively assigned judge.
func (r *Registry) AddJudgment(ctx context.Context, actor models.Actor, caseID uuid.UUID, date time.Time, summary string, status models.JudgmentStatus) (*models.Judgment, error) {
	if !actor.Is(models.RoleJudge) {
		return nil, apperrors.ErrForbidden
	}
	summary = strings.TrimSpace(summary)
	if summary == "" || date.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "judgment_date and summary are required")
	}
	if status == "" {
		status = models.JudgmentDraft
	}
	switch status {
	case models.JudgmentDraft, models.JudgmentFinal, models.JudgmentAppealed:
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be draft, final or appealed")
	}

	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Case{}).Where("id = ?", caseID).Count(&n).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	if n == 0 {
		return nil, apperrors.ErrCaseNotFound
	}
	ok, err := assignments.Holds(ctx, r.db, caseID, actor.UserID, models.RoleJudge)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "Only the presiding judge can record a judgment")
	}

	j := models.Judgment{
		CaseID:       caseID,
		JudgeID:      actor.UserID,
		JudgmentDate: date,
		Summary:      summary,
		Status:       status,
	}
	if err := r.db.WithContext(ctx).Create(&j).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	r.audit.Record(ctx, audit.ActorEntry(actor, models.AuditInsert, "judgments", j.ID.String(), nil, j))
	return &j, nil
}

/* =============================== Helpers ================================ */

// keyword applies the case-insensitive CIN / defendant / crime type search.
func keyword(q *gorm.DB, term string) *gorm.DB {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return q
	}
	like := "%" + term + "%"
	return q.Where("(LOWER(cin) LIKE ? OR LOWER(defendant_name) LIKE ? OR LOWER(crime_type) LIKE ?)", like, like, like)
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 10
	}
	return page, size
}

func pages(total int64, size int) int {
	return int(math.Ceil(float64(total) / float64(size)))
}

func asAppError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Wrap(apperrors.ErrPersistence, err)
}
