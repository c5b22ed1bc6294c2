package audit

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aldoetobex/jis-backend/pkg/apperrors"
	"github.com/aldoetobex/jis-backend/pkg/models"
)

// MaxRows caps a single listing or export.
const MaxRows = 500

var sortColumns = map[string]string{
	"action_timestamp": "audit_logs.created_at",
	"created_at":       "audit_logs.created_at",
	"user_id":          "audit_logs.user_id",
	"action_type":      "audit_logs.action_type",
	"table_name":       "audit_logs.table_name",
}

// Filter narrows an audit listing. Zero values are ignored.
type Filter struct {
	UserID    string `query:"user_id"`
	Action    string `query:"action_type"`
	Table     string `query:"table_name"`
	RecordID  string `query:"record_id"`
	DateFrom  string `query:"date_from"` // YYYY-MM-DD, inclusive
	DateTo    string `query:"date_to"`   // YYYY-MM-DD, inclusive
	SortBy    string `query:"sort_by"`
	SortOrder string `query:"sort_order"`
}

// Row is an audit entry joined with the actor's identity and a readable
// reference to the touched record.
type Row struct {
	ID              uuid.UUID      `json:"id"`
	UserID          *uuid.UUID     `json:"user_id"`
	Username        string         `json:"username"`
	FullName        string         `json:"full_name"`
	UserRole        string         `json:"user_role"`
	ActionType      string         `json:"action_type"`
	TableName       string         `json:"table_name"`
	RecordID        string         `json:"record_id"`
	RecordReference string         `json:"record_reference"`
	OldValues       datatypes.JSON `json:"old_values,omitempty"`
	NewValues       datatypes.JSON `json:"new_values,omitempty"`
	IPAddress       string         `json:"ip_address"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Reader serves filtered audit listings to registrars.
type Reader struct{ db *gorm.DB }

// NewReader creates a reader over db.
func NewReader(db *gorm.DB) *Reader { return &Reader{db: db} }

// List returns at most MaxRows entries matching f.
func (r *Reader) List(ctx context.Context, actor models.Actor, f Filter) ([]Row, error) {
	if !actor.Is(models.RoleRegistrar) {
		return nil, apperrors.ErrForbidden
	}
	q, err := r.build(ctx, f)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0)
	if err := q.Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	for i := range rows {
		rows[i].RecordReference = reference(rows[i])
	}
	return rows, nil
}

// ExportCSV writes the entries matching f to w as CSV with a header row.
func (r *Reader) ExportCSV(ctx context.Context, actor models.Actor, f Filter, w io.Writer) error {
	rows, err := r.List(ctx, actor, f)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"Timestamp", "User", "Role", "Action", "Table", "Record", "Old Values", "New Values", "IP Address",
	})
	for _, row := range rows {
		user := row.Username
		if user == "" {
			user = "System"
		}
		_ = cw.Write([]string{
			row.CreatedAt.UTC().Format(time.RFC3339),
			user,
			row.UserRole,
			row.ActionType,
			row.TableName,
			row.RecordReference,
			string(row.OldValues),
			string(row.NewValues),
			row.IPAddress,
		})
	}
	cw.Flush()
	return cw.Error()
}

func (r *Reader) build(ctx context.Context, f Filter) (*gorm.DB, error) {
	q := r.db.WithContext(ctx).
		Table("audit_logs").
		Select(`audit_logs.id, audit_logs.user_id, audit_logs.action_type, audit_logs.table_name,
          audit_logs.record_id, audit_logs.old_values, audit_logs.new_values,
          audit_logs.ip_address, audit_logs.created_at,
          users.username, users.full_name, users.role AS user_role`).
		Joins("LEFT JOIN users ON users.id = audit_logs.user_id")

	if v := strings.TrimSpace(f.UserID); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid user_id")
		}
		q = q.Where("audit_logs.user_id = ?", id)
	}
	if v := strings.TrimSpace(f.Action); v != "" {
		q = q.Where("audit_logs.action_type = ?", v)
	}
	if v := strings.TrimSpace(f.Table); v != "" {
		q = q.Where("audit_logs.table_name = ?", v)
	}
	if v := strings.TrimSpace(f.RecordID); v != "" {
		q = q.Where("audit_logs.record_id = ?", v)
	}
	if v := strings.TrimSpace(f.DateFrom); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid date_from (use YYYY-MM-DD)")
		}
		q = q.Where("audit_logs.created_at >= ?", from.UTC())
	}
	if v := strings.TrimSpace(f.DateTo); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid date_to (use YYYY-MM-DD)")
		}
		q = q.Where("audit_logs.created_at < ?", to.UTC().AddDate(0, 0, 1))
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns["created_at"]
	}
	dir := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		dir = "ASC"
	}
	return q.Order(col + " " + dir).Limit(MaxRows), nil
}

// reference renders a short human label for the audited record.
func reference(r Row) string {
	switch r.TableName {
	case "hearings":
		if len(r.RecordID) >= 8 {
			return "H-" + r.RecordID[:8]
		}
		return "H-" + r.RecordID
	default:
		return r.TableName + "#" + r.RecordID
	}
}

