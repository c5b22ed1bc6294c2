// Package audit records and reads the append-only audit trail.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aldoetobex/jis-backend/internal/logger"
	"github.com/aldoetobex/jis-backend/internal/metrics"
	"github.com/aldoetobex/jis-backend/pkg/models"
)

// Entry describes one mutation to record.
type Entry struct {
	ActorID  *uuid.UUID
	Action   models.AuditAction
	Table    string
	RecordID string
	Old      any
	New      any
	IP       string
}

// Recorder appends audit entries. Record never fails from the caller's point
// of view; problems are logged.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// ActorEntry fills the actor fields of an entry from the request actor.
func ActorEntry(actor models.Actor, action models.AuditAction, table, recordID string, oldV, newV any) Entry {
	var id *uuid.UUID
	if actor.UserID != uuid.Nil {
		uid := actor.UserID
		id = &uid
	}
	return Entry{
		ActorID:  id,
		Action:   action,
		Table:    table,
		RecordID: recordID,
		Old:      oldV,
		New:      newV,
		IP:       actor.IP,
	}
}

// DBRecorder writes entries to the audit_logs table.
type DBRecorder struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewRecorder creates a recorder backed by db. m may be nil.
func NewRecorder(db *gorm.DB, m *metrics.Metrics) *DBRecorder {
	return &DBRecorder{db: db, metrics: m}
}

// Record inserts the entry. Call it after the primary transaction commits.
func (r *DBRecorder) Record(ctx context.Context, e Entry) {
	row := models.AuditLog{
		UserID:     e.ActorID,
		ActionType: e.Action,
		Table:      e.Table,
		RecordID:   e.RecordID,
		OldValues:  marshal(e.Old, e),
		NewValues:  marshal(e.New, e),
		IPAddress:  e.IP,
		CreatedAt:  time.Now().UTC(),
	}
	if row.IPAddress == "" {
		row.IPAddress = "unknown"
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		r.metrics.ObserveAuditFailure()
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"action", e.Action,
			"table", e.Table,
			"record_id", e.RecordID,
		)
	}
}

func marshal(v any, e Entry) datatypes.JSON {
	if v == nil {
		return nil
	}
	data, err := datatypes.NewJSONType(v).MarshalJSON()
	if err != nil {
		logger.Get().Errorw("failed to marshal audit values", "error", err, "table", e.Table, "action", e.Action)
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// UserCreated records a self-service signup. The new user is its own actor.
func (r *DBRecorder) UserCreated(ctx context.Context, u models.User, ip string) {
	id := u.ID
	r.Record(ctx, Entry{
		ActorID:  &id,
		Action:   models.AuditInsert,
		Table:    "users",
		RecordID: u.ID.String(),
		New:      map[string]any{"username": u.Username, "email": u.Email, "full_name": u.FullName, "role": u.Role},
		IP:       ip,
	})
}
