package cases

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/jis-backend/internal/assignments"
	"github.com/aldoetobex/jis-backend/internal/audit"
	"github.com/aldoetobex/jis-backend/internal/auth"
	"github.com/aldoetobex/jis-backend/internal/logger"
	"github.com/aldoetobex/jis-backend/internal/storage"
	"github.com/aldoetobex/jis-backend/pkg/apperrors"
	"github.com/aldoetobex/jis-backend/pkg/models"
)

const (
	MaxEvidenceFiles = 10
	MaxEvidenceBytes = 10 * 1024 * 1024
	SignedURLSeconds = 60
)

// evidenceTypes maps allowed extensions to the evidence type they imply.
var evidenceTypes = map[string]string{
	"pdf": "document",
	"jpg": "photo", "jpeg": "photo", "png": "photo", "gif": "photo",
	"mp4": "video", "mov": "video", "avi": "video",
	"mp3": "audio", "m4a": "audio",
}

var validEvidenceType = map[string]bool{"document": true, "photo": true, "video": true, "audio": true}

// ObjectStore keeps evidence files. *storage.Supabase satisfies it.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string, size int64) error
	SignedURL(ctx context.Context, key string, expiresInSeconds int) (string, error)
	Delete(ctx context.Context, key string) error
}

// Upload is one file of an evidence submission.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// EvidenceMeta describes a submission. Empty fields are derived per file.
type EvidenceMeta struct {
	EvidenceType string
	Title        string
	Description  string
}

// UploadResult reports what happened to one file.
type UploadResult struct {
	Name         string     `json:"name"`
	Size         int64      `json:"size"`
	ID           *uuid.UUID `json:"id,omitempty"`
	EvidenceType string     `json:"evidence_type,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// SignedURL is a short-lived download link.
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresIn int       `json:"expires_in"`
	Now       time.Time `json:"now"`
}

// UploadEvidence stores files against a case. The registrar and the case's
// assigned judge or lawyer may submit. Each file succeeds or fails on its
// own; a stored object whose row cannot be saved is deleted again.
func (r *Registry) UploadEvidence(ctx context.Context, actor models.Actor, caseID uuid.UUID, meta EvidenceMeta, files []Upload) ([]UploadResult, error) {
	if len(files) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "files are required (use key: files[])")
	}
	if len(files) > MaxEvidenceFiles {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "max 10 files allowed")
	}
	meta.EvidenceType = strings.ToLower(strings.TrimSpace(meta.EvidenceType))
	if meta.EvidenceType != "" && !validEvidenceType[meta.EvidenceType] {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "evidence_type must be document, photo, video or audio")
	}

	var cs models.Case
	if err := r.db.WithContext(ctx).First(&cs, "id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCaseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	if err := r.canSubmit(ctx, actor, cs.ID); err != nil {
		return nil, err
	}
	if cs.Status == models.CaseClosed {
		return nil, apperrors.ErrCaseClosed
	}
	if r.store == nil {
		return nil, apperrors.ErrStorageUnavailable
	}

	results := make([]UploadResult, 0, len(files))
	for i, f := range files {
		results = append(results, r.storeOne(ctx, actor, cs.ID, meta, i, f))
	}
	return results, nil
}

func (r *Registry) canSubmit(ctx context.Context, actor models.Actor, caseID uuid.UUID) error {
	switch actor.Role {
	case models.RoleRegistrar:
		return nil
	case models.RoleJudge, models.RoleLawyer:
		ok, err := assignments.Holds(ctx, r.db, caseID, actor.UserID, actor.Role)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		if ok {
			return nil
		}
	}
	return apperrors.ErrForbidden
}

func (r *Registry) storeOne(ctx context.Context, actor models.Actor, caseID uuid.UUID, meta EvidenceMeta, i int, f Upload) UploadResult {
	res := UploadResult{Name: f.Filename, Size: f.Size}

	if f.Size <= 0 {
		res.Error = "empty file"
		return res
	}
	if f.Size > MaxEvidenceBytes {
		res.Error = "max 10MB per file"
		return res
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Filename)), ".")
	derived, ok := evidenceTypes[ext]
	if !ok {
		res.Error = "file type not allowed"
		return res
	}

	ct := f.ContentType
	if ct == "" || ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension("." + ext); byExt != "" {
			ct = byExt
		}
	}
	if ct == "" {
		ct = "application/octet-stream"
	}

	res.EvidenceType = derived
	if meta.EvidenceType != "" {
		res.EvidenceType = meta.EvidenceType
	}
	title := strings.TrimSpace(meta.Title)
	switch {
	case title == "":
		title = "Evidence " + strconv.Itoa(i+1)
	case i > 0:
		title += " (" + strconv.Itoa(i+1) + ")"
	}

	rc, err := f.Open()
	if err != nil {
		res.Error = "open failed"
		return res
	}
	defer rc.Close()

	key := storage.EvidenceKey(caseID, f.Filename)
	if err := r.store.Upload(ctx, key, rc, ct, f.Size); err != nil {
		logger.Get().Errorw("evidence upload failed", "case_id", caseID, "key", key, "error", err)
		res.Error = "upload failed"
		return res
	}

	rec := models.Evidence{
		CaseID:       caseID,
		EvidenceType: res.EvidenceType,
		Title:        title,
		Description:  strings.TrimSpace(meta.Description),
		Key:          key,
		Mime:         ct,
		Size:         int(f.Size),
		SubmittedBy:  actor.UserID,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		logger.Get().Errorw("evidence row not saved", "case_id", caseID, "key", key, "error", err)
		if derr := r.store.Delete(ctx, key); derr != nil {
			logger.Get().Warnw("orphaned evidence object", "key", key, "error", derr)
		}
		res.Error = "database error"
		return res
	}

	r.audit.Record(ctx, audit.ActorEntry(actor, models.AuditInsert, "case_evidence", rec.ID.String(), nil, rec))
	res.ID = &rec.ID
	return res
}

// EvidenceURL returns a signed download link when actor may open the case.
func (r *Registry) EvidenceURL(ctx context.Context, actor models.Actor, evidenceID uuid.UUID) (*SignedURL, error) {
	var ev models.Evidence
	if err := r.db.WithContext(ctx).First(&ev, "id = ?", evidenceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEvidenceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	d, err := r.gate.CheckCase(ctx, actor, ev.CaseID)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, &PaymentRequiredError{Decision: d}
	}
	if r.store == nil {
		return nil, apperrors.ErrStorageUnavailable
	}

	url, err := r.store.SignedURL(ctx, ev.Key, SignedURLSeconds)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, err)
	}
	return &SignedURL{URL: url, ExpiresIn: SignedURLSeconds, Now: r.now().UTC()}, nil
}

/* =============================== Handlers =============================== */

// Upload Evidence godoc
// @Summary      Upload evidence files
// @Description  Registrar or the case's assigned judge/lawyer uploads up to 10 files (10MB each) to evidence storage. Each file reports its own result.
// @Tags         evidence
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id             path      string  true   "case id (uuid)"
// @Param        files          formData  []file  true   "pdf, jpg, jpeg, png, gif, mp4, mov, avi, mp3, m4a (max 10)"
// @Param        evidence_type  formData  string  false  "document | photo | video | audio"
// @Param        title          formData  string  false  "title"
// @Param        description    formData  string  false  "description"
// @Success      201  {object}  map[string][]UploadResult  "results"
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      503  {object}  models.ErrorResponse
// @Router       /cases/{id}/evidence [post]
func (h *Handler) UploadEvidence(c *fiber.Ctx) error {
	caseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid case id")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form required; use files[]")
	}
	// Swagger UI sends "files" even when the field is documented as files[]
	headers := form.File["files[]"]
	if len(headers) == 0 {
		headers = form.File["files"]
	}

	files := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		files = append(files, Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	meta := EvidenceMeta{
		EvidenceType: c.FormValue("evidence_type"),
		Title:        c.FormValue("title"),
		Description:  c.FormValue("description"),
	}
	results, err := h.r.UploadEvidence(c.UserContext(), auth.ActorFrom(c), caseID, meta, files)
	if err != nil {
		return err
	}
	// 201 even when some files failed; callers check "error" per item
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"results": results})
}

// Signed Evidence URL godoc
// @Summary      Get signed evidence URL
// @Description  Anyone allowed to open the case record obtains a 60-second download URL.
// @Tags         evidence
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "evidence id (uuid)"
// @Success      200  {object}  SignedURL
// @Failure      402  {object}  PaymentRequiredResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      503  {object}  models.ErrorResponse
// @Router       /evidence/{id}/signed-url [get]
func (h *Handler) EvidenceURL(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid evidence id")
	}
	out, err := h.r.EvidenceURL(c.UserContext(), auth.ActorFrom(c), id)
	if err != nil {
		return respondPaymentRequired(c, err)
	}
	return c.JSON(out)
}
