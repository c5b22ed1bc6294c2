package audit

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aldoetobex/jis-backend/internal/auth"
)

type Handler struct{ r *Reader }

func NewHandler(r *Reader) *Handler { return &Handler{r: r} }

// @Summary      List audit logs
// @Description  Registrar view of the audit trail, newest first, capped at 500 rows
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        user_id      query  string  false  "Actor (UUID)"
// @Param        action_type  query  string  false  "insert | update | delete"
// @Param        table_name   query  string  false  "Table"
// @Param        record_id    query  string  false  "Record ID"
// @Param        date_from    query  string  false  "YYYY-MM-DD"
// @Param        date_to      query  string  false  "YYYY-MM-DD"
// @Param        sort_by      query  string  false  "created_at | user_id | action_type | table_name"
// @Param        sort_order   query  string  false  "asc | desc"
// @Success      200  {array}   Row
// @Failure      403  {object}  models.ErrorResponse
// @Router       /audit-logs [get]
func (h *Handler) List(c *fiber.Ctx) error {
	var f Filter
	if err := c.QueryParser(&f); err != nil {
		return fiber.ErrBadRequest
	}
	rows, err := h.r.List(c.UserContext(), auth.ActorFrom(c), f)
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

// @Summary      Export audit logs
// @Description  Same filters as the listing, as a CSV download
// @Tags         audit
// @Security     BearerAuth
// @Produce      text/csv
// @Success      200  {string}  string
// @Router       /audit-logs/export [get]
func (h *Handler) Export(c *fiber.Ctx) error {
	var f Filter
	if err := c.QueryParser(&f); err != nil {
		return fiber.ErrBadRequest
	}

	var buf bytes.Buffer
	if err := h.r.ExportCSV(c.UserContext(), auth.ActorFrom(c), f, &buf); err != nil {
		return err
	}

	name := fmt.Sprintf("audit_logs_%s.csv", time.Now().UTC().Format("2006-01-02_15-04-05"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(buf.Bytes())
}
