package documents

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jiy4/Brief-Case/internal/auth"
	"github.com/jiy4/Brief-Case/internal/storage"
	"github.com/jiy4/Brief-Case/pkg/logs"
	"github.com/jiy4/Brief-Case/pkg/models"
	"github.com/jiy4/Brief-Case/pkg/sanitize"
)

type Handler struct {
	db *gorm.DB
	sb *storage.Supabase
}

func NewHandler(db *gorm.DB, sb *storage.Supabase) *Handler {
	return &Handler{db: db, sb: sb}
}

// Upload godoc
// @Summary      Upload documents (PDF/PNG/JPEG)
// @Description  Authenticated user uploads up to 10 files to object storage
// @Tags         documents
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        files     formData  []file  true   "PDF/PNG/JPEG (max 10)"
// @Param        doc_type  formData  string  false  "declared document type"
// @Success      201  {array}  map[string]any  "id, url, name, size"
// @Failure      400  {object}  models.ErrorResponse
// @Router       /documents [post]
func (h *Handler) Upload(c *fiber.Ctx) error {
	ownerID, _ := uuid.Parse(auth.MustUserID(c))

	if h.sb == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "storage is not configured")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form required; use files[]")
	}
	files := form.File["files[]"]
	if len(files) == 0 {
		files = form.File["files"]
	}
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "files are required (use key: files[])")
	}
	if len(files) > 10 {
		return fiber.NewError(fiber.StatusBadRequest, "max 10 files allowed")
	}

	docType := "other"
	if v := form.Value["doc_type"]; len(v) > 0 && strings.TrimSpace(v[0]) != "" {
		docType = strings.TrimSpace(v[0])
	}

	results := make([]fiber.Map, 0, len(files))

	for _, fh := range files {
		res := fiber.Map{
			"name": fh.Filename,
			"size": fh.Size,
		}

		// ---- Per-file validation
		if fh.Size <= 0 {
			res["error"] = "empty file"
			results = append(results, res)
			continue
		}
		if fh.Size > 10*1024*1024 {
			res["error"] = "max 10MB per file"
			results = append(results, res)
			continue
		}

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = mime.TypeByExtension(filepath.Ext(fh.Filename))
		}
		switch ct {
		case "application/pdf", "image/png", "image/jpeg":
			// ok
		default:
			res["error"] = "only PDF, PNG or JPEG are allowed"
			results = append(results, res)
			continue
		}

		f, err := fh.Open()
		if err != nil {
			res["error"] = "open failed"
			results = append(results, res)
			continue
		}
		defer f.Close()

		key := h.sb.MakeObjectKey("docs", ownerID.String(), sanitize.FileName(fh.Filename))

		if err := h.sb.Upload(key, f, ct, fh.Size, false); err != nil {
			res["error"] = "upload failed"
			results = append(results, res)
			continue
		}

		rec := models.Document{
			OwnerID:      ownerID,
			Key:          key,
			URL:          h.sb.PublicURL(key),
			DocumentType: docType,
			Mime:         ct,
			Size:         int(fh.Size),
			OriginalName: fh.Filename,
		}
		if err := h.db.Create(&rec).Error; err != nil {
			res["error"] = "database error"
			results = append(results, res)
			continue
		}

		res["id"] = rec.ID
		res["url"] = rec.URL
		results = append(results, res)
	}

	// 201 even when some items failed; callers check per-item "error" fields.
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"results": results})
}

// ListMine godoc
// @Summary      List my documents
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Router       /documents/mine [get]
func (h *Handler) ListMine(c *fiber.Ctx) error {
	ownerID := auth.MustUserID(c)

	var rows []models.Document
	if err := h.db.Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if rows == nil {
		rows = []models.Document{}
	}
	return c.JSON(fiber.Map{"items": rows})
}

// Delete godoc
// @Summary      Delete a document
// @Description  Removes the storage object first, then the row. The order is
//               best-effort: a row-delete failure after the object is gone is
//               logged, not compensated.
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Router       /documents/{id} [delete]
func (h *Handler) Delete(c *fiber.Ctx) error {
	ownerID := auth.MustUserID(c)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document id")
	}

	var doc models.Document
	err := h.db.Where("id = ? AND owner_id = ?", id, ownerID).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	if h.sb != nil {
		if err := h.sb.Delete(doc.Key); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "storage delete failed")
		}
	}

	if err := h.db.Delete(&models.Document{}, "id = ?", doc.ID).Error; err != nil {
		logs.Errorw("document row delete failed after storage delete", "document_id", doc.ID, "err", err)
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"ok": true})
}

// DeleteAll godoc
// @Summary      Delete all my documents
// @Description  Removes every stored object in one bulk call, then the rows.
//               Same ordering as single delete: storage first, rows after.
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Router       /documents [delete]
func (h *Handler) DeleteAll(c *fiber.Ctx) error {
	ownerID := auth.MustUserID(c)

	var docs []models.Document
	if err := h.db.Where("owner_id = ?", ownerID).Find(&docs).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if len(docs) == 0 {
		return c.JSON(fiber.Map{"ok": true, "deleted": 0})
	}

	if h.sb == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "storage is not configured")
	}

	keys := make([]string, 0, len(docs))
	for _, d := range docs {
		keys = append(keys, d.Key)
	}
	if err := h.sb.BulkDelete(keys); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "storage delete failed")
	}

	res := h.db.Where("owner_id = ?", ownerID).Delete(&models.Document{})
	if res.Error != nil {
		logs.Errorw("document rows delete failed after bulk storage delete", "owner_id", ownerID, "err", res.Error)
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"ok": true, "deleted": res.RowsAffected})
}
