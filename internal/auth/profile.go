package auth

import (
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jiy4/Brief-Case/pkg/logs"
	"github.com/jiy4/Brief-Case/pkg/models"
	"github.com/jiy4/Brief-Case/pkg/sanitize"
	"github.com/jiy4/Brief-Case/pkg/validation"
)

/* ================================ DTOs ================================= */

type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"omitempty,min=1,max=60"`
	LastName  string `json:"last_name" validate:"omitempty,min=1,max=60"`
	// Lawyer-only fields; ignored for clients
	Bio              string `json:"bio" validate:"omitempty,max=2000"`
	FirmName         string `json:"firm_name" validate:"omitempty,max=120"`
	ConsultationFee  *int   `json:"consultation_fee" validate:"omitempty,gte=0"`
	ConsultationType string `json:"consultation_type" validate:"omitempty,oneof=in_person video phone any"`
}

// Profile response for /me
type UserProfileResponse struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	PhotoURL  string      `json:"photo_url"`
	CreatedAt time.Time   `json:"created_at"`

	Lawyer *models.LawyerProfile `json:"lawyer,omitempty"`
}

/* ================================= Me =================================== */

// @Summary      Get current user profile
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  UserProfileResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /me [get]
func (h *Handler) Me(c *fiber.Ctx) error {
	userID := MustUserID(c)

	var u models.User
	if err := h.db.First(&u, "id = ?", userID).Error; err != nil {
		return fiber.ErrUnauthorized
	}

	resp := UserProfileResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		PhotoURL:  u.PhotoURL,
		CreatedAt: u.CreatedAt,
	}
	if u.Role == models.RoleLawyer {
		var lp models.LawyerProfile
		if err := h.db.Preload("PracticeAreas").First(&lp, "user_id = ?", u.ID).Error; err == nil {
			resp.Lawyer = &lp
		}
	}
	return c.JSON(resp)
}

/* ============================ Profile update ============================ */

// UpdateProfile patches name fields, and lawyer directory fields when the
// caller is a lawyer.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID := MustUserID(c)

	var in UpdateProfileRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var u models.User
	if err := h.db.First(&u, "id = ?", userID).Error; err != nil {
		return fiber.ErrUnauthorized
	}

	patch := map[string]any{}
	if s := strings.TrimSpace(in.FirstName); s != "" {
		patch["first_name"] = s
	}
	if s := strings.TrimSpace(in.LastName); s != "" {
		patch["last_name"] = s
	}
	if len(patch) > 0 {
		if err := h.db.Model(&u).Updates(patch).Error; err != nil {
			return fiber.ErrInternalServerError
		}
	}

	if u.Role == models.RoleLawyer {
		lpPatch := map[string]any{}
		if s := strings.TrimSpace(in.Bio); s != "" {
			lpPatch["bio"] = s
		}
		if s := strings.TrimSpace(in.FirmName); s != "" {
			lpPatch["firm_name"] = s
		}
		if in.ConsultationFee != nil {
			lpPatch["consultation_fee"] = *in.ConsultationFee
		}
		if in.ConsultationType != "" {
			lpPatch["consultation_type"] = in.ConsultationType
		}
		if len(lpPatch) > 0 {
			if err := h.db.Model(&models.LawyerProfile{}).
				Where("user_id = ?", u.ID).
				Updates(lpPatch).Error; err != nil {
				return fiber.ErrInternalServerError
			}
		}
	}

	return h.Me(c)
}

/* ============================ Profile photo ============================= */

// UpdatePhoto replaces the profile photo: the old object (derived from the
// stored public URL) is deleted best-effort, the new file is uploaded under a
// sanitized name, and the row is updated last.
func (h *Handler) UpdatePhoto(c *fiber.Ctx) error {
	userID := MustUserID(c)

	var u models.User
	if err := h.db.First(&u, "id = ?", userID).Error; err != nil {
		return fiber.ErrUnauthorized
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form with a photo field required")
	}
	if fh.Size <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "empty file")
	}
	if fh.Size > 5*1024*1024 {
		return fiber.NewError(fiber.StatusBadRequest, "max 5MB per photo")
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(fh.Filename))
	}
	switch ct {
	case "image/png", "image/jpeg", "image/webp":
		// ok
	default:
		return fiber.NewError(fiber.StatusBadRequest, "only PNG, JPEG or WebP are allowed")
	}

	if h.sb == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "storage is not configured")
	}

	// Old object cleanup is non-fatal; the profile must still update.
	if u.PhotoURL != "" {
		if key := h.sb.KeyFromPublicURL(u.PhotoURL); key != "" {
			if err := h.sb.Delete(key); err != nil {
				logs.Warnw("old photo delete failed", "user_id", u.ID, "key", key, "err", err)
			}
		}
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.ErrInternalServerError
	}
	defer f.Close()

	key := h.sb.MakeObjectKey("avatars", u.ID.String(), sanitize.FileName(fh.Filename))
	if err := h.sb.Upload(key, f, ct, fh.Size, true); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "photo upload failed")
	}

	url := h.sb.PublicURL(key)
	if err := h.db.Model(&u).Update("photo_url", url).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"photo_url": url})
}

// RemovePhoto deletes the stored object (best-effort) and clears the URL.
func (h *Handler) RemovePhoto(c *fiber.Ctx) error {
	userID := MustUserID(c)

	var u models.User
	if err := h.db.First(&u, "id = ?", userID).Error; err != nil {
		return fiber.ErrUnauthorized
	}
	if u.PhotoURL == "" {
		return c.JSON(fiber.Map{"ok": true})
	}

	if h.sb != nil {
		if key := h.sb.KeyFromPublicURL(u.PhotoURL); key != "" {
			if err := h.sb.Delete(key); err != nil {
				logs.Warnw("photo delete failed", "user_id", u.ID, "key", key, "err", err)
			}
		}
	}

	if err := h.db.Model(&u).Update("photo_url", "").Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"ok": true})
}
