package lawyers

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jiy4/Brief-Case/internal/auth"
	"github.com/jiy4/Brief-Case/pkg/logs"
	"github.com/jiy4/Brief-Case/pkg/models"
	"github.com/jiy4/Brief-Case/pkg/validation"
)

type CreateReviewRequest struct {
	LawyerID      string `json:"lawyer_id" validate:"required,uuid"`
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	Rating        int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment       string `json:"comment" validate:"omitempty,max=2000"`
}

// RoundRating rounds a mean rating to one decimal place.
func RoundRating(mean float64) float64 {
	return math.Round(mean*10) / 10
}

// RecomputeRating refreshes the lawyer's derived rating columns:
// average_rating = round(mean, 1), total_reviews = n, with (5.0, 0) when no
// reviews exist.
func RecomputeRating(db *gorm.DB, lawyerID uuid.UUID) error {
	var ratings []int
	if err := db.Model(&models.Review{}).
		Where("lawyer_id = ?", lawyerID).
		Pluck("rating", &ratings).Error; err != nil {
		return err
	}

	avg, n := 5.0, len(ratings)
	if n > 0 {
		sum := 0
		for _, r := range ratings {
			sum += r
		}
		avg = RoundRating(float64(sum) / float64(n))
	}

	return db.Model(&models.LawyerProfile{}).
		Where("user_id = ?", lawyerID).
		Updates(map[string]any{"average_rating": avg, "total_reviews": n}).Error
}

// CreateReview godoc
// @Summary      Submit a review
// @Description  Client reviews a lawyer after a consultation; the lawyer's average rating is recomputed as a side effect
// @Tags         reviews
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      201  {object}  models.Review
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /reviews [post]
func (h *Handler) CreateReview(c *fiber.Ctx) error {
	clientID, _ := uuid.Parse(auth.MustUserID(c))

	var in CreateReviewRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	lawyerID, _ := uuid.Parse(in.LawyerID)
	apptID, _ := uuid.Parse(in.AppointmentID)

	// The appointment must exist and belong to this client/lawyer pair.
	var appt models.Appointment
	err := h.db.First(&appt, "id = ? AND client_id = ? AND lawyer_id = ?", apptID, clientID, lawyerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	rv := models.Review{
		LawyerID:      lawyerID,
		ClientID:      clientID,
		AppointmentID: apptID,
		Rating:        in.Rating,
		Comment:       strings.TrimSpace(in.Comment),
		CreatedAt:     time.Now(),
	}
	if err := h.db.Create(&rv).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	// Recompute is not transactional with the insert: a failure here leaves
	// the review in place and is reported as a warning, not an error.
	warnings := []string{}
	if err := RecomputeRating(h.db, lawyerID); err != nil {
		logs.Warnw("rating recompute failed", "lawyer_id", lawyerID, "err", err)
		warnings = append(warnings, "rating recompute failed; it will catch up on the next review")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"review":   rv,
		"warnings": warnings,
	})
}

// ListReviews godoc
// @Summary      List reviews for a lawyer
// @Tags         reviews
// @Produce      json
// @Param        id  path string true "lawyer user id (uuid)"
// @Router       /lawyers/{id}/reviews [get]
func (h *Handler) ListReviews(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lawyer id")
	}
	page, size := parsePage(c)

	q := h.db.Model(&models.Review{}).Where("lawyer_id = ?", id)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var rows []models.Review
	if err := q.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if rows == nil {
		rows = []models.Review{}
	}

	return c.JSON(fiber.Map{
		"page": page, "pageSize": size, "total": total,
		"pages": int(math.Ceil(float64(total) / float64(size))),
		"items": rows,
	})
}
