package lawyers

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jiy4/Brief-Case/pkg/database"
	"github.com/jiy4/Brief-Case/pkg/models"
)

// ===== DTOs =====

type LawyerListItem struct {
	UserID           uuid.UUID               `json:"user_id"`
	FirstName        string                  `json:"first_name"`
	LastName         string                  `json:"last_name"`
	PhotoURL         string                  `json:"photo_url"`
	FirmName         string                  `json:"firm_name"`
	ConsultationFee  int                     `json:"consultation_fee"`
	ConsultationType models.ConsultationType `json:"consultation_type"`
	AverageRating    float64                 `json:"average_rating"`
	TotalReviews     int                     `json:"total_reviews"`
	PracticeAreas    []string                `json:"practice_areas"`
}

type PageLawyers struct {
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Total    int64            `json:"total"`
	Pages    int              `json:"pages"`
	Items    []LawyerListItem `json:"items"`
}

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

func parsePage(c *fiber.Ctx) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	size, _ = strconv.Atoi(c.Query("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 10
	}
	return
}

// Search godoc
// @Summary      Search lawyers
// @Description  Filter by free text, specialty, rating floor, fee ceiling, and consultation type
// @Tags         lawyers
// @Produce      json
// @Param        q                  query string  false "name / firm / bio text"
// @Param        specialty          query string  false "practice area name"
// @Param        min_rating         query number  false "rating floor"
// @Param        max_fee            query int     false "fee ceiling (cents)"
// @Param        consultation_type  query string  false "in_person|video|phone|any"
// @Success      200  {object}  PageLawyers
// @Router       /lawyers [get]
func (h *Handler) Search(c *fiber.Ctx) error {
	page, size := parsePage(c)
	q := strings.TrimSpace(c.Query("q"))
	specialty := strings.TrimSpace(c.Query("specialty"))
	consultType := strings.TrimSpace(c.Query("consultation_type"))
	minRating, _ := strconv.ParseFloat(c.Query("min_rating", "0"), 64)
	maxFee, _ := strconv.Atoi(c.Query("max_fee", "0"))

	ctx, cancel := database.ReadContext(c.Context())
	defer cancel()

	// All filters run server-side; the directory is never shipped wholesale.
	dbq := h.db.WithContext(ctx).Model(&models.LawyerProfile{}).
		Joins("JOIN users ON users.id = lawyer_profiles.user_id")

	if minRating > 0 {
		dbq = dbq.Where("COALESCE(lawyer_profiles.average_rating, 0) >= ?", minRating)
	}
	if maxFee > 0 {
		dbq = dbq.Where("lawyer_profiles.consultation_fee <= ?", maxFee)
	}
	if consultType != "" && consultType != string(models.ConsultAny) {
		dbq = dbq.Where("lawyer_profiles.consultation_type IN ?", []string{consultType, string(models.ConsultAny)})
	}
	if q != "" {
		pat := "%" + q + "%"
		dbq = dbq.Where(
			"users.first_name ILIKE ? OR users.last_name ILIKE ? OR lawyer_profiles.firm_name ILIKE ? OR lawyer_profiles.bio ILIKE ?",
			pat, pat, pat, pat,
		)
	}
	if specialty != "" {
		dbq = dbq.Where(`lawyer_profiles.user_id IN (
			SELECT lpa.lawyer_profile_user_id FROM lawyer_practice_areas lpa
			JOIN practice_areas pa ON pa.id = lpa.practice_area_id
			WHERE pa.name ILIKE ?)`, specialty)
	}

	var total int64
	if err := dbq.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var profiles []models.LawyerProfile
	if err := dbq.
		Preload("User").
		Preload("PracticeAreas").
		Order("COALESCE(lawyer_profiles.average_rating, 0) DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&profiles).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	items := make([]LawyerListItem, 0, len(profiles))
	for _, lp := range profiles {
		areas := make([]string, 0, len(lp.PracticeAreas))
		for _, pa := range lp.PracticeAreas {
			areas = append(areas, pa.Name)
		}
		items = append(items, LawyerListItem{
			UserID:           lp.UserID,
			FirstName:        lp.User.FirstName,
			LastName:         lp.User.LastName,
			PhotoURL:         lp.User.PhotoURL,
			FirmName:         lp.FirmName,
			ConsultationFee:  lp.ConsultationFee,
			ConsultationType: lp.ConsultationType,
			AverageRating:    lp.AverageRating,
			TotalReviews:     lp.TotalReviews,
			PracticeAreas:    areas,
		})
	}

	return c.JSON(PageLawyers{
		Page:     page,
		PageSize: size,
		Total:    total,
		Pages:    int(math.Ceil(float64(total) / float64(size))),
		Items:    items,
	})
}

// Detail godoc
// @Summary      Lawyer detail
// @Tags         lawyers
// @Produce      json
// @Param        id  path string true "lawyer user id (uuid)"
// @Success      200  {object}  LawyerListItem
// @Failure      404  {object}  models.ErrorResponse
// @Router       /lawyers/{id} [get]
func (h *Handler) Detail(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lawyer id")
	}

	var lp models.LawyerProfile
	err := h.db.
		Preload("User").
		Preload("PracticeAreas").
		First(&lp, "user_id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if lp.PracticeAreas == nil {
		lp.PracticeAreas = []models.PracticeArea{}
	}

	return c.JSON(fiber.Map{
		"user_id":           lp.UserID,
		"first_name":        lp.User.FirstName,
		"last_name":         lp.User.LastName,
		"photo_url":         lp.User.PhotoURL,
		"bar_number":        lp.BarNumber,
		"firm_name":         lp.FirmName,
		"bio":               lp.Bio,
		"consultation_fee":  lp.ConsultationFee,
		"consultation_type": lp.ConsultationType,
		"average_rating":    lp.AverageRating,
		"total_reviews":     lp.TotalReviews,
		"practice_areas":    lp.PracticeAreas,
	})
}

// PracticeAreas godoc
// @Summary      List practice areas
// @Tags         lawyers
// @Produce      json
// @Router       /practice-areas [get]
func (h *Handler) PracticeAreas(c *fiber.Ctx) error {
	var areas []models.PracticeArea
	if err := h.db.Order("name ASC").Find(&areas).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if areas == nil {
		areas = []models.PracticeArea{}
	}
	return c.JSON(fiber.Map{"items": areas})
}

// Availability godoc
// @Summary      Booked slots for a lawyer on a date
// @Description  Returns times already taken (cancelled excluded); free slots are derived by the caller
// @Tags         lawyers
// @Produce      json
// @Param        id    path  string true  "lawyer user id (uuid)"
// @Param        date  query string true  "YYYY-MM-DD"
// @Router       /lawyers/{id}/availability [get]
func (h *Handler) Availability(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lawyer id")
	}
	date := c.Query("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	var booked []string
	if err := h.db.Model(&models.Appointment{}).
		Where("lawyer_id = ? AND date = ? AND status <> ?", id, date, models.ApptCancelled).
		Order("time ASC").
		Pluck("time", &booked).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if booked == nil {
		booked = []string{}
	}
	return c.JSON(fiber.Map{"date": date, "booked": booked})
}
