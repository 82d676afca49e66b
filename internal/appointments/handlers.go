package appointments

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jiy4/Brief-Case/internal/auth"
	"github.com/jiy4/Brief-Case/pkg/models"
	"github.com/jiy4/Brief-Case/pkg/utils"
	"github.com/jiy4/Brief-Case/pkg/validation"
)

// ===== DTOs =====

type BookRequest struct {
	LawyerID    string `json:"lawyer_id" validate:"required,uuid"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string `json:"time" validate:"required,datetime=15:04"`
	MeetingType string `json:"meeting_type" validate:"omitempty,oneof=in_person video phone"`
	Title       string `json:"title" validate:"omitempty,max=120"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

type RescheduleRequest struct {
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time        string `json:"time" validate:"omitempty,datetime=15:04"`
	MeetingType string `json:"meeting_type" validate:"omitempty,oneof=in_person video phone"`
	Title       string `json:"title" validate:"omitempty,max=120"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

// Book godoc
// @Summary      Book an appointment
// @Description  Client books a lawyer; the appointment starts as "scheduled"
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      201  {object}  models.Appointment
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /appointments [post]
func (h *Handler) Book(c *fiber.Ctx) error {
	clientID, _ := uuid.Parse(auth.MustUserID(c))

	var in BookRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	lawyerID, _ := uuid.Parse(in.LawyerID)
	var cnt int64
	if err := h.db.Model(&models.User{}).
		Where("id = ? AND role = ?", lawyerID, models.RoleLawyer).
		Count(&cnt).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if cnt == 0 {
		return fiber.NewError(fiber.StatusNotFound, "lawyer not found")
	}

	appt := models.Appointment{
		ClientID:    clientID,
		LawyerID:    lawyerID,
		Date:        in.Date,
		Time:        in.Time,
		Status:      models.ApptScheduled,
		MeetingType: models.ConsultationType(in.MeetingType),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
	}
	if err := h.db.Create(&appt).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	utils.LogAppointmentHistory(c.Context(), h.db, appt.ID, clientID, "booked", "", models.ApptScheduled, "")
	return c.Status(fiber.StatusCreated).JSON(appt)
}

// ListMine godoc
// @Summary      List my appointments
// @Description  Appointments where the caller is either party, date ascending, optional status filter
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        status  query string false "scheduled|confirmed|rescheduled|cancelled|completed"
// @Router       /appointments/mine [get]
func (h *Handler) ListMine(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	status := strings.TrimSpace(c.Query("status"))

	q := h.db.Model(&models.Appointment{}).
		Where("client_id = ? OR lawyer_id = ?", userID, userID)
	if status != "" {
		switch models.AppointmentStatus(status) {
		case models.ApptScheduled, models.ApptConfirmed, models.ApptRescheduled,
			models.ApptCancelled, models.ApptCompleted:
			q = q.Where("status = ?", status)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "invalid status filter")
		}
	}

	var rows []models.Appointment
	if err := q.Order("date ASC, time ASC").Find(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if rows == nil {
		rows = []models.Appointment{}
	}
	return c.JSON(fiber.Map{"items": rows})
}

// loadOwned fetches an appointment the caller participates in, with a row
// lock so concurrent status updates serialize.
func (h *Handler) loadOwned(tx *gorm.DB, id, userID string) (*models.Appointment, error) {
	var appt models.Appointment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND (client_id = ? OR lawyer_id = ?)", id, userID, userID).
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// Reschedule godoc
// @Summary      Update / reschedule an appointment
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Router       /appointments/{id} [patch]
func (h *Handler) Reschedule(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid appointment id")
	}

	var in RescheduleRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	tx := h.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	appt, err := h.loadOwned(tx, id, userID)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if appt.Status == models.ApptCancelled || appt.Status == models.ApptCompleted {
		tx.Rollback()
		return fiber.NewError(fiber.StatusConflict, "appointment can no longer be changed")
	}

	patch := map[string]any{"updated_at": time.Now()}
	moved := false
	if in.Date != "" && in.Date != appt.Date {
		patch["date"] = in.Date
		moved = true
	}
	if in.Time != "" && in.Time != appt.Time {
		patch["time"] = in.Time
		moved = true
	}
	if in.MeetingType != "" {
		patch["meeting_type"] = in.MeetingType
	}
	if s := strings.TrimSpace(in.Title); s != "" {
		patch["title"] = s
	}
	if s := strings.TrimSpace(in.Description); s != "" {
		patch["description"] = s
	}
	oldStatus := appt.Status
	if moved {
		patch["status"] = models.ApptRescheduled
	}

	if err := tx.Model(&models.Appointment{}).Where("id = ?", appt.ID).
		Updates(patch).Error; err != nil {
		tx.Rollback()
		return fiber.ErrInternalServerError
	}
	if err := tx.Commit().Error; err != nil {
		return fiber.ErrInternalServerError
	}

	if moved {
		actor, _ := uuid.Parse(userID)
		utils.LogAppointmentHistory(c.Context(), h.db, appt.ID, actor, "rescheduled", oldStatus, models.ApptRescheduled, "")
	}

	var out models.Appointment
	if err := h.db.First(&out, "id = ?", appt.ID).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancel an appointment (soft)
// @Description  Sets status=cancelled and keeps the row; distinct from DELETE which removes it
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Router       /appointments/{id}/cancel [post]
func (h *Handler) Cancel(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid appointment id")
	}

	tx := h.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	appt, err := h.loadOwned(tx, id, userID)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if appt.Status == models.ApptCancelled {
		tx.Rollback()
		return c.JSON(fiber.Map{"ok": true, "message": "already cancelled (idempotent)"})
	}

	oldStatus := appt.Status
	if err := tx.Model(&models.Appointment{}).Where("id = ?", appt.ID).
		Updates(map[string]any{"status": models.ApptCancelled, "updated_at": time.Now()}).Error; err != nil {
		tx.Rollback()
		return fiber.ErrInternalServerError
	}
	if err := tx.Commit().Error; err != nil {
		return fiber.ErrInternalServerError
	}

	actor, _ := uuid.Parse(userID)
	utils.LogAppointmentHistory(c.Context(), h.db, appt.ID, actor, "cancelled", oldStatus, models.ApptCancelled, "")
	return c.JSON(fiber.Map{"ok": true})
}

// Delete godoc
// @Summary      Delete an appointment (hard)
// @Description  Removes the row permanently; use cancel for the reversible path
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Router       /appointments/{id} [delete]
func (h *Handler) Delete(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid appointment id")
	}

	var appt models.Appointment
	err := h.db.Where("id = ? AND (client_id = ? OR lawyer_id = ?)", id, userID, userID).
		First(&appt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	if err := h.db.Delete(&models.Appointment{}, "id = ?", appt.ID).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	actor, _ := uuid.Parse(userID)
	utils.LogAppointmentHistory(c.Context(), h.db, appt.ID, actor, "deleted", appt.Status, appt.Status, "hard delete")
	return c.JSON(fiber.Map{"ok": true})
}
