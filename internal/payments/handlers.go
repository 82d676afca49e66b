package payments

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
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

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

/* =========================== Payment methods ============================ */

type AddMethodRequest struct {
	Type        string `json:"type" validate:"required,oneof=card paypal bank"`
	CardNumber  string `json:"card_number" validate:"omitempty,min=13,max=23"`
	ExpiryMonth int    `json:"expiry_month" validate:"omitempty,min=1,max=12"`
	ExpiryYear  int    `json:"expiry_year" validate:"omitempty,expyear"`
	SetDefault  bool   `json:"set_default"`
}

// AddMethod godoc
// @Summary      Add a payment method
// @Description  Card numbers are Luhn-validated and reduced to brand + last4
//               before storage; the full number is never written anywhere.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      201  {object}  models.PaymentMethod
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /payment-methods [post]
func (h *Handler) AddMethod(c *fiber.Ctx) error {
	userID, _ := uuid.Parse(auth.MustUserID(c))

	var in AddMethodRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	pm := models.PaymentMethod{
		UserID: userID,
		Type:   models.PaymentMethodType(in.Type),
	}

	if pm.Type == models.MethodCard {
		if !ValidateCardNumber(in.CardNumber) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid card number")
		}
		if in.ExpiryMonth == 0 || in.ExpiryYear == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "card expiry is required")
		}
		// expyear already rejects past years; catch a past month in this year
		now := time.Now()
		if in.ExpiryYear == now.Year() && in.ExpiryMonth < int(now.Month()) {
			return fiber.NewError(fiber.StatusBadRequest, "card is expired")
		}
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, in.CardNumber)
		pm.CardBrand = CardType(digits)
		pm.CardLast4 = digits[len(digits)-4:]
		pm.ExpiryMonth = in.ExpiryMonth
		pm.ExpiryYear = in.ExpiryYear
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var cnt int64
		if err := tx.Model(&models.PaymentMethod{}).
			Where("user_id = ?", userID).Count(&cnt).Error; err != nil {
			return err
		}
		// First method becomes the default automatically.
		pm.IsDefault = in.SetDefault || cnt == 0
		if pm.IsDefault {
			if err := tx.Model(&models.PaymentMethod{}).
				Where("user_id = ?", userID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&pm).Error
	})
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusCreated).JSON(pm)
}

// ListMethods godoc
// @Summary      List my payment methods
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Router       /payment-methods [get]
func (h *Handler) ListMethods(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)

	var rows []models.PaymentMethod
	if err := h.db.Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if rows == nil {
		rows = []models.PaymentMethod{}
	}
	return c.JSON(fiber.Map{"items": rows})
}

// SetDefault godoc
// @Summary      Make a payment method the default
// @Description  Unset-all and set-one run in a single transaction, so there is
//               never a moment with zero or two defaults.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Router       /payment-methods/{id}/default [post]
func (h *Handler) SetDefault(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payment method id")
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var pm models.PaymentMethod
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", id, userID).
			First(&pm).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.PaymentMethod{}).
			Where("user_id = ?", userID).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.PaymentMethod{}).
			Where("id = ?", pm.ID).
			Update("is_default", true).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"ok": true})
}

// DeleteMethod godoc
// @Summary      Remove a payment method
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Router       /payment-methods/{id} [delete]
func (h *Handler) DeleteMethod(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payment method id")
	}

	res := h.db.Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.PaymentMethod{})
	if res.Error != nil {
		return fiber.ErrInternalServerError
	}
	if res.RowsAffected == 0 {
		return fiber.ErrNotFound
	}
	return c.JSON(fiber.Map{"ok": true})
}

/* =============================== Checkout =============================== */

type CheckoutRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	Amount        int    `json:"amount" validate:"required,min=1"` // cents
}

// Checkout godoc
// @Summary      Pay for an appointment (simulated)
// @Description  No real processor is involved. The charge "settles" after a
//               short latency window and confirms the appointment. Nothing is
//               persisted for the charge itself beyond the status change.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      200  {object}  Receipt
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /payments/checkout [post]
func (h *Handler) Checkout(c *fiber.Ctx) error {
	userID, _ := uuid.Parse(auth.MustUserID(c))

	var in CheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var appt models.Appointment
	err := h.db.Where("id = ? AND client_id = ?", in.AppointmentID, userID).
		First(&appt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if appt.Status == models.ApptCancelled {
		return fiber.NewError(fiber.StatusConflict, "appointment is cancelled")
	}

	// Simulated processor latency; a closed client connection aborts the wait.
	latency := time.Duration(1500+rand.Intn(1000)) * time.Millisecond
	select {
	case <-time.After(latency):
	case <-c.Context().Done():
		return fiber.NewError(fiber.StatusRequestTimeout, "checkout aborted")
	}

	txnID := fmt.Sprintf("TXN-%d-%s", time.Now().UnixMilli(),
		strings.ToUpper(strconv.FormatInt(rand.Int63n(1<<40), 36)))

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var locked models.Appointment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, "id = ?", appt.ID).Error; err != nil {
			return err
		}
		if locked.Status == models.ApptCancelled {
			return errors.New("cancelled during checkout")
		}
		return tx.Model(&models.Appointment{}).
			Where("id = ?", locked.ID).
			Updates(map[string]any{
				"status":     models.ApptConfirmed,
				"updated_at": time.Now(),
			}).Error
	})
	if err != nil {
		return fiber.NewError(fiber.StatusConflict, "payment could not be completed")
	}

	utils.LogAppointmentHistory(c.Context(), h.db, appt.ID, userID, "confirmed",
		appt.Status, models.ApptConfirmed, "paid "+txnID)

	var lawyer models.User
	lawyerName := ""
	if err := h.db.First(&lawyer, "id = ?", appt.LawyerID).Error; err == nil {
		lawyerName = strings.TrimSpace(lawyer.FirstName + " " + lawyer.LastName)
	}

	breakdown := CalculateTotalFee(in.Amount, ServiceFeePercent())

	return c.JSON(Receipt{
		TransactionID: txnID,
		AppointmentID: appt.ID.String(),
		LawyerName:    lawyerName,
		Date:          appt.Date,
		Time:          appt.Time,
		Breakdown:     breakdown,
		PaidAt:        time.Now().Format(time.RFC3339),
	})
}

// Quote godoc
// @Summary      Preview the fee breakdown for a lawyer's consultation
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  FeeBreakdown
// @Router       /payments/quote/{lawyerID} [get]
func (h *Handler) Quote(c *fiber.Ctx) error {
	lawyerID := c.Params("lawyerID")
	if _, err := uuid.Parse(lawyerID); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lawyer id")
	}

	var profile models.LawyerProfile
	if err := h.db.First(&profile, "user_id = ?", lawyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(CalculateTotalFee(profile.ConsultationFee, ServiceFeePercent()))
}
