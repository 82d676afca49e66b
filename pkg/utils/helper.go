package utils

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jiy4/Brief-Case/pkg/logs"
	"github.com/jiy4/Brief-Case/pkg/models"
)

// LogAppointmentHistory inserts an audit record into appointment_histories.
// Used to track status changes (booked, rescheduled, cancelled, confirmed,
// deleted). Failures are logged and swallowed (best-effort audit).
func LogAppointmentHistory(
	ctx context.Context,
	db *gorm.DB,
	appointmentID, actorID uuid.UUID,
	action string,
	oldS, newS models.AppointmentStatus,
	reason string,
) {
	err := db.WithContext(ctx).Create(&models.AppointmentHistory{
		AppointmentID: appointmentID,
		ActorID:       actorID,
		Action:        action,
		OldStatus:     oldS,
		NewStatus:     newS,
		Reason:        reason,
		CreatedAt:     time.Now(),
	}).Error
	if err != nil {
		logs.Warnw("appointment history insert failed", "appointment_id", appointmentID, "action", action, "err", err)
	}
}
