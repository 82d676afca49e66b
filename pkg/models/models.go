package models

import (
	"time"

	"github.com/google/uuid"
)

/* =============================== Enums ================================== */

// Role defines the type of user in the system.
type Role string

const (
	RoleClient Role = "client"
	RoleLawyer Role = "lawyer"
)

// ConsultationType defines how a lawyer meets clients.
type ConsultationType string

const (
	ConsultInPerson ConsultationType = "in_person"
	ConsultVideo    ConsultationType = "video"
	ConsultPhone    ConsultationType = "phone"
	ConsultAny      ConsultationType = "any"
)

// AppointmentStatus defines lifecycle states for an appointment.
type AppointmentStatus string

const (
	ApptScheduled   AppointmentStatus = "scheduled"
	ApptConfirmed   AppointmentStatus = "confirmed"
	ApptRescheduled AppointmentStatus = "rescheduled"
	ApptCancelled   AppointmentStatus = "cancelled"
	ApptCompleted   AppointmentStatus = "completed"
)

// PaymentMethodType defines supported payment instruments.
type PaymentMethodType string

const (
	MethodCard   PaymentMethodType = "card"
	MethodPaypal PaymentMethodType = "paypal"
	MethodBank   PaymentMethodType = "bank"
)

/* =============================== Entities =============================== */

// User represents a client or lawyer account.
type User struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"not null" json:"-"`
	Role             Role       `gorm:"type:varchar(20);not null" json:"role"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	PhotoURL         string     `json:"photo_url"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// LawyerProfile extends a User (1:1 by UserID) with directory data.
// AverageRating and TotalReviews are derived; they are recomputed whenever a
// review is created and default to (5.0, 0) when no reviews exist.
type LawyerProfile struct {
	UserID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"user_id"`
	BarNumber        string           `gorm:"not null" json:"bar_number"`
	ConsultationFee  int              `gorm:"not null" json:"consultation_fee"` // cents
	ConsultationType ConsultationType `gorm:"type:varchar(20);default:'any'" json:"consultation_type"`
	AverageRating    float64          `gorm:"default:5.0" json:"average_rating"`
	TotalReviews     int              `gorm:"default:0" json:"total_reviews"`
	Bio              string           `json:"bio"`
	FirmName         string           `json:"firm_name"`

	User          User           `gorm:"foreignKey:UserID;references:ID" json:"-"`
	PracticeAreas []PracticeArea `gorm:"many2many:lawyer_practice_areas" json:"practice_areas"`
}

// PracticeArea is a specialty a lawyer can be listed under.
type PracticeArea struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name string    `gorm:"uniqueIndex;not null" json:"name"`
}

// Appointment links one client and one lawyer at a date/time.
type Appointment struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"client_id"`
	LawyerID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"lawyer_id"`
	Date        string            `gorm:"type:varchar(10);not null" json:"date"` // YYYY-MM-DD
	Time        string            `gorm:"type:varchar(5);not null" json:"time"`  // HH:MM
	Status      AppointmentStatus `gorm:"type:varchar(20);default:'scheduled'" json:"status"`
	MeetingType ConsultationType  `gorm:"type:varchar(20)" json:"meeting_type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Review is a client's rating of a lawyer after a consultation.
type Review struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	LawyerID      uuid.UUID `gorm:"type:uuid;not null;index" json:"lawyer_id"`
	ClientID      uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	AppointmentID uuid.UUID `gorm:"type:uuid;not null" json:"appointment_id"`
	Rating        int       `gorm:"not null" json:"rating"` // 1..5
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
}

// Document is a file owned by a user, stored in object storage.
type Document struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID      uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Key          string    `gorm:"not null" json:"-"`
	URL          string    `gorm:"not null" json:"url"`
	DocumentType string    `gorm:"type:varchar(40)" json:"document_type"`
	Mime         string    `gorm:"not null" json:"mime"`
	Size         int       `gorm:"not null" json:"size"`
	OriginalName string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Conversation pairs exactly one client and one lawyer. The composite unique
// index guarantees at most one row per pair; creation goes through
// ON CONFLICT DO NOTHING so concurrent lookups cannot race into duplicates.
type Conversation struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conv_pair" json:"client_id"`
	LawyerID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conv_pair" json:"lawyer_id"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Message belongs to a Conversation. IsRead transitions false→true only.
type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"conversation_id"`
	SenderID       uuid.UUID  `gorm:"type:uuid;not null" json:"sender_id"`
	Body           string     `json:"body"`
	AttachmentURL  string     `json:"attachment_url,omitempty"`
	AttachmentName string     `json:"attachment_name,omitempty"`
	AttachmentMime string     `json:"attachment_mime,omitempty"`
	IsRead         bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// PaymentMethod is a stored payment instrument. Card numbers are never
// persisted; only the brand and last four digits survive intake.
type PaymentMethod struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Type        PaymentMethodType `gorm:"type:varchar(20);not null" json:"type"`
	CardBrand   string            `gorm:"type:varchar(20)" json:"card_brand,omitempty"`
	CardLast4   string            `gorm:"type:varchar(4)" json:"card_last4,omitempty"`
	ExpiryMonth int               `json:"expiry_month,omitempty"`
	ExpiryYear  int               `json:"expiry_year,omitempty"`
	IsDefault   bool              `gorm:"default:false" json:"is_default"`
	CreatedAt   time.Time         `json:"created_at"`
}

// AppointmentHistory is an audit log entry for appointment status changes.
type AppointmentHistory struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AppointmentID uuid.UUID         `gorm:"type:uuid;not null;index" json:"appointment_id"`
	ActorID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"actor_id"`
	Action        string            `gorm:"type:varchar(50);not null" json:"action"` // booked, rescheduled, cancelled, confirmed, deleted
	OldStatus     AppointmentStatus `gorm:"type:varchar(20)" json:"old_status"`
	NewStatus     AppointmentStatus `gorm:"type:varchar(20)" json:"new_status"`
	Reason        string            `gorm:"type:text" json:"reason"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
}
