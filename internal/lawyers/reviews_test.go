package lawyers

import (
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jiy4/Brief-Case/pkg/models"
)

/* ===== helpers ===== */

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	_ = godotenv.Load()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.LawyerProfile{}, &models.PracticeArea{},
		&models.Appointment{}, &models.Review{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	reviews,
	appointments,
	lawyer_practice_areas,
	practice_areas,
	lawyer_profiles,
	users
RESTART IDENTITY CASCADE`
		if err := db.Exec(sql).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
	})

	return db
}

type seedOut struct {
	ClientID uuid.UUID
	LawyerID uuid.UUID
	ApptID   uuid.UUID
}

func seedPair(t *testing.T, db *gorm.DB) seedOut {
	t.Helper()
	clientID := uuid.New()
	lawyerID := uuid.New()

	cEmail := fmt.Sprintf("c+%s@test.local", uuid.NewString())
	lEmail := fmt.Sprintf("l+%s@test.local", uuid.NewString())

	if err := db.Create(&models.User{ID: clientID, Email: cEmail, Role: models.RoleClient, PasswordHash: "x"}).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&models.User{ID: lawyerID, Email: lEmail, Role: models.RoleLawyer, PasswordHash: "x"}).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&models.LawyerProfile{UserID: lawyerID, BarNumber: "BAR-1", ConsultationFee: 15000}).Error; err != nil {
		t.Fatal(err)
	}

	appt := models.Appointment{
		ClientID: clientID, LawyerID: lawyerID,
		Date: "2025-06-01", Time: "10:00",
		Status: models.ApptCompleted,
	}
	if err := db.Create(&appt).Error; err != nil {
		t.Fatal(err)
	}
	return seedOut{ClientID: clientID, LawyerID: lawyerID, ApptID: appt.ID}
}

func injectAuth(userID uuid.UUID, role string) fiber.Handler {
	id := userID.String()
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		c.Locals("role", role)
		return c.Next()
	}
}

/* ================== TESTS ================== */

func Test_RoundRating(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{4.25, 4.3},
		{4.24, 4.2},
		{5.0, 5.0},
		{3.333333, 3.3},
	}
	for _, tc := range cases {
		if got := RoundRating(tc.in); got != tc.want {
			t.Errorf("RoundRating(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func Test_RecomputeRating_NoReviewsDefaultsToFive(t *testing.T) {
	db := openTestDB(t)
	seed := seedPair(t, db)

	if err := RecomputeRating(db, seed.LawyerID); err != nil {
		t.Fatal(err)
	}

	var p models.LawyerProfile
	if err := db.First(&p, "user_id = ?", seed.LawyerID).Error; err != nil {
		t.Fatal(err)
	}
	if p.AverageRating != 5.0 || p.TotalReviews != 0 {
		t.Fatalf("want (5.0, 0), got (%v, %d)", p.AverageRating, p.TotalReviews)
	}
}

func Test_CreateReview_RecomputesAverage(t *testing.T) {
	db := openTestDB(t)
	seed := seedPair(t, db)

	h := NewHandler(db)
	app := fiber.New()
	app.Use(injectAuth(seed.ClientID, string(models.RoleClient)))
	app.Post("/api/reviews", h.CreateReview)

	for _, rating := range []int{4, 5} {
		body := fmt.Sprintf(`{"lawyer_id":%q,"appointment_id":%q,"rating":%d,"comment":"ok"}`,
			seed.LawyerID, seed.ApptID, rating)
		req := httptest.NewRequest("POST", "/api/reviews", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, 15000)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != 201 {
			t.Fatalf("create review got %d", resp.StatusCode)
		}
	}

	var p models.LawyerProfile
	if err := db.First(&p, "user_id = ?", seed.LawyerID).Error; err != nil {
		t.Fatal(err)
	}
	if p.AverageRating != 4.5 || p.TotalReviews != 2 {
		t.Fatalf("want (4.5, 2), got (%v, %d)", p.AverageRating, p.TotalReviews)
	}
}

func Test_CreateReview_RejectsForeignAppointment(t *testing.T) {
	db := openTestDB(t)
	seed := seedPair(t, db)
	other := seedPair(t, db)

	h := NewHandler(db)
	app := fiber.New()
	app.Use(injectAuth(seed.ClientID, string(models.RoleClient)))
	app.Post("/api/reviews", h.CreateReview)

	// Appointment belongs to the other pair
	body := fmt.Sprintf(`{"lawyer_id":%q,"appointment_id":%q,"rating":5}`,
		seed.LawyerID, other.ApptID)
	req := httptest.NewRequest("POST", "/api/reviews", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 15000)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("want 404, got %d", resp.StatusCode)
	}
}
