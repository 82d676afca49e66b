package payments

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

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
		&models.User{}, &models.Appointment{}, &models.PaymentMethod{},
		&models.AppointmentHistory{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	payment_methods,
	appointment_histories,
	appointments,
	users
RESTART IDENTITY CASCADE`
		if err := db.Exec(sql).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
	})

	return db
}

func injectAuth(userID uuid.UUID, role string) fiber.Handler {
	id := userID.String()
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		c.Locals("role", role)
		return c.Next()
	}
}

func newTestApp(h *Handler, userID uuid.UUID, role string) *fiber.App {
	app := fiber.New()
	app.Use(injectAuth(userID, role))
	app.Post("/api/payment-methods", h.AddMethod)
	app.Get("/api/payment-methods", h.ListMethods)
	app.Post("/api/payment-methods/:id/default", h.SetDefault)
	app.Delete("/api/payment-methods/:id", h.DeleteMethod)
	return app
}

func seedUser(t *testing.T, db *gorm.DB, role models.Role) uuid.UUID {
	t.Helper()
	id := uuid.New()
	email := fmt.Sprintf("u+%s@test.local", uuid.NewString())
	if err := db.Create(&models.User{ID: id, Email: email, Role: role, PasswordHash: "x"}).Error; err != nil {
		t.Fatal(err)
	}
	return id
}

func postJSON(t *testing.T, app *fiber.App, path, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 15000)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode
}

/* ================== TESTS ================== */

// Expiry checks run before any DB access, so this needs no database.
func Test_AddMethod_RejectsExpiredCard(t *testing.T) {
	now := time.Now()
	if now.Month() == time.January {
		t.Skip("no past month exists in January")
	}

	h := NewHandler(nil)
	app := newTestApp(h, uuid.New(), string(models.RoleClient))

	body := fmt.Sprintf(
		`{"type":"card","card_number":"4532015112830366","expiry_month":%d,"expiry_year":%d}`,
		int(now.Month())-1, now.Year())
	if code := postJSON(t, app, "/api/payment-methods", body); code != 400 {
		t.Fatalf("past month in current year accepted: got %d", code)
	}
}

func Test_AddMethod_CurrentMonthStillValid(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, models.RoleClient)

	h := NewHandler(db)
	app := newTestApp(h, userID, string(models.RoleClient))

	now := time.Now()
	body := fmt.Sprintf(
		`{"type":"card","card_number":"4532015112830366","expiry_month":%d,"expiry_year":%d}`,
		int(now.Month()), now.Year())
	if code := postJSON(t, app, "/api/payment-methods", body); code != 201 {
		t.Fatalf("card expiring this month rejected: got %d", code)
	}
}

func Test_AddMethod_FirstBecomesDefault_FullNumberNeverStored(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, models.RoleClient)

	h := NewHandler(db)
	app := newTestApp(h, userID, string(models.RoleClient))

	body := `{"type":"card","card_number":"4532015112830366","expiry_month":12,"expiry_year":2030}`
	if code := postJSON(t, app, "/api/payment-methods", body); code != 201 {
		t.Fatalf("add got %d", code)
	}

	var pm models.PaymentMethod
	if err := db.First(&pm, "user_id = ?", userID).Error; err != nil {
		t.Fatal(err)
	}
	if !pm.IsDefault {
		t.Fatal("first method should be the default")
	}
	if pm.CardBrand != "Visa" || pm.CardLast4 != "0366" {
		t.Fatalf("brand/last4 wrong: %+v", pm)
	}
}

func Test_AddMethod_RejectsLuhnFailure(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, models.RoleClient)

	h := NewHandler(db)
	app := newTestApp(h, userID, string(models.RoleClient))

	body := `{"type":"card","card_number":"4532015112830367","expiry_month":12,"expiry_year":2030}`
	if code := postJSON(t, app, "/api/payment-methods", body); code != 400 {
		t.Fatalf("want 400, got %d", code)
	}

	var cnt int64
	_ = db.Model(&models.PaymentMethod{}).Where("user_id = ?", userID).Count(&cnt).Error
	if cnt != 0 {
		t.Fatalf("invalid card persisted: %d rows", cnt)
	}
}

func Test_SetDefault_ExactlyOneDefaultSurvives(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, models.RoleClient)

	h := NewHandler(db)
	app := newTestApp(h, userID, string(models.RoleClient))

	for _, num := range []string{"4532015112830366", "5555555555554444"} {
		body := `{"type":"card","card_number":"` + num + `","expiry_month":6,"expiry_year":2031}`
		if code := postJSON(t, app, "/api/payment-methods", body); code != 201 {
			t.Fatalf("add got %d", code)
		}
	}

	var methods []models.PaymentMethod
	if err := db.Where("user_id = ?", userID).Order("created_at ASC").Find(&methods).Error; err != nil {
		t.Fatal(err)
	}
	if len(methods) != 2 {
		t.Fatalf("want 2 methods, got %d", len(methods))
	}

	// Promote the second one
	if code := postJSON(t, app, "/api/payment-methods/"+methods[1].ID.String()+"/default", ""); code != 200 {
		t.Fatalf("set default got %d", code)
	}

	var defaults int64
	if err := db.Model(&models.PaymentMethod{}).
		Where("user_id = ? AND is_default = true", userID).
		Count(&defaults).Error; err != nil {
		t.Fatal(err)
	}
	if defaults != 1 {
		t.Fatalf("want exactly 1 default, got %d", defaults)
	}

	var promoted models.PaymentMethod
	_ = db.First(&promoted, "id = ?", methods[1].ID).Error
	if !promoted.IsDefault {
		t.Fatal("promoted method is not the default")
	}
}

func Test_ListMethods_DefaultSortsFirst(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, models.RoleClient)

	h := NewHandler(db)
	app := newTestApp(h, userID, string(models.RoleClient))

	_ = postJSON(t, app, "/api/payment-methods", `{"type":"paypal"}`)
	_ = postJSON(t, app, "/api/payment-methods", `{"type":"bank"}`)

	req := httptest.NewRequest("GET", "/api/payment-methods", nil)
	resp, err := app.Test(req, 15000)
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Items []struct {
			Type      string `json:"type"`
			IsDefault bool   `json:"is_default"`
		} `json:"items"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)

	if len(out.Items) != 2 {
		t.Fatalf("want 2, got %d", len(out.Items))
	}
	if !out.Items[0].IsDefault {
		t.Fatalf("default not first: %+v", out.Items)
	}
}
