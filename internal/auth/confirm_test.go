package auth

import (
	"fmt"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jiy4/Brief-Case/pkg/models"
)

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
	if err := db.AutoMigrate(&models.User{}, &models.LawyerProfile{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	lawyer_profiles,
	users
RESTART IDENTITY CASCADE`
		if err := db.Exec(sql).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
	})

	return db
}

func newAuthApp(db *gorm.DB) *fiber.App {
	h := NewHandler(db, nil)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/signup", h.Signup)
	app.Post("/api/login", h.Login)
	app.Post("/api/confirm-email", h.ConfirmEmail)
	return app
}

func Test_EmailConfirmation_FullFlow(t *testing.T) {
	db := openTestDB(t)
	t.Setenv("REQUIRE_EMAIL_CONFIRMATION", "true")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("JWT_SECRET", "test-secret")

	app := newAuthApp(db)
	email := fmt.Sprintf("c+%s@test.local", uuid.NewString())

	// Signup: no session token yet, a dev confirmation token instead
	body := `{"role":"client","first_name":"A","last_name":"B","email":"` + email + `","password":"Str0ngPass"}`
	code, out := post(t, app, "/api/signup", body)
	if code != 201 {
		t.Fatalf("signup got %d: %+v", code, out)
	}
	if needs, _ := out["needs_confirmation"].(bool); !needs {
		t.Fatalf("want needs_confirmation, got %+v", out)
	}
	confirmToken, _ := out["confirmation_token"].(string)
	if confirmToken == "" {
		t.Fatalf("dev confirmation token missing: %+v", out)
	}
	if _, ok := out["token"]; ok {
		t.Fatal("signup issued a session token before confirmation")
	}

	// Login before confirming is refused with its own message
	login := `{"email":"` + email + `","password":"Str0ngPass"}`
	code, out = post(t, app, "/api/login", login)
	if code != 403 {
		t.Fatalf("unconfirmed login want 403, got %d: %+v", code, out)
	}
	if msg, _ := out["message"].(string); msg != "Email not confirmed" {
		t.Fatalf("want 'Email not confirmed', got %q", msg)
	}

	// Redeem the confirmation token: returns a session
	code, out = post(t, app, "/api/confirm-email", `{"token":"`+confirmToken+`"}`)
	if code != 200 {
		t.Fatalf("confirm got %d: %+v", code, out)
	}
	if tok, _ := out["token"].(string); tok == "" {
		t.Fatalf("confirm returned no session token: %+v", out)
	}

	// Redeeming again is harmless
	if code, _ = post(t, app, "/api/confirm-email", `{"token":"`+confirmToken+`"}`); code != 200 {
		t.Fatalf("second confirm got %d", code)
	}

	// Login now succeeds
	code, out = post(t, app, "/api/login", login)
	if code != 200 {
		t.Fatalf("confirmed login got %d: %+v", code, out)
	}
	if role, _ := out["role"].(string); role != "client" {
		t.Fatalf("want role client, got %+v", out)
	}
}

func Test_ConfirmEmail_RejectsGarbageToken(t *testing.T) {
	db := openTestDB(t)
	t.Setenv("JWT_SECRET", "test-secret")

	app := newAuthApp(db)
	code, _ := post(t, app, "/api/confirm-email", `{"token":"not-a-jwt"}`)
	if code != 401 {
		t.Fatalf("want 401, got %d", code)
	}
}
