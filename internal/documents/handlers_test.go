package documents

import (
	"fmt"
	"net/http/httptest"
	"os"
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
	if err := db.AutoMigrate(&models.User{}, &models.Document{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	documents,
	users
RESTART IDENTITY CASCADE`
		if err := db.Exec(sql).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
	})

	return db
}

func seedUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	email := fmt.Sprintf("u+%s@test.local", uuid.NewString())
	if err := db.Create(&models.User{ID: id, Email: email, Role: models.RoleClient, PasswordHash: "x"}).Error; err != nil {
		t.Fatal(err)
	}
	return id
}

func seedDocument(t *testing.T, db *gorm.DB, ownerID uuid.UUID, name string) {
	t.Helper()
	doc := models.Document{
		OwnerID:      ownerID,
		Key:          "docs/" + ownerID.String() + "/" + name,
		URL:          "https://example.test/storage/v1/object/public/files/docs/" + name,
		Mime:         "application/pdf",
		Size:         100,
		OriginalName: name,
	}
	if err := db.Create(&doc).Error; err != nil {
		t.Fatal(err)
	}
}

func injectAuth(userID uuid.UUID, role string) fiber.Handler {
	id := userID.String()
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		c.Locals("role", role)
		return c.Next()
	}
}

func newTestApp(h *Handler, userID uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Use(injectAuth(userID, string(models.RoleClient)))
	app.Get("/api/documents/mine", h.ListMine)
	app.Delete("/api/documents", h.DeleteAll)
	app.Delete("/api/documents/:id", h.Delete)
	return app
}

/* ================== TESTS ================== */

func Test_DeleteAll_NoDocumentsIsANoOp(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db)

	// No storage client needed when there is nothing to remove
	h := NewHandler(db, nil)
	app := newTestApp(h, userID)

	req := httptest.NewRequest("DELETE", "/api/documents", nil)
	resp, err := app.Test(req, 15000)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
}

func Test_DeleteAll_StorageUnavailableKeepsRows(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db)
	seedDocument(t, db, userID, "a.pdf")
	seedDocument(t, db, userID, "b.pdf")

	h := NewHandler(db, nil)
	app := newTestApp(h, userID)

	req := httptest.NewRequest("DELETE", "/api/documents", nil)
	resp, err := app.Test(req, 15000)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 503 {
		t.Fatalf("want 503 when storage is down, got %d", resp.StatusCode)
	}

	// Rows must survive: objects were never removed
	var cnt int64
	_ = db.Model(&models.Document{}).Where("owner_id = ?", userID).Count(&cnt).Error
	if cnt != 2 {
		t.Fatalf("rows deleted without storage cleanup: %d left", cnt)
	}
}

func Test_DeleteAll_OnlyTouchesOwnRows(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db)
	otherID := seedUser(t, db)
	seedDocument(t, db, otherID, "theirs.pdf")

	h := NewHandler(db, nil)
	app := newTestApp(h, userID)

	// Caller has no documents; the other user's row is untouched
	req := httptest.NewRequest("DELETE", "/api/documents", nil)
	resp, err := app.Test(req, 15000)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}

	var cnt int64
	_ = db.Model(&models.Document{}).Where("owner_id = ?", otherID).Count(&cnt).Error
	if cnt != 1 {
		t.Fatalf("foreign rows affected: %d left", cnt)
	}
}
