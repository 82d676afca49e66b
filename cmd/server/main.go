// @title           Brief-Case API
// @version         1.0
// @description     API for Brief-Case, a legal services marketplace: clients find lawyers, book and pay for consultations, chat with attachments, and manage documents.
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/jiy4/Brief-Case/pkg/database"
	"github.com/jiy4/Brief-Case/pkg/logs"
	"github.com/jiy4/Brief-Case/pkg/models"

	"github.com/jiy4/Brief-Case/internal/appointments"
	"github.com/jiy4/Brief-Case/internal/auth"
	"github.com/jiy4/Brief-Case/internal/chat"
	"github.com/jiy4/Brief-Case/internal/documents"
	"github.com/jiy4/Brief-Case/internal/lawyers"
	"github.com/jiy4/Brief-Case/internal/payments"
	"github.com/jiy4/Brief-Case/internal/storage"
)

func main() {
	_ = godotenv.Load()
	logs.Init()

	db := database.Init()
	if err := db.AutoMigrate(
		&models.User{}, &models.LawyerProfile{}, &models.PracticeArea{},
		&models.Appointment{}, &models.Review{}, &models.Document{},
		&models.Conversation{}, &models.Message{}, &models.PaymentMethod{},
		&models.AppointmentHistory{},
	); err != nil {
		log.Fatal("migration failed:", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
		BodyLimit:    12 * 1024 * 1024, // uploads cap at 10MB plus form overhead
	})

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	api := app.Group("/api")

	// Storage helper (uses SUPABASE_URL / SUPABASE_SERVICE_KEY / SUPABASE_BUCKET)
	sb := storage.NewSupabase()
	if sb != nil {
		if err := sb.EnsureBucket(); err != nil {
			logs.Warnw("bucket check failed; uploads may not work", "err", err)
		}
	}

	// Auth & account
	authH := auth.NewHandler(db, sb)
	api.Post("/signup", authH.Signup)
	api.Post("/login", authH.Login)
	api.Post("/logout", auth.RequireAuth(), authH.Logout)
	api.Post("/confirm-email", authH.ConfirmEmail)
	api.Post("/forgot-password", authH.ForgotPassword)
	api.Post("/reset-password", authH.ResetPassword)
	api.Post("/change-password", auth.RequireAuth(), authH.ChangePassword)
	api.Get("/me", auth.RequireAuth(), authH.Me)
	api.Patch("/me", auth.RequireAuth(), authH.UpdateProfile)
	api.Put("/me/photo", auth.RequireAuth(), authH.UpdatePhoto)
	api.Delete("/me/photo", auth.RequireAuth(), authH.RemovePhoto)

	// Lawyer directory
	lawyerH := lawyers.NewHandler(db)
	api.Get("/lawyers", lawyerH.Search)
	api.Get("/lawyers/:id", lawyerH.Detail)
	api.Get("/lawyers/:id/availability", lawyerH.Availability)
	api.Get("/practice-areas", lawyerH.PracticeAreas)
	api.Get("/lawyers/:id/reviews", lawyerH.ListReviews)
	api.Post("/reviews", auth.RequireAuth(), auth.RequireRole("client"), lawyerH.CreateReview)

	// Appointments
	apptH := appointments.NewHandler(db)
	api.Post("/appointments", auth.RequireAuth(), auth.RequireRole("client"), apptH.Book)
	api.Get("/appointments/mine", auth.RequireAuth(), apptH.ListMine)
	api.Patch("/appointments/:id", auth.RequireAuth(), apptH.Reschedule)
	api.Post("/appointments/:id/cancel", auth.RequireAuth(), apptH.Cancel)
	api.Delete("/appointments/:id", auth.RequireAuth(), apptH.Delete)

	// Documents
	docH := documents.NewHandler(db, sb)
	api.Post("/documents", auth.RequireAuth(), docH.Upload)
	api.Get("/documents/mine", auth.RequireAuth(), docH.ListMine)
	api.Delete("/documents", auth.RequireAuth(), docH.DeleteAll)
	api.Delete("/documents/:id", auth.RequireAuth(), docH.Delete)

	// Chat
	hub := chat.NewHub()
	chatH := chat.NewHandler(db, sb, hub)
	api.Post("/conversations", auth.RequireAuth(), chatH.Open)
	api.Get("/conversations", auth.RequireAuth(), chatH.List)
	api.Post("/conversations/:id/messages", auth.RequireAuth(), chatH.Send)
	api.Get("/conversations/:id/messages", auth.RequireAuth(), chatH.ListMessages)
	api.Post("/conversations/:id/read", auth.RequireAuth(), chatH.MarkRead)
	api.Delete("/messages/:id", auth.RequireAuth(), chatH.DeleteMessage)
	app.Use("/ws", chat.UpgradeGate())
	app.Get("/ws", chatH.ServeWS())

	// Payments
	payH := payments.NewHandler(db)
	api.Post("/payment-methods", auth.RequireAuth(), payH.AddMethod)
	api.Get("/payment-methods", auth.RequireAuth(), payH.ListMethods)
	api.Post("/payment-methods/:id/default", auth.RequireAuth(), payH.SetDefault)
	api.Delete("/payment-methods/:id", auth.RequireAuth(), payH.DeleteMethod)
	api.Get("/payments/quote/:lawyerID", auth.RequireAuth(), payH.Quote)
	api.Post("/payments/checkout", auth.RequireAuth(), auth.RequireRole("client"), payH.Checkout)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	log.Println("Server running on :" + port)
	log.Fatal(app.Listen(":" + port))
}
