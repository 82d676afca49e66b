package database

import (
	"context"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ReadTimeout only bounds the client-side wait; the underlying statement may
// still finish on the server. Storage uploads carry their own HTTP timeout.
const ReadTimeout = 10 * time.Second

func Init() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database:", err)
	}
	return db
}

// ReadContext returns a context bounded by ReadTimeout for query-heavy paths.
func ReadContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ReadTimeout)
}
