package logs

import (
	"log"
	"os"

	"go.uber.org/zap"
)

var sugar *zap.SugaredLogger

// Init builds the process logger. Development encoding when APP_ENV=dev.
func Init() {
	var (
		l   *zap.Logger
		err error
	)
	if os.Getenv("APP_ENV") == "dev" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal("logger init failed:", err)
	}
	sugar = l.Sugar()
}

// L returns the process logger, initializing a fallback if Init was not called
// (tests and helpers that run without main).
func L() *zap.SugaredLogger {
	if sugar == nil {
		sugar = zap.NewNop().Sugar()
	}
	return sugar
}

// Warnw logs a best-effort failure that was swallowed on purpose.
func Warnw(msg string, kv ...any) { L().Warnw(msg, kv...) }

// Errorw logs an unexpected failure that was still non-fatal to the request.
func Errorw(msg string, kv ...any) { L().Errorw(msg, kv...) }
