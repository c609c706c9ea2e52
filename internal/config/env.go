package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Env struct {
	AppAddr string
	GinMode string

	DBUser string
	DBPass string
	DBHost string
	DBName string

	JWTSecret          string
	CORSAllowedOrigins []string
	AMQPURL            string

	Booking Booking
}

// Booking holds everything the orchestrator needs; it is passed explicitly
// instead of living in package state.
type Booking struct {
	PortalURL    string
	OCRURL       string
	Headless     bool
	Verbose      bool
	ChromeBinary string

	PageTimeout        time.Duration
	MaxCaptchaAttempts int // 0 = keep going while the refresh control exists
	TicketCount        int

	PollInterval   time.Duration
	RetryInterval  time.Duration
	MaxRetryWindow time.Duration
	PoolSize       int

	InteractiveTTL time.Duration
	InteractiveMax int
}

// DefaultBooking mirrors the values the scheduler was tuned with.
func DefaultBooking() Booking {
	return Booking{
		PortalURL:          "https://irs.thsrc.com.tw/IMINT/",
		OCRURL:             "http://127.0.0.1:9898/ocr",
		Headless:           true,
		PageTimeout:        15 * time.Second,
		MaxCaptchaAttempts: 30,
		TicketCount:        1,
		PollInterval:       5 * time.Second,
		RetryInterval:      30 * time.Second,
		MaxRetryWindow:     30 * time.Minute,
		PoolSize:           4,
		InteractiveTTL:     5 * time.Minute,
		InteractiveMax:     4,
	}
}

func LoadEnv() Env {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: gagal membaca .env: %v", err)
	}

	appAddr := strings.TrimSpace(os.Getenv("APP_ADDR"))
	if appAddr == "" {
		appAddr = ":8080"
	}

	b := DefaultBooking()
	b.PortalURL = str("PORTAL_URL", b.PortalURL)
	b.OCRURL = str("OCR_URL", b.OCRURL)
	b.Headless = boolean("BROWSER_HEADLESS", b.Headless)
	b.Verbose = boolean("BOOKING_VERBOSE", b.Verbose)
	b.ChromeBinary = str("GOOGLE_CHROME_BIN", "")
	b.PageTimeout = duration("PAGE_TIMEOUT", b.PageTimeout)
	b.MaxCaptchaAttempts = integer("MAX_CAPTCHA_ATTEMPTS", b.MaxCaptchaAttempts)
	b.TicketCount = integer("TICKET_COUNT", b.TicketCount)
	b.PollInterval = duration("POLL_INTERVAL", b.PollInterval)
	b.RetryInterval = duration("RETRY_INTERVAL", b.RetryInterval)
	b.MaxRetryWindow = duration("MAX_RETRY_WINDOW", b.MaxRetryWindow)
	b.PoolSize = integer("WORKER_POOL_SIZE", b.PoolSize)
	b.InteractiveTTL = duration("INTERACTIVE_TTL", b.InteractiveTTL)
	b.InteractiveMax = integer("INTERACTIVE_MAX_SESSIONS", b.InteractiveMax)

	var origins []string
	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return Env{
		AppAddr:            appAddr,
		GinMode:            strings.TrimSpace(os.Getenv("GIN_MODE")),
		DBUser:             str("DB_USER", "root"),
		DBPass:             os.Getenv("DB_PASS"),
		DBHost:             str("DB_HOST", "127.0.0.1:3306"),
		DBName:             str("DB_NAME", "booker"),
		JWTSecret:          str("JWT_SECRET", "super-secret-key-change-me"),
		CORSAllowedOrigins: origins,
		AMQPURL:            strings.TrimSpace(os.Getenv("AMQP_URL")),
		Booking:            b,
	}
}

func str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func boolean(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("warning: %s=%q bukan boolean, pakai default %v", key, v, def)
		return def
	}
	return b
}

func integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("warning: %s=%q bukan angka, pakai default %d", key, v, def)
		return def
	}
	return n
}

func duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("warning: %s=%q bukan durasi, pakai default %s", key, v, def)
		return def
	}
	return d
}
