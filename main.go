package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booker/internal/browser"
	intconfig "booker/internal/config"
	intdb "booker/internal/db"
	"booker/internal/events"
	router "booker/internal/http"
	"booker/internal/http/handlers"
	"booker/internal/metrics"
	"booker/internal/ocr"
	"booker/internal/portal"
	"booker/internal/repositories"
	"booker/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	db := intconfig.ConnectDB(env)
	defer intconfig.CloseDB()
	if err := intdb.EnsureSchema(db); err != nil {
		log.Fatalf("Gagal menyiapkan schema: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	m := metrics.New(nil)

	hub := events.NewHub()
	publishers := events.Multi{hub}
	if env.AMQPURL != "" {
		mq := events.NewMQ(env.AMQPURL)
		if err := mq.Connect(ctx); err != nil {
			log.Printf("warning: RabbitMQ tidak tersedia, event hanya lokal: %v", err)
		} else {
			defer mq.Close()
			publishers = append(publishers, events.NewAMQPPublisher(mq))
		}
	}

	launcher := browser.NewPlaywrightLauncher(env.Booking)
	defer func() {
		if err := launcher.Stop(); err != nil {
			log.Printf("warning: gagal menghentikan playwright: %v", err)
		}
	}()
	stages := portal.New(env.Booking, ocr.NewClient(env.Booking.OCRURL)).WithObserver(m)

	tasks := repositories.TaskRepository{DB: db}
	tickets := repositories.TicketRepository{DB: db}
	profiles := repositories.ProfileRepository{DB: db}

	coordinator := &services.Coordinator{
		Tasks:   tasks,
		Runner:  services.AttemptRunner{Launcher: launcher, Stages: stages, Profiles: profiles},
		Events:  publishers,
		Metrics: m,
		Cfg:     env.Booking,
	}
	interactive := &services.InteractiveService{
		Launcher: launcher,
		Stages:   stages,
		Profiles: profiles,
		Tickets:  tickets,
		Metrics:  m,
		TTL:      env.Booking.InteractiveTTL,
		MaxOpen:  env.Booking.InteractiveMax,
	}

	hs := &handlers.Handlers{
		DB:          db,
		Users:       repositories.UserRepository{DB: db},
		Tasks:       services.TaskService{Tasks: tasks, Events: publishers},
		Tickets:     services.TicketService{Tickets: tickets},
		Profiles:    services.ProfileService{Profiles: profiles},
		Docs:        services.DocsService{Tickets: tickets},
		Interactive: interactive,
		Hub:         hub,
		TicketCount: env.Booking.TicketCount,
		JWTSecret:   []byte(env.JWTSecret),
	}
	r := router.NewRouter(env, hs, m.Handler())

	go func() {
		if err := coordinator.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Scheduler berhenti: %v", err)
		}
	}()
	go interactive.RunReaper(ctx, time.Minute)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		// a live search can hold the request for the whole captcha loop
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server berjalan di http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Gagal menjalankan server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Mematikan server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown server gagal: %v", err)
	}
	if err := coordinator.Shutdown(shutdownCtx); err != nil {
		log.Printf("Scheduler belum selesai: %v", err)
	}

	log.Println("Server berhenti dengan aman.")
}
