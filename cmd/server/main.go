package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/stuvents/events-api/internal/config"
	"github.com/stuvents/events-api/internal/database"
	"github.com/stuvents/events-api/internal/handler"
	"github.com/stuvents/events-api/internal/middleware"
	"github.com/stuvents/events-api/internal/queue"
	"github.com/stuvents/events-api/internal/repository"
	"github.com/stuvents/events-api/internal/router"
	"github.com/stuvents/events-api/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client degrades caching and rate
	// limiting to pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; response cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	ticketTypes := repository.NewTicketTypeRepo(db)
	bookings := repository.NewBookingRepo(db)
	bookingStore := repository.NewBookingStore(db, cfg.BookingLockWaitSec)

	bookingSvc := service.NewBookingService(service.SQLInventory{Store: bookingStore}, users)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := handler.NewPublicEventHandler(events, ticketTypes)
	organizerH := handler.NewOrganizerHandler(events, ticketTypes)
	bookingH := handler.NewBookingHandler(bookingSvc, bookings, events)

	e := echo.New()
	e.HideBanner = true

	rateMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, rateMW, cacheMW)
	router.RegisterBookings(e, bookingH, cfg.JWTSecret)
	router.RegisterOrganizer(e, organizerH, cfg.JWTSecret)

	// Background consumer for booking confirmations. Runs its own
	// reconnect loop; a missing broker never blocks startup.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
