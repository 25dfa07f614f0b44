package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/arunvm123/villabooking/availability"
	"github.com/arunvm123/villabooking/booking"
	"github.com/arunvm123/villabooking/cache/redis"
	"github.com/arunvm123/villabooking/calendar"
	"github.com/arunvm123/villabooking/calendar/ical"
	"github.com/arunvm123/villabooking/catalog"
	"github.com/arunvm123/villabooking/config"
	"github.com/arunvm123/villabooking/payment/paysera"
	"github.com/arunvm123/villabooking/pricing"
	"github.com/arunvm123/villabooking/publisher"
	"github.com/arunvm123/villabooking/publisher/kafka"
	"github.com/arunvm123/villabooking/repository"
	"github.com/arunvm123/villabooking/repository/memory"
	"github.com/arunvm123/villabooking/repository/postgres"
	"github.com/gin-gonic/gin"
)

// buildCatalog uses the configured room types, or the built-in villa rooms
// when none are configured.
func buildCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if len(cfg.RoomTypes) == 0 {
		return catalog.Default(), nil
	}

	types := make([]catalog.RoomType, 0, len(cfg.RoomTypes))
	for _, rt := range cfg.RoomTypes {
		rates := make(map[int]catalog.Rate, len(rt.Rates))
		for guests, rate := range rt.Rates {
			rates[guests] = catalog.Rate{
				WithoutBreakfast: rate.WithoutBreakfast,
				WithBreakfast:    rate.WithBreakfast,
			}
		}
		types = append(types, catalog.FromRates(rt.ID, rt.Name, rates))
	}
	return catalog.New(types)
}

type stores struct {
	bookings repository.BookingRepository
	reviews  repository.ReviewRepository
}

func buildStores(cfg *config.Database, pendingTTL time.Duration) (stores, error) {
	switch cfg.Driver {
	case "memory":
		repo := memory.NewRepository(memory.WithPendingTTL(pendingTTL))
		return stores{bookings: repo, reviews: repo}, nil
	case "postgres", "":
		db, err := postgres.Open(cfg)
		if err != nil {
			return stores{}, err
		}
		return stores{
			bookings: postgres.NewBookingRepository(db, pendingTTL),
			reviews:  postgres.NewReviewRepository(db),
		}, nil
	default:
		return stores{}, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// buildCalendars wraps every configured feed in the shared cache when one is available.
func buildCalendars(cfg *config.Calendar, cacheRepo *redis.RedisCacheRepository) *calendar.Registry {
	ttl := time.Duration(cfg.CacheTTL) * time.Second

	wrap := func(key, url string) calendar.Feed {
		feed := ical.NewFeedWithConfig(url, cfg)
		if cacheRepo == nil || ttl <= 0 {
			return feed
		}
		return calendar.NewCached(feed, cacheRepo, key, ttl)
	}

	var property calendar.Feed
	if cfg.FeedURL != "" {
		property = wrap("property", cfg.FeedURL)
	}

	rooms := make(map[string]calendar.Feed, len(cfg.RoomFeeds))
	for roomTypeID, url := range cfg.RoomFeeds {
		if url == "" {
			continue
		}
		rooms[roomTypeID] = wrap("room:"+roomTypeID, url)
	}

	return calendar.NewRegistry(property, rooms)
}

// SetupRouter builds every dependency from cfg. The returned closer releases
// connections that outlive the HTTP server.
func SetupRouter(cfg *config.Config) (*gin.Engine, io.Closer) {
	cat, err := buildCatalog(cfg)
	if err != nil {
		log.Fatal("Failed to build room catalog:", err)
	}

	st, err := buildStores(&cfg.Database, cfg.Booking.PendingTTL())
	if err != nil {
		log.Fatal("Failed to initialize repository:", err)
	}

	var cacheRepo *redis.RedisCacheRepository
	if cfg.Redis.Enabled {
		cacheRepo, err = redis.NewRedisCacheRepository(cfg.Redis.GetRedisURL(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to initialize cache:", err)
		}
	}

	scope, err := availability.ParseInventoryScope(cfg.Calendar.InventoryScope)
	if err != nil {
		log.Fatal("Invalid calendar configuration:", err)
	}

	opts := []availability.Option{availability.WithScope(scope)}
	switch cfg.Lock.Driver {
	case "redis":
		if cacheRepo == nil {
			log.Fatal("Redis lock driver requires redis.enabled")
		}
		opts = append(opts, availability.WithLocker(redis.NewLocker(cacheRepo.Client(), time.Duration(cfg.Lock.TTL)*time.Second)))
	case "local", "":
	default:
		log.Fatalf("Unknown lock driver %q", cfg.Lock.Driver)
	}

	registry := buildCalendars(&cfg.Calendar, cacheRepo)
	var calendarSource availability.CalendarSource
	if !registry.Empty() {
		calendarSource = registry
	} else {
		log.Println("No calendar feeds configured, checking local bookings only")
	}

	engine := availability.NewEngine(cat, st.bookings, calendarSource, opts...)
	calculator := pricing.NewCalculator(cat)

	var pub publisher.Publisher = publisher.Noop{}
	if cfg.Kafka.Enabled {
		pub = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
	}

	bookings := booking.NewService(engine, calculator, st.bookings, pub)
	jwtService := NewJWTService(cfg.JWTSecret)

	handler := NewBookingHandler(
		cat,
		engine,
		calculator,
		bookings,
		paysera.NewClient(&cfg.Payment),
		st.reviews,
		registry,
		jwtService,
		cfg.Admin,
	)
	handler.AddHealthCheck("database", st.bookings.Ping)
	if cacheRepo != nil {
		handler.AddHealthCheck("redis", func(ctx context.Context) error {
			return cacheRepo.Ping()
		})
	}

	return newRouter(handler, jwtService), pub
}

func newRouter(handler *BookingHandler, jwtService *JWTService) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(LoggingMiddleware())

	// Health check endpoint (no auth required)
	r.GET("/health", handler.HealthCheck)

	api := r.Group("/api")

	// Public endpoints
	api.GET("/rooms", handler.ListRooms)
	api.GET("/booked-dates", handler.BookedDates)
	api.POST("/check-availability", handler.CheckAvailability)
	api.POST("/create-payment", handler.CreatePayment)
	api.GET("/booking/:id", handler.GetBooking)
	api.GET("/reviews", handler.ListReviews)
	api.POST("/reviews", handler.CreateReview)

	// The provider posts form data or JSON depending on the project settings.
	api.POST("/payment-callback", handler.PaymentCallback)
	api.GET("/payment-callback", handler.PaymentCallback)

	api.POST("/admin/login", handler.AdminLogin)

	// Admin endpoints (require authentication)
	admin := api.Group("/admin")
	admin.Use(AuthMiddleware(jwtService))
	admin.GET("/bookings", handler.ListBookings)
	admin.POST("/calendar/refresh", handler.RefreshCalendar)

	return r
}
