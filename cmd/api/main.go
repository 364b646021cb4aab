package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/loan-advisor/internal/config"
	"github.com/xavierca1/loan-advisor/internal/entity"
	"github.com/xavierca1/loan-advisor/internal/infra/database"
	"github.com/xavierca1/loan-advisor/internal/infra/http/handlers"
	"github.com/xavierca1/loan-advisor/internal/infra/http/middleware"
	"github.com/xavierca1/loan-advisor/internal/infra/integration/deepseek"
	"github.com/xavierca1/loan-advisor/internal/infra/integration/googletts"
	"github.com/xavierca1/loan-advisor/internal/infra/integration/kommo"
	"github.com/xavierca1/loan-advisor/internal/infra/integration/sarvam"
	"github.com/xavierca1/loan-advisor/internal/infra/integration/twilio"
	"github.com/xavierca1/loan-advisor/internal/infra/integration/whatsapp"
	"github.com/xavierca1/loan-advisor/internal/infra/mail"
	"github.com/xavierca1/loan-advisor/internal/infra/media"
	"github.com/xavierca1/loan-advisor/internal/infra/queue"
	"github.com/xavierca1/loan-advisor/internal/infra/session"
	"github.com/xavierca1/loan-advisor/internal/infra/worker"
	"github.com/xavierca1/loan-advisor/internal/usecase"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = database.NewDBConnection(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()

		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Fatal(err)
		}
	}

	stores := map[string]handlers.Pinger{}
	var sessions entity.SessionRepository
	var purger entity.SessionPurger

	switch cfg.Store {
	case config.StoreSQLite:
		repo, err := database.NewSQLiteSessionRepository(cfg.SQLitePath)
		if err != nil {
			log.Fatal(err)
		}
		defer repo.Close()
		sessions, purger = repo, repo
		stores["sqlite"] = repo
	case config.StorePostgres:
		repo := database.NewSessionRepository(db)
		sessions, purger = repo, repo
	default:
		sessions = session.NewMemoryStore(cfg.SessionCapacity, cfg.SessionTTL)
	}
	if db != nil {
		stores["postgres"] = db
	}
	log.Printf("🗂️ Session store: %s (ttl %s)", cfg.Store, cfg.SessionTTL)

	mediaStore, err := media.NewLocalStore(cfg.MediaDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatal(err)
	}

	// 2. Use cases and collaborators
	onboardingUC := usecase.NewOnboardingUseCase(sessions)
	emiUC := usecase.NewCalculateEMIUseCase()
	replyUC := usecase.NewReplyUseCase(onboardingUC, emiUC, nil, nil, nil)
	services := map[string]bool{}

	if cfg.Sarvam.APIKey != "" {
		sarvamClient := sarvam.NewClient(cfg.Sarvam.APIKey, cfg.Sarvam.BaseURL)
		replyUC.Translator = sarvamClient
		replyUC.LoanModel = sarvamClient
		replyUC.SpeechToText = sarvamClient
	}
	services["sarvam"] = cfg.Sarvam.APIKey != ""

	if cfg.DeepSeek.APIKey != "" {
		replyUC.ChatModel = deepseek.NewClient(cfg.DeepSeek.APIKey, cfg.DeepSeek.BaseURL, cfg.DeepSeek.Model)
	}
	services["deepseek"] = cfg.DeepSeek.APIKey != ""

	if cfg.TTS.Enabled {
		ttsClient, err := googletts.NewClient(ctx, cfg.TTS.CredentialsFile, cfg.TTS.MaxDuration)
		if err != nil {
			log.Printf("⚠️ Text-to-speech disabled: %v", err)
		} else {
			defer ttsClient.Close()
			replyUC.TextToSpeech = ttsClient
			replyUC.Media = mediaStore
		}
	}
	services["text_to_speech"] = replyUC.TextToSpeech != nil

	replyUC.Fetcher = twilio.NewMediaClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)

	// 3. Lead events
	var rabbitMQ *queue.RabbitMQ
	if cfg.LeadsEnabled() {
		rabbitMQ, err = queue.NewRabbitMQ(cfg.RabbitMQ.URL)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitMQ.Close()

		replyUC.Queue = queue.NewProducer(rabbitMQ.Ch)

		leadWorker := queue.NewWorker(rabbitMQ.Ch, nil, nil, nil, nil)
		if db != nil {
			leadWorker.Leads = database.NewLeadRepository(db)
		}
		if cfg.Kommo.APIToken != "" {
			leadWorker.CRM = kommo.NewClient(cfg.Kommo.BaseURL, cfg.Kommo.APIToken, cfg.Kommo.StatusID)
		}
		if cfg.Mail.Host != "" && len(cfg.Mail.To) > 0 {
			leadWorker.Notifier = mail.NewEmailSender(
				cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.From, cfg.Mail.To,
			)
		}
		if cfg.WhatsApp.AccessToken != "" {
			leadWorker.FollowUp = whatsapp.NewClient(
				cfg.WhatsApp.BaseURL, cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneID, cfg.WhatsApp.TemplateName,
			)
		}

		go func() {
			if err := leadWorker.Start(ctx, queue.QueueName); err != nil {
				log.Printf("❌ Lead worker: %v", err)
			}
		}()
	}
	services["kommo"] = cfg.Kommo.APIToken != ""
	services["mail"] = cfg.Mail.Host != ""
	services["whatsapp"] = cfg.WhatsApp.AccessToken != ""

	// 4. Background workers
	expiration := worker.NewExpirationWorker(purger, mediaStore, cfg.SessionTTL, cfg.MediaTTL, cfg.PurgeInterval)
	go expiration.Start(ctx)

	var limiter *handlers.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = handlers.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
		go limiter.Run(ctx, 10*time.Minute)
	}

	// 5. Handlers
	var validator handlers.SignatureValidator
	if cfg.SignatureCheckEnabled() {
		webhookURL := ""
		if cfg.PublicBaseURL != "" {
			webhookURL = cfg.PublicBaseURL + "/webhook"
		}
		validator = twilio.NewValidator(cfg.Twilio.AuthToken, webhookURL)
	} else {
		log.Println("⚠️ Twilio signature validation disabled")
	}

	var amqpConn *amqp.Connection
	if rabbitMQ != nil {
		amqpConn = rabbitMQ.Conn
	}

	healthHandler := handlers.NewHealthHandler(stores, amqpConn, services)

	webhookHandler := handlers.NewWebhookHandler(replyUC, validator, limiter)
	chatHandler := handlers.NewChatHandler(replyUC, limiter)
	sessionHandler := handlers.NewSessionHandler(onboardingUC)
	emiHandler := handlers.NewEMIHandler(emiUC)

	// 6. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)

	r.Get("/", healthHandler.Home)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/webhook", webhookHandler.Handle)
	r.Handle("/media/*", http.StripPrefix(media.URLPrefix, http.FileServer(http.Dir(cfg.MediaDir))))

	if cfg.APIEnabled() {
		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: cfg.AllowedOrigins,
				AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization", middleware.APIKeyHeader},
			}))
			r.Use(middleware.RequireAPIKey(cfg.APIKey))
			r.Post("/chat", chatHandler.Handle)
			r.Post("/emi", emiHandler.Handle)
			r.Get("/sessions/{senderId}", sessionHandler.HandleGet)
			r.Delete("/sessions/{senderId}", sessionHandler.HandleDelete)
		})
	} else {
		log.Println("⚠️ API_KEY not set, /api routes disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🔥 Loan advisor listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Shutdown: %v", err)
	}
}
