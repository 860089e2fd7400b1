package main

import (
	"context"
	"log"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"wayfarer/internal/adapter/api"
	"wayfarer/internal/adapter/api/handler"
	apimiddleware "wayfarer/internal/adapter/api/middleware"
	"wayfarer/internal/adapter/api/router"
	"wayfarer/internal/adapter/repository"
	"wayfarer/internal/infrastructure/auth"
	"wayfarer/internal/infrastructure/ratelimit"
	"wayfarer/internal/realtime"
	"wayfarer/internal/usecase"
	"wayfarer/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption

	// Service account from environment variable (production) or file path
	// (local development); application default credentials otherwise.
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	} else if serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); serviceAccountPath != "" {
		opts = append(opts, option.WithCredentialsFile(serviceAccountPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	tripRepo := repository.NewFirestoreTripRepository(firestoreClient)
	chatRepo := repository.NewFirestoreChatRepository(firestoreClient)

	// Development runs on locally minted JWTs so nothing needs Firebase
	// credentials; everything else verifies Firebase ID tokens.
	var verifier auth.TokenVerifier
	if cfg.Environment == "development" {
		verifier = auth.NewJWTVerifier(cfg.JWTSecret, time.Duration(cfg.JWTExpiry)*time.Second)
	} else {
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}
		verifier = auth.NewFirebaseVerifier(authClient)
	}

	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	registry := realtime.NewRegistry()
	presence := realtime.NewPresenceTracker(userRepo)
	authorizer := realtime.NewAuthorizer(tripRepo, chatRepo)
	dispatcher := realtime.NewDispatcher(registry, authorizer, chatRepo, tripRepo, rateLimiter)
	manager := realtime.NewManager(
		registry,
		presence,
		dispatcher,
		verifier,
		userRepo,
		tripRepo,
		time.Duration(cfg.IdleTimeout)*time.Second,
	)

	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo, manager, rateLimiter)
	tripUseCase := usecase.NewTripUseCase(tripRepo, userRepo, chatRepo, manager)

	e := echo.New()

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)
	adminMiddleware := apimiddleware.NewAdminMiddleware(userRepo)

	chatHandler := handler.NewChatHandler(chatUseCase)
	tripHandler := handler.NewTripHandler(tripUseCase)
	wsHandler := handler.NewWebSocketHandler(manager)
	healthHandler := handler.NewHealthHandler(manager)

	router.Setup(e, authMiddleware, adminMiddleware, chatHandler, tripHandler, wsHandler, healthHandler)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
