package main

import (
	"log"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/hanzideck/hanzideck/pkg/hanzideck/database"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/decks"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/flashcards"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/importexport"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/models"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/revise"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/study"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/tags"
)

// defaultPoolDeckID is the deck whose incorrect judgments feed the
// revise deck when HANZIDECK_POOL_DECK_ID is not set
const defaultPoolDeckID = 1

func main() {
	// Optional .env file for local development
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	dbPath := os.Getenv("HANZIDECK_DB_PATH")
	if dbPath == "" {
		dbPath = "hanzideck.db"
	}

	// Connect the relational store
	if err := database.Connect(dbPath); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Open the streak ledger on its own raw connection to the same file
	ledger, err := revise.OpenLedger(dbPath)
	if err != nil {
		log.Fatalf("Failed to open streak ledger: %v", err)
	}
	defer ledger.Close()

	poolDeckID := uint(defaultPoolDeckID)
	if v := os.Getenv("HANZIDECK_POOL_DECK_ID"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			log.Fatalf("Invalid HANZIDECK_POOL_DECK_ID: %v", err)
		}
		poolDeckID = uint(parsed)
	}

	protocol := revise.NewProtocol(database.GetDB(), ledger, poolDeckID)

	// Ensure the revise deck exists before serving judgments
	reviseDeck, err := protocol.EnsureReviseDeck()
	if err != nil {
		log.Fatalf("Failed to ensure revise deck exists: %v", err)
	}
	log.Printf("Revise deck ready (ID: %d), pool deck ID: %d", reviseDeck.ID, poolDeckID)

	// Sweep up streak records orphaned by a crash mid-promotion
	if removed, err := protocol.Reconcile(); err != nil {
		log.Printf("Warning: streak reconcile failed: %v", err)
	} else if removed > 0 {
		log.Printf("Reconciled streak ledger: removed %d orphaned record(s)", removed)
	}

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "hanzideck",
			})
		})

		flashcardsHandler := flashcards.NewHandler(database.GetDB(), ledger)
		flashcardsHandler.RegisterRoutes(api)

		decksHandler := decks.NewHandler(database.GetDB())
		decksHandler.RegisterRoutes(api)

		tagsHandler := tags.NewHandler(database.GetDB())
		tagsHandler.RegisterRoutes(api)

		studyHandler := study.NewHandler(database.GetDB(), protocol)
		studyHandler.RegisterRoutes(api)

		importExportHandler := importexport.NewHandler(database.GetDB())
		importExportHandler.RegisterRoutes(api)
	}

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting hanzideck server on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
