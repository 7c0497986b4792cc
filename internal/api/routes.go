package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/codyseavey/card-nexus/internal/api/handlers"
	"github.com/codyseavey/card-nexus/internal/auth"
	"github.com/codyseavey/card-nexus/internal/metrics"
	"github.com/codyseavey/card-nexus/internal/services"
)

// Deps is everything the router needs to build its handlers.
type Deps struct {
	Catalog      *services.CatalogService
	Users        *services.UserService
	Listings     *services.ListingService
	Transactions *services.TransactionService
	Reviews      *services.ReviewService
	Decks        *services.DeckService
	Forum        *services.ForumService
	Tokens       auth.TokenService
	Log          *zap.Logger

	CORSOrigins  []string
	FrontendPath string
}

func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(d.Log), metrics.GinMiddleware())

	serveFrontend := d.FrontendPath != "" && dirExists(d.FrontendPath)

	config := cors.DefaultConfig()
	config.AllowOrigins = d.CORSOrigins
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false
	router.Use(cors.New(config))

	cardHandler := handlers.NewCardHandler(d.Catalog)
	priceHandler := handlers.NewPriceHandler(d.Catalog)
	userHandler := handlers.NewUserHandler(d.Users, d.Reviews, d.Listings)
	listingHandler := handlers.NewListingHandler(d.Listings, d.Transactions)
	txnHandler := handlers.NewTransactionHandler(d.Transactions, d.Reviews)
	deckHandler := handlers.NewDeckHandler(d.Decks)
	postHandler := handlers.NewPostHandler(d.Forum)

	requireAuth := auth.RequireAuth(d.Tokens)
	optionalAuth := auth.OptionalAuth(d.Tokens)

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", userHandler.Register)
			authGroup.POST("/login", userHandler.Login)
		}

		users := api.Group("/users")
		{
			users.GET("/me", requireAuth, userHandler.Me)
			users.PUT("/me", requireAuth, userHandler.UpdateMe)
			users.GET("/:id", userHandler.Profile)
			users.GET("/:id/reviews", userHandler.Reviews)
			users.GET("/:id/listings", userHandler.Listings)
		}

		cards := api.Group("/cards")
		{
			cards.GET("", cardHandler.ListCards)
			cards.GET("/:id", cardHandler.GetCard)
			cards.GET("/:id/prices", priceHandler.GetCardPrices)
			cards.POST("/:id/prices", requireAuth, priceHandler.RecordPrice)
		}

		sets := api.Group("/sets")
		{
			sets.GET("", cardHandler.ListSets)
			sets.GET("/:id", cardHandler.GetSet)
		}

		listings := api.Group("/listings")
		{
			listings.GET("", listingHandler.List)
			listings.GET("/:id", listingHandler.Get)
			listings.POST("", requireAuth, listingHandler.Create)
			listings.PUT("/:id", requireAuth, listingHandler.Update)
			listings.DELETE("/:id", requireAuth, listingHandler.Cancel)
			listings.POST("/:id/purchase", requireAuth, listingHandler.Purchase)
		}

		txns := api.Group("/transactions", requireAuth)
		{
			txns.GET("", txnHandler.List)
			txns.GET("/:id", txnHandler.Get)
			txns.POST("/:id/complete", txnHandler.Complete)
			txns.POST("/:id/cancel", txnHandler.Cancel)
			txns.POST("/:id/reviews", txnHandler.Review)
		}

		decks := api.Group("/decks")
		{
			decks.GET("", optionalAuth, deckHandler.List)
			decks.GET("/:id", optionalAuth, deckHandler.Get)
			decks.POST("", requireAuth, deckHandler.Create)
			decks.PUT("/:id", requireAuth, deckHandler.Update)
			decks.DELETE("/:id", requireAuth, deckHandler.Delete)
			decks.POST("/:id/like", requireAuth, deckHandler.Like)
			decks.DELETE("/:id/like", requireAuth, deckHandler.Unlike)
		}

		posts := api.Group("/posts")
		{
			posts.GET("", postHandler.List)
			posts.GET("/:id", postHandler.Get)
			posts.POST("", requireAuth, postHandler.Create)
			posts.DELETE("/:id", requireAuth, postHandler.Delete)
			posts.POST("/:id/comments", requireAuth, postHandler.AddComment)
			posts.POST("/:id/like", requireAuth, postHandler.Like)
			posts.DELETE("/:id/like", requireAuth, postHandler.Unlike)
		}

		api.DELETE("/comments/:id", requireAuth, postHandler.DeleteComment)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	notFound := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   gin.H{"code": "not_found", "message": "route not found"},
		})
	}

	if serveFrontend {
		indexPath := filepath.Join(d.FrontendPath, "index.html")

		router.Static("/assets", filepath.Join(d.FrontendPath, "assets"))
		router.StaticFile("/vite.svg", filepath.Join(d.FrontendPath, "vite.svg"))
		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback for everything outside /api
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				notFound(c)
				return
			}
			c.File(indexPath)
		})
	} else {
		router.NoRoute(notFound)
	}

	return router
}

// requestLogger logs one line per request, plus any errors handlers
// attached to the context.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case len(c.Errors) > 0:
			log.Error("Request failed", append(fields, zap.String("errors", c.Errors.String()))...)
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("Request failed", fields...)
		default:
			log.Info("Request", fields...)
		}
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
