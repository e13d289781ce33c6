package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/famvault/custodial-ledger/internal/api/handler"
	"github.com/famvault/custodial-ledger/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	ledgerHandler *handler.LedgerHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Account set operations, scoped to the owning child
		owners := v1.Group("/owners/:ownerId")
		{
			owners.POST("/accounts", accountHandler.CreateSet)
			owners.GET("/accounts", accountHandler.ListByOwner)
		}

		// Individual account operations
		accounts := v1.Group("/accounts/:id")
		{
			accounts.GET("/transactions", accountHandler.History)
			accounts.POST("/spend", ledgerHandler.Spend)
			accounts.POST("/freeze", accountHandler.Freeze)
			accounts.POST("/unfreeze", accountHandler.Unfreeze)
			accounts.POST("/deactivate", accountHandler.Deactivate)
		}

		// Deposit distribution and inter-account transfers
		v1.POST("/deposits", ledgerHandler.Deposit)
		v1.POST("/transfers", ledgerHandler.Transfer)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
