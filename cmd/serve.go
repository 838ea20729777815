package cmd

import (
	"fmt"
	"time"

	"tiletagger/internal/apihandlers"
	"tiletagger/internal/ratelimit"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
	servePort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts an HTTP server exposing the tagging pipeline: single-tile and
background tileset analysis, similarity search, statistics, and map
generation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		cfg := appInstance.Config

		router := gin.Default() // Includes logger and recovery middleware

		if cfg.RateLimit.Enabled {
			limiter := ratelimit.NewLimiter(time.Duration(cfg.RateLimit.WindowSeconds)*time.Second, cfg.RateLimit.MaxRequests)
			router.Use(limiter.Middleware())
		}

		apiHandler := &apihandlers.APIHandler{App: appInstance}

		v1 := router.Group("/api/v1")
		{
			analyzeGroup := v1.Group("/analyze")
			{
				analyzeGroup.POST("/tile", apiHandler.AnalyzeTileHandler)
				analyzeGroup.POST("/tileset/start", apiHandler.StartTilesetHandler)
				analyzeGroup.GET("/tileset/progress/:id", apiHandler.TilesetProgressHandler)
				analyzeGroup.GET("/tileset/results/:id", apiHandler.TilesetResultsHandler)
				analyzeGroup.POST("/tileset/cancel/:id", apiHandler.TilesetCancelHandler)
			}

			v1.GET("/categories", apiHandler.CategoriesHandler)
			v1.GET("/statistics", apiHandler.StatisticsHandler)
			v1.POST("/similar", apiHandler.SimilarHandler)
			v1.POST("/generate", apiHandler.GenerateHandler)
			v1.GET("/cost", apiHandler.CostHandler)
		}

		router.GET("/health", apiHandler.HealthHandler)

		host := serveAddr
		if !cmd.Flags().Changed("addr") {
			host = cfg.Server.Host
		}
		port := servePort
		if !cmd.Flags().Changed("port") {
			port = cfg.Server.Port
		}
		listenAddr := fmt.Sprintf("%s:%d", host, port)
		log.Infof("Starting API server on http://%s", listenAddr)

		if err := router.Run(listenAddr); err != nil {
			log.Errorf("Failed to run API server: %v", err)
			return fmt.Errorf("failed to run API server: %w", err)
		}

		log.Info("API server stopped.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost", "Address to listen on (e.g., '0.0.0.0' for all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", 8000, "Port to listen on")
}
