package server

import (
	"log"

	"github.com/gin-gonic/gin"

	"curvelab/internal/api"
	"curvelab/internal/config"
	"curvelab/internal/ledger"
	"curvelab/internal/snapshot"
)

// Server HTTP服务器
type Server struct {
	router  *gin.Engine
	ledger  *ledger.Store
	handler *api.Handler
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) *Server {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	snapshots := snapshot.NewStore(cfg.Data.OutputDir)

	lg, err := ledger.New(cfg.LedgerDBPath())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	s := &Server{
		router:  gin.Default(),
		ledger:  lg,
		handler: api.NewHandler(cfg, snapshots, lg),
	}

	s.setupRoutes()

	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	apiGroup := s.router.Group("/api")
	{
		s.handler.RegisterRoutes(apiGroup)
	}
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 释放底层资源
func (s *Server) Close() error {
	return s.ledger.Close()
}
