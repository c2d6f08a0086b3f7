package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"daytrade-core/internal/events"
	"daytrade-core/internal/hitl"
	"daytrade-core/internal/monitor"
	"daytrade-core/internal/position"
	"daytrade-core/internal/state"
)

// Options wires the HTTP surface.
type Options struct {
	Addr      string
	JWTSecret string
	JWTTTL    time.Duration
	AdminUser string
	AdminPass string

	Tracker   *state.Tracker
	Positions *position.Manager
	Gate      *hitl.Gate
	Bus       *events.Bus
}

// Server exposes the review and observation surface: health, metrics, the
// HITL queue, daily state, positions, and a websocket event stream.
type Server struct {
	opts Options
	http *http.Server
}

// NewServer builds the router and handlers.
func NewServer(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{opts: opts}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(monitor.Handler()))
	r.GET("/ws", s.handleWS)
	r.POST("/api/auth/login", s.handleLogin)

	auth := r.Group("/api", s.authRequired())
	{
		auth.GET("/state", s.handleState)
		auth.GET("/positions", s.handlePositions)
		auth.GET("/hitl/pending", s.handlePending)
		auth.POST("/hitl/:id/approve", s.handleApprove)
		auth.POST("/hitl/:id/reject", s.handleReject)
		auth.POST("/safe-mode/reset", s.handleSafeModeReset)
	}

	s.http = &http.Server{Addr: opts.Addr, Handler: r}
	return s
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	log.Printf("[API] listening on %s", s.opts.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.Tracker.Snapshot())
}

func (s *Server) handlePositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": s.opts.Positions.List()})
}

func (s *Server) handlePending(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pending": s.opts.Gate.List()})
}

func (s *Server) handleApprove(c *gin.Context) {
	s.resolve(c, true)
}

func (s *Server) handleReject(c *gin.Context) {
	s.resolve(c, false)
}

func (s *Server) resolve(c *gin.Context, approved bool) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body) // reason is optional

	by := c.GetString("user")
	if err := s.opts.Gate.Resolve(c.Param("id"), approved, by, body.Reason); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "approved": approved})
}

func (s *Server) handleSafeModeReset(c *gin.Context) {
	s.opts.Tracker.ResetSafeMode()
	log.Printf("[API] safe mode reset by %s", c.GetString("user"))
	c.JSON(http.StatusOK, gin.H{"safe_mode": false})
}
