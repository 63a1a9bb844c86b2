// Package api exposes facilities, events and the scraping agent over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kindtohomeless/outreach"
	_ "github.com/kindtohomeless/outreach/docs"
	"github.com/kindtohomeless/outreach/events"
	"github.com/kindtohomeless/outreach/facilities"
	"github.com/kindtohomeless/outreach/models"
	"github.com/kindtohomeless/outreach/sessions"
	"github.com/swaggo/swag"
)

// Greeting is the body of GET /.
const Greeting = "You've reached the Kind-To-Homeless API"

// EventSource serves the current events snapshot.
type EventSource interface {
	Snapshot() events.Snapshot
}

// Deps are the services behind the routes. A nil service disables its
// routes with 503.
type Deps struct {
	Resolver  *facilities.Resolver
	Events    EventSource
	Extractor *events.Extractor
	Agent     *outreach.Agent
	Logger    *slog.Logger
	Debug     bool
	// AgentTimeout bounds one POST /agent run. Zero means no limit.
	AgentTimeout time.Duration
}

type server struct {
	deps     Deps
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &server{
		deps:   deps,
		logger: deps.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), cors())

	router.GET("/", s.handleRoot)
	router.GET("/nearby", s.handleNearby)
	router.GET("/events", s.handleEvents)
	router.POST("/events/extract", s.handleExtract)
	router.POST("/agent", s.handleAgent)
	router.GET("/agent/tools", s.handleAgentTools)
	router.GET("/agent/ws", s.handleAgentWS)
	router.GET("/swagger/doc.json", s.handleSwagger)
	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// @Summary Service greeting
// @Router / [get]
func (s *server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": Greeting})
}

// @Summary Facilities near a point
// @Param radius query number true "Search radius in miles"
// @Success 200 {object} facilities.Response
// @Router /nearby [get]
func (s *server) handleNearby(c *gin.Context) {
	if s.deps.Resolver == nil {
		unavailable(c, "facility search")
		return
	}
	q, err := parseNearbyQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, facilities.Response{
			Results: []facilities.Facility{},
			Error:   facilities.ErrKindInvalidQuery,
			Detail:  err.Error(),
		})
		return
	}

	resp := s.deps.Resolver.Lookup(c.Request.Context(), q)
	c.JSON(nearbyStatus(resp.Error), resp)
}

func nearbyStatus(kind string) int {
	switch kind {
	case "":
		return http.StatusOK
	case facilities.ErrKindInvalidQuery:
		return http.StatusBadRequest
	case facilities.ErrKindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// parseNearbyQuery reads latitude|lat, longitude|lon, radius, feature,
// limit and q.
func parseNearbyQuery(c *gin.Context) (facilities.Query, error) {
	var q facilities.Query
	var err error
	if q.Latitude, err = floatParam(c, "latitude", "lat"); err != nil {
		return q, err
	}
	if q.Longitude, err = floatParam(c, "longitude", "lon"); err != nil {
		return q, err
	}
	if q.RadiusMiles, err = floatParam(c, "radius"); err != nil {
		return q, err
	}
	if raw := c.Query("limit"); raw != "" {
		if q.Limit, err = strconv.Atoi(raw); err != nil {
			return q, fmt.Errorf("invalid limit %q", raw)
		}
	}
	q.Feature = strings.TrimSpace(c.Query("feature"))
	q.NaturalQuery = strings.TrimSpace(c.Query("q"))
	return q, nil
}

// floatParam reads the first present of names; one of them is required.
func floatParam(c *gin.Context, names ...string) (float64, error) {
	for _, name := range names {
		raw, ok := c.GetQuery(name)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", name, raw)
		}
		return v, nil
	}
	return 0, fmt.Errorf("missing %s", names[0])
}

// @Summary Current aid events
// @Success 200 {object} events.Snapshot
// @Router /events [get]
func (s *server) handleEvents(c *gin.Context) {
	if s.deps.Events == nil {
		c.JSON(http.StatusOK, events.Snapshot{Events: []events.Event{events.DefaultEvent()}, Fallback: true})
		return
	}
	c.JSON(http.StatusOK, s.deps.Events.Snapshot())
}

// ExtractRequest is the body of POST /events/extract.
type ExtractRequest struct {
	Text string `json:"text"`
}

// @Summary Extract an event from page text
// @Param body body ExtractRequest true "Page text"
// @Success 200 {object} events.Extraction
// @Router /events/extract [post]
func (s *server) handleExtract(c *gin.Context) {
	if s.deps.Extractor == nil {
		unavailable(c, "event extraction")
		return
	}
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": err.Error()})
		return
	}
	res, err := s.deps.Extractor.Extract(c.Request.Context(), req.Text)
	if err != nil {
		s.logger.Warn("event extraction failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": upstreamKind(err), "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// AgentRequest is the body of POST /agent.
type AgentRequest struct {
	Query   string           `json:"query"`
	History []models.Message `json:"history,omitempty"`
}

// @Summary Run the scraping agent
// @Param body body AgentRequest true "Query and optional history"
// @Router /agent [post]
func (s *server) handleAgent(c *gin.Context) {
	if s.deps.Agent == nil {
		unavailable(c, "agent")
		return
	}
	var req AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "query cannot be empty"})
		return
	}

	ctx := c.Request.Context()
	if s.deps.AgentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.AgentTimeout)
		defer cancel()
	}
	result, err := s.deps.Agent.Run(ctx, req.Query, req.History...)
	if err != nil {
		s.logger.Warn("agent run failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": upstreamKind(err), "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Tool declarations offered to the model
// @Router /agent/tools [get]
func (s *server) handleAgentTools(c *gin.Context) {
	if s.deps.Agent == nil {
		unavailable(c, "agent")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tools": s.deps.Agent.Tools()})
}

// @Summary Websocket agent session
// @Router /agent/ws [get]
func (s *server) handleAgentWS(c *gin.Context) {
	if s.deps.Agent == nil {
		unavailable(c, "agent")
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	session := sessions.NewAgentSession(uuid.NewString(), conn, s.deps.Agent, s.logger)
	if err := session.Serve(c.Request.Context()); err != nil {
		s.logger.Debug("websocket session ended", "session_id", session.SessionID, "error", err)
	}
}

func (s *server) handleSwagger(c *gin.Context) {
	doc, err := swag.ReadDoc()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "detail": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable", "detail": what + " is not configured"})
}

// upstreamKind names the failure class of a chat backend error.
func upstreamKind(err error) string {
	var malformed *models.MalformedResponseError
	switch {
	case errors.As(err, &malformed):
		return facilities.ErrKindMalformedUpstream
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return facilities.ErrKindUpstreamUnavailable
	}
}
