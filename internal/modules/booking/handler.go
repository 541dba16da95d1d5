package booking

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"carbooking/internal/domain"
	"carbooking/internal/modules/auth"
	"carbooking/internal/modules/commit"
	"carbooking/internal/modules/pricing"
	"carbooking/internal/modules/reconcile"
	"carbooking/internal/modules/wizard"
	"carbooking/internal/pkg/response"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	service *Service
	hub     *Hub
	log     *zap.Logger
}

func NewHandler(service *Service, hub *Hub, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, hub: hub, log: log}
}

// SessionTokenHeader carries the session token issued with every session
// view. Routes on an existing session require it; the live endpoint also
// accepts it as the token query parameter.
const SessionTokenHeader = "X-Session-Token"

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	sessions := v1.Group("/booking/sessions")
	{
		sessions.POST("", h.Start)
		sessions.POST("/resume", h.Resume)
	}

	session := sessions.Group("/:id", h.SessionToken)
	{
		session.GET("", h.Get)
		session.PATCH("/draft", h.UpdateDraft)
		session.POST("/advance", h.Advance)
		session.POST("/retreat", h.Retreat)
		session.POST("/restore", h.Restore)
		session.POST("/login", h.Login)
		session.POST("/register", h.Register)
		session.PUT("/profile", h.CompleteProfile)
		session.POST("/commit", h.Commit)
		session.DELETE("", h.Abandon)
		session.GET("/live", h.Live)
	}
}

// SessionToken rejects requests on a session without a token issued for it.
func (h *Handler) SessionToken(c *gin.Context) {
	token := c.GetHeader(SessionTokenHeader)
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		response.Abort(c, http.StatusUnauthorized, "TOKEN_REQUIRED", "Session token is required")
		return
	}
	if err := h.service.ValidateSessionToken(c.Param("id"), token); err != nil {
		response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", err.Error())
		return
	}
	c.Next()
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.GET("/booking/pending", h.GetPending)
	protected.GET("/reservations", h.ListReservations)
}

// Start accepts the booking link's query parameters and an optional JSON or
// form body; body fields win over query fields.
func (h *Handler) Start(c *gin.Context) {
	body, err := bodyFields(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	view, err := h.service.Start(c.Request.Context(), valuesFields(c.Request.URL.Query()), body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": view})
}

func (h *Handler) Resume(c *gin.Context) {
	var req ResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	view, err := h.service.Resume(c.Request.Context(), req.Token)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

func (h *Handler) Get(c *gin.Context) {
	view, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

func (h *Handler) UpdateDraft(c *gin.Context) {
	fields, err := bodyFields(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	view, err := h.service.UpdateDraft(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

func (h *Handler) Advance(c *gin.Context) {
	view, err := h.service.Advance(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

func (h *Handler) Retreat(c *gin.Context) {
	view, err := h.service.Retreat(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

func (h *Handler) Restore(c *gin.Context) {
	var req RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	step, err := wizard.ParseStep(req.Step)
	if err != nil {
		h.writeError(c, err)
		return
	}

	view, err := h.service.Restore(c.Request.Context(), c.Param("id"), step)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	view, err := h.service.Login(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

func (h *Handler) Register(c *gin.Context) {
	fields, err := bodyFields(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	view, err := h.service.Register(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": view})
}

func (h *Handler) CompleteProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	view, err := h.service.CompleteProfile(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

func (h *Handler) Commit(c *gin.Context) {
	view, err := h.service.Commit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"session":     view,
		"reservation": view.Reservation,
	})
}

func (h *Handler) Abandon(c *gin.Context) {
	if err := h.service.Abandon(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"abandoned": true})
}

func (h *Handler) GetPending(c *gin.Context) {
	pending, err := h.service.Pending(c.Request.Context(), c.GetInt64("client_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"pending": pending})
}

func (h *Handler) ListReservations(c *gin.Context) {
	records, err := h.service.History(c.Request.Context(), c.GetInt64("client_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservations": records})
}

// Live upgrades to a websocket that receives session updates and periodic
// profile refreshes.
//
// Endpoint: GET /booking/sessions/:id/live?token=SESSION_TOKEN
func (h *Handler) Live(c *gin.Context) {
	id := c.Param("id")
	view, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("session_id", id), zap.Error(err))
		return
	}

	h.hub.Register(id, conn)
	h.log.Info("live session connected", zap.String("session_id", id))

	done := make(chan struct{})
	defer func() {
		close(done)
		h.service.StopRefresh(id)
		h.hub.Unregister(id, conn)
		h.log.Info("live session disconnected", zap.String("session_id", id))
	}()

	h.hub.Publish(id, Event{Type: EventSession, Session: view})
	h.service.StartRefresh(id, func(v *SessionView) {
		h.hub.Publish(id, Event{Type: EventRefresh, Session: v})
	})

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go pingLoop(conn, done)

	h.readLoop(c, conn, id)
}

func pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

type clientMessage struct {
	Type string `json:"type"`
}

func (h *Handler) readLoop(c *gin.Context, conn *websocket.Conn, id string) {
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("live session read failed", zap.String("session_id", id), zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "ping":
			h.hub.Publish(id, Event{Type: EventPong})
		case "refresh":
			view, err := h.service.Refresh(c.Request.Context(), id)
			if err != nil {
				h.hub.Publish(id, Event{Type: EventError, Error: err.Error()})
				continue
			}
			h.hub.Publish(id, Event{Type: EventRefresh, Session: view})
		default:
			h.hub.Publish(id, Event{Type: EventError, Error: "unknown message type: " + msg.Type})
		}
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		verr    *wizard.ValidationError
		authErr *auth.AuthenticationError
		profErr *auth.ProfileIncompleteError
		failure *commit.CommitFailure
	)

	switch {
	case errors.As(err, &verr):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), verr.Fields)
	case errors.Is(err, pricing.ErrInvalidRange), errors.Is(err, reconcile.ErrEndBeforeStart):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.As(err, &authErr):
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", authErr.Error())
	case errors.Is(err, ErrAuthRequired):
		response.Error(c, http.StatusUnauthorized, "AUTH_REQUIRED", err.Error())
	case errors.Is(err, ErrInvalidSessionToken):
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", err.Error())
	case errors.As(err, &profErr):
		response.ErrorWithDetails(c, http.StatusConflict, "PROFILE_INCOMPLETE", profErr.Error(), gin.H{
			"missing_fields": profErr.Missing,
		})
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "This email is already registered")
	case errors.Is(err, ErrNotAtConfirmation),
		errors.Is(err, wizard.ErrFirstStep),
		errors.Is(err, wizard.ErrLastStep),
		errors.Is(err, wizard.ErrUnknownStep):
		response.Error(c, http.StatusConflict, "INVALID_STEP", err.Error())
	case errors.As(err, &failure):
		response.ErrorWithDetails(c, http.StatusBadGateway, "COMMIT_FAILED", "Reservation could not be committed, it is kept for a retry", gin.H{
			"retryable": failure.Retryable(),
		})
	case errors.Is(err, ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Booking session not found")
	case errors.Is(err, domain.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	default:
		h.log.Error("booking request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Booking request failed")
	}
}

// bodyFields reads a JSON object or a form post as raw fields. An empty body
// yields no fields.
func bodyFields(c *gin.Context) (domain.Fields, error) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil, nil
	}

	ct := c.ContentType()
	if ct == "application/x-www-form-urlencoded" || strings.HasPrefix(ct, "multipart/") {
		if err := c.Request.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, err
		}
		return valuesFields(c.Request.PostForm), nil
	}

	var fields domain.Fields
	if err := c.ShouldBindJSON(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// valuesFields keeps single values as strings and repeated keys as lists.
func valuesFields(values url.Values) domain.Fields {
	out := make(domain.Fields, len(values))
	for key, v := range values {
		switch len(v) {
		case 0:
		case 1:
			out[key] = v[0]
		default:
			out[key] = v
		}
	}
	return out
}
