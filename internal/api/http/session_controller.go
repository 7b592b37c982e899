package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/apmvoice/peerlink/internal/api/http/converter"
	"github.com/apmvoice/peerlink/internal/domain"
	"github.com/apmvoice/peerlink/internal/repository"
	"github.com/apmvoice/peerlink/internal/service"
	"github.com/gin-gonic/gin"
)

type SessionController struct {
	sessions service.SessionInteractor
}

func NewSessionController(sessions service.SessionInteractor) *SessionController {
	return &SessionController{sessions: sessions}
}

func (c *SessionController) CreateSession(ctx *gin.Context) {
	type request struct {
		PeerID string `json:"peer_id" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := c.sessions.CreateSession(ctx.Request.Context(), req.PeerID)
	if err != nil {
		respondSessionError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"session": converter.SessionToAPI(session)})
}

func (c *SessionController) GetSession(ctx *gin.Context) {
	session, err := c.sessions.GetSession(ctx.Request.Context(), ctx.Param("sessionID"))
	if err != nil {
		respondSessionError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"session": converter.SessionToAPI(session)})
}

func (c *SessionController) AcceptSession(ctx *gin.Context) {
	c.respondTransition(ctx, c.sessions.AcceptSession)
}

func (c *SessionController) EndSession(ctx *gin.Context) {
	c.respondTransition(ctx, c.sessions.EndSession)
}

func (c *SessionController) respondTransition(ctx *gin.Context, op func(ctx context.Context, id string) (*domain.Session, error)) {
	session, err := op(ctx.Request.Context(), ctx.Param("sessionID"))
	if err != nil {
		respondSessionError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "session": converter.SessionToAPI(session)})
}

func respondSessionError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrSessionNotFound), errors.Is(err, repository.ErrPeerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidTransition):
		status = http.StatusConflict
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}
