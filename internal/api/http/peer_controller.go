package http

import (
	"errors"
	"net/http"

	"github.com/apmvoice/peerlink/internal/api/http/converter"
	"github.com/apmvoice/peerlink/internal/domain"
	"github.com/apmvoice/peerlink/internal/repository"
	"github.com/apmvoice/peerlink/internal/service"
	"github.com/gin-gonic/gin"
)

type PeerController struct {
	peers service.PeerInteractor
}

func NewPeerController(peers service.PeerInteractor) *PeerController {
	return &PeerController{peers: peers}
}

func (c *PeerController) ListPeers(ctx *gin.Context) {
	peers, err := c.peers.ListPeers(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"peers": converter.PeersToAPI(peers)})
}

func (c *PeerController) GetPeer(ctx *gin.Context) {
	peer, err := c.peers.GetPeer(ctx.Request.Context(), ctx.Param("peerID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repository.ErrPeerNotFound) {
			status = http.StatusNotFound
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"peer": gin.H{
		"id":      peer.ID,
		"name":    peer.Name,
		"address": peer.Address,
		"status":  peer.Status,
	}})
}

func (c *PeerController) UpdateStatus(ctx *gin.Context) {
	type request struct {
		Status string `json:"status" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	status := domain.PeerStatus(req.Status)
	if !status.Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + req.Status})
		return
	}

	peer, err := c.peers.UpdateLocalStatus(ctx.Request.Context(), status)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "peer": gin.H{
		"id":     peer.ID,
		"status": peer.Status,
	}})
}
