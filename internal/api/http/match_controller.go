package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/api/http/converter"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/protocol"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/repository"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/service"
)

// TokenHeader carries the token issued with an HTTP client's peer id.
const TokenHeader = "X-Peer-Token"

type MatchController struct {
	matches    service.MatchInteractor
	relay      service.RelayInteractor
	iceServers []webrtc.ICEServer
	longPoll   time.Duration
}

func NewMatchController(matches service.MatchInteractor, relay service.RelayInteractor, iceServers []webrtc.ICEServer, longPoll time.Duration) *MatchController {
	if longPoll <= 0 {
		longPoll = 25 * time.Second
	}
	return &MatchController{
		matches:    matches,
		relay:      relay,
		iceServers: iceServers,
		longPoll:   longPoll,
	}
}

// Enqueue registers a new HTTP client when no peerId is given and returns its credentials
// with the first result. Later calls must present the token.
func (c *MatchController) Enqueue(ctx *gin.Context) {
	type request struct {
		PeerID    string   `json:"peerId"`
		Mode      string   `json:"mode"`
		Interests []string `json:"interests"`
		Gender    string   `json:"gender"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	criteria, err := protocol.Criteria(domain.EnqueuePayload{
		Mode:      domain.Mode(req.Mode),
		Interests: req.Interests,
		Gender:    domain.Gender(req.Gender),
	})
	if err != nil {
		writeError(ctx, err)
		return
	}

	var registered *domain.Client
	peerID := req.PeerID
	if peerID == "" {
		registered, err = c.matches.Connect(ctx.Request.Context(), "", domain.TransportHTTP)
		if err != nil {
			writeError(ctx, err)
			return
		}
		peerID = registered.ID
	} else if !c.authorize(ctx, peerID) {
		return
	}

	res, err := c.matches.Enqueue(ctx.Request.Context(), peerID, criteria)
	if err != nil {
		if registered != nil {
			_ = c.matches.Disconnect(context.WithoutCancel(ctx.Request.Context()), registered.ID)
		}
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, converter.EnqueueToApi(res, registered))
}

func (c *MatchController) PollMatch(ctx *gin.Context) {
	peerID := ctx.Query("peerId")
	if peerID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "peerId is required"})
		return
	}
	if !c.authorize(ctx, peerID) {
		return
	}

	res, err := c.matches.PollMatch(ctx.Request.Context(), peerID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (c *MatchController) Cancel(ctx *gin.Context) {
	type request struct {
		PeerID string `json:"peerId" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if !c.authorize(ctx, req.PeerID) {
		return
	}

	if err := c.matches.Cancel(ctx.Request.Context(), req.PeerID); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, domain.MatchResult{Status: domain.StatusIdle})
}

func (c *MatchController) Signal(ctx *gin.Context) {
	body, err := ctx.GetRawData()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	msg, err := protocol.Decode(body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if msg.From == "" {
		writeError(ctx, domain.Invalid("from", "is required"))
		return
	}
	if !c.authorize(ctx, msg.From) {
		return
	}

	if err := c.relay.Relay(ctx.Request.Context(), msg.From, *msg); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// Events long-polls the client's mailbox. wait is in seconds and capped by the server.
func (c *MatchController) Events(ctx *gin.Context) {
	peerID := ctx.Query("peerId")
	if peerID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "peerId is required"})
		return
	}
	if !c.authorize(ctx, peerID) {
		return
	}

	wait := c.longPoll
	if raw := ctx.Query("wait"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid wait"})
			return
		}
		wait = min(time.Duration(seconds)*time.Second, c.longPoll)
	}

	events, err := c.relay.WaitEvents(ctx.Request.Context(), peerID, wait)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, converter.EventsToApi(events))
}

func (c *MatchController) EndSession(ctx *gin.Context) {
	type request struct {
		PeerID string `json:"peerId" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if !c.authorize(ctx, req.PeerID) {
		return
	}

	if err := c.matches.EndSession(ctx.Request.Context(), ctx.Param("sessionID"), req.PeerID); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ended"})
}

// GetSession is visible to the session's own participants only.
func (c *MatchController) GetSession(ctx *gin.Context) {
	peerID := ctx.Query("peerId")
	if peerID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "peerId is required"})
		return
	}
	if !c.authorize(ctx, peerID) {
		return
	}

	sess, err := c.matches.SessionInfo(ctx.Request.Context(), ctx.Param("sessionID"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	if !sess.Has(peerID) {
		writeError(ctx, fmt.Errorf("%w: %q is not in session %q", domain.ErrForbidden, peerID, sess.ID))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"session": converter.SessionToApi(sess)})
}

func (c *MatchController) Disconnect(ctx *gin.Context) {
	peerID := ctx.Param("peerId")
	if !c.authorize(ctx, peerID) {
		return
	}

	if err := c.matches.Disconnect(ctx.Request.Context(), peerID); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

func (c *MatchController) Stats(ctx *gin.Context) {
	stats, err := c.matches.Stats(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

func (c *MatchController) ICEServers(ctx *gin.Context) {
	servers := c.iceServers
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	ctx.JSON(http.StatusOK, gin.H{"iceServers": servers})
}

// authorize checks the caller's token for peerID and writes the error response when it fails.
func (c *MatchController) authorize(ctx *gin.Context, peerID string) bool {
	err := c.matches.Authorize(ctx.Request.Context(), domain.Credentials{
		PeerID: peerID,
		Token:  ctx.GetHeader(TokenHeader),
	})
	if err != nil {
		writeError(ctx, err)
		return false
	}
	return true
}

func writeError(ctx *gin.Context, err error) {
	ctx.JSON(statusFor(err), gin.H{"error": err.Error(), "code": domain.ErrorCode(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrCrypto):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrStoreClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
