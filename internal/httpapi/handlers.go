package httpapi

import (
	"errors"
	"net/http"
	"time"

	"voiceagent-platform/internal/auth"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/crm"
	"voiceagent-platform/internal/dialsvc"
	"voiceagent-platform/internal/livectl"
	"voiceagent-platform/internal/tenant"
	"voiceagent-platform/internal/urlguard"
	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Dial     *dialsvc.Service
	Live     *livectl.Service
	Recorder *crm.Recorder
	Tenants  tenant.Store
	Calls    calls.Store
	Limiter  dialsvc.Limiter

	// CRMClient is shared by connectors built per webhook. Nil uses defaults.
	CRMClient *http.Client
}

// --- Auth ---

type loginRequest struct {
	UserID   string `json:"user_id"`
	AgencyID string `json:"agency_id"`
	ClientID string `json:"client_id,omitempty"`
	Role     string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.AgencyID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, agency_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.AgencyID, req.ClientID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Calls ---

type dialRequest struct {
	ClientID   string            `json:"client_id,omitempty"`
	Provider   string            `json:"provider,omitempty"`
	AgentID    string            `json:"agent_id"`
	ToNumber   string            `json:"to_number"`
	FromNumber string            `json:"from_number,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	// EventWebhookURL is an optional tenant-configured destination for call
	// events. It must pass the outbound webhook safety check.
	EventWebhookURL string `json:"event_webhook_url,omitempty"`
}

// DialCall places an outbound call for the caller's agency.
func (h Handlers) DialCall(c *gin.Context) {
	if h.Dial == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dial service not configured"})
		return
	}
	agencyID, err := auth.AgencyID(c.Request.Context())
	if err != nil || agencyID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "agency_id required"})
		return
	}

	var req dialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AgentID == "" || req.ToNumber == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "agent_id and to_number required"})
		return
	}
	if req.EventWebhookURL != "" {
		if !urlguard.IsSafeWebhookURL(req.EventWebhookURL) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "event_webhook_url is not an allowed destination"})
			return
		}
		if req.Metadata == nil {
			req.Metadata = map[string]string{}
		}
		req.Metadata["event_webhook_url"] = req.EventWebhookURL
	}

	// A token scoped to a client may only dial as that client.
	clientID := req.ClientID
	if tokenClient := auth.ClientID(c.Request.Context()); tokenClient != "" {
		if clientID != "" && clientID != tokenClient {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "client_id mismatch"})
			return
		}
		clientID = tokenClient
	}

	out, err := h.Dial.Dial(c.Request.Context(), dialsvc.DialInput{
		Tenant:     tenant.Ref{AgencyID: agencyID, ClientID: clientID},
		Provider:   req.Provider,
		AgentID:    req.AgentID,
		ToNumber:   req.ToNumber,
		FromNumber: req.FromNumber,
		Metadata:   req.Metadata,
	})
	if err != nil {
		h.writeDialError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) writeDialError(c *gin.Context, err error) {
	var dialErr *dialsvc.DialFailedError
	switch {
	case errors.Is(err, dialsvc.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, tenant.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
	case errors.Is(err, dialsvc.ErrNoProviderKey):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "no provider key configured for tenant"})
	case errors.Is(err, dialsvc.ErrTooManyActiveCalls):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "concurrent call limit reached"})
	case errors.As(err, &dialErr):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": dialErr.Message, "provider": string(dialErr.Provider)})
	default:
		logger.FromGin(c).Error("dial failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dial failed"})
	}
}

type controlRequest struct {
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
}

// ControlCall sends a live command (mute/unmute/say) to an in-progress call.
func (h Handlers) ControlCall(c *gin.Context) {
	if h.Live == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "live control not configured"})
		return
	}
	agencyID, err := auth.AgencyID(c.Request.Context())
	if err != nil || agencyID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "agency_id required"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}

	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	action, ok := livectl.ParseAction(req.Action)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "action must be mute, unmute, or say"})
		return
	}

	if err := h.Live.Control(c.Request.Context(), agencyID, callID, action, req.Message); err != nil {
		h.writeControlError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (h Handlers) writeControlError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, livectl.ErrCallNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
	case errors.Is(err, livectl.ErrInvalidAction), errors.Is(err, livectl.ErrInvalidMessage):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, livectl.ErrNotControllable):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call does not support live control"})
	case errors.Is(err, livectl.ErrNoControlEndpoint):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "control endpoint unavailable"})
	case errors.Is(err, livectl.ErrNoProviderKey):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "no provider key configured for tenant"})
	case errors.Is(err, livectl.ErrUntrustedEndpoint):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "control endpoint rejected"})
	default:
		logger.FromGin(c).Error("control failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "control command failed"})
	}
}

// --- Webhooks ---

type transferWebhookRequest struct {
	AgencyID   string             `json:"agency_id"`
	CallID     string             `json:"call_id"`
	AgentID    string             `json:"agent_id"`
	FromNumber string             `json:"from_number,omitempty"`
	ToNumber   string             `json:"to_number,omitempty"`
	Target     crm.TransferTarget `json:"target"`
	Reason     string             `json:"reason,omitempty"`
}

// TransferWebhook records a call transfer into the agency's connected CRMs.
// Best effort: CRM failures never fail the webhook response.
//
// NOTE: Protect this endpoint with provider signature validation in production.
func (h Handlers) TransferWebhook(c *gin.Context) {
	if h.Recorder == nil || h.Tenants == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "recorder not configured"})
		return
	}
	var req transferWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AgencyID == "" || req.CallID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "agency_id and call_id required"})
		return
	}

	agency, err := h.Tenants.GetAgency(c.Request.Context(), req.AgencyID)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "agency not found"})
			return
		}
		logger.FromGin(c).Error("agency lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "agency lookup failed"})
		return
	}

	event := crm.TransferEvent{
		CallID:     req.CallID,
		AgentID:    req.AgentID,
		FromNumber: req.FromNumber,
		ToNumber:   req.ToNumber,
		Target:     req.Target,
		Reason:     req.Reason,
		OccurredAt: time.Now().UTC(),
	}
	h.Recorder.Record(c.Request.Context(), event, h.connectorsFor(agency)...)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h Handlers) connectorsFor(a tenant.Agency) []crm.Connector {
	var out []crm.Connector
	if a.GHL != nil {
		out = append(out, crm.NewGHLConnector(crm.GHLConfig{
			AccessToken: a.GHL.AccessToken,
			LocationID:  a.GHL.LocationID,
		}, h.CRMClient))
	}
	if a.HubSpot != nil {
		out = append(out, crm.NewHubSpotConnector(crm.HubSpotConfig{
			AccessToken: a.HubSpot.AccessToken,
		}, h.CRMClient))
	}
	return out
}

type callStatusWebhookRequest struct {
	AgencyID string `json:"agency_id"`
	CallID   string `json:"call_id"`
	Status   string `json:"status"`
}

// CallStatusWebhook applies a provider-reported status transition.
// A terminal status releases the agency's dial concurrency slot.
func (h Handlers) CallStatusWebhook(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call store not configured"})
		return
	}
	var req callStatusWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AgencyID == "" || req.CallID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "agency_id and call_id required"})
		return
	}
	status, ok := calls.ParseStatus(req.Status)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	call, err := h.Calls.GetByCallID(c.Request.Context(), req.AgencyID, req.CallID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		logger.FromGin(c).Error("call lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}

	if err := h.Calls.UpdateStatus(c.Request.Context(), call.CallID, status); err != nil {
		logger.FromGin(c).Error("status update failed", "call_id", call.CallID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status update failed"})
		return
	}

	if status.IsTerminal() && !call.Status.IsTerminal() && h.Limiter != nil {
		if err := h.Limiter.Release(c.Request.Context(), req.AgencyID); err != nil {
			logger.FromGin(c).Warn("limiter release failed", "agency_id", req.AgencyID, "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
