package dialsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/dialer"
	"voiceagent-platform/internal/tenant"
	"voiceagent-platform/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidArgument    = errors.New("dialsvc: invalid argument")
	ErrNoProviderKey      = errors.New("dialsvc: no provider key available for tenant")
	ErrTooManyActiveCalls = errors.New("dialsvc: concurrent call limit reached")
)

// DialFailedError carries the provider-reported failure message.
type DialFailedError struct {
	Provider dialer.Provider
	Message  string
}

func (e *DialFailedError) Error() string {
	return fmt.Sprintf("dialsvc: %s dial failed: %s", e.Provider, e.Message)
}

// Limiter caps concurrent outbound calls per agency.
type Limiter interface {
	Acquire(ctx context.Context, agencyID string) (bool, error)
	Release(ctx context.Context, agencyID string) error
}

// DialInput is one outbound-call decision, ready to place.
type DialInput struct {
	Tenant tenant.Ref

	// Provider is optional; empty means auto-select by key availability.
	Provider string

	AgentID    string
	ToNumber   string
	FromNumber string
	Metadata   map[string]string
}

// DialOutput reports the placed call and how its credentials were chosen.
type DialOutput struct {
	Call      calls.Call       `json:"call"`
	Provider  dialer.Provider  `json:"provider"`
	KeySource tenant.KeySource `json:"key_source"`
}

// Service orchestrates outbound call placement: resolve tenant credentials,
// pick a provider, enforce the per-agency concurrency cap, dial, persist.
//
// No retries on dial failure: re-dialing can ring a phone twice. The caller
// (scheduler or user) decides whether to try again.
type Service struct {
	resolver   *tenant.Resolver
	dispatcher *dialer.Dispatcher
	store      calls.Store
	limiter    Limiter

	clock func() time.Time
}

func NewService(resolver *tenant.Resolver, dispatcher *dialer.Dispatcher, store calls.Store, limiter Limiter) *Service {
	return &Service{
		resolver:   resolver,
		dispatcher: dispatcher,
		store:      store,
		limiter:    limiter,
		clock:      time.Now,
	}
}

func (s *Service) Dial(ctx context.Context, in DialInput) (DialOutput, error) {
	if in.Tenant.AgencyID == "" || in.AgentID == "" || in.ToNumber == "" {
		return DialOutput{}, ErrInvalidArgument
	}

	creds, err := s.resolver.Resolve(ctx, in.Tenant)
	if err != nil {
		return DialOutput{}, err
	}

	var provider dialer.Provider
	var apiKey string
	if in.Provider != "" {
		p, ok := dialer.ParseProvider(in.Provider)
		if !ok {
			return DialOutput{}, fmt.Errorf("%w: unsupported provider %q", ErrInvalidArgument, in.Provider)
		}
		provider = p
		apiKey = creds.Key(string(p))
	} else {
		sel, ok := creds.AutoSelect()
		if !ok {
			return DialOutput{}, ErrNoProviderKey
		}
		provider = dialer.Provider(sel.Provider)
		apiKey = sel.APIKey
	}
	if apiKey == "" {
		return DialOutput{}, ErrNoProviderKey
	}

	if s.limiter != nil {
		ok, err := s.limiter.Acquire(ctx, in.Tenant.AgencyID)
		if err != nil {
			return DialOutput{}, err
		}
		if !ok {
			return DialOutput{}, ErrTooManyActiveCalls
		}
	}

	res := s.dispatcher.Dial(ctx, dialer.CallRequest{
		Provider:   provider,
		APIKey:     apiKey,
		AgentID:    in.AgentID,
		ToNumber:   in.ToNumber,
		FromNumber: in.FromNumber,
		Metadata:   in.Metadata,
	})
	if !res.OK {
		// The slot is freed on failure; on success it is held until the
		// call-ended webhook releases it (TTL covers crashes).
		if s.limiter != nil {
			if rerr := s.limiter.Release(ctx, in.Tenant.AgencyID); rerr != nil {
				logger.From(ctx).Warn("limiter release failed", "agency_id", in.Tenant.AgencyID, "err", rerr)
			}
		}
		return DialOutput{}, &DialFailedError{Provider: provider, Message: res.Error}
	}

	now := s.clock().UTC()
	call := calls.Call{
		CallID:         uuid.NewString(),
		AgencyID:       in.Tenant.AgencyID,
		ClientID:       in.Tenant.ClientID,
		Provider:       string(provider),
		AgentID:        in.AgentID,
		From:           in.FromNumber,
		To:             in.ToNumber,
		Status:         calls.CallStatusQueued,
		ProviderCallID: res.CallID,
		CreatedAt:      now,
	}
	if err := s.store.Create(ctx, call); err != nil {
		// The provider call is already ringing; surface the persistence
		// failure but log the orphaned provider id for reconciliation.
		logger.From(ctx).Error("call row write failed after dial",
			"agency_id", in.Tenant.AgencyID, "provider", string(provider), "provider_call_id", res.CallID, "err", err)
		return DialOutput{}, err
	}

	logger.From(ctx).Info("outbound call placed",
		"call_id", call.CallID,
		"provider", string(provider),
		"key_source", string(creds.Sources[string(provider)]),
	)

	return DialOutput{
		Call:      call,
		Provider:  provider,
		KeySource: creds.Sources[string(provider)],
	}, nil
}
