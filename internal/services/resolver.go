// Package services resolves service, consultation and promotion references to
// appointment durations.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

const (
	// ConsultationRef is the literal reference for a plain consultation.
	ConsultationRef = "consultation"
	// PromoPrefix marks a promotion reference, e.g. "promo_42".
	PromoPrefix = "promo_"
	// DefaultMinutes is used when nothing else resolves.
	DefaultMinutes = 30
)

// Service is a bookable service; Duration is kept as the text staff entered.
type Service struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Duration string `json:"duration"`
}

// Minutes parses the stored duration.
func (s Service) Minutes() (int, bool) {
	return ParseDuration(s.Duration)
}

// Promotion optionally overrides the duration of the services it covers.
type Promotion struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	DurationMinutes int      `json:"durationMinutes,omitempty"`
	ServiceIDs      []string `json:"serviceIds,omitempty"`
	Active          bool     `json:"active"`
}

// Catalog looks up services and promotions. Missing entries report false.
type Catalog interface {
	Service(ctx context.Context, id string) (Service, bool, error)
	Promotion(ctx context.Context, id string) (Promotion, bool, error)
}

// Resolver maps a service reference to minutes.
type Resolver struct {
	catalog        Catalog
	consultationID string
	defaultMinutes int
	logger         *logging.Logger
}

// NewResolver creates a resolver. consultationID names the service whose
// duration backs consultations and override-less promotions.
func NewResolver(catalog Catalog, consultationID string, defaultMinutes int, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	if defaultMinutes <= 0 {
		defaultMinutes = DefaultMinutes
	}
	return &Resolver{
		catalog:        catalog,
		consultationID: consultationID,
		defaultMinutes: defaultMinutes,
		logger:         logger,
	}
}

// Resolve returns a positive duration for ref, or a not_found/validation error.
func (r *Resolver) Resolve(ctx context.Context, ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return 0, apperr.Validation("serviceId is required")
	case strings.EqualFold(ref, ConsultationRef):
		return r.consultation(ctx)
	case strings.HasPrefix(ref, PromoPrefix):
		return r.promotion(ctx, strings.TrimPrefix(ref, PromoPrefix))
	}

	svc, ok, err := r.catalog.Service(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("services: lookup %s: %w", ref, err)
	}
	if !ok {
		return 0, apperr.NotFound("service not found")
	}
	if minutes, ok := svc.Minutes(); ok {
		return minutes, nil
	}
	r.logger.Warn("service duration unreadable, using consultation duration", "service_id", ref, "duration", svc.Duration)
	return r.consultation(ctx)
}

func (r *Resolver) promotion(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, apperr.Validation("promotion id is required")
	}
	promo, ok, err := r.catalog.Promotion(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("services: lookup promotion %s: %w", id, err)
	}
	if !ok {
		return 0, apperr.NotFound("promotion not found")
	}
	if !promo.Active {
		return 0, apperr.Validation("promotion is not active")
	}
	if promo.DurationMinutes > 0 {
		return promo.DurationMinutes, nil
	}
	return r.consultation(ctx)
}

func (r *Resolver) consultation(ctx context.Context) (int, error) {
	if r.consultationID == "" {
		return r.defaultMinutes, nil
	}
	svc, ok, err := r.catalog.Service(ctx, r.consultationID)
	if err != nil {
		return 0, fmt.Errorf("services: lookup consultation: %w", err)
	}
	if ok {
		if minutes, ok := svc.Minutes(); ok {
			return minutes, nil
		}
	}
	return r.defaultMinutes, nil
}
