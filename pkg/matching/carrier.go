// Package matching maps extracted carrier names and service tokens onto reference data
package matching

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ResolveCarrier returns the known carrier whose normalized name equals the normalized
// candidate. Nil candidates, blank candidates, no match, and more than one match all return nil.
func ResolveCarrier(candidate *string, known []models.Carrier) *models.Carrier {
	if candidate == nil {
		return nil
	}
	want := normalizers.Normalize(*candidate)
	if want == "" {
		return nil
	}

	var found *models.Carrier
	for i := range known {
		if normalizers.Normalize(known[i].Name) != want {
			continue
		}
		if found != nil {
			return nil
		}
		found = &known[i]
	}
	return found
}

// InferCarrier returns the carrier owning every matched service that has an owner,
// provided exactly one distinct owner exists among them.
func InferCarrier(services []models.Service, known []models.Carrier) *models.Carrier {
	var owner string
	for _, svc := range services {
		if svc.CarrierID == nil || *svc.CarrierID == "" {
			continue
		}
		if owner != "" && owner != *svc.CarrierID {
			return nil
		}
		owner = *svc.CarrierID
	}
	if owner == "" {
		return nil
	}
	for i := range known {
		if known[i].ID == owner {
			return &known[i]
		}
	}
	return nil
}

type CarrierStore interface {
	List(ctx context.Context) ([]models.Carrier, error)
}

type CarrierResolverConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

// CarrierResolver resolves names against the stored carrier list.
// Hits are cached by normalized name; misses always go back to the store so a
// carrier added while running resolves on the next lookup.
type CarrierResolver struct {
	store  CarrierStore
	cache  *expirable.LRU[string, *models.Carrier]
	logger ectologger.Logger
}

func NewCarrierResolver(store CarrierStore, cfg CarrierResolverConfig, logger ectologger.Logger) *CarrierResolver {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &CarrierResolver{
		store:  store,
		cache:  expirable.NewLRU[string, *models.Carrier](cfg.CacheSize, nil, cfg.CacheTTL),
		logger: logger,
	}
}

// Resolve maps a candidate name onto a known carrier. A nil result with a nil error means unresolved.
func (r *CarrierResolver) Resolve(ctx context.Context, candidate *string) (*models.Carrier, error) {
	if candidate == nil {
		return nil, nil
	}

	ctx, span := tracing.StartSpan(ctx, "matching.CarrierResolver.Resolve")
	defer span.End()

	key := normalizers.Normalize(*candidate)
	if key == "" {
		return nil, nil
	}
	if carrier, ok := r.cache.Get(key); ok {
		return carrier, nil
	}

	known, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	carrier := ResolveCarrier(candidate, known)

	log := r.logger.WithContext(ctx).WithField("candidate", *candidate)
	if carrier == nil {
		log.Debug("Carrier candidate did not resolve")
		return nil, nil
	}
	r.cache.Add(key, carrier)
	log.WithField("carrier_id", carrier.ID).Debug("Resolved carrier")
	return carrier, nil
}

// Infer resolves the single owning carrier of the matched services, if there is one
func (r *CarrierResolver) Infer(ctx context.Context, services []models.Service) (*models.Carrier, error) {
	if len(services) == 0 {
		return nil, nil
	}

	ctx, span := tracing.StartSpan(ctx, "matching.CarrierResolver.Infer")
	defer span.End()

	known, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return InferCarrier(services, known), nil
}

// Purge drops cached resolutions, e.g. after carriers are added
func (r *CarrierResolver) Purge() {
	r.cache.Purge()
}
