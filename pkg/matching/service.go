package matching

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Lookup returns the service registered under a carrier-side code, or nil
type Lookup func(code string) *models.Service

// MatchServices partitions tokens into matched services and pending tokens. Tokens are
// looked up verbatim. Pending tokens keep first-occurrence order and are reported once;
// a service matched by several tokens is returned once.
func MatchServices(tokens []string, lookup Lookup) (matched []models.Service, pending []string) {
	matched = []models.Service{}
	pending = []string{}

	seenServices := map[string]bool{}
	seenPending := map[string]bool{}
	for _, token := range tokens {
		svc := lookup(token)
		if svc == nil {
			if !seenPending[token] {
				seenPending[token] = true
				pending = append(pending, token)
			}
			continue
		}
		if !seenServices[svc.ID] {
			seenServices[svc.ID] = true
			matched = append(matched, *svc)
		}
	}
	return matched, pending
}

type ServiceStore interface {
	FindByCarrierSideIDs(ctx context.Context, codes []string) ([]models.Service, error)
}

// ServiceMatcher loads every candidate service in one query before matching
type ServiceMatcher struct {
	store  ServiceStore
	logger ectologger.Logger
}

func NewServiceMatcher(store ServiceStore, logger ectologger.Logger) *ServiceMatcher {
	return &ServiceMatcher{store: store, logger: logger}
}

func (m *ServiceMatcher) Match(ctx context.Context, tokens []string) ([]models.Service, []string, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.ServiceMatcher.Match")
	defer span.End()

	services, err := m.store.FindByCarrierSideIDs(ctx, tokens)
	if err != nil {
		return nil, nil, err
	}

	byCode := map[string][]models.Service{}
	for _, svc := range services {
		if svc.CarrierSideID == nil {
			continue
		}
		byCode[*svc.CarrierSideID] = append(byCode[*svc.CarrierSideID], svc)
	}

	log := m.logger.WithContext(ctx)
	lookup := func(code string) *models.Service {
		candidates := byCode[code]
		switch len(candidates) {
		case 0:
			return nil
		case 1:
			return &candidates[0]
		default:
			// ambiguous codes stay pending for an operator to resolve
			log.WithFields(map[string]any{"code": code, "candidates": len(candidates)}).Warn("Service code matches more than one service")
			return nil
		}
	}

	matched, pending := MatchServices(tokens, lookup)
	log.WithFields(map[string]any{
		"tokens":  len(tokens),
		"matched": len(matched),
		"pending": len(pending),
	}).Debug("Matched service tokens")
	return matched, pending, nil
}
