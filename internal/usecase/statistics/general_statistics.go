package statistics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/citesignal-backend/internal/cache"
	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
)

const (
	// UnspecifiedNeighborhood ключ для обращений без квартала.
	UnspecifiedNeighborhood = "unspecified"
	// RecentWindow окно "последних" обращений.
	RecentWindow = 30 * 24 * time.Hour

	generalCacheKey = "stats:general"
	cachePrefix     = "stats:"
)

// GeneralStatistics сводная статистика по всем обращениям.
type GeneralStatistics struct {
	TotalIncidents          int            `json:"total_incidents"`
	IncidentsByStatus       map[string]int `json:"incidents_by_status"`
	IncidentsByCategory     map[string]int `json:"incidents_by_category"`
	IncidentsByNeighborhood map[string]int `json:"incidents_by_neighborhood"`
	IncidentsLast30Days     int            `json:"incidents_last_30_days"`
	ResolvedLast30Days      int            `json:"resolved_last_30_days"`
	ResolutionRate          float64        `json:"resolution_rate"`
}

type GeneralStatisticsUseCase struct {
	incidents repository.IncidentRepository
	cache     cache.Store
	ttl       time.Duration
	now       func() time.Time
}

// NewGeneralStatisticsUseCase cache может быть nil, тогда статистика считается на каждый вызов.
func NewGeneralStatisticsUseCase(incidents repository.IncidentRepository, store cache.Store, ttl time.Duration) *GeneralStatisticsUseCase {
	return &GeneralStatisticsUseCase{
		incidents: incidents,
		cache:     store,
		ttl:       ttl,
		now:       time.Now,
	}
}

// WithClock подменяет часы, используется в тестах.
func (uc *GeneralStatisticsUseCase) WithClock(now func() time.Time) *GeneralStatisticsUseCase {
	uc.now = now
	return uc
}

func (uc *GeneralStatisticsUseCase) Execute(ctx context.Context) (*GeneralStatistics, error) {
	if uc.cache == nil || uc.ttl <= 0 {
		return uc.compute(ctx)
	}

	raw, err := cache.GetOrSet(ctx, uc.cache, generalCacheKey, uc.ttl, func() ([]byte, error) {
		stats, err := uc.compute(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(stats)
	})
	if err != nil {
		return nil, err
	}

	var stats GeneralStatistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		logger.L().WithError(err).Warn("statistics: cached value unreadable, recomputing")
		return uc.compute(ctx)
	}
	return &stats, nil
}

func (uc *GeneralStatisticsUseCase) compute(ctx context.Context) (*GeneralStatistics, error) {
	total, err := uc.incidents.Count(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := uc.incidents.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byCategory, err := uc.incidents.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}
	byNeighborhood, err := uc.incidents.CountByNeighborhood(ctx)
	if err != nil {
		return nil, err
	}

	end := uc.now().UTC()
	recent, err := uc.incidents.FindCreatedBetween(ctx, end.Add(-RecentWindow), end)
	if err != nil {
		return nil, err
	}
	created, resolved := resolutionCounts(recent)

	return &GeneralStatistics{
		TotalIncidents:          total,
		IncidentsByStatus:       zeroFilledStatuses(byStatus),
		IncidentsByCategory:     zeroFilledCategories(byCategory),
		IncidentsByNeighborhood: neighborhoodBuckets(byNeighborhood),
		IncidentsLast30Days:     created,
		ResolvedLast30Days:      resolved,
		ResolutionRate:          ResolutionRate(resolved, created),
	}, nil
}

// ResolutionRate процент решённых, округлённый до двух знаков; 0 для пустого окна.
func ResolutionRate(resolved, total int) float64 {
	if total == 0 {
		return 0
	}
	rate := decimal.NewFromInt(int64(resolved)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
	return rate.InexactFloat64()
}

func resolutionCounts(incidents []*entity.Incident) (total, resolved int) {
	for _, i := range incidents {
		total++
		if i.Status.IsResolvedOrLater() {
			resolved++
		}
	}
	return total, resolved
}

func zeroFilledStatuses(counts map[valueobject.IncidentStatus]int) map[string]int {
	result := make(map[string]int, len(valueobject.AllIncidentStatuses()))
	for _, s := range valueobject.AllIncidentStatuses() {
		result[string(s)] = counts[s]
	}
	return result
}

func zeroFilledCategories(counts map[valueobject.Category]int) map[string]int {
	result := make(map[string]int, len(valueobject.AllCategories()))
	for _, c := range valueobject.AllCategories() {
		result[string(c)] = counts[c]
	}
	return result
}

func neighborhoodBuckets(counts []repository.NeighborhoodCount) map[string]int {
	result := make(map[string]int, len(counts))
	for _, nc := range counts {
		if nc.Count <= 0 {
			continue
		}
		name := UnspecifiedNeighborhood
		if nc.Name != nil {
			name = *nc.Name
		}
		result[name] += nc.Count
	}
	return result
}

// CacheInvalidator сбрасывает кэш статистики на любое событие обращения.
type CacheInvalidator struct {
	store cache.Store
}

func NewCacheInvalidator(store cache.Store) *CacheInvalidator {
	return &CacheInvalidator{store: store}
}

func (ci *CacheInvalidator) Publish(ctx context.Context, event entity.IncidentEvent) {
	if err := ci.store.DeletePrefix(ctx, cachePrefix); err != nil {
		logger.L().WithError(err).WithField("event", event.Type).Warn("statistics: cache invalidation failed")
	}
}
