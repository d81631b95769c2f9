package incident

import (
	"context"

	geojson "github.com/paulmach/go.geojson"

	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
)

// MaxMapFeatures верхняя граница точек в одной выгрузке.
const MaxMapFeatures = 1000

// MapExportUseCase выгружает обращения с координатами в GeoJSON.
type MapExportUseCase struct {
	search *SearchIncidentsUseCase
}

func NewMapExportUseCase(incidents repository.IncidentRepository) *MapExportUseCase {
	return &MapExportUseCase{search: NewSearchIncidentsUseCase(incidents)}
}

func (uc *MapExportUseCase) Execute(ctx context.Context, filter repository.IncidentFilter) (*geojson.FeatureCollection, error) {
	filter.OnlyWithCoordinates = true
	filter.Offset = 0
	if filter.Limit <= 0 || filter.Limit > MaxMapFeatures {
		filter.Limit = MaxMapFeatures
	}

	out, err := uc.search.Execute(ctx, filter)
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	for _, inc := range out.Incidents {
		if inc.Coordinates == nil {
			continue
		}
		// GeoJSON хранит точку как [долгота, широта].
		f := geojson.NewPointFeature([]float64{inc.Coordinates.Longitude, inc.Coordinates.Latitude})
		f.ID = inc.ID.String()
		f.SetProperty("title", inc.Title)
		f.SetProperty("status", string(inc.Status))
		f.SetProperty("category", string(inc.Category))
		f.SetProperty("priority", string(inc.Priority))
		f.SetProperty("address", inc.Address)
		f.SetProperty("created_at", inc.CreatedAt)
		fc.AddFeature(f)
	}
	return fc, nil
}
