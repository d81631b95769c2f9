package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/service"
)

func TestNewIncidentResponse(t *testing.T) {
	assert.Nil(t, NewIncidentResponse(nil))

	inc := &entity.Incident{
		ID:          uuid.New(),
		Title:       "Overflowing bin",
		Category:    valueobject.CategoryCleanliness,
		Status:      valueobject.IncidentStatusReported,
		Priority:    valueobject.PriorityLow,
		Coordinates: &valueobject.Coordinates{Latitude: 36.85, Longitude: 10.19},
		CitizenID:   uuid.New(),
		CreatedAt:   time.Now(),
	}
	resp := NewIncidentResponse(inc)
	require.NotNil(t, resp.Latitude)
	assert.Equal(t, 36.85, *resp.Latitude)
	assert.Equal(t, "CLEANLINESS", resp.Category)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, absent := range []string{"agent", "citizen", "photos", "resolved_at", "agent_id"} {
		assert.NotContains(t, fields, absent)
	}
}

func TestNewImportResultResponse_EmptySlices(t *testing.T) {
	resp := NewImportResultResponse(&service.ImportResult{Total: 0})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":0,"success":0,"errors":[],"created":[]}`, string(raw))
}
