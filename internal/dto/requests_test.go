package dto

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, dateOnly, err := ParseDate(" 2026-02-01 ")
	require.NoError(t, err)
	assert.True(t, dateOnly)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), d)

	d, dateOnly, err = ParseDate("2026-02-01T10:15:00+01:00")
	require.NoError(t, err)
	assert.False(t, dateOnly)
	assert.Equal(t, 9, d.UTC().Hour())

	_, _, err = ParseDate("01/02/2026")
	assert.ErrorIs(t, err, errInvalidDate)
}

func TestGenerateReportRequest_Period(t *testing.T) {
	from, to, err := GenerateReportRequest{StartDate: "2026-01-01", EndDate: "2026-01-31"}.Period()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 1, 31, 23, 59, 59, 999999999, time.UTC), to)

	_, to, err = GenerateReportRequest{StartDate: "2026-01-01", EndDate: "2026-01-31T12:00:00Z"}.Period()
	require.NoError(t, err)
	assert.Equal(t, 12, to.Hour())

	_, _, err = GenerateReportRequest{StartDate: "yesterday", EndDate: "2026-01-31"}.Period()
	assert.ErrorContains(t, err, "start_date")
}

func TestParseOptionalUUID(t *testing.T) {
	id, err := ParseOptionalUUID("agent_id", nil)
	require.NoError(t, err)
	assert.Nil(t, id)

	blank := "  "
	id, err = ParseOptionalUUID("agent_id", &blank)
	require.NoError(t, err)
	assert.Nil(t, id)

	raw := uuid.NewString()
	id, err = ParseOptionalUUID("agent_id", &raw)
	require.NoError(t, err)
	assert.Equal(t, raw, id.String())

	bad := "42"
	_, err = ParseOptionalUUID("agent_id", &bad)
	assert.EqualError(t, err, "agent_id must be a valid UUID")
}
