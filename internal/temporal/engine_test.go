package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codegraph/knowledgegraph/internal/graphstore"
	"github.com/codegraph/knowledgegraph/internal/model"
)

func TestSortVersionRowsOrdersByTimestampThenID(t *testing.T) {
	t0 := time.Now()
	rows := []graphstore.VersionRow{
		{ID: "v3", Timestamp: t0},
		{ID: "v1", Timestamp: t0.Add(-time.Hour)},
		{ID: "v2", Timestamp: t0},
	}
	sortVersionRows(rows)

	assert.Equal(t, []string{"v1", "v2", "v3"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})
}

func TestTimeTravelActiveOpenEdgeHasNoEnd(t *testing.T) {
	now := time.Now()
	r := model.Relationship{ValidFrom: now.Add(-time.Hour)}

	assert.True(t, TimeTravelActive(r, now))
	assert.False(t, TimeTravelActive(r, now.Add(-2*time.Hour)))
}

func TestTimeTravelActiveRespectsValidToBoundary(t *testing.T) {
	now := time.Now()
	validTo := now.Add(time.Hour)
	r := model.Relationship{ValidFrom: now.Add(-time.Hour), ValidTo: &validTo}

	assert.True(t, TimeTravelActive(r, now))
	assert.False(t, TimeTravelActive(r, validTo))
	assert.False(t, TimeTravelActive(r, validTo.Add(time.Minute)))
}
