package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/stevedore/pkg/destinations"
	"github.com/TFMV/stevedore/pkg/models"
)

func TestBulkInsert_AllOk(t *testing.T) {
	d := New()
	result := d.BulkInsert(context.Background(), []models.Row{
		{"name": "a"},
		{"name": "b"},
	})

	assert.Equal(t, models.BulkAllOk, result.Kind())
	assert.Equal(t, 2, result.Inserted())
	assert.Len(t, d.Rows(), 2)
}

func TestBulkInsert_RejectRow(t *testing.T) {
	d := New()
	d.RejectRow = func(row models.Row) string {
		if row["name"] == "b" {
			return "duplicate key"
		}
		return ""
	}

	result := d.BulkInsert(context.Background(), []models.Row{
		{"name": "a"},
		{"name": "b"},
		{"name": "c"},
	})

	assert.Equal(t, models.BulkPartialFailure, result.Kind())
	assert.Equal(t, 2, result.Inserted())
	require.Len(t, result.RowErrors(), 1)
	assert.Equal(t, 1, result.RowErrors()[0].IndexInBatch)
	assert.Equal(t, "duplicate key", result.RowErrors()[0].Message)
	assert.Len(t, d.Rows(), 2, "rejected rows are not stored")
}

func TestBulkInsert_FailBatch(t *testing.T) {
	d := New()
	d.FailBatch = func(call int) string {
		if call == 2 {
			return "out of disk"
		}
		return ""
	}

	first := d.BulkInsert(context.Background(), []models.Row{{"n": 1}})
	second := d.BulkInsert(context.Background(), []models.Row{{"n": 2}})

	assert.Equal(t, models.BulkAllOk, first.Kind())
	assert.Equal(t, models.BulkTotalFailure, second.Kind())
	assert.Equal(t, "out of disk", second.Message())
	assert.Equal(t, 2, d.Calls())
	assert.Len(t, d.Rows(), 1, "a failed batch stores nothing")
}

func TestStats(t *testing.T) {
	d := New()
	d.BulkInsert(context.Background(), []models.Row{{"n": 1}, {"n": 2}})

	stats, err := d.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Count)
}

func TestConstraints(t *testing.T) {
	c := destinations.Constraints{
		ReservedNamePrefixes: []string{"$"},
		ReservedNameChars:    []string{"."},
	}
	d := New().WithConstraints(c)
	assert.Equal(t, c, d.Constraints())
}

func TestRows_ReturnsCopy(t *testing.T) {
	d := New()
	d.BulkInsert(context.Background(), []models.Row{{"n": 1}})

	rows := d.Rows()
	rows[0] = models.Row{"n": 99}

	assert.Equal(t, models.Row{"n": 1}, d.Rows()[0])
}
