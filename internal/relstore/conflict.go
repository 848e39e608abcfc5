package relstore

import (
	"gorm.io/gorm/clause"
)

// onConflictUpdate builds an upsert-on-conflict clause keyed by the given
// columns, updating all other columns on collision.
func onConflictUpdate(columns ...string) clause.OnConflict {
	cols := make([]clause.Column, len(columns))
	for i, c := range columns {
		cols[i] = clause.Column{Name: c}
	}
	return clause.OnConflict{
		Columns:   cols,
		UpdateAll: true,
	}
}
