package database_test

import (
	"testing"

	"github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/database"
)

type carrierRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

func TestStruct_InsertInto(t *testing.T) {
	ib := database.NewStruct(carrierRow{}, sqlbuilder.PostgreSQL).InsertInto("carriers", carrierRow{ID: "c1", Name: "Acme"})

	query, args := ib.Build()
	assert.Equal(t, "INSERT INTO carriers (id, name) VALUES ($1, $2)", query)
	assert.Equal(t, []any{"c1", "Acme"}, args)
}

func TestInsertBuilder_OnConflict(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*database.InsertBuilder)
		want  string
	}{
		{
			name: "do update",
			apply: func(ib *database.InsertBuilder) {
				ib.OnConflictDoUpdate([]string{"category", "day"}, "value = counters.value + 1")
			},
			want: "INSERT INTO counters (category, day, value) VALUES ($1, $2, $3) ON CONFLICT (category, day) DO UPDATE SET value = counters.value + 1",
		},
		{
			name:  "do nothing",
			apply: func(ib *database.InsertBuilder) { ib.OnConflictDoNothing() },
			want:  "INSERT INTO counters (category, day, value) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ib := database.NewInsertBuilder(sqlbuilder.PostgreSQL)
			ib.InsertInto("counters").Cols("category", "day", "value").Values("notifications", "2026-10-15", 1)
			tt.apply(ib)

			query, args := ib.Build()
			assert.Equal(t, tt.want, query)
			assert.Equal(t, []any{"notifications", "2026-10-15", 1}, args)
		})
	}
}

func TestArgs(t *testing.T) {
	assert.Equal(t, []any{"a", "b"}, database.Args([]string{"a", "b"}))
	assert.Empty(t, database.Args([]int{}))
}
