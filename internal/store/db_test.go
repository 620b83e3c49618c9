package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ms-ticket-sync/internal/models"
	"ms-ticket-sync/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*store.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Event)(nil),
		(*models.OrderLine)(nil),
		(*models.SalesSummary)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return store.New(bunDB, nil), bunDB
}

func TestUpsertEventPreservesSyncStamps(t *testing.T) {
	db, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	eventDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, db.UpsertEvent(ctx, &models.Event{
		ID:     501,
		Name:   "The Midnight",
		Date:   eventDate,
		Artist: "The Midnight",
		Status: models.StatusLive,
	}))

	stamp := time.Date(2025, 2, 25, 12, 0, 0, 0, time.UTC)
	assert.NoError(t, db.StampOrderSync(ctx, 501, stamp))

	// Re-upserting with fresh provider data must not wipe the stamp.
	assert.NoError(t, db.UpsertEvent(ctx, &models.Event{
		ID:     501,
		Name:   "The Midnight (Rescheduled)",
		Date:   eventDate.Add(24 * time.Hour),
		Artist: "The Midnight",
		Status: models.StatusLive,
	}))

	ev, err := db.GetEvent(ctx, 501)
	assert.NoError(t, err)
	assert.Equal(t, "The Midnight (Rescheduled)", ev.Name)
	assert.True(t, ev.OrdersSynced.Equal(stamp), "order sync stamp survived the upsert")
}

func TestGetEventNotFound(t *testing.T) {
	db, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := db.GetEvent(context.Background(), 999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListUpcomingEventsFiltersPastDates(t *testing.T) {
	db, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	now := time.Date(2025, 2, 25, 15, 30, 0, 0, time.UTC)
	assert.NoError(t, db.UpsertEvent(ctx, &models.Event{ID: 1, Name: "Past Show", Date: now.Add(-48 * time.Hour)}))
	assert.NoError(t, db.UpsertEvent(ctx, &models.Event{ID: 2, Name: "Tonight", Date: now.Truncate(24 * time.Hour)}))
	assert.NoError(t, db.UpsertEvent(ctx, &models.Event{ID: 3, Name: "Next Week", Date: now.Add(7 * 24 * time.Hour)}))

	events, err := db.ListUpcomingEvents(ctx, now)
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, "Tonight", events[0].Name, "same-day events still count as upcoming")
	assert.Equal(t, "Next Week", events[1].Name)
}

func TestDistinctArtists(t *testing.T) {
	db, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	assert.NoError(t, db.UpsertEvent(ctx, &models.Event{ID: 1, Name: "A", Date: time.Now(), Artist: "Khruangbin"}))
	assert.NoError(t, db.UpsertEvent(ctx, &models.Event{ID: 2, Name: "B", Date: time.Now(), Artist: "Khruangbin"}))
	assert.NoError(t, db.UpsertEvent(ctx, &models.Event{ID: 3, Name: "C", Date: time.Now(), Artist: "Caribou"}))
	assert.NoError(t, db.UpsertEvent(ctx, &models.Event{ID: 4, Name: "D", Date: time.Now()}))

	names, err := db.DistinctArtists(ctx)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"Khruangbin", "Caribou"}, names)
}

func TestInsertOrderLinesIsIdempotent(t *testing.T) {
	db, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	lines := []models.OrderLine{
		{EventID: 501, OrderName: "ORD-1", SaleID: "S1", Category: models.CategoryGA, Quantity: 2, Gross: 40, Net: 36},
		{EventID: 501, OrderName: "ORD-2", SaleID: "S1", Category: models.CategoryVIP, Quantity: 1},
	}

	inserted, err := db.InsertOrderLines(ctx, lines, 500)
	assert.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Same lines again: the composite key makes every row a no-op.
	_, err = db.InsertOrderLines(ctx, lines, 500)
	assert.NoError(t, err)

	count, err := db.CountOrderLines(ctx, 501)
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestInsertOrderLinesBatches(t *testing.T) {
	db, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	lines := make([]models.OrderLine, 7)
	for i := range lines {
		lines[i] = models.OrderLine{
			EventID:   501,
			OrderName: "ORD-1",
			SaleID:    string(rune('A' + i)),
			Category:  models.CategoryGA,
			Quantity:  1,
		}
	}

	inserted, err := db.InsertOrderLines(ctx, lines, 3)
	assert.NoError(t, err)
	assert.Equal(t, 7, inserted)

	count, err := db.CountOrderLines(ctx, 501)
	assert.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestDeleteOrderLines(t *testing.T) {
	db, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	lines := []models.OrderLine{
		{EventID: 501, OrderName: "ORD-1", SaleID: "S1", Quantity: 1},
		{EventID: 501, OrderName: "ORD-1", SaleID: "S2", Quantity: 1},
		{EventID: 502, OrderName: "ORD-9", SaleID: "S1", Quantity: 1},
	}
	_, err := db.InsertOrderLines(ctx, lines, 500)
	assert.NoError(t, err)

	deleted, err := db.DeleteOrderLines(ctx, 501)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := db.CountOrderLines(ctx, 502)
	assert.NoError(t, err)
	assert.Equal(t, 1, count, "other events are untouched")
}

func TestOrderLinesPage(t *testing.T) {
	db, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	lines := []models.OrderLine{
		{EventID: 501, OrderName: "ORD-1", SaleID: "S1", Quantity: 1},
		{EventID: 501, OrderName: "ORD-1", SaleID: "S2", Quantity: 1},
		{EventID: 501, OrderName: "ORD-2", SaleID: "S1", Quantity: 1},
	}
	_, err := db.InsertOrderLines(ctx, lines, 500)
	assert.NoError(t, err)

	first, err := db.OrderLinesPage(ctx, 501, 0, 2)
	assert.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := db.OrderLinesPage(ctx, 501, 2, 2)
	assert.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Equal(t, "ORD-2", second[0].OrderName)
}

func TestUpsertSalesSummaryOverwrites(t *testing.T) {
	db, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	assert.NoError(t, db.UpsertSalesSummary(ctx, &models.SalesSummary{
		EventID: 501, TotalGA: 2, Gross: 40, Net: 36,
	}))
	assert.NoError(t, db.UpsertSalesSummary(ctx, &models.SalesSummary{
		EventID: 501, TotalGA: 5, CompVIP: 1, Gross: 100, Net: 90,
	}))

	summary, err := db.GetSalesSummary(ctx, 501)
	assert.NoError(t, err)
	assert.Equal(t, 5, summary.TotalGA)
	assert.Equal(t, 1, summary.CompVIP)
	assert.Equal(t, 100.0, summary.Gross)
}

func TestGetSalesSummaryNotFound(t *testing.T) {
	db, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := db.GetSalesSummary(context.Background(), 999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
