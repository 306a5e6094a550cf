package readindex

import (
	"context"
	"os"
	"testing"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	dsn := os.Getenv("C2_KERNEL_TEST_DB")
	if dsn == "" {
		t.Skip("read index test database not configured (set C2_KERNEL_TEST_DB)")
	}
	idx, err := Open(dsn)
	if err != nil {
		t.Fatalf("unexpected error opening test index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	if err := idx.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error ensuring schema: %v", err)
	}
	return idx
}

func TestPopulateThenStatusForDayRoundTrips(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	rows := []ArtifactRow{
		{DayUTC: "2026-02-13", Stage: "accounting_nav", SchemaID: "accounting_nav.v1", ArtifactHash: "hash-1", Status: "OK", ProducedUTC: "2026-02-13T00:00:00Z"},
	}
	if err := idx.Populate(ctx, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := idx.StatusForDay(ctx, "2026-02-13", "accounting_nav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != "OK" {
		t.Fatalf("expected status OK, got %s", status)
	}
}

func TestPopulateUpsertsOnConflict(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	row := ArtifactRow{DayUTC: "2026-02-14", Stage: "allocation_summary", SchemaID: "allocation_summary.v1", ArtifactHash: "hash-a", Status: "OK", ProducedUTC: "2026-02-14T00:00:00Z"}
	if err := idx.Populate(ctx, []ArtifactRow{row}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	row.Status = "DEGRADED"
	row.ArtifactHash = "hash-b"
	if err := idx.Populate(ctx, []ArtifactRow{row}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := idx.StatusForDay(ctx, "2026-02-14", "allocation_summary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != "DEGRADED" {
		t.Fatalf("expected upserted status DEGRADED, got %s", status)
	}
}
