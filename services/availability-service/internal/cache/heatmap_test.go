package cache

import (
	"context"
	"testing"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/overlap"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"
)

var _ HeatmapCache = (*RedisHeatmapCache)(nil)
var _ HeatmapCache = Nop{}

func TestHeatmapKey(t *testing.T) {
	dr := timerange.DateRange{StartDate: "2024-01-07", EndDate: "2024-01-13"}
	if got := heatmapKey("evt-1", 3, dr); got != "heatmap:evt-1:v3:2024-01-07:2024-01-13" {
		t.Fatalf("heatmapKey() = %q", got)
	}
	if got := versionKey("evt-1"); got != "heatmap:evt-1:version" {
		t.Fatalf("versionKey() = %q", got)
	}
}

func TestNopAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	dr := timerange.DateRange{StartDate: "2024-01-07", EndDate: "2024-01-07"}
	var c Nop
	if err := c.Set(ctx, "evt", 0, dr, overlap.Heatmap{"2024-01-07|09:00": {Count: 1}}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok, err := c.Get(ctx, "evt", 0, dr); ok || err != nil {
		t.Fatalf("Get() = %v, %v; want miss", ok, err)
	}
}

func TestReadyCheckWithoutClient(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatalf("expected error without a client")
	}
}
