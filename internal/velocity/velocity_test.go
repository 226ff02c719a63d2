package velocity

import (
	"context"
	"testing"
	"time"

	"invplan-backend/internal/models"
	"invplan-backend/internal/store/memory"
)

func seed(t *testing.T, repo *memory.FactRepo, ean string, at time.Time, stock float64) {
	t.Helper()
	row := &models.SKUFact{EANCode: ean, CreatedAt: at}
	row.WarehouseTotalStock = stock
	if err := repo.Insert(context.Background(), row); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestRollingAverageSingleRowToday(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	repo := memory.NewFactRepo()
	seed(t, repo, "e1", now.Add(-time.Hour), 70)

	c := NewCalculator(repo).WithClock(func() time.Time { return now })
	got, err := c.RollingAverage(context.Background(), "e1", 7, WarehouseTotalStock)
	if err != nil {
		t.Fatalf("rolling average: %v", err)
	}
	if got != 10 {
		t.Fatalf("want=70/7=10 got=%v", got)
	}
}

func TestRollingAverageNoRows(t *testing.T) {
	c := NewCalculator(memory.NewFactRepo())
	for _, days := range []int{7, 0, -3} {
		got, err := c.RollingAverage(context.Background(), "missing", days, WarehouseTotalStock)
		if err != nil || got != 0 {
			t.Fatalf("days=%d want=0 got=%v err=%v", days, got, err)
		}
	}
}

func TestRollingAverageDividesByDaysNotRows(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	repo := memory.NewFactRepo()
	seed(t, repo, "e1", now.Add(-40*24*time.Hour), 1000) // outside every window
	seed(t, repo, "e1", now.Add(-20*24*time.Hour), 300)
	seed(t, repo, "e1", now.Add(-10*24*time.Hour), 150)
	seed(t, repo, "e1", now.Add(-2*24*time.Hour), 60)
	seed(t, repo, "e1", now.Add(-1*time.Hour), 45)

	c := NewCalculator(repo).WithClock(func() time.Time { return now })
	got, err := c.Windows(context.Background(), "e1", WarehouseTotalStock, []int{7, 15, 30})
	if err != nil {
		t.Fatalf("windows: %v", err)
	}
	want := []float64{105.0 / 7, 255.0 / 15, 555.0 / 30}
	for i := range want {
		if diff := got[i] - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("window %d want=%v got=%v", i, want[i], got[i])
		}
	}
}

func TestWindowsBeyondConcurrencyLimitKeepOrder(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	repo := memory.NewFactRepo()
	seed(t, repo, "e1", now.Add(-time.Hour), 60)

	days := []int{1, 2, 3, 4, 5, 6, 10, 12}
	if len(days) <= maxConcurrentWindows {
		t.Fatalf("need more windows than the limit %d", maxConcurrentWindows)
	}
	c := NewCalculator(repo).WithClock(func() time.Time { return now })
	got, err := c.Windows(context.Background(), "e1", WarehouseTotalStock, days)
	if err != nil {
		t.Fatalf("windows: %v", err)
	}
	for i, d := range days {
		if want := 60 / float64(d); got[i] != want {
			t.Fatalf("window %d want=%v got=%v", d, want, got[i])
		}
	}
}
