package state

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
)

func TestSeenSet_AddAndContains(t *testing.T) {
	s := NewSeenSet(nil, 10)

	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"), "second add of the same id reports already seen")
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("b"))
	assert.Equal(t, []string{"a"}, s.Values())
}

func TestSeenSet_TrimsOldest(t *testing.T) {
	s := NewSeenSet(nil, 3)
	for _, id := range []string{"a", "b", "c", "d"} {
		s.Add(id)
	}

	assert.Equal(t, []string{"b", "c", "d"}, s.Values())
	assert.False(t, s.Contains("a"), "oldest id evicted once capacity exceeded")
}

func TestSeenSet_SeedTrimmed(t *testing.T) {
	ids := make([]string, 0, 1500)
	for i := 0; i < 1500; i++ {
		ids = append(ids, fmt.Sprintf("id-%d", i))
	}
	s := NewSeenSet(ids, MaxSeenIDs)
	assert.Equal(t, MaxSeenIDs, s.Len())
	assert.False(t, s.Contains("id-0"))
	assert.True(t, s.Contains("id-1499"))
}

func TestSeenSet_ConcurrentAdds(t *testing.T) {
	s := NewSeenSet(nil, 0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Add(fmt.Sprintf("id-%d", n%10))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, s.Len())
}

func alertAt(id string, typ domain.HazardType, age time.Duration, now time.Time) domain.Alert {
	return domain.Alert{ID: id, Type: typ, Level: domain.LevelHigh, Time: now.Add(-age).UnixMilli()}
}

func TestMergeAlerts_RetentionByType(t *testing.T) {
	now := time.Now()
	existing := []domain.Alert{
		alertAt("eq-old", domain.HazardEarthquake, 25*time.Hour, now),
		alertAt("eq-fresh", domain.HazardEarthquake, 23*time.Hour, now),
		alertAt("wx-old", domain.HazardSevereWeather, 7*time.Hour, now),
		alertAt("wx-fresh", domain.HazardSevereWeather, 5*time.Hour, now),
	}

	merged := MergeAlerts(existing, nil, now)

	ids := make([]string, 0, len(merged))
	for _, a := range merged {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []string{"eq-fresh", "wx-fresh"}, ids)
}

func TestMergeAlerts_DedupKeepsMostRecent(t *testing.T) {
	now := time.Now()
	older := alertAt("dup", domain.HazardEarthquake, 2*time.Hour, now)
	newer := alertAt("dup", domain.HazardEarthquake, time.Hour, now)
	newer.Place = "updated"

	merged := MergeAlerts([]domain.Alert{older}, []domain.Alert{newer}, now)
	assert.Len(t, merged, 1)
	assert.Equal(t, "updated", merged[0].Place)
	assert.Equal(t, newer.Time, merged[0].Time)
}

func TestMergeAlerts_TrimsToNewest(t *testing.T) {
	now := time.Now()
	var fresh []domain.Alert
	for i := 0; i < MaxActiveAlerts+20; i++ {
		fresh = append(fresh, alertAt(fmt.Sprintf("a-%d", i), domain.HazardSevereWeather,
			time.Duration(MaxActiveAlerts+20-i)*time.Minute, now))
	}

	merged := MergeAlerts(nil, fresh, now)
	assert.Len(t, merged, MaxActiveAlerts)
	// The oldest 20 were trimmed; the newest survive in time order.
	assert.Equal(t, "a-20", merged[0].ID)
	assert.Equal(t, fmt.Sprintf("a-%d", MaxActiveAlerts+19), merged[len(merged)-1].ID)
}

func TestRecentAlerts_BadgeWindow(t *testing.T) {
	now := time.Now()
	alerts := []domain.Alert{
		alertAt("recent", domain.HazardEarthquake, time.Hour, now),
		alertAt("stale", domain.HazardEarthquake, 4*time.Hour, now),
	}

	recent := RecentAlerts(alerts, now)
	assert.Len(t, recent, 1)
	assert.Equal(t, "recent", recent[0].ID)
}
