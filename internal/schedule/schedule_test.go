package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mindpulse/internal/alarm"
	"github.com/starford/mindpulse/internal/models"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newManager(t *testing.T) (*Manager, *alarm.Service) {
	t.Helper()
	svc, err := alarm.New(context.Background(), alarm.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return NewManager(svc, 0, nil), svc
}

func TestNextFireTime_FutureOneShotIsAnchor(t *testing.T) {
	at := now.Add(time.Hour)
	plan, ok := NextFireTime(models.Reminder{Time: at.UnixMilli()}, now, DefaultGrace)
	require.True(t, ok)
	assert.True(t, plan.FireAt.Equal(at))
	assert.Equal(t, 0, plan.PeriodMinutes)
}

func TestNextFireTime_PastOneShotIsStale(t *testing.T) {
	_, ok := NextFireTime(models.Reminder{Time: now.Add(-time.Second).UnixMilli()}, now, DefaultGrace)
	assert.False(t, ok)
}

func TestNextFireTime_AnchorAtNowFiresAtAnchor(t *testing.T) {
	plan, ok := NextFireTime(models.Reminder{Time: now.UnixMilli()}, now, DefaultGrace)
	require.True(t, ok, "an anchor in the current millisecond is schedulable")
	assert.True(t, plan.FireAt.Equal(now))
	assert.Equal(t, 0, plan.PeriodMinutes)

	plan, ok = NextFireTime(models.Reminder{Time: now.UnixMilli(), Repeat: models.RepeatHourly}, now, DefaultGrace)
	require.True(t, ok)
	assert.True(t, plan.FireAt.Equal(now), "no grace delay for an anchor that is not yet past")
	assert.Equal(t, 60, plan.PeriodMinutes)
}

func TestNextFireTime_FuturePeriodicKeepsAnchor(t *testing.T) {
	at := now.Add(time.Hour)
	plan, ok := NextFireTime(models.Reminder{Time: at.UnixMilli(), Repeat: models.RepeatWeekly}, now, DefaultGrace)
	require.True(t, ok)
	assert.True(t, plan.FireAt.Equal(at))
	assert.Equal(t, 10080, plan.PeriodMinutes)
}

func TestNextFireTime_PastPeriodicCatchesUp(t *testing.T) {
	r := models.Reminder{Time: now.Add(-72 * time.Hour).UnixMilli(), Repeat: models.RepeatDaily}
	plan, ok := NextFireTime(r, now, DefaultGrace)
	require.True(t, ok)
	assert.Equal(t, 1440, plan.PeriodMinutes)
	assert.True(t, plan.FireAt.After(now))
	assert.LessOrEqual(t, plan.FireAt.Sub(now), DefaultGrace)
}

func TestWakeupNameRoundTrip(t *testing.T) {
	id, ok := IDFromName(WakeupName("abc"))
	require.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = IDFromName("other:abc")
	assert.False(t, ok)
	_, ok = IDFromName(NamePrefix)
	assert.False(t, ok)
}

func TestManager_ScheduleHasClear(t *testing.T) {
	ctx := context.Background()
	m, svc := newManager(t)

	require.NoError(t, m.ScheduleWakeup(ctx, "r1", now.Add(time.Hour), 60))
	assert.True(t, m.HasWakeup(ctx, "r1"))

	a, ok := svc.Get(ctx, "reminder:r1")
	require.True(t, ok)
	assert.Equal(t, 60, a.PeriodMinutes)

	require.NoError(t, m.ClearWakeup(ctx, "r1"))
	assert.False(t, m.HasWakeup(ctx, "r1"))
	require.NoError(t, m.ClearWakeup(ctx, "r1"), "clearing twice is fine")
	require.NoError(t, m.ClearWakeup(ctx, "never"), "clearing an unknown id is fine")
}

func TestManager_ScheduleSkipsStale(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	_, ok, err := m.Schedule(ctx, models.Reminder{ID: "old", Time: now.Add(-time.Minute).UnixMilli()}, now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, m.HasWakeup(ctx, "old"))

	plan, ok, err := m.Schedule(ctx, models.Reminder{ID: "new", Time: now.Add(time.Minute).UnixMilli()}, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, plan.FireAt.Equal(now.Add(time.Minute)))
	assert.True(t, m.HasWakeup(ctx, "new"))
}

func TestManager_WakeupIDsIgnoresForeignAlarms(t *testing.T) {
	ctx := context.Background()
	m, svc := newManager(t)

	require.NoError(t, m.ScheduleWakeup(ctx, "mine", now.Add(time.Hour), 0))
	require.NoError(t, svc.Create(ctx, "backup", now.Add(time.Hour), 0))

	assert.Equal(t, []string{"mine"}, m.WakeupIDs(ctx))
}
