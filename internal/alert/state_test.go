package alert

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateDashboard_NewestFirst(t *testing.T) {
	state := NewState()
	now := time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC)
	state.now = func() time.Time { return now }

	state.Record(Decision{ID: "1", At: now.Add(-time.Minute), Kind: KindFailover, Status: StatusSent, FromPool: "blue", ToPool: "green"})
	state.Record(Decision{ID: "2", At: now, Kind: KindErrorRate, Status: StatusSuppressed, Reason: "冷却中"})
	state.Record(Decision{ID: "3", At: now.Add(-48 * time.Hour), Kind: KindErrorRate, Status: StatusSent})

	dashboard := state.Dashboard()
	require.Len(t, dashboard.Decisions, 3)
	assert.Equal(t, "3", dashboard.Decisions[0].ID)
	assert.Equal(t, "blue -> green", dashboard.Decisions[2].Pools)

	assert.Equal(t, "最近24小时", dashboard.Overview.Window)
	assert.Equal(t, 1, dashboard.Overview.Failover)
	assert.Equal(t, 1, dashboard.Overview.ErrorRate)
	assert.Equal(t, 1, dashboard.Overview.Sent)
	assert.Equal(t, 1, dashboard.Overview.Suppressed)
	assert.Equal(t, Stats{Sent: 2, Suppressed: 1}, dashboard.Stats)
}

func TestState_BoundedRecords(t *testing.T) {
	state := NewState()
	for i := 0; i < maxDecisionRecords+15; i++ {
		state.Record(Decision{ID: fmt.Sprint(i), Status: StatusLogged})
	}
	decisions := state.Decisions()
	require.Len(t, decisions, maxDecisionRecords)
	assert.Equal(t, "15", decisions[0].ID)
	assert.Equal(t, maxDecisionRecords+15, state.Stats().Logged)
}

func TestState_EmptyOverview(t *testing.T) {
	dashboard := NewState().Dashboard()
	assert.Equal(t, "--", dashboard.Overview.Latest)
	assert.Empty(t, dashboard.Decisions)
}
