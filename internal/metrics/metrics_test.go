package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, family := range families {
		byName[family.GetName()] = family
	}
	return byName
}

func TestMetrics(t *testing.T) {
	t.Run("Collectors record domain events", func(t *testing.T) {
		m := New()

		// When: a few events are recorded
		m.CommandHandled("game:move", ResultOK)
		m.CommandHandled("game:move", ResultOK)
		m.CommandHandled("room:start", ResultRejected)
		m.GameFinished("draw")
		m.MovesForced(2)
		m.MovesForced(0)
		m.SetActiveRooms(3)
		m.ConnectionOpened()
		m.ConnectionOpened()
		m.ConnectionClosed()

		// Then: the registry exposes them
		families := gather(t, m)

		commands := families["morpion_commands_total"]
		require.NotNil(t, commands)
		assert.Len(t, commands.GetMetric(), 2)

		assert.InDelta(t, 1, families["morpion_games_finished_total"].GetMetric()[0].GetCounter().GetValue(), 0)
		assert.InDelta(t, 2, families["morpion_forced_moves_total"].GetMetric()[0].GetCounter().GetValue(), 0)
		assert.InDelta(t, 3, families["morpion_rooms_active"].GetMetric()[0].GetGauge().GetValue(), 0)
		assert.InDelta(t, 1, families["morpion_websocket_connections"].GetMetric()[0].GetGauge().GetValue(), 0)
	})

	t.Run("Nil metrics are a no-op", func(t *testing.T) {
		var m *Metrics

		assert.NotPanics(t, func() {
			m.CommandHandled("room:join", ResultOK)
			m.GameFinished("win")
			m.MovesForced(1)
			m.SetActiveRooms(1)
			m.ConnectionOpened()
			m.ConnectionClosed()
		})
		assert.Nil(t, m.Registry())
	})

	t.Run("Handler serves the exposition format", func(t *testing.T) {
		m := New()
		m.SetActiveRooms(1)

		recorder := httptest.NewRecorder()
		m.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "morpion_rooms_active 1")
	})
}
