package way_nav

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartViz_Disabled(t *testing.T) {
	v, err := StartViz(VizConfig{})
	require.NoError(t, err)
	assert.Nil(t, v)

	// Nil metrics are safe to update.
	v.UpdateInput(TickInput{})
	v.UpdateOutput(TickOutput{})
}

func TestVizMetrics_PublishesOutput(t *testing.T) {
	v, err := StartViz(VizConfig{Enabled: true, Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	require.NotNil(t, v)

	v.UpdateOutput(TickOutput{
		Position:    mgl64.Vec3{1, 2, 3},
		Recenter:    RecenterScanning,
		Tracker:     TrackerFollowing,
		CornerIndex: 2,
		Drifting:    true,
		Cue:         &Cue{Kind: TurnRight, Angle: 90},
	})

	rec := httptest.NewRecorder()
	v.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var vars struct {
		Output map[string]float64 `json:"wayfind_output"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vars))
	assert.Equal(t, 3.0, vars.Output["z"])
	assert.Equal(t, 2.0, vars.Output["corner"])
	assert.Equal(t, 1.0, vars.Output["drifting"])
	assert.Equal(t, 90.0, vars.Output["cue_angle"])
	assert.Equal(t, float64(TurnRight), vars.Output["cue_kind"])
}
