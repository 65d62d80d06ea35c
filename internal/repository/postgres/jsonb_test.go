package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
)

func TestJSONBValueScan(t *testing.T) {
	in := jsonOf(model.StudiesPayload("X-ray", "Blood panel"))
	v, err := in.Value()
	require.NoError(t, err)
	s, ok := v.(string)
	require.True(t, ok)

	var out jsonb[model.Details]
	require.NoError(t, out.Scan([]byte(s)))
	assert.Equal(t, model.KindStudies, out.V.Kind)
	assert.Equal(t, []string{"X-ray", "Blood panel"}, out.V.Studies.Studies)
}

func TestJSONBScanNull(t *testing.T) {
	out := jsonOf(&model.FollowUp{Reason: "recheck"})
	require.NoError(t, out.Scan(nil))
	assert.Nil(t, out.V)
}

func TestJSONBScanRejectsUnknownType(t *testing.T) {
	var out jsonb[[]model.Study]
	assert.Error(t, out.Scan(42))
}
