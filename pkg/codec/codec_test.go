package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name string `json:"name" toml:"name"`
}

func TestForExt(t *testing.T) {
	assert.Equal(t, JSONStrict, ForExt(".JSON"))
	assert.Equal(t, TOML, ForExt(".toml"))
	assert.Equal(t, TOML, ForExt(""))
}

func TestJSONStrict(t *testing.T) {
	var d doc
	require.NoError(t, JSONStrict.Unmarshal([]byte(`{"name":"a"}`), &d))
	assert.Equal(t, "a", d.Name)

	assert.Error(t, JSONStrict.Unmarshal([]byte(`{"name":"a","x":1}`), &d))
	assert.Error(t, JSONStrict.Unmarshal([]byte(`{"name":"a"} {}`), &d))

	raw, err := JSONStrict.Marshal(map[string]any{"t": "<b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"t":"<b>"}`, string(raw))
}

func TestTOML(t *testing.T) {
	var d doc
	require.NoError(t, TOML.Unmarshal([]byte(`name = "b"`), &d))
	assert.Equal(t, "b", d.Name)
	assert.Error(t, TOML.Unmarshal([]byte(`name = `), &d))
}
