package metros

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSet(t *testing.T) {
	ms := Default()
	assert.Len(t, ms, 10)
	seen := make(map[string]bool)
	for _, m := range ms {
		assert.False(t, seen[m.Name], "duplicate metro %s", m.Name)
		seen[m.Name] = true
		assert.NotEmpty(t, m.State)
		assert.NotZero(t, m.Lat)
		assert.NotZero(t, m.Lon)
		assert.Greater(t, m.Population, 0)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metros.json")
	data := `{"metros":[{"name":"New York","state":"NY","lat":40.7128,"lon":-74.006,"population":19216182}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	ms, err := Load(path)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "New York", ms[0].Name)
	assert.InDelta(t, 40.7128, ms[0].Location().Lat, 1e-9)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metros.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"metros":[]}`), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestRandomPairDistinct(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ms := Default()
	for i := 0; i < 100; i++ {
		a, b := RandomPair(rng, ms)
		assert.NotEqual(t, a.Name, b.Name)
	}
}
