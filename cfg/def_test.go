package cfg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type defaultsNested struct {
	Path string `def:"/tmp/ingest.db"`
}

type defaultsTarget struct {
	Name     string            `def:"orders"`
	Count    int               `def:"100"`
	Ratio    float64           `def:"0.5"`
	Enabled  bool              `def:"true"`
	Size     uint32            `def:"8"`
	Wait     time.Duration     `def:"10m"`
	Tags     []string          `def:"a, b"`
	Limits   map[string]int    `def:"products=5000"`
	Nested   defaultsNested
	Optional *defaultsNested
	NoTag    string
}

func TestSetDefaults(t *testing.T) {
	t.Run("fills zero values", func(t *testing.T) {
		var d defaultsTarget
		require.NoError(t, SetDefaults(&d))

		assert.Equal(t, "orders", d.Name)
		assert.Equal(t, 100, d.Count)
		assert.Equal(t, 0.5, d.Ratio)
		assert.True(t, d.Enabled)
		assert.Equal(t, uint32(8), d.Size)
		assert.Equal(t, 10*time.Minute, d.Wait)
		assert.Equal(t, []string{"a", "b"}, d.Tags)
		assert.Equal(t, map[string]int{"products": 5000}, d.Limits)
		assert.Equal(t, "/tmp/ingest.db", d.Nested.Path)
		assert.Nil(t, d.Optional)
		assert.Empty(t, d.NoTag)
	})

	t.Run("keeps configured values", func(t *testing.T) {
		d := defaultsTarget{Name: "sales", Count: 3, Tags: []string{}, Optional: &defaultsNested{}}
		require.NoError(t, SetDefaults(&d))

		assert.Equal(t, "sales", d.Name)
		assert.Equal(t, 3, d.Count)
		assert.Equal(t, []string{}, d.Tags)
		assert.Equal(t, "/tmp/ingest.db", d.Optional.Path)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		assert.Error(t, SetDefaults(nil))
		assert.Error(t, SetDefaults(defaultsTarget{}))
		var nilPtr *defaultsTarget
		assert.Error(t, SetDefaults(nilPtr))

		type bad struct {
			N int `def:"ten"`
		}
		assert.Error(t, SetDefaults(&bad{}))
	})
}

func TestBind(t *testing.T) {
	t.Run("converts nested values", func(t *testing.T) {
		var c testConfig
		err := Bind(map[string]any{
			"TABLE":   "sales",
			"verbose": "true",
			"database": map[string]any{
				"port":    float64(5432),
				"timeout": 1.5,
			},
		}, &c)
		require.NoError(t, err)
		assert.Equal(t, "sales", c.Table)
		assert.True(t, c.Verbose)
		assert.Equal(t, 5432, c.Database.Port)
		assert.Equal(t, 1500*time.Millisecond, c.Database.Timeout)
	})

	t.Run("reports type errors", func(t *testing.T) {
		var c testConfig
		err := Bind(map[string]any{"database": map[string]any{"port": "abc"}}, &c)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "port")
	})

	t.Run("requires pointer", func(t *testing.T) {
		assert.Error(t, Bind(map[string]any{}, testConfig{}))
	})
}
