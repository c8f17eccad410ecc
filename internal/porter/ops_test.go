package porter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOps(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCollectAssets(t *testing.T) {
	dir := t.TempDir()
	a := writeOps(t, dir, "t1000.ops", `<?xml version="1.0"?>
<Ops>
  <MapObjects>
    <AssetObject asset="M_T1000" x="1"/>
    <AssetObject asset="M_T1010"/>
  </MapObjects>
  <MapObjects>
    <AssetObject asset="M_T1020"/>
  </MapObjects>
</Ops>`)
	b := writeOps(t, dir, "t2000.ops", `<?xml version="1.0"?>
<Ops>
  <MapObjects>
    <AssetObject asset="M_T1000"/>
    <AssetObject asset="M_T2000"/>
    <AssetObject/>
  </MapObjects>
</Ops>`)

	assets, err := CollectAssets([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"M_T1000", "M_T1010", "M_T1020", "M_T2000"}, assets)
}

func TestCollectAssetsBadFile(t *testing.T) {
	dir := t.TempDir()
	bad := writeOps(t, dir, "broken.ops", `<Ops><MapObjects>`)

	_, err := CollectAssets([]string{bad})
	assert.Error(t, err)

	_, err = CollectAssets([]string{filepath.Join(dir, "missing.ops")})
	assert.Error(t, err)
}
