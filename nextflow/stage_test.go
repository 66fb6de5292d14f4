package nextflow

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uc-cdis/nf-rangeland/config"
	"github.com/uc-cdis/nf-rangeland/runerr"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, ioutil.WriteFile(path, []byte(body), 0644))
}

func TestStageIgnoresNamesAtEveryDepth(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "root")
	ws := filepath.Join(dir, "nf-workdir")

	write(t, filepath.Join(base, "main.nf"), "workflow {}")
	write(t, filepath.Join(base, "conf", "base.config"), "process {}")
	write(t, filepath.Join(base, ".nextflow", "history"), "x")
	write(t, filepath.Join(base, "work", "ab", "cd"), "x")
	write(t, filepath.Join(base, "modules", "results", "old.txt"), "x")
	write(t, filepath.Join(base, "modules", "local", "force.nf"), "process FORCE {}")
	write(t, filepath.Join(base, "latch"), "a file named latch")

	require.NoError(t, Stage(base, ws, config.DefaultIgnore))

	assert.FileExists(t, filepath.Join(ws, "main.nf"))
	assert.FileExists(t, filepath.Join(ws, "conf", "base.config"))
	assert.FileExists(t, filepath.Join(ws, "modules", "local", "force.nf"))
	assert.NoDirExists(t, filepath.Join(ws, ".nextflow"))
	assert.NoDirExists(t, filepath.Join(ws, "work"))
	assert.NoDirExists(t, filepath.Join(ws, "modules", "results"))
	assert.NoFileExists(t, filepath.Join(ws, "latch"))
}

func TestStageSymlinks(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "root")
	ws := filepath.Join(dir, "nf-workdir")
	target := filepath.Join(dir, "assets", "schema.json")

	write(t, target, `{"title": "rangeland"}`)
	write(t, filepath.Join(base, "main.nf"), "workflow {}")
	require.NoError(t, os.Symlink(target, filepath.Join(base, "schema.json")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), filepath.Join(base, "dangling")))

	require.NoError(t, Stage(base, ws, nil))

	b, err := ioutil.ReadFile(filepath.Join(ws, "schema.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"title": "rangeland"}`, string(b))
	fi, err := os.Lstat(filepath.Join(ws, "schema.json"))
	require.NoError(t, err)
	assert.Zero(t, fi.Mode()&os.ModeSymlink, "symlinks are followed")

	_, err = os.Lstat(filepath.Join(ws, "dangling"))
	assert.True(t, os.IsNotExist(err), "dangling symlinks are skipped")
}

func TestStageRelativeSymlinks(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "root")
	ws := filepath.Join(dir, "nf-workdir")

	write(t, filepath.Join(base, "assets", "a.txt"), "asset")
	write(t, filepath.Join(dir, "shared", "outside.json"), "outside")
	require.NoError(t, os.Symlink("assets/a.txt", filepath.Join(base, "link.txt")))
	require.NoError(t, os.Symlink("assets", filepath.Join(base, "assetdir")))
	require.NoError(t, os.Symlink("../shared/outside.json", filepath.Join(base, "outside.json")))
	require.NoError(t, os.Symlink("assets/missing.txt", filepath.Join(base, "missing.txt")))

	require.NoError(t, Stage(base, ws, nil))

	for path, want := range map[string]string{
		"link.txt":       "asset",
		"assetdir/a.txt": "asset",
		"outside.json":   "outside",
		"assets/a.txt":   "asset",
	} {
		b, err := ioutil.ReadFile(filepath.Join(ws, path))
		require.NoError(t, err, path)
		assert.Equal(t, want, string(b), path)
	}
	fi, err := os.Lstat(filepath.Join(ws, "assetdir"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir(), "directory links are copied as directories")

	_, err = os.Lstat(filepath.Join(ws, "missing.txt"))
	assert.True(t, os.IsNotExist(err), "dangling relative symlinks are skipped")
}

func TestStageMergesIntoExistingWorkspace(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "root")
	ws := filepath.Join(dir, "nf-workdir")

	write(t, filepath.Join(base, "main.nf"), "new")
	write(t, filepath.Join(ws, "main.nf"), "old")
	write(t, filepath.Join(ws, "keep.txt"), "kept")

	require.NoError(t, Stage(base, ws, nil))

	b, _ := ioutil.ReadFile(filepath.Join(ws, "main.nf"))
	assert.Equal(t, "new", string(b))
	assert.FileExists(t, filepath.Join(ws, "keep.txt"))
}

func TestStageErrors(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "root")
	write(t, filepath.Join(base, "main.nf"), "x")

	cases := map[string][2]string{
		"missing base":      {filepath.Join(dir, "nope"), filepath.Join(dir, "ws")},
		"base is a file":    {filepath.Join(base, "main.nf"), filepath.Join(dir, "ws")},
		"workspace in base": {base, filepath.Join(base, "ws")},
		"same dir":          {base, base},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			err := Stage(c[0], c[1], nil)
			require.Error(t, err)
			assert.True(t, runerr.Is(err, runerr.KindStaging))
		})
	}
}
