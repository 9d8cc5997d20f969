package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSuite(t *testing.T) {
	result, err := RunSuite(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Passed)
	assert.Zero(t, result.Failed)
	assert.Empty(t, result.Failures)
}

func TestRunSuite_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_pass.yaml"), []byte(minimalScenario), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_broken.yml"), []byte("name: [\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c_fail.yaml"),
		[]byte(replaceLine(minimalScenario, "    value: 15", "    value: 16")), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	result, err := RunSuite(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, filepath.Join(dir, "b_broken.yml"), result.Failures[0].ScenarioPath)
	assert.Contains(t, result.Failures[0].Error, "failed to load scenario")
	assert.Equal(t, "earn", result.Failures[1].Name)
	assert.Contains(t, result.Failures[1].Error, "Merchant.Gold = 15")
}

func TestRunSuite_MissingDir(t *testing.T) {
	_, err := RunSuite(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
