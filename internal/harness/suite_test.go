package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverScenarios_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0755))

	paths, err := DiscoverScenarios(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
	}, paths)
}

func TestDiscoverScenarios_MissingDir(t *testing.T) {
	_, err := DiscoverScenarios("/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario directory")
}

func TestRunSuite_AllExampleScenariosPass(t *testing.T) {
	result, err := RunSuite("testdata/scenarios")
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalScenarios)
	assert.Equal(t, 5, result.Passed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Failures)
}

func TestRunSuite_MixedResults(t *testing.T) {
	dir := t.TempDir()

	passing := `
name: passing
owner: ShoppingSteps
steps:
  - name: add_item
    kind: step
script:
  - call: add_item
assertions:
  - type: tally
    executed: 1
`
	failing := `
name: failing
owner: ShoppingSteps
steps:
  - name: add_item
    kind: step
script:
  - call: add_item
assertions:
  - type: tally
    executed: 5
`
	bare := `
name: bare
owner: ShoppingSteps
steps:
  - name: add_item
    kind: step
script:
  - call: add_item
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "passing.yaml"), []byte(passing), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failing.yaml"), []byte(failing), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bare.yaml"), []byte(bare), 0644))

	result, err := RunSuite(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalScenarios)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Skipped)

	require.Len(t, result.Failures, 1)
	failure := result.Failures[0]
	assert.Equal(t, "failing", failure.Scenario)
	assert.Equal(t, filepath.Join(dir, "failing.yaml"), failure.Path)
	assert.Contains(t, failure.Error, "scenario assertions failed")
}

func TestRunSuite_LoadFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [unclosed"), 0644))

	result, err := RunSuite(dir)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalScenarios)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "broken", result.Failures[0].Scenario)
	assert.Contains(t, result.Failures[0].Error, "failed to load scenario")
}

func TestRunSuite_EmptyDir(t *testing.T) {
	result, err := RunSuite(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalScenarios)
	assert.Equal(t, 0, result.Passed)
	assert.Empty(t, result.Failures)
}
