package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpov/dupehound/internal/types"
)

func rec(path string, size int64) *types.FileRecord {
	return &types.FileRecord{Path: path, Size: size, ModTime: time.Now()}
}

func TestNewRejectsInconsistentBounds(t *testing.T) {
	_, err := New(Config{MinSize: 100, MaxSize: 10})
	assert.Error(t, err)

	_, err = New(Config{MinSize: -1})
	assert.Error(t, err)

	// MaxSize 0 means unbounded, so any MinSize is consistent with it
	_, err = New(Config{MinSize: 1 << 40, MaxSize: 0})
	assert.NoError(t, err)
}

func TestNewRejectsInvalidPattern(t *testing.T) {
	_, err := New(Config{Excludes: []string{"[invalid"}})
	assert.Error(t, err)
}

func TestSizeBoundsInclusive(t *testing.T) {
	f, err := New(Config{MinSize: 10, MaxSize: 20})
	require.NoError(t, err)

	assert.False(t, f.Match(rec("/a", 9)))
	assert.True(t, f.Match(rec("/a", 10)))
	assert.True(t, f.Match(rec("/a", 20)))
	assert.False(t, f.Match(rec("/a", 21)))
}

func TestMaxSizeZeroIsUnbounded(t *testing.T) {
	f, err := New(Config{})
	require.NoError(t, err)

	assert.True(t, f.Match(rec("/a", 0)))
	assert.True(t, f.Match(rec("/a", 1<<40)))
}

func TestExtensionsCaseInsensitive(t *testing.T) {
	f, err := New(Config{Extensions: []string{"JPG", ".png", "*.gif"}})
	require.NoError(t, err)

	assert.True(t, f.Match(rec("/pics/a.jpg", 1)))
	assert.True(t, f.Match(rec("/pics/a.JPG", 1)))
	assert.True(t, f.Match(rec("/pics/a.png", 1)))
	assert.True(t, f.Match(rec("/pics/a.GIF", 1)))
	assert.False(t, f.Match(rec("/pics/a.txt", 1)))
	assert.False(t, f.Match(rec("/pics/noext", 1)))
}

func TestEmptyExtensionsAllowAll(t *testing.T) {
	f, err := New(Config{})
	require.NoError(t, err)

	assert.True(t, f.Match(rec("/a.anything", 1)))
	assert.True(t, f.Match(rec("/noext", 1)))
}

func TestExcludesMatchBaseName(t *testing.T) {
	f, err := New(Config{Excludes: []string{"*.tmp"}})
	require.NoError(t, err)

	assert.False(t, f.Match(rec("/data/x.tmp", 1)))
	assert.False(t, f.Match(rec("/data/x.TMP", 1))) // case-insensitive
	assert.True(t, f.Match(rec("/data/x.txt", 1)))
}

func TestExcludesMatchFullPath(t *testing.T) {
	f, err := New(Config{Excludes: []string{"**/node_modules/**"}})
	require.NoError(t, err)

	assert.False(t, f.Match(rec("/app/node_modules/pkg/index.js", 1)))
	assert.True(t, f.Match(rec("/app/src/index.js", 1)))
}

func TestExcludesAreORed(t *testing.T) {
	f, err := New(Config{Excludes: []string{"*.bak", "*.tmp"}})
	require.NoError(t, err)

	assert.False(t, f.Match(rec("/a.bak", 1)))
	assert.False(t, f.Match(rec("/a.tmp", 1)))
	assert.True(t, f.Match(rec("/a.txt", 1)))
}

func TestSkipHiddenAndSystem(t *testing.T) {
	f, err := New(Config{SkipHidden: true, SkipSystem: true})
	require.NoError(t, err)

	hidden := rec("/h", 1)
	hidden.Hidden = true
	system := rec("/s", 1)
	system.System = true

	assert.False(t, f.Match(hidden))
	assert.False(t, f.Match(system))
	assert.True(t, f.Match(rec("/plain", 1)))
}

func TestHiddenAllowedByDefault(t *testing.T) {
	f, err := New(Config{})
	require.NoError(t, err)

	hidden := rec("/h", 1)
	hidden.Hidden = true
	assert.True(t, f.Match(hidden))
}

func TestExcludedForDirectories(t *testing.T) {
	f, err := New(Config{Excludes: []string{".git"}})
	require.NoError(t, err)

	assert.True(t, f.Excluded("/repo/.git"))
	assert.False(t, f.Excluded("/repo/src"))
}
