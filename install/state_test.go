package install

import (
	"context"
	"testing"

	"github.com/evergreen-ci/cloak/model/image"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	ctx := context.Background()
	repo := image.NewMemoryRepository(image.Image{
		Name:      "win7",
		Installed: []image.InstalledDependency{{Name: "python"}, {Name: "dotnet", Version: "4.0"}},
	})
	tracker := NewTracker(repo, "win7")

	t.Run("DurableSet", func(t *testing.T) {
		for _, test := range []struct {
			name, version string
			expected      bool
		}{
			{"python", "", true},
			{"python", "2.7.6", false},
			{"dotnet", "", true},
			{"dotnet", "4.0", true},
			{"dotnet", "4.6.2", false},
			{"java", "", false},
		} {
			installed, err := tracker.IsInstalled(ctx, test.name, test.version)
			require.NoError(t, err)
			assert.Equal(t, test.expected, installed, "%s:%s", test.name, test.version)
		}
	})

	t.Run("RunSet", func(t *testing.T) {
		assert.True(t, tracker.Empty())
		tracker.Record("java", "7")
		tracker.Record("wallpaper", "")
		tracker.Record("java", "8u101")
		assert.False(t, tracker.Empty())

		for _, test := range []struct {
			name, version string
			expected      bool
		}{
			{"java", "", true},
			{"java", "7", true},
			{"java", "8u102", false},
			{"wallpaper", "", true},
			{"wallpaper", "1", false},
		} {
			installed, err := tracker.IsInstalled(ctx, test.name, test.version)
			require.NoError(t, err)
			assert.Equal(t, test.expected, installed, "%s:%s", test.name, test.version)
		}

		assert.Equal(t, []image.InstalledDependency{
			{Name: "java", Version: "7"},
			{Name: "java", Version: "8u101"},
			{Name: "wallpaper"},
		}, tracker.Installed())
	})

	t.Run("Persist", func(t *testing.T) {
		require.NoError(t, tracker.Persist(ctx))
		stored, err := repo.InstalledVersions(ctx, "win7")
		require.NoError(t, err)
		assert.Equal(t, []image.InstalledDependency{
			{Name: "dotnet", Version: "4.0"},
			{Name: "java", Version: "7"},
			{Name: "java", Version: "8u101"},
			{Name: "python"},
			{Name: "wallpaper"},
		}, stored)

		// persisting again is a no-op
		require.NoError(t, tracker.Persist(ctx))
		again, err := repo.InstalledVersions(ctx, "win7")
		require.NoError(t, err)
		assert.Equal(t, stored, again)
	})
}

func TestTrackerUnknownImage(t *testing.T) {
	tracker := NewTracker(image.NewMemoryRepository(), "missing")
	tracker.Record("python", "")

	installed, err := tracker.IsInstalled(context.Background(), "python", "")
	assert.Error(t, err)
	assert.False(t, installed)

	err = tracker.Persist(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, image.ErrImageNotFound))
}
