package image

import (
	"testing"

	"github.com/evergreen-ci/cloak"
	"github.com/stretchr/testify/assert"
)

func TestImageValidate(t *testing.T) {
	img := &Image{Name: "win10", OSVersion: "win10x64", IPAddr: "192.168.56.10", Port: 8000}
	assert.NoError(t, img.Validate())
	assert.Equal(t, cloak.ImageModeNormal, img.Mode)

	assert.Error(t, (&Image{Name: "win10", OSVersion: "win10x64", IPAddr: "192.168.56.10"}).Validate())
	assert.Error(t, (&Image{OSVersion: "win10x64", IPAddr: "192.168.56.10", Port: 8000}).Validate())
}

func TestImageInstallable(t *testing.T) {
	assert.NoError(t, (&Image{Name: "a", Mode: cloak.ImageModeNormal}).Installable())
	assert.Error(t, (&Image{Name: "a", Mode: cloak.ImageModeSnapshot}).Installable())
}

func TestHasInstalled(t *testing.T) {
	installed := []InstalledDependency{{Name: "ie11", Version: "11"}, {Name: "python"}}

	assert.True(t, HasInstalled(installed, "ie11", ""))
	assert.True(t, HasInstalled(installed, "ie11", "11"))
	assert.False(t, HasInstalled(installed, "ie11", "10"))
	assert.True(t, HasInstalled(installed, "python", ""))
	assert.False(t, HasInstalled(installed, "python", "3.7"))
	assert.False(t, HasInstalled(nil, "python", ""))
}

func TestUnion(t *testing.T) {
	out := Union(
		[]InstalledDependency{{Name: "kb", Version: "2"}, {Name: "ie11", Version: "11"}},
		[]InstalledDependency{{Name: "kb", Version: "1"}, {Name: "kb", Version: "2"}},
	)
	assert.Equal(t, []InstalledDependency{
		{Name: "ie11", Version: "11"},
		{Name: "kb", Version: "1"},
		{Name: "kb", Version: "2"},
	}, out)
	assert.Empty(t, Union())
}
