package install

import (
	"testing"

	"github.com/evergreen-ci/cloak/model/dependency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	for name, test := range map[string]struct {
		tokens   []string
		items    []Item
		settings map[string]string
	}{
		"NameOnly": {
			tokens: []string{"python"},
			items:  []Item{{Name: "python"}},
		},
		"VersionsAreTrimmed": {
			tokens: []string{"python:2.7.13", " ie11 : 11 "},
			items:  []Item{{Name: "python", Version: "2.7.13"}, {Name: "ie11", Version: "11"}},
		},
		"VersionSplitsOnFirstColon": {
			tokens: []string{"tool:1:2"},
			items:  []Item{{Name: "tool", Version: "1:2"}},
		},
		"Settings": {
			tokens:   []string{"wallpaper", "wallpaper.filepath = /tmp/a.jpg"},
			items:    []Item{{Name: "wallpaper"}},
			settings: map[string]string{"wallpaper.filepath": "/tmp/a.jpg"},
		},
		"VersionSettingFillsVersionlessItem": {
			tokens: []string{"dotnet", "python", "dotnet.version=4.6.2"},
			items:  []Item{{Name: "dotnet", Version: "4.6.2"}, {Name: "python"}},
		},
		"VersionSettingSkipsVersionedItem": {
			tokens: []string{"dotnet:4.0", "dotnet", "dotnet.version=4.6.2"},
			items:  []Item{{Name: "dotnet", Version: "4.0"}, {Name: "dotnet", Version: "4.6.2"}},
		},
		"VersionSettingBeforeItem": {
			tokens: []string{"dotnet.version=4.6.2", "dotnet"},
			items:  []Item{{Name: "dotnet", Version: "4.6.2"}},
		},
		"VersionSettingWithoutItem": {
			tokens: []string{"python", "dotnet.version=4.6.2"},
			items:  []Item{{Name: "python"}},
		},
		"VersionWithDotIsNotSetting": {
			tokens: []string{"python:2.7.6"},
			items:  []Item{{Name: "python", Version: "2.7.6"}},
		},
	} {
		t.Run(name, func(t *testing.T) {
			req, err := ParseRequest(test.tokens)
			require.NoError(t, err)
			assert.Equal(t, test.items, req.Items)
			if test.settings == nil {
				test.settings = map[string]string{}
			}
			assert.Equal(t, test.settings, req.Settings)
		})
	}
}

func TestParseRequestMalformed(t *testing.T) {
	for _, tokens := range [][]string{
		{":1.0"},
		{""},
		{"python", ".version=1"},
		{"python.=1"},
	} {
		_, err := ParseRequest(tokens)
		require.Error(t, err, "%v", tokens)
		assert.True(t, IsInstallError(err))
	}
}

func TestRequestValidate(t *testing.T) {
	reg := dependency.NewRegistry()
	reg.MustRegister(testDescriptor("python"))

	req, err := ParseRequest([]string{"zeta", "python", "alpha", "zeta:2"})
	require.NoError(t, err)

	err = req.Validate(reg)
	require.Error(t, err)
	assert.True(t, IsInstallError(err))
	assert.Contains(t, err.Error(), "alpha, zeta")
	assert.NotContains(t, err.Error(), "python")

	req, err = ParseRequest([]string{"python"})
	require.NoError(t, err)
	assert.NoError(t, req.Validate(reg))
}

func TestRecommendedItems(t *testing.T) {
	reg := dependency.NewRegistry()
	recommended := testDescriptor("dotnet")
	recommended.Recommended = true
	recommended.DefaultVersion = "4.0"
	reg.MustRegister(recommended)
	reg.MustRegister(testDescriptor("python"))

	recipes := map[string][]string{"win10x64": {"python:2.7.13", "dotnet"}}

	items, err := RecommendedItems(reg, recipes, "win10x64")
	require.NoError(t, err)
	assert.Equal(t, []Item{{Name: "python", Version: "2.7.13"}, {Name: "dotnet"}}, items)

	items, err = RecommendedItems(reg, recipes, "win7x86")
	require.NoError(t, err)
	assert.Equal(t, []Item{{Name: "dotnet", Version: "4.0"}}, items)

	_, err = RecommendedItems(dependency.NewRegistry(), recipes, "win7x86")
	require.Error(t, err)
	assert.True(t, IsInstallError(err))
}
