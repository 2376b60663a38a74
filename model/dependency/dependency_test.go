package dependency

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogic struct{}

func (nopLogic) Init(string, map[string]string) error   { return nil }
func (nopLogic) Check(*RunContext) error                { return nil }
func (nopLogic) Run(context.Context, *RunContext) error { return nil }
func newNop() Logic                                     { return nopLogic{} }

func TestParseRef(t *testing.T) {
	for input, expected := range map[string]Ref{
		"kb:2533623":    {Name: "kb", Version: "2533623"},
		"python":        {Name: "python"},
		" dotnet : 4.0": {Name: "dotnet", Version: "4.0"},
		"a:b:c":         {Name: "a", Version: "b:c"},
	} {
		ref, err := ParseRef(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, ref, input)
	}

	_, err := ParseRef(":1.0")
	assert.Error(t, err)

	assert.Equal(t, "kb:1", Ref{Name: "kb", Version: "1"}.String())
	assert.Equal(t, "kb", Ref{Name: "kb"}.String())
}

func TestDescriptorDependencies(t *testing.T) {
	d := &Descriptor{
		Name:      "ie11",
		DependsOn: []string{"carootcert"},
		TargetDependsOn: map[string][]string{
			"win7x64": {"kb:2670838", "kb:2639308"},
		},
		New: newNop,
	}

	refs, err := d.Dependencies("win7x64")
	require.NoError(t, err)
	assert.Equal(t, []Ref{{Name: "carootcert"}, {Name: "kb", Version: "2670838"}, {Name: "kb", Version: "2639308"}}, refs)

	refs, err = d.Dependencies("win10x64")
	require.NoError(t, err)
	assert.Equal(t, []Ref{{Name: "carootcert"}}, refs)
}

func TestDescriptorValidate(t *testing.T) {
	assert.NoError(t, (&Descriptor{Name: "python", New: newNop}).Validate())
	assert.Error(t, (&Descriptor{New: newNop}).Validate())
	assert.Error(t, (&Descriptor{Name: "py.thon", New: newNop}).Validate())
	assert.Error(t, (&Descriptor{Name: "python"}).Validate())
	assert.Error(t, (&Descriptor{Name: "python", New: newNop, DependsOn: []string{":1"}}).Validate())
	assert.Error(t, (&Descriptor{Name: "python", New: newNop, TargetDependsOn: map[string][]string{"win7x64": {""}}}).Validate())
	assert.Error(t, (&Descriptor{Name: "python", New: newNop, Exes: []Exe{{URL: "http://x/y.exe"}}}).Validate())
}

func TestDescriptorVersions(t *testing.T) {
	d := &Descriptor{
		Name:           "dotnet",
		DefaultVersion: "4.7.2",
		Exes: []Exe{
			{Version: "4.6.1"}, {Version: "4.0"}, {Version: "4.7.2"}, {Version: "4.5.2"},
		},
	}
	assert.Equal(t, []string{"4.0", "4.5.2", "4.6.1", "4.7.2"}, d.Versions())
}

func TestSortVersions(t *testing.T) {
	assert.Equal(t,
		[]string{"7", "8", "11", "2005sp1", "8u101", "8u102"},
		SortVersions([]string{"8u102", "11", "2005sp1", "7", "8u101", "8"}))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{Name: "python", Recommended: true, New: newNop}))
	require.NoError(t, r.Register(Descriptor{Name: "dotnet", Recommended: true, New: newNop}))
	require.NoError(t, r.Register(Descriptor{Name: "kb", New: newNop}))

	assert.Error(t, r.Register(Descriptor{Name: "kb", New: newNop}))
	assert.Error(t, r.Register(Descriptor{Name: "broken"}))
	assert.Panics(t, func() { r.MustRegister(Descriptor{Name: "python", New: newNop}) })

	d, ok := r.Get("kb")
	require.True(t, ok)
	assert.Equal(t, "kb", d.Name)
	_, ok = r.Get("frobnicate")
	assert.False(t, ok)

	assert.Equal(t, []string{"dotnet", "kb", "python"}, r.Names())
	recommended := r.Recommended()
	require.Len(t, recommended, 2)
	assert.Equal(t, "dotnet", recommended[0].Name)
	assert.Equal(t, "python", recommended[1].Name)
}

func TestSelectExe(t *testing.T) {
	exes := []Exe{
		{Version: "11", Target: "win7x64", URL: "http://x/ie11-x64.exe", SHA1: "a"},
		{Version: "11", Target: "win7", URL: "http://x/ie11-x86.exe", SHA1: "b"},
		{Version: "2005", Arch: "x86", URL: "http://x/vc-x86.exe", SHA1: "c"},
		{Version: "2005", Arch: "amd64", URL: "http://x/vc-x64.exe", SHA1: "d"},
	}

	exe, err := SelectExe("ie11", exes, "win7x64", "11")
	require.NoError(t, err)
	assert.Equal(t, "ie11-x64.exe", exe.File())

	exe, err = SelectExe("vcredist", exes, "win10x64", "2005")
	require.NoError(t, err)
	assert.Equal(t, "d", exe.SHA1)

	_, err = SelectExe("ie11", exes, "win10x64", "11")
	require.Error(t, err)
	assert.True(t, IsDependencyError(err))

	exe, err = SelectExe("wallpaper", nil, "win10x64", "")
	assert.NoError(t, err)
	assert.Nil(t, exe)
}

func TestSettings(t *testing.T) {
	all := map[string]string{
		"wallpaper.filepath": "/tmp/wall.jpg",
		"java.retries":       "3",
		"java.silent":        "true",
		"java.tags":          "a,b",
		"javax.other":        "x",
	}
	assert.Equal(t, map[string]string{"filepath": "/tmp/wall.jpg"}, SettingsFor("wallpaper", all))

	var opts struct {
		Retries int      `settings:"retries"`
		Silent  bool     `settings:"silent"`
		Tags    []string `settings:"tags"`
	}
	require.NoError(t, DecodeSettings(SettingsFor("java", all), &opts))
	assert.Equal(t, 3, opts.Retries)
	assert.True(t, opts.Silent)
	assert.Equal(t, []string{"a", "b"}, opts.Tags)

	var bad struct {
		Retries int `settings:"retries"`
	}
	assert.Error(t, DecodeSettings(map[string]string{"retries": "many"}, &bad))
}

func TestDependencyError(t *testing.T) {
	err := Errorf("kb", "wusa exited with %d", 5)
	assert.True(t, IsDependencyError(err))
	assert.Contains(t, err.Error(), "dependency 'kb': wusa exited with 5")

	cause := errors.New("connection reset")
	err = WrapError(cause, "ie11", "uploading")
	assert.True(t, IsDependencyError(errors.Wrap(err, "outer")))
	assert.ErrorIs(t, err, cause)

	assert.NoError(t, WrapError(nil, "ie11", "uploading"))
	assert.False(t, IsDependencyError(cause))
}
