package deps

import (
	"github.com/evergreen-ci/cloak/model/dependency"
)

// recipes are the dependencies installed by "--recommended" per OS
// version, in install order.
var recipes = map[string][]string{
	"win10x64": {
		"dotnet:4.6.2", "java:7", "vcredist:2013", "vcredist:2015u3",
		"carootcert", "wallpaper", "optimizeos", "disableservices",
	},
	win7x64: {
		"ie11", "dotnet:4.6.2", "java:7", "vcredist:2013", "vcredist:2015u3",
		"carootcert", "wallpaper", "optimizeos", "disableservices",
	},
}

// Recipe returns a copy of the recommended install list of osVersion.
func Recipe(osVersion string) ([]string, bool) {
	recipe, ok := recipes[osVersion]
	if !ok {
		return nil, false
	}
	return append([]string(nil), recipe...), true
}

// Recipes returns every per-OS recipe.
func Recipes() map[string][]string {
	out := make(map[string][]string, len(recipes))
	for os := range recipes {
		out[os], _ = Recipe(os)
	}
	return out
}

// Catalogue returns a registry holding every built-in dependency.
func Catalogue() *dependency.Registry {
	reg := dependency.NewRegistry()

	reg.MustRegister(dependency.Descriptor{
		Name:         "kb",
		Description:  "Windows hotfix (version is the KB number)",
		MultiVersion: true,
		Tags:         []string{"windows-update"},
		Exes:         kbExes,
		New:          newKB,
	})
	reg.MustRegister(dependency.Descriptor{
		Name:            "ie11",
		Description:     "Internet Explorer 11",
		DefaultVersion:  "11",
		TargetDependsOn: map[string][]string{win7x64: ie11Hotfixes},
		MustReboot:      true,
		Tags:            []string{"browser"},
		Exes:            ie11Exes,
		New:             newIE11,
	})
	reg.MustRegister(dependency.Descriptor{
		Name:           "dotnet",
		Description:    ".NET Framework",
		DefaultVersion: "4.0",
		Recommended:    true,
		Tags:           []string{"runtime"},
		Exes:           dotnetExes,
		New:            newDotNet,
	})
	reg.MustRegister(dependency.Descriptor{
		Name:           "python",
		Description:    "Python interpreter",
		DefaultVersion: "2.7.6",
		Tags:           []string{"runtime"},
		Exes:           pythonExes,
		New:            newPython,
	})
	reg.MustRegister(dependency.Descriptor{
		Name:           "vcredist",
		Description:    "Visual C++ redistributable",
		DefaultVersion: "2005sp1",
		MultiVersion:   true,
		Tags:           []string{"runtime"},
		Exes:           vcredistExes,
		New:            newVCRedist,
	})
	reg.MustRegister(dependency.Descriptor{
		Name:           "java",
		Description:    "Java runtime and development kit",
		DefaultVersion: "7",
		Tags:           []string{"runtime"},
		Exes:           javaExes,
		New:            newJava,
	})
	reg.MustRegister(dependency.Descriptor{
		Name:        "carootcert",
		Description: "Additional trusted root certificates",
		Recommended: true,
		New:         newCARootCert,
	})
	reg.MustRegister(dependency.Descriptor{
		Name:        "wallpaper",
		Description: "Desktop wallpaper",
		Tags:        []string{"cloaking"},
		New:         newWallpaper,
	})
	reg.MustRegister(dependency.Descriptor{
		Name:        "optimizeos",
		Description: "Performance tuning of the guest OS",
		MustReboot:  true,
		Tags:        []string{"tuning"},
		New:         newOptimizeOS,
	})
	reg.MustRegister(dependency.Descriptor{
		Name:        "disableservices",
		Description: "Disables noisy background services",
		MustReboot:  true,
		Tags:        []string{"tuning"},
		New:         newDisableServices,
	})
	reg.MustRegister(dependency.Descriptor{
		Name:            "ps1logging",
		Description:     "PowerShell module, script block and transcription logging",
		DefaultVersion:  "3109118",
		TargetDependsOn: map[string][]string{win7x64: {"dotnet:4.6.1"}},
		Tags:            []string{"logging"},
		New:             newPS1Logging,
	})
	reg.MustRegister(dependency.Descriptor{
		Name:        "finalize",
		Description: "Disables services that start after the first analysis boot",
		Tags:        []string{"tuning"},
		New:         newFinalize,
	})
	reg.MustRegister(dependency.Descriptor{
		Name:           "office2007",
		Description:    "Microsoft Office 2007 from an installer ISO",
		DefaultVersion: "2007",
		Tags:           []string{"office"},
		New:            newOffice2007,
	})

	return reg
}
