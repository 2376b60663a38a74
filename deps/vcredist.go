package deps

import (
	"context"
	"strings"

	"github.com/evergreen-ci/cloak/model/dependency"
)

var vcredistExes = []dependency.Exe{
	{Version: "2005", Arch: "x86", SHA1: "47fba37de95fa0e2328cf2e5c8ebb954c4b7b93c", Filename: "vcredist_2005_x86.exe",
		URL: "https://download.microsoft.com/download/d/3/4/d342efa6-3266-4157-a2ec-5174867be706/vcredist_x86.exe"},
	{Version: "2005", Arch: "amd64", SHA1: "90a3d2a139c1a106bfccd98cbbd7c2c1d79f5ebe", Filename: "vcredist_2005_x64.exe",
		URL: "https://download.microsoft.com/download/9/1/4/914851c6-9141-443b-bdb4-8bad3a57bea9/vcredist_x64.exe"},
	{Version: "2005sp1", Arch: "x86", SHA1: "7dfa98be78249921dd0eedb9a3dd809e7d215c8d", Filename: "vcredist_2005sp1_x86.exe",
		URL: "https://download.microsoft.com/download/e/1/c/e1c773de-73ba-494a-a5ba-f24906ecf088/vcredist_x86.exe"},
	{Version: "2005sp1", Arch: "amd64", SHA1: "756f2c773d4733e3955bf7d8f1e959a7f5634b1a", Filename: "vcredist_2005sp1_x64.exe",
		URL: "https://download.microsoft.com/download/d/4/1/d41aca8a-faa5-49a7-a5f2-ea0aa4587da0/vcredist_x64.exe"},
	{Version: "2008", Arch: "x86", SHA1: "56719288ab6514c07ac2088119d8a87056eeb94a", Filename: "vcredist_2008_x86.exe",
		URL: "https://download.microsoft.com/download/d/d/9/dd9a82d0-52ef-40db-8dab-795376989c03/vcredist_x86.exe"},
	{Version: "2008", Arch: "amd64", SHA1: "5580072a056fdd50cdf93d470239538636f8f3a9", Filename: "vcredist_2008_x64.exe",
		URL: "https://download.microsoft.com/download/d/2/4/d242c3fb-da5a-4542-ad66-f9661d0a8d19/vcredist_x64.exe"},
	{Version: "2010", Arch: "x86", SHA1: "372d9c1670343d3fb252209ba210d4dc4d67d358", Filename: "vcredist_2010_x86.exe",
		URL: "https://download.microsoft.com/download/5/B/C/5BC5DBB3-652D-4DCE-B14A-475AB85EEF6E/vcredist_x86.exe"},
	{Version: "2010", Arch: "amd64", SHA1: "b330b760a8f16d5a31c2dc815627f5eb40861008", Filename: "vcredist_2010_x64.exe",
		URL: "https://download.microsoft.com/download/3/2/2/3224B87F-CFA0-4E70-BDA3-3DE650EFEBA5/vcredist_x64.exe"},
	{Version: "2012u4", Arch: "x86", SHA1: "96b377a27ac5445328cbaae210fc4f0aaa750d3f", Filename: "vcredist_2012u4_x86.exe",
		URL: "https://download.microsoft.com/download/1/6/B/16B06F60-3B20-4FF2-B699-5E9B7962F9AE/VSU_4/vcredist_x86.exe"},
	{Version: "2012u4", Arch: "amd64", SHA1: "1a5d93dddbc431ab27b1da711cd3370891542797", Filename: "vcredist_2012u4_x64.exe",
		URL: "https://download.microsoft.com/download/1/6/B/16B06F60-3B20-4FF2-B699-5E9B7962F9AE/VSU_4/vcredist_x64.exe"},
	{Version: "2013", Arch: "x86", SHA1: "df7f0a73bfa077e483e51bfb97f5e2eceedfb6a3", Filename: "vcredist_2013_x86.exe",
		URL: "https://download.microsoft.com/download/2/E/6/2E61CFA4-993B-4DD4-91DA-3737CD5CD6E3/vcredist_x86.exe"},
	{Version: "2013", Arch: "amd64", SHA1: "8bf41ba9eef02d30635a10433817dbb6886da5a2", Filename: "vcredist_2013_x64.exe",
		URL: "https://download.microsoft.com/download/2/E/6/2E61CFA4-993B-4DD4-91DA-3737CD5CD6E3/vcredist_x64.exe"},
	{Version: "2015", Arch: "x86", SHA1: "bfb74e498c44d3a103ca3aa2831763fb417134d1", Filename: "vc_redist_2015_x86.exe",
		URL: "https://download.microsoft.com/download/9/3/F/93FCF1E7-E6A4-478B-96E7-D4B285925B00/vc_redist.x86.exe"},
	{Version: "2015", Arch: "amd64", SHA1: "3155cb0f146b927fcc30647c1a904cd162548c8c", Filename: "vc_redist_2015_x64.exe",
		URL: "https://download.microsoft.com/download/9/3/F/93FCF1E7-E6A4-478B-96E7-D4B285925B00/vc_redist.x64.exe"},
	{Version: "2015u3", Arch: "x86", SHA1: "72211bd2e7dfc91ea7c8fac549c49c0543ba791b", Filename: "vc_redist_2015u3_x86.exe",
		URL: "https://download.microsoft.com/download/6/A/A/6AA4EDFF-645B-48C5-81CC-ED5963AEAD48/vc_redist.x86.exe"},
	{Version: "2015u3", Arch: "amd64", SHA1: "10b1683ea3ff5f36f225769244bf7e7813d54ad0", Filename: "vc_redist_2015u3_x64.exe",
		URL: "https://download.microsoft.com/download/6/A/A/6AA4EDFF-645B-48C5-81CC-ED5963AEAD48/vc_redist.x64.exe"},
}

// vcredistArgs maps a release year to its unattended install arguments.
var vcredistArgs = map[string]string{
	"2005": "/q:a",
	"2008": "/qb",
	"2010": "/passive /norestart",
	"2012": "/passive /norestart",
	"2013": "/passive /norestart",
	"2015": "/passive /norestart",
}

// vcredistYear strips update and service pack suffixes: "2013u5" and
// "2005sp1" become "2013" and "2005".
func vcredistYear(version string) string {
	version, _, _ = strings.Cut(version, "u")
	version, _, _ = strings.Cut(version, "sp")
	return version
}

type vcredist struct{ base }

func newVCRedist() dependency.Logic { return &vcredist{} }

func (v *vcredist) Init(version string, settings map[string]string) error {
	if _, ok := vcredistArgs[vcredistYear(version)]; !ok {
		return dependency.Errorf("vcredist", "unsupported version '%s'", version)
	}
	return v.base.Init(version, settings)
}

func (v *vcredist) Run(ctx context.Context, rc *dependency.RunContext) error {
	return runInstaller(ctx, rc, `C:\vcredist.exe`, vcredistArgs[vcredistYear(v.version)], exitRebootRequired, exitAlreadyDone)
}
