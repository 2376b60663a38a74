package deps

import (
	"context"

	"github.com/evergreen-ci/cloak/model/dependency"
)

var ie11Hotfixes = []string{
	"kb:2670838", "kb:2639308", "kb:2533623", "kb:2731771", "kb:2729094",
	"kb:2786081", "kb:2882822", "kb:2888049", "kb:2834140",
}

var ie11Exes = []dependency.Exe{
	{Version: "11", Target: win7x64, SHA1: "ddec9ddc256ffa7d97831af148f6cc45130c6857",
		URL: "http://cuckoo.sh/vmcloak/IE11-Windows6.1-x64-en-us.exe"},
	{Version: "11", Target: "win7x86", SHA1: "fefdcdde83725e393d59f89bb5855686824d474e",
		URL: "http://cuckoo.sh/vmcloak/IE11-Windows6.1-x86-en-us.exe"},
}

type ie11 struct{ base }

func newIE11() dependency.Logic { return &ie11{} }

func (*ie11) Run(ctx context.Context, rc *dependency.RunContext) error {
	return runInstaller(ctx, rc, `C:\setup.exe`, "/quiet /norestart /update-no", exitRebootRequired)
}
