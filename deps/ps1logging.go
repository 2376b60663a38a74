package deps

import (
	"context"

	"github.com/evergreen-ci/cloak/model/dependency"
)

const psPolicyKey = `HKEY_LOCAL_MACHINE\SOFTWARE\Policies\Microsoft\Windows\PowerShell`

// ps1LoggingKeys enable module, script block and transcription logging of
// every PowerShell session.
var ps1LoggingKeys = []struct {
	key, value, kind, data string
}{
	{`ModuleLogging`, "EnableModuleLogging", "REG_DWORD", "00000001"},
	{`ModuleLogging\ModuleNames`, "*", "REG_SZ", "*"},
	{`ScriptBlockLogging`, "EnableScriptBlockLogging", "REG_DWORD", "00000001"},
	{`Transcription`, "EnableTranscripting", "REG_DWORD", "00000001"},
	{`Transcription`, "OutputDirectory", "REG_SZ", `"C:\PSTranscipts"`},
	{`Transcription`, "EnableInvocationHeader", "REG_DWORD", "00000001"},
}

type ps1Logging struct{ base }

func newPS1Logging() dependency.Logic { return &ps1Logging{} }

func (*ps1Logging) Run(ctx context.Context, rc *dependency.RunContext) error {
	for _, k := range ps1LoggingKeys {
		command := `reg add "` + psPolicyKey + `\` + k.key + `" /v ` + k.value +
			` /t ` + k.kind + ` /d ` + k.data + ` /f /reg:64`
		if err := rc.ExecOK(ctx, command); err != nil {
			return err
		}
	}
	return nil
}
