package deps

import (
	"context"
	"strings"

	"github.com/evergreen-ci/cloak/model/dependency"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
)

const win7OptimizeScript = `$ErrorActionPreference = "Stop"
# Visual effects tuned for performance.
Set-ItemProperty -Path "HKCU:\Software\Microsoft\Windows\CurrentVersion\Explorer\VisualEffects" -Name VisualFXSetting -Value 2
# No hibernation file or paging of the kernel.
powercfg -h off
powercfg -change -monitor-timeout-ac 0
powercfg -change -standby-timeout-ac 0
Set-ItemProperty -Path "HKLM:\SYSTEM\CurrentControlSet\Control\Session Manager\Memory Management" -Name DisablePagingExecutive -Value 1
# No system restore points or error reporting.
Disable-ComputerRestore -Drive "C:\"
Set-ItemProperty -Path "HKLM:\SOFTWARE\Microsoft\Windows\Windows Error Reporting" -Name Disabled -Value 1
`

const win10OptimizeScript = `$ErrorActionPreference = "Stop"
Set-ItemProperty -Path "HKCU:\Software\Microsoft\Windows\CurrentVersion\Explorer\VisualEffects" -Name VisualFXSetting -Value 2
powercfg -h off
powercfg -change -monitor-timeout-ac 0
powercfg -change -standby-timeout-ac 0
Disable-ComputerRestore -Drive "C:\"
Set-ItemProperty -Path "HKLM:\SOFTWARE\Microsoft\Windows\Windows Error Reporting" -Name Disabled -Value 1
New-Item -Path "HKLM:\SOFTWARE\Policies\Microsoft\Windows\DataCollection" -Force | Out-Null
Set-ItemProperty -Path "HKLM:\SOFTWARE\Policies\Microsoft\Windows\DataCollection" -Name AllowTelemetry -Value 0
New-Item -Path "HKLM:\SOFTWARE\Policies\Microsoft\Windows Defender" -Force | Out-Null
Set-ItemProperty -Path "HKLM:\SOFTWARE\Policies\Microsoft\Windows Defender" -Name DisableAntiSpyware -Value 1
Get-AppxPackage -AllUsers | Where-Object { $_.NonRemovable -eq $false } | Remove-AppxPackage -ErrorAction SilentlyContinue
`

const win7DisableServicesScript = `$services = @("wuauserv", "WSearch", "SysMain", "WinDefend", "wscsvc", "Themes", "TrkWks", "WerSvc")
foreach ($s in $services) {
    Stop-Service -Name $s -Force -ErrorAction SilentlyContinue
    Set-Service -Name $s -StartupType Disabled -ErrorAction SilentlyContinue
}
`

const win10DisableServicesScript = `$services = @("wuauserv", "UsoSvc", "WSearch", "SysMain", "WinDefend", "wscsvc", "DiagTrack", "dmwappushservice", "WerSvc", "MapsBroker")
foreach ($s in $services) {
    Stop-Service -Name $s -Force -ErrorAction SilentlyContinue
    Set-Service -Name $s -StartupType Disabled -ErrorAction SilentlyContinue
}
`

const finalizeScript = `Set-Service trustedinstaller -StartupType Disabled
Set-Service wuauserv -StartupType Disabled
Get-Service clr_optimization_v* | Set-Service -StartupType Disabled
`

var (
	optimizeScripts = map[string]string{
		"win7":  win7OptimizeScript,
		"win10": win10OptimizeScript,
	}
	disableServicesScripts = map[string]string{
		"win7":  win7DisableServicesScript,
		"win10": win10DisableServicesScript,
	}
	finalizeTargets = map[string]bool{
		"win10x64": true,
		win7x64:    true,
		"win7x86":  true,
	}
)

// osFamily maps an OS version such as "win10x64" to its family "win10".
func osFamily(osVersion string) string {
	return strings.TrimSuffix(strings.TrimSuffix(osVersion, "x64"), "x86")
}

// scriptFor returns the script of the OS family of rc, or an error if there
// is none.
func scriptFor(rc *dependency.RunContext, scripts map[string]string, what string) (string, error) {
	script, ok := scripts[osFamily(rc.OSVersion)]
	if !ok {
		return "", dependency.Errorf(rc.Name, "no %s script available for '%s'", what, rc.OSVersion)
	}
	return script, nil
}

type optimizeOS struct{ base }

func newOptimizeOS() dependency.Logic { return &optimizeOS{} }

func (*optimizeOS) Check(rc *dependency.RunContext) error {
	_, err := scriptFor(rc, optimizeScripts, "optimize")
	return err
}

func (*optimizeOS) Run(ctx context.Context, rc *dependency.RunContext) error {
	script, err := scriptFor(rc, optimizeScripts, "optimize")
	if err != nil {
		return err
	}
	res, err := rc.RunPowerShell(ctx, script)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return dependency.Errorf(rc.Name, "optimize script exited with code %d: stdout=%q stderr=%q",
			res.ExitCode, res.Stdout, res.Stderr)
	}
	return nil
}

// disableServices stops services that generate noise in analyses. Some
// services cannot be disabled on every edition, so script failures are
// logged only.
type disableServices struct{ base }

func newDisableServices() dependency.Logic { return &disableServices{} }

func (*disableServices) Check(rc *dependency.RunContext) error {
	_, err := scriptFor(rc, disableServicesScripts, "service disable")
	return err
}

func (*disableServices) Run(ctx context.Context, rc *dependency.RunContext) error {
	script, err := scriptFor(rc, disableServicesScripts, "service disable")
	if err != nil {
		return err
	}
	res, err := rc.RunPowerShell(ctx, script)
	if err != nil {
		return err
	}
	grip.DebugWhen(res.ExitCode != 0, message.Fields{
		"message":   "service disable script exited non-zero",
		"exit_code": res.ExitCode,
		"stdout":    res.Stdout,
		"stderr":    res.Stderr,
	})
	return nil
}

// finalize disables the services that would otherwise start optimizing or
// updating the guest right after an analysis boots.
type finalize struct{ base }

func newFinalize() dependency.Logic { return &finalize{} }

func (*finalize) Check(rc *dependency.RunContext) error {
	if !finalizeTargets[rc.OSVersion] {
		return dependency.Errorf(rc.Name, "unsupported OS '%s'", rc.OSVersion)
	}
	return nil
}

func (*finalize) Run(ctx context.Context, rc *dependency.RunContext) error {
	res, err := rc.RunPowerShell(ctx, finalizeScript)
	if err != nil {
		return err
	}
	return checkExit(rc, "finalize script", res.ExitCode)
}
