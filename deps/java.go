package deps

import (
	"context"
	"strings"

	"github.com/evergreen-ci/cloak/model/dependency"
)

var javaExes = []dependency.Exe{
	{Version: "7", SHA1: "2546a78b6138466b3e23e25b5ca59f1c89c22d03",
		URL: "http://cuckoo.sh/vmcloak/jdk-7-windows-i586.exe"},
	{Version: "8u101", SHA1: "2d2d56f5774cc2f15d9e54bebc9a868913e606b7",
		URL: "http://cuckoo.sh/vmcloak/jdk-8u101-windows-i586.exe"},
	{Version: "8u102", SHA1: "3acf0fca1d5bf56f8a2ce577d055bfd0dd1773f9",
		URL: "http://cuckoo.sh/vmcloak/jdk-8u102-windows-i586.exe"},
}

const javaInstallConfig = `INSTALL_SILENT=Enable
AUTO_UPDATE=Disable
EULA=Disable
SPONSORS=Disable
WEB_JAVA_SECURITY_LEVEL=H
WEB_ANALYTICS=Disable
`

const (
	javaInstaller  = `C:\java.exe`
	javaConfigPath = `C:\config.cfg`
)

// java runs the JDK installer in the background and waits for its
// processes to disappear, since the installer returns before it is done.
type java struct{ base }

func newJava() dependency.Logic { return &java{} }

func (j *java) Run(ctx context.Context, rc *dependency.RunContext) error {
	legacy := strings.HasPrefix(j.version, "7")

	if err := rc.UploadInstaller(ctx, javaInstaller); err != nil {
		return err
	}
	defer rc.Remove(ctx, javaInstaller)

	if legacy {
		if err := rc.ExecAsync(ctx, javaInstaller+" /s WEB_JAVA=1 WEB_JAVA_SECURITY_LEVEL=M SPONSORS=0"); err != nil {
			return err
		}
	} else {
		if err := rc.Upload(ctx, javaConfigPath, strings.NewReader(javaInstallConfig)); err != nil {
			return err
		}
		defer rc.Remove(ctx, javaConfigPath)

		if err := rc.ExecAsync(ctx, javaInstaller+" INSTALLCFG="+javaConfigPath); err != nil {
			return err
		}
	}

	for _, process := range []string{"java.exe", "javaw.exe"} {
		if err := rc.WaitProcessExit(ctx, process); err != nil {
			return err
		}
	}

	policyKey := `HKEY_LOCAL_MACHINE\SOFTWARE\JavaSoft\Java Update\Policy`
	if dependency.ArchFor(rc.OSVersion) == "amd64" {
		policyKey = `HKEY_LOCAL_MACHINE\SOFTWARE\Wow6432Node\JavaSoft\Java Update\Policy`
	}
	return rc.ExecOK(ctx, `reg add "`+policyKey+`" /v EnableJavaUpdate /t REG_DWORD /d 0 /f`)
}
