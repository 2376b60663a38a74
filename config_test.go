package cloak

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettingsFile(t *testing.T, contents string) string {
	dir := t.TempDir()
	fn := filepath.Join(dir, DefaultSettingsFileName)
	require.NoError(t, os.WriteFile(fn, []byte(contents), 0600))
	return fn
}

func TestNewSettingsDefaults(t *testing.T) {
	assert := assert.New(t)
	fn := writeSettingsFile(t, "paths:\n  home: /tmp/cloak-home\n")

	settings, err := NewSettings(fn)
	require.NoError(t, err)

	assert.Equal(RepositoryMongo, settings.Repository.Backend)
	assert.Equal("mongodb://localhost:27017", settings.Repository.MongoURI)
	assert.Equal("cloak", settings.Repository.Database)
	assert.Equal(DefaultAgentPort, settings.Agent.Port)
	assert.Equal(DefaultAgentRequestTimeout, settings.Agent.RequestTimeout())
	assert.Equal(DefaultRebootTimeout, settings.Install.RebootTimeout())
	assert.Equal(DefaultRebootGrace, settings.Install.RebootGrace())
	assert.Equal(DefaultAgentPollInterval, settings.Install.PollInterval())
	assert.Equal(DefaultPrepareTimeout, settings.Install.PrepareTimeout())
	assert.Equal(PlatformVirtualBox, settings.Platform.Name)
	assert.Equal("VBoxManage", settings.Platform.VBoxManage)
	assert.Equal(DefaultShutdownTimeout, settings.Platform.ShutdownTimeout())
	assert.Equal("/tmp/cloak-home", settings.Paths.Home)
	assert.Equal(filepath.Join("/tmp/cloak-home", "deps"), settings.Paths.DepsCache)
}

func TestNewSettingsMissingFile(t *testing.T) {
	settings, err := NewSettings(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
	assert.Nil(t, settings)
}

func TestNewSettingsExplicitValues(t *testing.T) {
	assert := assert.New(t)
	fn := writeSettingsFile(t, `
repository:
  backend: postgres
  postgres_dsn: postgres://cloak@localhost/cloak
agent:
  port: 8554
install:
  reboot_timeout_secs: 60
  reboot_grace_secs: 2
platform:
  name: mock
custom_dependencies:
  - name: sysmon
    url: https://example.com/Sysmon64.exe
    sha1: 0123456789abcdef0123456789abcdef01234567
    arguments: -accepteula -i
`)

	settings, err := NewSettings(fn)
	require.NoError(t, err)

	assert.Equal(RepositoryPostgres, settings.Repository.Backend)
	assert.Equal(8554, settings.Agent.Port)
	assert.Equal(time.Minute, settings.Install.RebootTimeout())
	assert.Equal(2*time.Second, settings.Install.RebootGrace())
	assert.Equal(PlatformMock, settings.Platform.Name)
	require.Len(t, settings.CustomDependencies, 1)
	assert.Equal("Sysmon64.exe", settings.CustomDependencies[0].Filename)
}

func TestSettingsEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"REPOSITORY_BACKEND", RepositoryPostgres)
	t.Setenv(EnvPrefix+"POSTGRES_DSN", "postgres://env@localhost/cloak")
	fn := writeSettingsFile(t, "repository:\n  backend: mongo\n")

	settings, err := NewSettings(fn)
	require.NoError(t, err)
	assert.Equal(t, RepositoryPostgres, settings.Repository.Backend)
	assert.Equal(t, "postgres://env@localhost/cloak", settings.Repository.PostgresDSN)
}

func TestSettingsDotEnvFile(t *testing.T) {
	fn := writeSettingsFile(t, "repository:\n  backend: mongo\n")
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(fn), ".env"), []byte("CLOAK_DB=from_dotenv\n"), 0600))
	defer os.Unsetenv(EnvPrefix + "DB")

	settings, err := NewSettings(fn)
	require.NoError(t, err)
	assert.Equal(t, "from_dotenv", settings.Repository.Database)
}

func TestSettingsValidationErrors(t *testing.T) {
	for name, contents := range map[string]string{
		"UnknownBackend":     "repository:\n  backend: cassandra\n",
		"PostgresWithoutDSN": "repository:\n  backend: postgres\n",
		"BadPort":            "agent:\n  port: 70000\n",
		"NegativeTimeout":    "install:\n  reboot_timeout_secs: -1\n",
		"UnknownPlatform":    "platform:\n  name: qemu\n",
		"CustomWithoutName":  "custom_dependencies:\n  - commands: [\"echo hi\"]\n",
		"CustomBadName":      "custom_dependencies:\n  - name: a.b\n    commands: [\"echo hi\"]\n",
		"CustomNoChecksum":   "custom_dependencies:\n  - name: tool\n    url: https://example.com/tool.exe\n",
		"CustomNothingToDo":  "custom_dependencies:\n  - name: tool\n",
		"CustomDuplicate":    "custom_dependencies:\n  - name: tool\n    commands: [a]\n  - name: tool\n    commands: [b]\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewSettings(writeSettingsFile(t, contents))
			assert.Error(t, err)
		})
	}
}
