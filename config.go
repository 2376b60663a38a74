package cloak

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evergreen-ci/cloak/util"
	"github.com/joho/godotenv"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// ConfigSection is a group of settings that knows how to validate itself and
// fill in its defaults.
type ConfigSection interface {
	SectionId() string
	ValidateAndDefault() error
}

// Settings holds the whole cloak configuration, as read from the YAML
// settings file and overridden by the environment.
type Settings struct {
	Repository         RepositoryConfig         `yaml:"repository" json:"repository"`
	Agent              AgentConfig              `yaml:"agent" json:"agent"`
	Install            InstallConfig            `yaml:"install" json:"install"`
	Platform           PlatformConfig           `yaml:"platform" json:"platform"`
	Paths              PathsConfig              `yaml:"paths" json:"paths"`
	CustomDependencies []CustomDependencyConfig `yaml:"custom_dependencies" json:"custom_dependencies"`
}

// NewSettings reads settings from the YAML file at path. Environment
// variables (and a .env file next to the settings file, if any) override
// the repository connection settings. The result is validated and
// defaulted.
func NewSettings(path string) (*Settings, error) {
	settings := &Settings{}
	if err := util.ReadFromYAMLFile(path, settings); err != nil {
		return nil, errors.Wrapf(err, "reading settings file '%s'", path)
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err = godotenv.Load(envFile); err != nil {
			return nil, errors.Wrapf(err, "loading environment file '%s'", envFile)
		}
	}
	settings.applyEnvOverrides()

	if err := settings.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating settings")
	}

	return settings, nil
}

// DefaultSettings returns validated settings with every section defaulted,
// for use when no settings file exists.
func DefaultSettings() *Settings {
	settings := &Settings{}
	settings.applyEnvOverrides()
	grip.Warning(errors.Wrap(settings.Validate(), "validating default settings"))
	return settings
}

func (s *Settings) sections() []ConfigSection {
	return []ConfigSection{&s.Repository, &s.Agent, &s.Install, &s.Platform, &s.Paths}
}

// Validate validates and defaults every section and the custom dependency
// definitions.
func (s *Settings) Validate() error {
	catcher := grip.NewBasicCatcher()
	for _, section := range s.sections() {
		catcher.Wrapf(section.ValidateAndDefault(), "section '%s'", section.SectionId())
	}

	seen := map[string]bool{}
	for i := range s.CustomDependencies {
		dep := &s.CustomDependencies[i]
		catcher.Wrapf(dep.ValidateAndDefault(), "custom dependency %d", i)
		if dep.Name != "" && seen[dep.Name] {
			catcher.Errorf("custom dependency '%s' defined more than once", dep.Name)
		}
		seen[dep.Name] = true
	}

	return catcher.Resolve()
}

func (s *Settings) applyEnvOverrides() {
	if v := os.Getenv(EnvPrefix + "REPOSITORY_BACKEND"); v != "" {
		s.Repository.Backend = v
	}
	if v := os.Getenv(EnvPrefix + "MONGO_URI"); v != "" {
		s.Repository.MongoURI = v
	}
	if v := os.Getenv(EnvPrefix + "DB"); v != "" {
		s.Repository.Database = v
	}
	if v := os.Getenv(EnvPrefix + "POSTGRES_DSN"); v != "" {
		s.Repository.PostgresDSN = v
	}
	if v := os.Getenv(EnvPrefix + "HOME"); v != "" {
		s.Paths.Home = v
	}
}

// RepositoryConfig configures where image records are persisted.
type RepositoryConfig struct {
	Backend     string `yaml:"backend" json:"backend"`
	MongoURI    string `yaml:"mongo_uri" json:"mongo_uri"`
	Database    string `yaml:"database" json:"database"`
	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn"`
}

func (c *RepositoryConfig) SectionId() string { return "repository" }

func (c *RepositoryConfig) ValidateAndDefault() error {
	if c.Backend == "" {
		c.Backend = RepositoryMongo
	}
	switch c.Backend {
	case RepositoryMongo:
		if c.MongoURI == "" {
			c.MongoURI = "mongodb://localhost:27017"
		}
		if c.Database == "" {
			c.Database = "cloak"
		}
	case RepositoryPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres backend requires a DSN")
		}
	default:
		return errors.Errorf("unrecognized repository backend '%s'", c.Backend)
	}
	return nil
}

// AgentConfig configures communication with the in-guest agent.
type AgentConfig struct {
	Port                  int `yaml:"port" json:"port"`
	RequestTimeoutSeconds int `yaml:"request_timeout_secs" json:"request_timeout_secs"`
}

func (c *AgentConfig) SectionId() string { return "agent" }

func (c *AgentConfig) ValidateAndDefault() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("invalid agent port %d", c.Port)
	}
	if c.Port == 0 {
		c.Port = DefaultAgentPort
	}
	if c.RequestTimeoutSeconds < 0 {
		return errors.New("request timeout cannot be negative")
	}
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = int(DefaultAgentRequestTimeout / time.Second)
	}
	return nil
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *AgentConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// InstallConfig holds the timing knobs of an install run.
type InstallConfig struct {
	PrepareTimeoutSeconds int `yaml:"prepare_timeout_secs" json:"prepare_timeout_secs"`
	RebootTimeoutSeconds  int `yaml:"reboot_timeout_secs" json:"reboot_timeout_secs"`
	RebootGraceSeconds    int `yaml:"reboot_grace_secs" json:"reboot_grace_secs"`
	PollIntervalSeconds   int `yaml:"poll_interval_secs" json:"poll_interval_secs"`
}

func (c *InstallConfig) SectionId() string { return "install" }

func (c *InstallConfig) ValidateAndDefault() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(c.PrepareTimeoutSeconds < 0, "prepare timeout cannot be negative")
	catcher.NewWhen(c.RebootTimeoutSeconds < 0, "reboot timeout cannot be negative")
	catcher.NewWhen(c.RebootGraceSeconds < 0, "reboot grace period cannot be negative")
	catcher.NewWhen(c.PollIntervalSeconds < 0, "poll interval cannot be negative")
	if catcher.HasErrors() {
		return catcher.Resolve()
	}

	if c.PrepareTimeoutSeconds == 0 {
		c.PrepareTimeoutSeconds = int(DefaultPrepareTimeout / time.Second)
	}
	if c.RebootTimeoutSeconds == 0 {
		c.RebootTimeoutSeconds = int(DefaultRebootTimeout / time.Second)
	}
	if c.RebootGraceSeconds == 0 {
		c.RebootGraceSeconds = int(DefaultRebootGrace / time.Second)
	}
	if c.PollIntervalSeconds == 0 {
		c.PollIntervalSeconds = int(DefaultAgentPollInterval / time.Second)
	}
	return nil
}

func (c *InstallConfig) PrepareTimeout() time.Duration {
	return time.Duration(c.PrepareTimeoutSeconds) * time.Second
}

func (c *InstallConfig) RebootTimeout() time.Duration {
	return time.Duration(c.RebootTimeoutSeconds) * time.Second
}

func (c *InstallConfig) RebootGrace() time.Duration {
	return time.Duration(c.RebootGraceSeconds) * time.Second
}

func (c *InstallConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// PlatformConfig selects and configures the hypervisor driver.
type PlatformConfig struct {
	Name          string `yaml:"name" json:"name"`
	VBoxManage    string `yaml:"vboxmanage" json:"vboxmanage"`
	VMDirectory   string `yaml:"vm_directory" json:"vm_directory"`
	Visible       bool   `yaml:"visible" json:"visible"`
	StorageBus    string `yaml:"storage_controller" json:"storage_controller"`
	ShutdownSecs  int    `yaml:"shutdown_timeout_secs" json:"shutdown_timeout_secs"`
	HostOnlyIface string `yaml:"hostonly_interface" json:"hostonly_interface"`
}

func (c *PlatformConfig) SectionId() string { return "platform" }

func (c *PlatformConfig) ValidateAndDefault() error {
	if c.Name == "" {
		c.Name = PlatformVirtualBox
	}
	switch c.Name {
	case PlatformVirtualBox, PlatformMock:
	default:
		return errors.Errorf("unrecognized platform '%s'", c.Name)
	}
	if c.VBoxManage == "" {
		c.VBoxManage = "VBoxManage"
	}
	if c.StorageBus == "" {
		c.StorageBus = "IDE"
	}
	if c.ShutdownSecs < 0 {
		return errors.New("shutdown timeout cannot be negative")
	}
	if c.ShutdownSecs == 0 {
		c.ShutdownSecs = int(DefaultShutdownTimeout / time.Second)
	}
	return nil
}

func (c *PlatformConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownSecs) * time.Second
}

// PathsConfig holds the on-disk locations used by cloak.
type PathsConfig struct {
	Home      string `yaml:"home" json:"home"`
	DepsCache string `yaml:"deps_cache" json:"deps_cache"`
	VMs       string `yaml:"vms" json:"vms"`
}

func (c *PathsConfig) SectionId() string { return "paths" }

func (c *PathsConfig) ValidateAndDefault() error {
	if c.Home == "" {
		c.Home = DefaultHome()
	}
	if c.DepsCache == "" {
		c.DepsCache = filepath.Join(c.Home, "deps")
	}
	if c.VMs == "" {
		c.VMs = filepath.Join(c.Home, "vms")
	}
	return nil
}

// CustomDependencyConfig declares a dependency entirely in the settings
// file: an optional installer that is uploaded and run, followed by extra
// guest commands.
type CustomDependencyConfig struct {
	Name           string   `yaml:"name" json:"name"`
	Description    string   `yaml:"description" json:"description"`
	DefaultVersion string   `yaml:"default_version" json:"default_version"`
	DependsOn      []string `yaml:"depends_on" json:"depends_on"`
	MustReboot     bool     `yaml:"must_reboot" json:"must_reboot"`
	MultiVersion   bool     `yaml:"multi_version" json:"multi_version"`
	Recommended    bool     `yaml:"recommended" json:"recommended"`
	Tags           []string `yaml:"tags" json:"tags"`

	URL       string   `yaml:"url" json:"url"`
	SHA1      string   `yaml:"sha1" json:"sha1"`
	Filename  string   `yaml:"filename" json:"filename"`
	Arguments string   `yaml:"arguments" json:"arguments"`
	Commands  []string `yaml:"commands" json:"commands"`
}

func (c *CustomDependencyConfig) ValidateAndDefault() error {
	catcher := grip.NewBasicCatcher()
	c.Name = strings.TrimSpace(c.Name)
	catcher.NewWhen(c.Name == "", "name must be set")
	catcher.NewWhen(strings.ContainsAny(c.Name, ":.= "), "name cannot contain ':', '.', '=' or spaces")
	catcher.NewWhen(c.URL != "" && c.SHA1 == "", "an installer URL requires its SHA-1")
	catcher.NewWhen(c.URL == "" && len(c.Commands) == 0, "either an installer URL or commands must be given")
	if c.URL != "" && c.Filename == "" {
		c.Filename = filepath.Base(c.URL)
	}
	return catcher.Resolve()
}
