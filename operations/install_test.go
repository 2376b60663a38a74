package operations

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/evergreen-ci/cloak"
	"github.com/evergreen-ci/cloak/guest"
	"github.com/evergreen-ci/cloak/install"
	"github.com/evergreen-ci/cloak/model/image"
	"github.com/evergreen-ci/cloak/platform"
	"github.com/stretchr/testify/suite"
)

type InstallCommandSuite struct {
	ctx    context.Context
	cancel context.CancelFunc

	env      *environment
	repo     *image.MemoryRepository
	agent    *guest.MockCommunicator
	platform *platform.MockManager

	suite.Suite
}

func TestInstallCommandSuite(t *testing.T) {
	suite.Run(t, new(InstallCommandSuite))
}

func (s *InstallCommandSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 30*time.Second)

	settings := &cloak.Settings{
		Paths: cloak.PathsConfig{Home: s.T().TempDir()},
		CustomDependencies: []cloak.CustomDependencyConfig{
			{Name: "hello", Commands: []string{"echo hello"}},
			{Name: "boom", Commands: []string{"echo boom"}},
			{Name: "greeter", DefaultVersion: "2.0", DependsOn: []string{"hello"}, Commands: []string{"echo greet"}},
		},
	}
	s.Require().NoError(settings.Validate())

	reg, err := newRegistry(settings)
	s.Require().NoError(err)

	s.repo = image.NewMemoryRepository(
		image.Image{
			Name:      "win7",
			OSVersion: "win7x64",
			Platform:  cloak.PlatformMock,
			IPAddr:    "192.168.56.101",
			Port:      cloak.DefaultAgentPort,
			Mode:      cloak.ImageModeNormal,
		},
		image.Image{
			Name:      "frozen",
			OSVersion: "win7x64",
			Platform:  cloak.PlatformMock,
			IPAddr:    "192.168.56.102",
			Port:      cloak.DefaultAgentPort,
			Mode:      cloak.ImageModeSnapshot,
		},
	)
	s.agent = guest.NewMockCommunicator()
	s.agent.FailCommands["echo boom"] = true
	s.platform = platform.NewMockManager()

	s.env = &environment{
		settings: settings,
		registry: reg,
		repo:     s.repo,
		platform: s.platform,
		timing: install.Timing{
			RebootTimeout: time.Second,
			PollInterval:  time.Millisecond,
		},
		newAgent: func(*image.Image) guest.Communicator { return s.agent },
	}
}

func (s *InstallCommandSuite) TearDownTest() {
	s.cancel()
}

func (s *InstallCommandSuite) TestInstallsAndRecords() {
	s.Require().NoError(runInstall(s.ctx, s.env, installArgs{
		image:  "win7",
		tokens: []string{"greeter"},
		attrs:  platform.Attributes{CPUs: 2},
	}))

	s.Equal([]string{"start:win7", "wait:win7", "remove:win7"}, s.platform.CallsMade())
	s.Equal(1, s.agent.Count("reboot"))
	s.Equal(2, s.platform.VMs["win7"].Attributes.CPUs)
	s.Equal([]string{"echo hello", "echo greet"}, s.agent.Executed())
	s.Equal(1, s.agent.Count("shutdown"))

	installed, err := s.repo.InstalledVersions(s.ctx, "win7")
	s.Require().NoError(err)
	s.Equal([]image.InstalledDependency{
		{Name: "greeter", Version: "2.0"},
		{Name: "hello", Version: ""},
	}, installed)
}

func (s *InstallCommandSuite) TestSkipsInstalledUnlessForced() {
	s.Require().NoError(s.repo.AddInstalledVersions(s.ctx, "win7", []image.InstalledDependency{{Name: "hello"}}))

	s.Require().NoError(runInstall(s.ctx, s.env, installArgs{image: "win7", tokens: []string{"hello"}}))
	s.Empty(s.agent.Executed())

	s.Require().NoError(runInstall(s.ctx, s.env, installArgs{image: "win7", tokens: []string{"hello"}, force: true}))
	s.Equal([]string{"echo hello"}, s.agent.Executed())
}

func (s *InstallCommandSuite) TestFailedDependencyIsAnError() {
	err := runInstall(s.ctx, s.env, installArgs{image: "win7", tokens: []string{"boom", "hello"}})
	s.Require().Error(err)
	s.Contains(err.Error(), "failed to install")

	installed, err := s.repo.InstalledVersions(s.ctx, "win7")
	s.Require().NoError(err)
	s.Equal([]image.InstalledDependency{{Name: "hello", Version: ""}}, installed)
}

func (s *InstallCommandSuite) TestNoMachineStart() {
	s.Require().NoError(runInstall(s.ctx, s.env, installArgs{
		image:          "win7",
		tokens:         []string{"hello"},
		noMachineStart: true,
	}))
	s.Empty(s.platform.CallsMade())
	s.Zero(s.agent.Count("shutdown"))
}

func (s *InstallCommandSuite) TestRejectsSnapshotImage() {
	s.Error(runInstall(s.ctx, s.env, installArgs{image: "frozen", tokens: []string{"hello"}}))
	s.Empty(s.platform.CallsMade())
}

func (s *InstallCommandSuite) TestUnknownImage() {
	err := runInstall(s.ctx, s.env, installArgs{image: "nope", tokens: []string{"hello"}})
	s.Require().Error(err)
	s.Contains(err.Error(), image.ErrImageNotFound.Error())
}

func (s *InstallCommandSuite) TestUnknownDependency() {
	s.Error(runInstall(s.ctx, s.env, installArgs{image: "win7", tokens: []string{"nonexistent"}}))
	s.Empty(s.platform.CallsMade())
}

func (s *InstallCommandSuite) TestPrepareFailure() {
	s.platform.ShouldFailStart = true
	s.Error(runInstall(s.ctx, s.env, installArgs{image: "win7", tokens: []string{"hello"}}))
	s.Empty(s.agent.Executed())
}

func (s *InstallCommandSuite) TestLoadSettingsDefaultsWithoutFile() {
	settings, err := loadSettings(filepath.Join(s.T().TempDir(), cloak.DefaultSettingsFileName))
	s.Require().NoError(err)
	s.Equal(cloak.RepositoryMongo, settings.Repository.Backend)
	s.Equal(cloak.DefaultAgentPort, settings.Agent.Port)
}
