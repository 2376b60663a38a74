package guest

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// fakeAgent serves the agent HTTP API and records what it receives.
type fakeAgent struct {
	mu       sync.Mutex
	commands []string
	async    []bool
	stored   map[string]string
	removed  []string
	exitCode int
}

func (a *fakeAgent) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, body interface{}) {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Analysis status", "status": "init"})
	})
	mux.HandleFunc("/execute", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		command := r.FormValue("command")
		if command == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "No command has been provided"})
			return
		}
		a.commands = append(a.commands, command)
		a.async = append(a.async, r.FormValue("async") != "")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":   "Successfully executed command",
			"stdout":    "out:" + command,
			"stderr":    "",
			"exit_code": a.exitCode,
		})
	})
	mux.HandleFunc("/store", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "No file has been provided"})
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		a.stored[r.FormValue("filepath")] = string(data)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully stored file"})
	})
	mux.HandleFunc("/remove", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		path := r.FormValue("path")
		if strings.Contains(path, "missing") {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Path provided does not exist"})
			return
		}
		a.removed = append(a.removed, path)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully deleted file"})
	})
	mux.HandleFunc("/environ", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": "Environment variables",
			"environ": map[string]string{"USERPROFILE": `C:\Users\cuckoo`},
		})
	})
	return mux
}

type CommunicatorSuite struct {
	agent  *fakeAgent
	server *httptest.Server
	comm   Communicator
	ctx    context.Context
	cancel context.CancelFunc
	suite.Suite
}

func TestCommunicatorSuite(t *testing.T) {
	suite.Run(t, new(CommunicatorSuite))
}

func (s *CommunicatorSuite) SetupTest() {
	s.agent = &fakeAgent{stored: map[string]string{}}
	s.server = httptest.NewServer(s.agent.handler())

	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(s.server.URL, "http://"))
	s.Require().NoError(err)
	port, err := strconv.Atoi(portStr)
	s.Require().NoError(err)

	s.comm = NewCommunicator(host, port, 5*time.Second)
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
}

func (s *CommunicatorSuite) TearDownTest() {
	s.cancel()
	s.comm.(*httpCommunicator).Close()
	s.server.Close()
}

func (s *CommunicatorSuite) TestPing() {
	s.NoError(s.comm.Ping(s.ctx))
}

func (s *CommunicatorSuite) TestExecute() {
	s.agent.exitCode = 3
	res, err := s.comm.Execute(s.ctx, `C:\setup.exe /quiet`, false)
	s.Require().NoError(err)
	s.Equal(3, res.ExitCode)
	s.Equal(`out:C:\setup.exe /quiet`, res.Stdout)
	s.Equal([]string{`C:\setup.exe /quiet`}, s.agent.commands)
	s.Equal([]bool{false}, s.agent.async)
}

func (s *CommunicatorSuite) TestRebootAndShutdownAreAsync() {
	s.Require().NoError(s.comm.Reboot(s.ctx))
	s.Require().NoError(s.comm.Shutdown(s.ctx))
	s.Equal([]string{rebootCommand, shutdownCommand}, s.agent.commands)
	s.Equal([]bool{true, true}, s.agent.async)
}

func (s *CommunicatorSuite) TestUploadAndRemove() {
	s.Require().NoError(s.comm.Upload(s.ctx, `C:\setup.msu`, strings.NewReader("installer bytes")))
	s.Equal("installer bytes", s.agent.stored[`C:\setup.msu`])

	s.NoError(s.comm.Remove(s.ctx, `C:\setup.msu`))
	s.Equal([]string{`C:\setup.msu`}, s.agent.removed)

	err := s.comm.Remove(s.ctx, `C:\missing.exe`)
	s.Require().Error(err)
	s.Contains(err.Error(), "404")
}

func (s *CommunicatorSuite) TestEnviron() {
	value, err := s.comm.Environ(s.ctx, "userprofile")
	s.Require().NoError(err)
	s.Equal(`C:\Users\cuckoo`, value)

	_, err = s.comm.Environ(s.ctx, "APPDATA")
	s.Error(err)
}

func TestPingUnreachableAgent(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(server.URL, "http://"))
	require.NoError(t, err)
	server.Close()

	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	comm := NewCommunicator(host, port, time.Second)
	assert.Error(t, comm.Ping(context.Background()))
}
