package guest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const defaultRequestTimeout = time.Minute

// agentResponse is the JSON body common to every agent reply.
type agentResponse struct {
	Message  string            `json:"message"`
	ExitCode int               `json:"exit_code"`
	Stdout   string            `json:"stdout"`
	Stderr   string            `json:"stderr"`
	Environ  map[string]string `json:"environ"`
}

// httpCommunicator implements Communicator against the HTTP agent.
type httpCommunicator struct {
	agentURL string

	// httpClient serves short requests. execClient has no timeout since
	// installers can run for a long time; those requests are bounded by
	// their context only.
	httpClient *http.Client
	execClient *http.Client
	timeout    time.Duration

	mutex sync.RWMutex
}

// NewCommunicator returns a Communicator for the agent listening on
// host:port. Requests other than command executions are bounded by
// requestTimeout, or a minute if it is zero.
func NewCommunicator(host string, port int, requestTimeout time.Duration) Communicator {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	c := &httpCommunicator{
		agentURL: fmt.Sprintf("http://%s:%d", host, port),
		timeout:  requestTimeout,
	}
	c.resetClient()
	return c
}

func (c *httpCommunicator) resetClient() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.httpClient != nil {
		utility.PutHTTPClient(c.httpClient)
	}
	if c.execClient != nil {
		utility.PutHTTPClient(c.execClient)
	}

	c.httpClient = utility.GetHTTPClient()
	c.httpClient.Timeout = c.timeout

	c.execClient = utility.GetHTTPClient()
	c.execClient.Timeout = 0
}

// Close returns the HTTP clients to the pool.
func (c *httpCommunicator) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	utility.PutHTTPClient(c.httpClient)
	utility.PutHTTPClient(c.execClient)
	c.httpClient, c.execClient = nil, nil
}

func (c *httpCommunicator) Ping(ctx context.Context) error {
	r, err := http.NewRequest(http.MethodGet, c.agentURL+"/status", nil)
	if err != nil {
		return errors.Wrap(err, "building status request")
	}
	_, err = c.doRequest(ctx, r, false)
	return errors.Wrap(err, "pinging agent")
}

func (c *httpCommunicator) Execute(ctx context.Context, command string, async bool) (*ExecResult, error) {
	form := url.Values{}
	form.Set("command", command)
	if async {
		form.Set("async", "true")
	}

	r, err := newFormRequest(c.agentURL+"/execute", form)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, r, !async)
	if err != nil {
		return nil, errors.Wrapf(err, "executing '%s'", command)
	}

	grip.Debug(message.Fields{
		"message":   "executed guest command",
		"command":   command,
		"async":     async,
		"exit_code": resp.ExitCode,
	})

	return &ExecResult{ExitCode: resp.ExitCode, Stdout: resp.Stdout, Stderr: resp.Stderr}, nil
}

func (c *httpCommunicator) Upload(ctx context.Context, path string, contents io.Reader) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("filepath", path); err != nil {
		return errors.Wrap(err, "writing file path field")
	}
	part, err := writer.CreateFormFile("file", path)
	if err != nil {
		return errors.Wrap(err, "creating file field")
	}
	if _, err = io.Copy(part, contents); err != nil {
		return errors.Wrapf(err, "reading contents for '%s'", path)
	}
	if err = writer.Close(); err != nil {
		return errors.Wrap(err, "closing multipart body")
	}

	r, err := http.NewRequest(http.MethodPost, c.agentURL+"/store", body)
	if err != nil {
		return errors.Wrap(err, "building store request")
	}
	r.Header.Set("Content-Type", writer.FormDataContentType())

	_, err = c.doRequest(ctx, r, true)
	return errors.Wrapf(err, "uploading '%s'", path)
}

func (c *httpCommunicator) Remove(ctx context.Context, path string) error {
	form := url.Values{}
	form.Set("path", path)
	r, err := newFormRequest(c.agentURL+"/remove", form)
	if err != nil {
		return err
	}
	_, err = c.doRequest(ctx, r, false)
	return errors.Wrapf(err, "removing '%s'", path)
}

func (c *httpCommunicator) Environ(ctx context.Context, name string) (string, error) {
	r, err := http.NewRequest(http.MethodGet, c.agentURL+"/environ", nil)
	if err != nil {
		return "", errors.Wrap(err, "building environ request")
	}
	resp, err := c.doRequest(ctx, r, false)
	if err != nil {
		return "", errors.Wrap(err, "reading agent environment")
	}
	for key, value := range resp.Environ {
		if strings.EqualFold(key, name) {
			return value, nil
		}
	}
	return "", errors.Errorf("environment variable '%s' is not set on the guest", name)
}

func (c *httpCommunicator) Reboot(ctx context.Context) error {
	_, err := c.Execute(ctx, rebootCommand, true)
	return err
}

func (c *httpCommunicator) Shutdown(ctx context.Context) error {
	_, err := c.Execute(ctx, shutdownCommand, true)
	return err
}

func newFormRequest(target string, form url.Values) (*http.Request, error) {
	r, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "building form request")
	}
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r, nil
}

func (c *httpCommunicator) doRequest(ctx context.Context, r *http.Request, long bool) (*agentResponse, error) {
	var (
		response *http.Response
		err      error
	)

	r = r.WithContext(ctx)

	func() {
		c.mutex.RLock()
		defer c.mutex.RUnlock()
		client := c.httpClient
		if long {
			client = c.execClient
		}
		if client == nil {
			err = errors.New("communicator is closed")
			return
		}
		response, err = client.Do(r)
	}()

	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer response.Body.Close()

	out := &agentResponse{}
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading agent response")
	}
	if len(raw) > 0 {
		if err = json.Unmarshal(raw, out); err != nil && response.StatusCode == http.StatusOK {
			return nil, errors.Wrap(err, "decoding agent response")
		}
	}

	if response.StatusCode != http.StatusOK {
		return nil, errors.Errorf("agent returned status %d: %s", response.StatusCode, out.Message)
	}

	return out, nil
}
