package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// BaseHTTPSuite carries the shared configuration and the request helpers the
// scenarios run on. Scenarios skip entirely when SERVER_ADDR is unset.
type BaseHTTPSuite struct {
	suite.Suite
	Config Config
	client *http.Client
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerAddr == "" {
		s.T().Skip("SERVER_ADDR not set, skipping end-to-end scenarios")
	}
	s.client = &http.Client{Timeout: 10 * time.Second}
}

// Step prints a colorized header so each scenario phase stands out in logs.
func (s *BaseHTTPSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Call issues a JSON request against the server and decodes the JSON body
// into out when out is non-nil. The returned status lets the caller assert
// error paths without a second helper.
func (s *BaseHTTPSuite) Call(method, path, token string, body any, out any) int {
	var reader io.Reader
	var rawBody []byte
	if body != nil {
		var err error
		rawBody, err = json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(rawBody)
	}

	req, err := http.NewRequest(method, "http://"+s.Config.ServerAddr+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	s.Require().NoError(err, "Request failed: "+method+" "+path)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	logBuilder := strings.Builder{}
	fmt.Fprintf(&logBuilder, "HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		fmt.Fprintln(&logBuilder, "\nREQUEST:")
		fmt.Fprintln(&logBuilder, string(rawBody))
		fmt.Fprintln(&logBuilder, "RESPONSE:")
		fmt.Fprintln(&logBuilder, string(respBody))
	}
	s.T().Log(logBuilder.String())

	if out != nil && len(respBody) > 0 {
		s.Require().NoError(json.Unmarshal(respBody, out),
			"Undecodable response body for "+path)
	}
	return resp.StatusCode
}

// Dial opens an authenticated websocket session against /ws.
func (s *BaseHTTPSuite) Dial(token string) *websocket.Conn {
	u := url.URL{Scheme: "ws", Host: s.Config.ServerAddr, Path: "/ws"}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	s.Require().NoError(err, "Websocket dial failed")
	return conn
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Send writes one client event on the socket.
func (s *BaseHTTPSuite) Send(conn *websocket.Conn, event string, data any) {
	raw, err := json.Marshal(data)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(envelope{Event: event, Data: raw}))
}

// WaitFor reads frames until the wanted event arrives, failing the test when
// the server answers with an error or goes silent.
func (s *BaseHTTPSuite) WaitFor(conn *websocket.Conn, event string) json.RawMessage {
	deadline := time.Now().Add(5 * time.Second)
	s.Require().NoError(conn.SetReadDeadline(deadline))

	for {
		var env envelope
		err := conn.ReadJSON(&env)
		s.Require().NoError(err, "Timed out waiting for event "+event)

		if env.Event == event {
			return env.Data
		}
		if env.Event == "error" {
			s.FailNowf("Server sent an error while waiting", "wanted %s, got: %s", event, string(env.Data))
		}
		s.T().Logf("Skipping event %s while waiting for %s", env.Event, event)
	}
}
