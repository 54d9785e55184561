package live_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"pitchside/internal/live"
	"pitchside/pkg/domain"
)

// passthrough stands in for the optional session gate; subscription ownership
// rests on the unguessable connection id, not on authentication.
func passthrough(next http.Handler) http.Handler { return next }

type LiveHandlerSuite struct {
	suite.Suite
	registry   *live.Registry
	dispatcher *live.Dispatcher
	server     *httptest.Server
}

func TestLiveHandlerSuite(t *testing.T) {
	suite.Run(t, new(LiveHandlerSuite))
}

func (s *LiveHandlerSuite) SetupTest() {
	log := slog.New(slog.DiscardHandler)
	s.registry = live.NewRegistry(log)
	s.dispatcher = live.NewDispatcher(s.registry, log)

	r := chi.NewRouter()
	live.NewHandler(s.registry, passthrough, log).Register(r)
	s.server = httptest.NewServer(r)
}

func (s *LiveHandlerSuite) TearDownTest() {
	s.server.Close()
}

// sseClient holds one open event stream and decodes frames from it.
type sseClient struct {
	cancel  context.CancelFunc
	body    *bufio.Scanner
	closeFn func() error
}

func (c *sseClient) close() {
	c.cancel()
	_ = c.closeFn()
}

// next reads one SSE frame and decodes its data line.
func (c *sseClient) next(s *LiveHandlerSuite) live.Event {
	var event live.Event
	for c.body.Scan() {
		line := c.body.Text()
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			s.Require().NoError(json.Unmarshal([]byte(data), &event))
			return event
		}
	}
	s.Require().FailNow("stream ended before an event arrived")
	return event
}

func (s *LiveHandlerSuite) connect(query string) (*sseClient, string) {
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.server.URL+"/live/events"+query, nil)
	s.Require().NoError(err)

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Equal("text/event-stream", resp.Header.Get("Content-Type"))

	client := &sseClient{
		cancel:  cancel,
		body:    bufio.NewScanner(resp.Body),
		closeFn: resp.Body.Close,
	}

	connected := client.next(s)
	s.Require().Equal("connected", connected.Name)
	data, ok := connected.Data.(map[string]any)
	s.Require().True(ok)
	connID, ok := data["connectionId"].(string)
	s.Require().True(ok)
	s.Require().NotEmpty(connID)
	return client, connID
}

func (s *LiveHandlerSuite) subscribe(connID, topic string) *http.Response {
	payload, err := json.Marshal(map[string]string{"topic": topic})
	s.Require().NoError(err)
	resp, err := s.server.Client().Post(
		fmt.Sprintf("%s/live/connections/%s/join", s.server.URL, connID),
		"application/json", bytes.NewReader(payload),
	)
	s.Require().NoError(err)
	resp.Body.Close()
	return resp
}

func (s *LiveHandlerSuite) TestStreamHandshakeAndBroadcast() {
	client, connID := s.connect("")
	defer client.close()

	resp := s.subscribe(connID, "match:42")
	s.Equal(http.StatusNoContent, resp.StatusCode)

	subscribed := client.next(s)
	s.Equal("subscribed", subscribed.Name)
	s.Equal(domain.Topic("match:42"), subscribed.Topic)

	s.dispatcher.Emit(context.Background(), domain.MatchTopic("42"),
		live.EventScoreUpdated, map[string]int{"runs": 10})

	event := client.next(s)
	s.Equal(live.EventScoreUpdated, event.Name)
	s.Equal(domain.Topic("match:42"), event.Topic)
}

func (s *LiveHandlerSuite) TestInitialTopicsQueryParameter() {
	client, connID := s.connect("?topics=match:42,tournament:7")
	defer client.close()

	s.ElementsMatch(
		[]domain.Topic{domain.MatchTopic("42"), domain.TournamentTopic("7")},
		s.registry.Topics(connID),
	)
}

func (s *LiveHandlerSuite) TestInvalidInitialTopicRejectsHandshake() {
	resp, err := s.server.Client().Get(s.server.URL + "/live/events?topics=game:42")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *LiveHandlerSuite) TestJoinUnknownConnection() {
	resp := s.subscribe("never-registered", "match:42")
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *LiveHandlerSuite) TestJoinInvalidTopic() {
	client, connID := s.connect("")
	defer client.close()

	resp := s.subscribe(connID, "not-a-topic")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *LiveHandlerSuite) TestLeaveStopsDelivery() {
	client, connID := s.connect("?topics=match:42")
	defer client.close()

	payload, err := json.Marshal(map[string]string{"topic": "match:42"})
	s.Require().NoError(err)
	resp, err := s.server.Client().Post(
		fmt.Sprintf("%s/live/connections/%s/leave", s.server.URL, connID),
		"application/json", bytes.NewReader(payload),
	)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusNoContent, resp.StatusCode)

	s.Empty(s.registry.SubscribersOf(domain.MatchTopic("42")))
}

func (s *LiveHandlerSuite) TestDisconnectReleasesSubscriptions() {
	client, connID := s.connect("?topics=match:42")

	client.close()

	// The server notices the disconnect on its next write attempt or context
	// signal; poll briefly rather than assuming immediacy.
	s.Eventually(func() bool {
		return len(s.registry.SubscribersOf(domain.MatchTopic("42"))) == 0 &&
			s.registry.Topics(connID) == nil
	}, 2*time.Second, 10*time.Millisecond)
}
