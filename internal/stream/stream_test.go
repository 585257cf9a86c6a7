package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/exchange-trader/internal/events"
	"github.com/rickgao/exchange-trader/internal/model"
)

// mockWSServer creates a test WebSocket server. handler runs once per
// connection with the connection index.
func mockWSServer(t *testing.T, handler func(i int, conn *websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	var mu sync.Mutex
	n := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()

		mu.Lock()
		i := n
		n++
		mu.Unlock()
		handler(i, conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type staticSession string

func (s staticSession) SessionToken() string { return string(s) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Put(e events.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return true
}

func (p *recordingPublisher) books() []*model.MarketBook {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*model.MarketBook, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.(events.MarketBookEvent).Book)
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func testConnConfig(url string) ConnConfig {
	return ConnConfig{
		URL:          url,
		PingInterval: 30 * time.Second,
		PingTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   100,
	}
}

func TestConn_ConnectSendClose(t *testing.T) {
	received := make(chan []byte, 1)
	server := mockWSServer(t, func(_ int, conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- msg
		drain(conn)
	})
	defer server.Close()

	c := NewConn(testConnConfig(wsURL(server)), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !c.IsConnected() {
		t.Error("expected IsConnected to return true")
	}

	if err := c.Send(map[string]string{"op": "heartbeat"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case msg := <-received:
		if string(msg) != `{"op":"heartbeat"}` {
			t.Errorf("received %s, want heartbeat op", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if c.IsConnected() {
		t.Error("expected IsConnected to return false after Close")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("Connect after Close = %v, want ErrAlreadyClosed", err)
	}
}

func TestConn_SendNotConnected(t *testing.T) {
	c := NewConn(testConnConfig("ws://localhost:1"), nil)
	if err := c.Send(struct{}{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send = %v, want ErrNotConnected", err)
	}
}

func TestConn_Messages(t *testing.T) {
	server := mockWSServer(t, func(_ int, conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"connection"}`))
		drain(conn)
	})
	defer server.Close()

	c := NewConn(testConnConfig(wsURL(server)), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	select {
	case msg := <-c.Messages():
		if string(msg.Data) != `{"op":"connection"}` {
			t.Errorf("Data = %s", msg.Data)
		}
		if msg.ReceivedAt.IsZero() {
			t.Error("ReceivedAt not set")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestConn_ServerCloseReportsError(t *testing.T) {
	server := mockWSServer(t, func(_ int, conn *websocket.Conn) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"),
			time.Now().Add(time.Second))
	})
	defer server.Close()

	c := NewConn(testConnConfig(wsURL(server)), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	select {
	case err := <-c.Errors():
		if err == nil {
			t.Error("expected non-nil error")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for error")
	}
}

func TestConn_StaleConnection(t *testing.T) {
	server := mockWSServer(t, func(_ int, conn *websocket.Conn) {
		// Never read, so our pings go unanswered.
		time.Sleep(time.Second)
	})
	defer server.Close()

	cfg := testConnConfig(wsURL(server))
	cfg.PingInterval = 20 * time.Millisecond
	cfg.PingTimeout = 50 * time.Millisecond

	c := NewConn(cfg, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	select {
	case err := <-c.Errors():
		if !errors.Is(err, ErrStaleConnection) {
			t.Errorf("error = %v, want ErrStaleConnection", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for stale error")
	}
}

func ptr(f float64) *float64 { return &f }

func TestMarketCache_ImageAndDelta(t *testing.T) {
	c := newMarketCache("1.1")
	pt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	c.apply(MarketChange{
		ID:  "1.1",
		Img: true,
		Tv:  ptr(1500.5),
		MarketDefinition: &MarketDefinition{
			Status:     "OPEN",
			MarketTime: "2024-05-01T14:00:00.000Z",
			Runners:    []RunnerDefinition{{ID: 11, Status: "ACTIVE", SortPriority: 1}},
		},
		Rc: []RunnerChange{{
			ID:  11,
			Ltp: ptr(2.5),
			Atb: [][2]float64{{2.4, 10}, {2.48, 5}, {2.3, 1}},
			Atl: [][2]float64{{2.6, 7}, {2.52, 3}},
		}},
	}, pt)

	c.apply(MarketChange{
		ID: "1.1",
		Rc: []RunnerChange{{
			ID:  11,
			Atb: [][2]float64{{2.48, 0}, {2.46, 4}},
			Atl: [][2]float64{{2.52, 8}},
		}},
	}, pt.Add(time.Second))

	book := c.snapshot(pt.Add(2 * time.Second))
	if book.MarketID != "1.1" {
		t.Errorf("MarketID = %s", book.MarketID)
	}
	if book.Status() != "OPEN" {
		t.Errorf("Status = %q, want OPEN", book.Status())
	}
	if mt, ok := book.MarketTime(); !ok || !mt.Equal(time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)) {
		t.Errorf("MarketTime = %v, %v", mt, ok)
	}
	if !book.PublishTime.Equal(pt.Add(time.Second)) {
		t.Errorf("PublishTime = %v", book.PublishTime)
	}
	if book.TotalMatched.String() != "1500.5" {
		t.Errorf("TotalMatched = %s", book.TotalMatched)
	}
	if len(book.Runners) != 1 {
		t.Fatalf("len(Runners) = %d, want 1", len(book.Runners))
	}

	r := book.Runners[0]
	if r.LastPriceTraded.String() != "2.5" {
		t.Errorf("LastPriceTraded = %s", r.LastPriceTraded)
	}

	wantBack := []string{"2.46:4", "2.4:10", "2.3:1"}
	if got := levels(r.AvailableToBack); strings.Join(got, ",") != strings.Join(wantBack, ",") {
		t.Errorf("AvailableToBack = %v, want %v", got, wantBack)
	}
	wantLay := []string{"2.52:8", "2.6:7"}
	if got := levels(r.AvailableToLay); strings.Join(got, ",") != strings.Join(wantLay, ",") {
		t.Errorf("AvailableToLay = %v, want %v", got, wantLay)
	}
}

func TestMarketCache_ImageResets(t *testing.T) {
	c := newMarketCache("1.1")
	c.apply(MarketChange{ID: "1.1", Rc: []RunnerChange{{ID: 11, Atb: [][2]float64{{2, 1}}}}}, time.Time{})
	c.apply(MarketChange{ID: "1.1", Img: true, Rc: []RunnerChange{{ID: 22, Atl: [][2]float64{{3, 1}}}}}, time.Time{})

	book := c.snapshot(time.Time{})
	if len(book.Runners) != 1 || book.Runners[0].SelectionID != 22 {
		t.Fatalf("Runners = %+v, want only 22", book.Runners)
	}
	if book.MarketDefinition != nil {
		t.Error("MarketDefinition should be nil without a definition")
	}
}

func levels(ps []model.PriceSize) []string {
	out := make([]string, 0, len(ps))
	for _, l := range ps {
		out = append(out, l.Price.String()+":"+l.Size.String())
	}
	return out
}

// streamServer answers authentication and subscription like the exchange
// and then sends the scripted messages for connection i.
func streamServer(t *testing.T, subs chan<- MarketSubscriptionMessage, script func(i int) []string) *httptest.Server {
	return mockWSServer(t, func(i int, conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"connection","connectionId":"abc-123"}`))

		for range 2 {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env envelope
			json.Unmarshal(data, &env)
			if env.Op == OpMarketSubscription && subs != nil {
				var sub MarketSubscriptionMessage
				json.Unmarshal(data, &sub)
				subs <- sub
			}
			conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"status","id":1,"statusCode":"SUCCESS"}`))
		}

		for _, msg := range script(i) {
			if msg == "close" {
				return
			}
			conn.WriteMessage(websocket.TextMessage, []byte(msg))
		}
		drain(conn)
	})
}

func testClientConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.AppKey = "app-key"
	cfg.MarketFilter = MarketFilter{MarketIDs: []string{"1.1"}}
	cfg.ReconnectBaseDelay = 10 * time.Millisecond
	cfg.ReconnectMaxDelay = 50 * time.Millisecond
	return cfg
}

func TestClient_PublishesSnapshots(t *testing.T) {
	subs := make(chan MarketSubscriptionMessage, 4)
	server := streamServer(t, subs, func(int) []string {
		return []string{
			`{"op":"mcm","id":2,"ct":"SUB_IMAGE","initialClk":"ic1","clk":"c1","pt":1714564800000,"mc":[{"id":"1.1","img":true,"marketDefinition":{"status":"OPEN"},"rc":[{"id":11,"atb":[[2.0,10]]}]}]}`,
			`{"op":"mcm","id":2,"ct":"HEARTBEAT","clk":"c2","pt":1714564801000}`,
			`{"op":"mcm","id":2,"clk":"c3","pt":1714564802000,"mc":[{"id":"1.1","rc":[{"id":11,"atb":[[2.02,3]]}]},{"id":"1.2","img":true,"marketDefinition":{"status":"CLOSED"}}]}`,
		}
	})
	defer server.Close()

	pub := &recordingPublisher{}
	c := NewClient(testClientConfig(wsURL(server)), staticSession("token-1"), pub, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, func() bool { return len(pub.books()) == 3 })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	sub := <-subs
	if sub.Op != OpMarketSubscription {
		t.Errorf("Op = %s", sub.Op)
	}
	if len(sub.MarketFilter.MarketIDs) != 1 || sub.MarketFilter.MarketIDs[0] != "1.1" {
		t.Errorf("MarketFilter = %+v", sub.MarketFilter)
	}
	if sub.Clk != "" || sub.InitialClk != "" {
		t.Errorf("first subscription should not resume, got clk=%q initialClk=%q", sub.Clk, sub.InitialClk)
	}

	books := pub.books()
	if books[0].MarketID != "1.1" || len(books[0].Runners[0].AvailableToBack) != 1 {
		t.Errorf("first book = %+v", books[0])
	}
	if got := len(books[1].Runners[0].AvailableToBack); got != 2 {
		t.Errorf("second book back levels = %d, want 2", got)
	}
	if books[2].MarketID != "1.2" || books[2].Status() != model.MarketStatusClosed {
		t.Errorf("third book = %s %s", books[2].MarketID, books[2].Status())
	}
}

func TestClient_ReconnectResumesFromClock(t *testing.T) {
	subs := make(chan MarketSubscriptionMessage, 4)
	server := streamServer(t, subs, func(i int) []string {
		if i == 0 {
			return []string{
				`{"op":"mcm","id":2,"ct":"SUB_IMAGE","initialClk":"ic1","clk":"c1","pt":1,"mc":[{"id":"1.1","img":true}]}`,
				"close",
			}
		}
		return nil
	})
	defer server.Close()

	pub := &recordingPublisher{}
	c := NewClient(testClientConfig(wsURL(server)), staticSession("token-1"), pub, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	first := <-subs
	if first.Clk != "" {
		t.Errorf("first Clk = %q, want empty", first.Clk)
	}

	select {
	case second := <-subs:
		if second.InitialClk != "ic1" || second.Clk != "c1" {
			t.Errorf("resumed subscription clk=%q initialClk=%q, want c1/ic1", second.Clk, second.InitialClk)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client did not reconnect")
	}
}

func TestClient_DrainHandlesBufferedMessages(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewClient(DefaultConfig(), staticSession("token-1"), pub, nil, nil)

	conn := NewConn(ConnConfig{BufferSize: 4}, nil)
	conn.messages <- Message{Data: []byte(`{"op":"mcm","id":2,"ct":"SUB_IMAGE","initialClk":"ic1","clk":"c1","pt":1,"mc":[{"id":"1.1","img":true}]}`)}
	conn.messages <- Message{Data: []byte(`{"op":"mcm","id":2,"clk":"c2","pt":2,"mc":[{"id":"1.1","marketDefinition":{"status":"CLOSED"}}]}`)}

	received, err := c.drain(conn)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if !received {
		t.Error("drain should report received changes")
	}
	if c.initialClk != "ic1" || c.clk != "c2" {
		t.Errorf("clocks = %q/%q, want ic1/c2", c.initialClk, c.clk)
	}

	books := pub.books()
	if len(books) != 2 {
		t.Fatalf("published %d books, want 2", len(books))
	}
	if books[1].Status() != model.MarketStatusClosed {
		t.Errorf("last status = %s, want CLOSED", books[1].Status())
	}

	// Empty buffer returns immediately.
	received, err = c.drain(conn)
	if err != nil || received {
		t.Errorf("drain on empty buffer = %v, %v; want false, nil", received, err)
	}
}

func TestClient_StatusFailure(t *testing.T) {
	c := NewClient(DefaultConfig(), staticSession(""), &recordingPublisher{}, nil, nil)

	_, err := c.handle(Message{Data: []byte(`{"op":"status","id":1,"statusCode":"FAILURE","errorCode":"NO_SESSION","errorMessage":"session missing","connectionClosed":true}`)})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("handle error = %v, want *StatusError", err)
	}
	if statusErr.Code != "NO_SESSION" {
		t.Errorf("Code = %s, want NO_SESSION", statusErr.Code)
	}
}

func TestClient_HandleIgnoresUnknown(t *testing.T) {
	c := NewClient(DefaultConfig(), staticSession(""), &recordingPublisher{}, nil, nil)

	for _, data := range []string{`not json`, `{"op":"ocm"}`, `{"op":"connection","connectionId":"x"}`} {
		changed, err := c.handle(Message{Data: []byte(data)})
		if err != nil || changed {
			t.Errorf("handle(%s) = %v, %v; want false, nil", data, changed, err)
		}
	}
}

func TestClient_Messages(t *testing.T) {
	c := NewClient(testClientConfig("ws://unused"), staticSession("token-1"), &recordingPublisher{}, nil, nil)

	auth := c.authenticationMessage()
	if auth.Op != OpAuthentication || auth.AppKey != "app-key" || auth.Session != "token-1" || auth.ID != 1 {
		t.Errorf("authentication = %+v", auth)
	}

	sub := c.subscriptionMessage()
	if sub.ID != 2 {
		t.Errorf("subscription id = %d, want 2", sub.ID)
	}
	data, err := json.Marshal(sub)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"fields":["EX_ALL_OFFERS","EX_TRADED_VOL","EX_LTP","EX_MARKET_DEF"]`) {
		t.Errorf("subscription = %s", data)
	}
	if strings.Contains(string(data), "clk") {
		t.Errorf("fresh subscription should omit clocks: %s", data)
	}
}
