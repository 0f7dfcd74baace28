package stream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/snekgrid/game"
	"github.com/brensch/snekgrid/sim"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newPortalSim is a 20x20 board with one snake that wraps through the right
// portal for its first goal and wins on turn 10.
func newPortalSim(t *testing.T, hub *Hub) *sim.Simulation {
	t.Helper()
	s, err := sim.New(sim.Setup{
		Width:  20,
		Height: 20,
		Goals:  []game.Point{{X: 3, Y: 10}, {X: 5, Y: 12}},
		Snakes: []sim.SnakeSetup{{ID: "me", Head: game.Point{X: 17, Y: 10}, Length: 3, Heading: game.Right}},
		Sink:   hub,
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("sim.New: %v", err)
	}
	return s
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func countKinds(cells []Cell) map[string]int {
	out := make(map[string]int)
	for _, c := range cells {
		out[c.Kind]++
	}
	return out
}

func TestHub_ServesInfoAndState(t *testing.T) {
	hub := NewHub("test", quietLogger())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	s := newPortalSim(t, hub)
	res, err := s.Run(context.Background(), sim.RunOptions{Observers: []sim.Observer{hub}})
	if err != nil || res.Outcome != sim.OutcomeWon {
		t.Fatalf("run=%+v err=%v", res, err)
	}

	var info Info
	getJSON(t, srv.URL+"/", &info)
	if info.Name != "test" || info.Width != 20 || info.Turn != 10 || !info.Finished || info.Outcome != "won" {
		t.Fatalf("info=%+v", info)
	}
	if len(info.Snakes) != 1 || info.Snakes[0] != "me" || info.Goals != 2 {
		t.Fatalf("info=%+v", info)
	}

	var key Frame
	getJSON(t, srv.URL+"/state", &key)
	if key.Type != "keyframe" || key.Turn != 10 || key.Eaten != 2 {
		t.Fatalf("keyframe=%+v", key)
	}
	kinds := countKinds(key.Cells)
	// 76 ring cells less the four portal gaps.
	if kinds["border"] != 72 || kinds["head"] != 1 || kinds["body"] != 2 || kinds["goal"] != 0 || kinds["empty"] != 0 {
		t.Fatalf("keyframe kinds=%v", kinds)
	}
	if len(key.Snakes) != 1 || key.Snakes[0].Body[0] != (XY{X: 5, Y: 12}) {
		t.Fatalf("keyframe snakes=%+v", key.Snakes)
	}

	resp, err := http.Post(srv.URL+"/state", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Fatalf("POST /state should not be routed")
	}
}

func TestHub_WebsocketFeed(t *testing.T) {
	hub := NewHub("test", quietLogger())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Info().Clients != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s := newPortalSim(t, hub)
	if _, err := s.Run(context.Background(), sim.RunOptions{Observers: []sim.Observer{hub}}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var frames []Frame
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read after %d frames: %v", len(frames), err)
		}
		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			t.Fatalf("decode: %v", err)
		}
		frames = append(frames, f)
		if f.Type == "finish" {
			break
		}
	}

	// keyframe, start, ten ticks, finish
	if len(frames) != 13 {
		t.Fatalf("frames=%d", len(frames))
	}
	if frames[0].Type != "keyframe" || len(frames[0].Cells) != 0 {
		t.Fatalf("first frame=%+v", frames[0])
	}
	start := countKinds(frames[1].Cells)
	if frames[1].Turn != 0 || start["border"] != 72 || start["goal"] != 1 || start["head"] != 1 || start["body"] != 2 {
		t.Fatalf("start frame kinds=%v", start)
	}

	wrap := frames[5]
	if wrap.Turn != 4 || wrap.Snakes[0].Body[0] != (XY{X: 1, Y: 10}) || wrap.Snakes[0].Class != "via_right" {
		t.Fatalf("wrap frame=%+v", wrap)
	}
	// Tail (18,10) reverts to empty, neck (20,10) becomes body, head at (1,10).
	want := map[Cell]bool{
		{X: 18, Y: 10, Kind: "empty"}: true,
		{X: 20, Y: 10, Kind: "body"}:  true,
		{X: 1, Y: 10, Kind: "head"}:   true,
	}
	if len(wrap.Cells) != len(want) {
		t.Fatalf("wrap cells=%+v", wrap.Cells)
	}
	for _, c := range wrap.Cells {
		if !want[c] {
			t.Fatalf("unexpected cell %+v in %+v", c, wrap.Cells)
		}
	}

	ate := frames[7]
	if ate.Turn != 6 || ate.Eaten != 1 || ate.Goal == nil || *ate.Goal != (XY{X: 5, Y: 12}) {
		t.Fatalf("goal frame=%+v", ate)
	}
	if countKinds(ate.Cells)["goal"] != 1 {
		t.Fatalf("next goal not painted: %+v", ate.Cells)
	}

	last := frames[12]
	if last.Outcome != "won" || last.Turn != 10 || last.Eaten != 2 {
		t.Fatalf("finish frame=%+v", last)
	}
}
