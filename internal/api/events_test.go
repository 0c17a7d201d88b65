package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reelcut/reelcut-agent/internal/render"
)

func dialEvents(t *testing.T, env *testEnv, projectID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") +
		"/projects/" + projectID + "/events?token=" + testToken
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEventsStreamRenderProgress(t *testing.T) {
	env := setupAPI(t)
	a := env.registerAsset(t)
	p := env.createProject(t, "Streamed")

	resp := env.do(t, http.MethodPost, "/projects/"+p.ID+"/clips", ClipOpRequest{
		Op: "add", SourceID: a.ID, Start: 0, End: 4,
	})
	resp.Body.Close()

	conn := dialEvents(t, env, p.ID)

	var ack render.Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&ack); err != nil || ack.Status != StatusSubscribed {
		t.Fatalf("subscription ack = %+v, err = %v", ack, err)
	}

	resp = env.do(t, http.MethodPost, "/projects/"+p.ID+"/render", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start render status = %d", resp.StatusCode)
	}

	var last render.Event
	var progresses []int
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		var ev render.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v (last = %+v)", err, last)
		}
		if ev.ProjectID != p.ID {
			t.Fatalf("event for wrong project: %+v", ev)
		}
		progresses = append(progresses, ev.Progress)
		last = ev
		if ev.Status != render.StatusRunning {
			break
		}
	}

	if last.Status != render.StatusCompleted {
		t.Fatalf("terminal event = %+v, want completed", last)
	}
	if last.OutputPath == "" {
		t.Error("completed event missing output path")
	}
	for i := 1; i < len(progresses); i++ {
		if progresses[i] < progresses[i-1] {
			t.Fatalf("progress decreased: %v", progresses)
		}
	}
}

func TestEventsUnknownProject(t *testing.T) {
	env := setupAPI(t)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") +
		"/projects/missing/events?token=" + testToken
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial should fail for unknown project")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("handshake response = %+v, want 404", resp)
	}
}

func TestEventsRequireToken(t *testing.T) {
	env := setupAPI(t)
	p := env.createProject(t, "Private")

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") +
		"/projects/" + p.ID + "/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial should fail without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response = %+v, want 401", resp)
	}
}
