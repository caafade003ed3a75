package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"olympia-live-service/internal/app"
	"olympia-live-service/internal/domain"
	"olympia-live-service/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.LiveService) {
	t.Helper()
	ctx := context.Background()
	seats := memory.NewSeatStore()
	_ = seats.Assign(ctx, "m1", 1, "c1", "An")
	_ = seats.Assign(ctx, "m1", 2, "c2", "Binh")

	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(map[string]domain.RoundQuestion{
		"kd1": {ID: "kd1", MatchID: "m1", RoundType: domain.RoundKhoiDong, OrderIndex: 1, Prompt: "2+2?"},
	}), time.Minute)

	service := app.NewLiveService(app.Deps{
		Sessions:  memory.NewSessionStore(),
		Events:    memory.NewEventStore(),
		Questions: questions,
		Seats:     seats,
	})

	mux := http.NewServeMux()
	wsHandler := NewWSHandler(service)
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", query, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until one of the wanted type arrives, skipping
// interleaved feed events.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", want, err)
		}
		if msg.Type == "error" {
			t.Fatalf("got error waiting for %s: %+v", want, msg.Payload)
		}
		if msg.Type == want {
			return msg.Payload
		}
	}
	t.Fatalf("never received %s", want)
	return nil
}

func TestHostDrivesMatchOverWebSocket(t *testing.T) {
	server, service := newTestServer(t)
	ctx := context.Background()

	session, err := service.OpenRoom(ctx, "m1")
	if err != nil {
		t.Fatalf("open room: %v", err)
	}

	host := dial(t, server, "sessionId="+session.ID+"&role=host")
	readUntil(t, host, "session")

	writeMsg(t, host, "start", nil)
	readUntil(t, host, "session")

	writeMsg(t, host, "setRound", map[string]any{"roundType": "khoi_dong"})
	readUntil(t, host, "session")

	writeMsg(t, host, "selectQuestion", map[string]any{"questionId": "kd1"})
	readUntil(t, host, "session")

	writeMsg(t, host, "questionState", map[string]any{"state": "showing"})
	payload := readUntil(t, host, "session")
	if payload["currentQuestionState"] != "showing" {
		t.Fatalf("expected showing question, got %+v", payload)
	}
}

func TestContestantBuzzAndAnswerFlow(t *testing.T) {
	server, service := newTestServer(t)
	ctx := context.Background()

	session, _ := service.OpenRoom(ctx, "m1")
	_, _ = service.StartSession(ctx, session.ID)
	_, _ = service.AdvanceRound(ctx, session.ID, domain.RoundKhoiDong)
	_, _ = service.SelectQuestion(ctx, session.ID, "kd1")
	_, _ = service.SetQuestionState(ctx, session.ID, domain.QuestionShowing)

	contestant := dial(t, server, "code="+session.AccessCode+"&role=contestant&contestantId=c1")
	readUntil(t, contestant, "session")

	writeMsg(t, contestant, "buzz", nil)
	readUntil(t, contestant, "buzzAccepted")

	writeMsg(t, contestant, "answer", map[string]any{"text": "4"})
	accepted := readUntil(t, contestant, "answerAccepted")
	answerID, _ := accepted["id"].(string)
	if answerID == "" {
		t.Fatalf("expected answer id, got %+v", accepted)
	}

	host := dial(t, server, "sessionId="+session.ID+"&role=host")
	readUntil(t, host, "session")

	writeMsg(t, host, "winner", nil)
	winner := readUntil(t, host, "winner")
	if winner["contestantId"] != "c1" {
		t.Fatalf("expected c1 winner, got %+v", winner)
	}

	writeMsg(t, host, "judge", map[string]any{"kind": "khoi_dong", "answerId": answerID, "correct": true})
	readUntil(t, host, "judged")

	writeMsg(t, host, "scoreboard", nil)
	board := readUntil(t, host, "scoreboard")
	entries, _ := board["entries"].([]any)
	if len(entries) != 2 {
		t.Fatalf("expected 2 seats, got %+v", board)
	}
	first, _ := entries[0].(map[string]any)
	if first["total"] != float64(10) {
		t.Fatalf("expected c1 on 10 points, got %+v", first)
	}
}

func TestObserverFeedIsGuardedPerConnection(t *testing.T) {
	server, service := newTestServer(t)
	ctx := context.Background()

	session, _ := service.OpenRoom(ctx, "m1")

	spectator := dial(t, server, "sessionId="+session.ID+"&role=spectator")
	readUntil(t, spectator, "session")

	// A host mutation reaches the spectator exactly once as a change event.
	_, err := service.StartSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	change := readUntil(t, spectator, "change")
	if change["type"] != "session.started" || change["entityId"] != session.ID {
		t.Fatalf("unexpected change event: %+v", change)
	}

	// Spectators cannot issue host commands.
	writeMsg(t, spectator, "end", nil)
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = spectator.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := spectator.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "error" {
		t.Fatalf("expected error for spectator command, got %+v", msg)
	}
}

func writeMsg(t *testing.T, conn *websocket.Conn, msgType string, payload map[string]any) {
	t.Helper()
	msg := map[string]any{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}
