package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"olympia-live-service/internal/app"
	"olympia-live-service/internal/domain"
	"olympia-live-service/internal/guard"
	"olympia-live-service/internal/scoring"
)

type WSHandler struct {
	service  *app.LiveService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.LiveService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roundPayload struct {
	RoundType string `json:"roundType"`
}

type questionPayload struct {
	QuestionID string `json:"questionId"`
}

type statePayload struct {
	State string `json:"state"`
}

type answerPayload struct {
	Text string `json:"text"`
}

type judgePayload struct {
	Kind             string   `json:"kind"` // khoi_dong | vcnv | ve_dich_main | ve_dich_steal | tang_toc
	AnswerID         string   `json:"answerId"`
	Correct          bool     `json:"correct"`
	TilesOpened      int      `json:"tilesOpened"`
	Value            int      `json:"value"`
	Decision         string   `json:"decision"`
	StarActive       bool     `json:"starActive"`
	MainAnswerID     string   `json:"mainAnswerId"`
	MainStarActive   bool     `json:"mainStarActive"`
	RoundQuestionID  string   `json:"roundQuestionId"`
	CorrectAnswerIDs []string `json:"correctAnswerIds"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrResolutionUnavailable):
		return "resolution_unavailable"
	default:
		return "internal"
	}
}

// ServeWS upgrades the request and wires the connection into the live match:
// inbound messages become service calls, and the committed change feed flows
// back out through this observer's own reconciliation guard.
//
// Clients connect with either ?sessionId= (host console) or ?code= (join
// code), plus role=host|contestant|spectator and, for contestants, a
// contestantId.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	role := r.URL.Query().Get("role")
	if role == "" {
		role = "spectator"
	}
	contestantID := r.URL.Query().Get("contestantId")

	var session domain.LiveSession
	var err error
	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
		session, err = h.service.Session(ctx, sessionID)
	} else if code := r.URL.Query().Get("code"); code != "" {
		session, err = h.service.SessionByCode(ctx, code)
	} else {
		http.Error(w, "missing sessionId or code", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.SubscribeChanges()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// The guard runs on this goroutine only; the subscription channel is the
	// single queue serializing this observer's feed.
	go func() {
		defer close(updatesDone)
		g := guard.New()
		g.SetActiveEntity(session.ID)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				disposition := g.Process(ev, func(applied domain.ChangeEvent) {
					select {
					case send <- outboundMessage[any]{Type: "change", Payload: applied}:
					case <-closeSignals:
					}
				})
				if disposition == guard.DroppedMalformed {
					log.Printf("ws feed: dropped malformed event %+v", ev)
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: session}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, &session, role, contestantID, inbound, send)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, session *domain.LiveSession, role, contestantID string, inbound inboundMessage, send chan<- outboundMessage[any]) {
	ctx := r.Context()

	fail := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: errorCode(err), Message: err.Error()}}
	}
	reply := func(msgType string, payload any) {
		send <- outboundMessage[any]{Type: msgType, Payload: payload}
	}

	switch inbound.Type {
	case "buzz", "steal", "answer":
		if contestantID == "" {
			fail(errors.New("contestantId required"))
			return
		}
	default:
		if role != "host" {
			fail(errors.New("host role required"))
			return
		}
	}

	switch inbound.Type {
	case "start":
		updated, err := h.service.StartSession(ctx, session.ID)
		if err != nil {
			fail(err)
			return
		}
		*session = updated
		reply("session", updated)
	case "setRound":
		var payload roundPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid round payload"))
			return
		}
		updated, err := h.service.AdvanceRound(ctx, session.ID, domain.RoundType(payload.RoundType))
		if err != nil {
			fail(err)
			return
		}
		*session = updated
		reply("session", updated)
	case "resumeRound":
		var payload roundPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid round payload"))
			return
		}
		updated, err := h.service.ResumeRound(ctx, session.ID, domain.RoundType(payload.RoundType))
		if err != nil {
			fail(err)
			return
		}
		*session = updated
		reply("session", updated)
	case "selectQuestion":
		var payload questionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid question payload"))
			return
		}
		updated, err := h.service.SelectQuestion(ctx, session.ID, payload.QuestionID)
		if err != nil {
			fail(err)
			return
		}
		*session = updated
		reply("session", updated)
	case "questionState":
		var payload statePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid state payload"))
			return
		}
		updated, err := h.service.SetQuestionState(ctx, session.ID, domain.QuestionState(payload.State))
		if err != nil {
			fail(err)
			return
		}
		*session = updated
		reply("session", updated)
	case "buzz":
		event, err := h.service.RecordBuzz(ctx, session.ID, contestantID)
		if err != nil {
			fail(err)
			return
		}
		reply("buzzAccepted", event)
	case "steal":
		event, err := h.service.RecordSteal(ctx, session.ID, contestantID)
		if err != nil {
			fail(err)
			return
		}
		reply("buzzAccepted", event)
	case "resetBuzzers":
		if _, err := h.service.ResetBuzzers(ctx, session.ID); err != nil {
			fail(err)
			return
		}
		reply("buzzersReset", struct{}{})
	case "winner":
		winner, err := h.service.BuzzerWinner(ctx, session.ID)
		if err != nil {
			fail(err)
			return
		}
		reply("winner", winner) // null payload when nobody is eligible
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid answer payload"))
			return
		}
		answer, err := h.service.SubmitAnswer(ctx, session.ID, contestantID, payload.Text)
		if err != nil {
			fail(err)
			return
		}
		reply("answerAccepted", answer)
	case "judge":
		h.judge(r, session.ID, inbound.Payload, fail, reply)
	case "scoreboard":
		board, err := h.service.Scoreboard(ctx, session.MatchID)
		if err != nil {
			fail(err)
			return
		}
		reply("scoreboard", board)
	case "end":
		updated, err := h.service.CloseRoom(ctx, session.ID)
		if err != nil {
			fail(err)
			return
		}
		*session = updated
		reply("session", updated)
	default:
		fail(errors.New("unsupported message type"))
	}
}

func (h *WSHandler) judge(r *http.Request, sessionID string, raw json.RawMessage, fail func(error), reply func(string, any)) {
	ctx := r.Context()

	var payload judgePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		fail(errors.New("invalid judge payload"))
		return
	}

	switch payload.Kind {
	case "khoi_dong":
		answer, err := h.service.JudgeKhoiDong(ctx, sessionID, payload.AnswerID, payload.Correct)
		if err != nil {
			fail(err)
			return
		}
		reply("judged", answer)
	case "vcnv":
		answer, err := h.service.JudgeVCNVFinal(ctx, sessionID, payload.AnswerID, payload.Correct, payload.TilesOpened)
		if err != nil {
			fail(err)
			return
		}
		reply("judged", answer)
	case "ve_dich_main":
		answer, err := h.service.JudgeVeDichMain(ctx, sessionID, payload.AnswerID, payload.Value, scoring.Decision(payload.Decision), payload.StarActive)
		if err != nil {
			fail(err)
			return
		}
		reply("judged", answer)
	case "ve_dich_steal":
		steal, main, err := h.service.JudgeVeDichSteal(ctx, sessionID, payload.AnswerID, payload.MainAnswerID, payload.Value, scoring.Decision(payload.Decision), payload.MainStarActive)
		if err != nil {
			fail(err)
			return
		}
		reply("judged", steal)
		reply("judged", main)
	case "tang_toc":
		judged, err := h.service.JudgeTangToc(ctx, sessionID, payload.RoundQuestionID, payload.CorrectAnswerIDs)
		if err != nil {
			fail(err)
			return
		}
		reply("judgedBatch", judged)
	default:
		fail(errors.New("unsupported judge kind"))
	}
}
