package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-player-service/internal/app"
	"quiz-player-service/internal/domain"
	"quiz-player-service/internal/quiz"
)

// WSHandler drives one quiz session per connection. The browser sends player
// actions as typed JSON messages; every mutation answers with a fresh state
// view, so the client re-renders after each action.
type WSHandler struct {
	service  *app.PlayerService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.PlayerService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
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

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type pickPayload struct {
	Position int `json:"position"`
	Option   int `json:"option"` // original option index
}

type positionPayload struct {
	Position int `json:"position"`
}

type advancePayload struct {
	Delta int `json:"delta"`
}

type restartPayload struct {
	Reshuffle bool `json:"reshuffle"`
}

type subjectPayload struct {
	Subject string `json:"subject"`
}

type optionView struct {
	Index     int    `json:"index"` // what pick expects back
	Text      string `json:"text"`
	IsCorrect *bool  `json:"isCorrect,omitempty"` // revealed once answered
	Rationale string `json:"rationale,omitempty"` // revealed once answered
}

type questionView struct {
	Number  int          `json:"number"`
	Text    string       `json:"text"`
	HasHint bool         `json:"hasHint"`
	Options []optionView `json:"options"`
}

type stateView struct {
	ClientID string         `json:"clientId"`
	Subject  string         `json:"subject"`
	Position int            `json:"position"`
	Question questionView   `json:"question"`
	Answer   *domain.Answer `json:"answer,omitempty"`
	Viewed   []bool         `json:"viewed"`
	Report   quiz.Report    `json:"report"`
}

type hintView struct {
	Position int    `json:"position"`
	Hint     string `json:"hint"`
}

type bookmarksView struct {
	Subject   string `json:"subject"`
	Positions []int  `json:"positions"`
}

// ServeWS upgrades the request and runs the session message loop. A missing
// clientId gets a generated anonymous identity, echoed back in every state
// view so the browser can store it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	subject := r.URL.Query().Get("subject")
	if subject == "" {
		if subjects := h.service.Subjects(); len(subjects) > 0 {
			subject = subjects[0].ID
		}
	}
	if subject == "" {
		http.Error(w, "missing subject", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	ctx := r.Context()
	session, err := h.service.StartSession(ctx, clientID, subject)
	if err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		close(send)
		<-writerDone
		return
	}
	send <- h.stateMessage(clientID, subject, session)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		switch inbound.Type {
		case "pick":
			var p pickPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errMessage("invalid pick payload")
				continue
			}
			session, err = h.service.Pick(ctx, clientID, p.Position, p.Option)
			h.reply(send, clientID, subject, session, err)

		case "reveal":
			var p positionPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errMessage("invalid reveal payload")
				continue
			}
			session, err = h.service.Reveal(ctx, clientID, p.Position)
			h.reply(send, clientID, subject, session, err)

		case "advance":
			var p advancePayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errMessage("invalid advance payload")
				continue
			}
			session, err = h.service.Advance(ctx, clientID, p.Delta)
			h.reply(send, clientID, subject, session, err)

		case "jump":
			var p positionPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errMessage("invalid jump payload")
				continue
			}
			session, err = h.service.JumpTo(ctx, clientID, p.Position)
			h.reply(send, clientID, subject, session, err)

		case "restart":
			var p restartPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errMessage("invalid restart payload")
				continue
			}
			session, err = h.service.Restart(ctx, clientID, p.Reshuffle)
			h.reply(send, clientID, subject, session, err)

		case "submit":
			report, err := h.service.Submit(ctx, clientID)
			if err != nil {
				send <- errMessage(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "summary", Payload: report}

		case "reviewWrong":
			session, err = h.service.ReviewWrong(ctx, clientID)
			h.reply(send, clientID, subject, session, err)

		case "subject":
			var p subjectPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errMessage("invalid subject payload")
				continue
			}
			switched, err := h.service.StartSession(ctx, clientID, p.Subject)
			if err != nil {
				send <- errMessage(err.Error())
				continue
			}
			session, subject = switched, p.Subject
			send <- h.stateMessage(clientID, subject, session)

		case "bookmark":
			var p positionPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errMessage("invalid bookmark payload")
				continue
			}
			positions, err := h.service.ToggleBookmark(ctx, clientID, p.Position)
			if err != nil {
				send <- errMessage(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "bookmarks", Payload: bookmarksView{Subject: subject, Positions: positions}}

		case "hint":
			var p positionPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errMessage("invalid hint payload")
				continue
			}
			hint, err := h.service.UseHint(ctx, clientID, p.Position)
			if err != nil {
				send <- errMessage(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "hint", Payload: hintView{Position: p.Position, Hint: hint}}

		default:
			send <- errMessage("unsupported message type")
		}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) reply(send chan<- outboundMessage[any], clientID, subject string, session *quiz.Session, err error) {
	if err != nil {
		send <- errMessage(err.Error())
		return
	}
	send <- h.stateMessage(clientID, subject, session)
}

func (h *WSHandler) stateMessage(clientID, subject string, session *quiz.Session) outboundMessage[any] {
	return outboundMessage[any]{Type: "state", Payload: buildStateView(clientID, subject, session)}
}

func errMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// buildStateView renders the current question with options in display order.
// Correctness flags and rationales stay hidden until the position is
// answered.
func buildStateView(clientID, subject string, session *quiz.Session) stateView {
	pos := session.Position()
	view := stateView{
		ClientID: clientID,
		Subject:  subject,
		Position: pos,
		Viewed:   session.Viewed(),
		Report:   session.Report(),
	}
	q, ok := session.Question(pos)
	if !ok {
		return view
	}
	answer, answered := session.AnswerAt(pos)
	if answered {
		view.Answer = &answer
	}
	view.Question = questionView{
		Number:  pos + 1,
		Text:    q.Text,
		HasHint: q.Hint != "",
	}
	for _, opt := range session.DisplayOptions(pos) {
		ov := optionView{Index: opt.OriginalIndex, Text: opt.Option.Text}
		if answered {
			correct := opt.Option.IsCorrect
			ov.IsCorrect = &correct
			ov.Rationale = opt.Option.Rationale
		}
		view.Question.Options = append(view.Question.Options, ov)
	}
	return view
}
