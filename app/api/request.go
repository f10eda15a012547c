package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"vankeyword/app/service/session"
)

// FlexID accepts ids sent either as JSON numbers or strings. Zero counts as
// absent.
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or a string: %w", err)
	}
	if n.String() == "0" {
		*id = ""
		return nil
	}

	*id = FlexID(n.String())

	return nil
}

func (id FlexID) String() string {
	return string(id)
}

// Template is either a plain template or the slot array returned by a
// variable match.
type Template struct {
	Text  string
	Slots []string
}

func (t *Template) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &t.Slots)
	}

	return json.Unmarshal(data, &t.Text)
}

type Request struct {
	Action  string `json:"action" validate:"required"`
	Token   string `json:"token"`
	BotID   FlexID `json:"botid"`
	UserID  FlexID `json:"userid"`
	GroupID FlexID `json:"groupid"`

	Msg     string   `json:"msg"`
	Text    Template `json:"text"`
	Keyword string   `json:"keyword"`
	Reply   string   `json:"reply"`
	Mode    *int     `json:"mode"`

	LexiconID  int        `json:"lexicon_id" validate:"min=0"`
	LexiconN   int        `json:"lexicon_n" validate:"min=0"`
	CoolConfig *bool      `json:"cool_config"`
	EventData  *EventData `json:"event_data"`

	AdminID FlexID `json:"admin_id"`
}

type EventData struct {
	UserID    FlexID  `json:"user_id"`
	GroupID   FlexID  `json:"group_id"`
	SelfID    FlexID  `json:"self_id"`
	TargetID  FlexID  `json:"target_id"`
	MessageID FlexID  `json:"message_id"`
	Sender    *Sender `json:"sender"`
}

type Sender struct {
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
}

func (r *Request) session() session.Session {
	sess := session.Session{
		BotID:    r.BotID.String(),
		CallerID: r.UserID.String(),
		ChatID:   r.GroupID.String(),
	}

	if ev := r.EventData; ev != nil {
		sess.Event = session.Event{
			UserID:    ev.UserID.String(),
			GroupID:   ev.GroupID.String(),
			SelfID:    ev.SelfID.String(),
			TargetID:  ev.TargetID.String(),
			MessageID: ev.MessageID.String(),
		}
		if ev.Sender != nil {
			sess.Event.Nickname = ev.Sender.Nickname
			sess.Event.Card = ev.Sender.Card
		}
	}

	return sess
}

func (r *Request) cooldown() bool {
	return r.CoolConfig == nil || *r.CoolConfig
}
