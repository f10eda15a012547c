package decoder

import "encoding/json"

const (
	ResultText   = "text"
	ResultClause = "clause"
	ResultMixed  = "mixed"
)

const (
	PartText   = "text"
	PartFace   = "face"
	PartImage  = "image"
	PartAt     = "at"
	PartReply  = "reply"
	PartVideo  = "video"
	PartRecord = "record"
	PartJSON   = "json"
	PartMusic  = "music"
	PartShare  = "share"
)

// Result is the outgoing message: text and clause carry Content, mixed
// carries Messages.
type Result struct {
	Type     string
	Content  string
	Messages []Part
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Type == ResultMixed {
		return json.Marshal(struct {
			Type     string `json:"type"`
			Messages []Part `json:"messages"`
		}{r.Type, r.Messages})
	}

	return json.Marshal(struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}{r.Type, r.Content})
}

// Text flattens the result for transports without rich messages.
func (r Result) Text() string {
	if r.Type != ResultMixed {
		return r.Content
	}

	var buf []byte
	for _, p := range r.Messages {
		if p.Type == PartText {
			buf = append(buf, p.Content...)
		}
	}

	return string(buf)
}

// Part is one segment of a mixed message. Only the fields of its type are set.
type Part struct {
	Type    string
	Content string
	ID      string
	URL     string
	QQ      string
	Title   string
	Data    json.RawMessage
}

func (p Part) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case PartFace, PartReply:
		return json.Marshal(struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		}{p.Type, p.ID})
	case PartImage, PartVideo, PartRecord, PartShare:
		return json.Marshal(struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		}{p.Type, p.URL})
	case PartAt:
		return json.Marshal(struct {
			Type string `json:"type"`
			QQ   string `json:"qq"`
		}{p.Type, p.QQ})
	case PartJSON:
		return json.Marshal(struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}{p.Type, p.Data})
	case PartMusic:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Title string `json:"title"`
			URL   string `json:"url"`
		}{p.Type, p.Title, p.URL})
	default:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}{p.Type, p.Content})
	}
}
