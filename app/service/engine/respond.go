package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"vankeyword/app/service/decoder"
	"vankeyword/app/service/session"
)

type QueryResult struct {
	Found   bool     `json:"found"`
	Reply   string   `json:"reply"`
	Keyword string   `json:"keyword,omitempty"`
	Mode    string   `json:"mode,omitempty"`
	Scope   string   `json:"scope,omitempty"`
	EntryID int      `json:"entry_id,omitempty"`
	Count   int      `json:"entry_count,omitempty"`
	Slots   []string `json:"slots,omitempty"`

	cooldownScope string
}

type Response struct {
	Match  *QueryResult    `json:"match"`
	Result *decoder.Result `json:"result,omitempty"`
}

// DecodeRequest expands a template outside of a match.
type DecodeRequest struct {
	Session    session.Session
	Text       string
	Slots      []string
	EntryID    int
	EntryCount int
	Cooldown   bool
}

// Query transcodes message, matches it against the caller's scope chain and
// picks a response. Slots are substituted into the reply but no other
// directive is expanded.
func (s *Service) Query(ctx context.Context, sess session.Session, message string) (*QueryResult, error) {
	sess, chain, err := s.prepare(ctx, sess)
	if err != nil {
		return nil, err
	}

	return s.query(ctx, sess, chain, message)
}

func (s *Service) query(ctx context.Context, sess session.Session, chain session.Chain, message string) (*QueryResult, error) {
	input := s.Transcode(message)

	m, err := s.lexiconSvc.Match(ctx, sess.BotID, chain.Scopes(), input, sess.Admin)
	if err != nil {
		return nil, err
	}
	if m == nil {
		slog.Debug("No keyword matched", "bot", sess.BotID, "caller", sess.CallerID, "input", input)
		return &QueryResult{}, nil
	}

	response := s.selector.Pick(ctx, sess.BotID, chain.Override, m.Entry)

	result := &QueryResult{
		Found:         true,
		Reply:         response,
		Keyword:       m.Entry.Keyword,
		Mode:          m.Entry.Mode.String(),
		Scope:         m.Scope,
		EntryID:       m.EntryID,
		Count:         m.EntryCount,
		cooldownScope: sess.CooldownScope(chain),
	}

	if m.Slots != nil {
		result.Slots = slices.Clone(m.Slots)
		result.Slots[0] = response
		result.Reply = fillSlots(response, result.Slots)
	}

	slog.Info("Query matched",
		"bot", sess.BotID,
		"caller", sess.CallerID,
		"scope", m.Scope,
		"keyword", m.Entry.Keyword)

	return result, nil
}

func fillSlots(text string, slots []string) string {
	for i := 1; i < len(slots); i++ {
		text = strings.ReplaceAll(text, fmt.Sprintf("[n.%d]", i), slots[i])
	}

	return text
}

// Respond runs the whole pipeline: match, pick and expand. Result is nil
// when nothing matched.
func (s *Service) Respond(ctx context.Context, sess session.Session, message string, cooldown bool) (*Response, error) {
	sess, chain, err := s.prepare(ctx, sess)
	if err != nil {
		return nil, err
	}

	match, err := s.query(ctx, sess, chain, message)
	if err != nil {
		return nil, err
	}
	if !match.Found {
		return &Response{Match: match}, nil
	}

	result := s.decoderSvc.Decode(ctx, decoder.Request{
		Template:      match.Reply,
		Slots:         match.Slots,
		Session:       sess,
		Scope:         chain.Active,
		CooldownScope: match.cooldownScope,
		EntryID:       match.EntryID,
		EntryCount:    match.Count,
		Cooldown:      cooldown,
	})

	return &Response{Match: match, Result: &result}, nil
}

// Decode expands a template for the caller without matching.
func (s *Service) Decode(ctx context.Context, req DecodeRequest) (*decoder.Result, error) {
	sess, chain, err := s.prepare(ctx, req.Session)
	if err != nil {
		return nil, err
	}

	if req.Text == "" && len(req.Slots) == 0 {
		return nil, required("text", "")
	}

	result := s.decoderSvc.Decode(ctx, decoder.Request{
		Template:      req.Text,
		Slots:         req.Slots,
		Session:       sess,
		Scope:         chain.Active,
		CooldownScope: sess.CooldownScope(chain),
		EntryID:       req.EntryID,
		EntryCount:    req.EntryCount,
		Cooldown:      req.Cooldown,
	})

	return &result, nil
}
