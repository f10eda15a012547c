package engine

import (
	"context"
	"vankeyword/app/service/lexicon"
	"vankeyword/app/service/session"

	"github.com/samber/oops"
)

// Add teaches a keyword in the caller's active scope. An existing keyword
// yields lexicon.ErrDuplicate.
func (s *Service) Add(ctx context.Context, sess session.Session, keyword, reply string, mode lexicon.Mode) error {
	if err := required("keyword", keyword, "reply", reply); err != nil {
		return err
	}
	if !mode.Valid() {
		return oops.In("engine").With("mode", int(mode)).Wrapf(ErrValidation, "unknown mode")
	}

	sess, chain, err := s.prepare(ctx, sess)
	if err != nil {
		return err
	}

	return s.lexiconSvc.Add(ctx, sess.BotID, chain.Active, s.normalize(keyword), s.normalize(reply), mode)
}

func (s *Service) Remove(ctx context.Context, sess session.Session, keyword string) error {
	if err := required("keyword", keyword); err != nil {
		return err
	}

	sess, chain, err := s.prepare(ctx, sess)
	if err != nil {
		return err
	}

	return s.lexiconSvc.Remove(ctx, sess.BotID, chain.Active, keyword)
}

func (s *Service) AddResponse(ctx context.Context, sess session.Session, keyword, reply string) error {
	if err := required("keyword", keyword, "reply", reply); err != nil {
		return err
	}

	sess, chain, err := s.prepare(ctx, sess)
	if err != nil {
		return err
	}

	return s.lexiconSvc.AddResponse(ctx, sess.BotID, chain.Active, keyword, s.normalize(reply))
}

func (s *Service) RemoveResponse(ctx context.Context, sess session.Session, keyword, reply string) error {
	if err := required("keyword", keyword, "reply", reply); err != nil {
		return err
	}

	sess, chain, err := s.prepare(ctx, sess)
	if err != nil {
		return err
	}

	return s.lexiconSvc.RemoveResponse(ctx, sess.BotID, chain.Active, keyword, reply)
}

// List returns at most ListLimit entries of the active scope and their total.
func (s *Service) List(ctx context.Context, sess session.Session) (items []lexicon.Listing, total int, err error) {
	sess, chain, err := s.prepare(ctx, sess)
	if err != nil {
		return nil, 0, err
	}

	all, err := s.lexiconSvc.List(ctx, sess.BotID, chain.Active)
	if err != nil {
		return nil, 0, err
	}

	return all[:min(len(all), ListLimit)], len(all), nil
}

func (s *Service) Search(ctx context.Context, sess session.Session, fragment string) ([]lexicon.Listing, error) {
	if err := required("keyword", fragment); err != nil {
		return nil, err
	}

	sess, chain, err := s.prepare(ctx, sess)
	if err != nil {
		return nil, err
	}

	return s.lexiconSvc.Search(ctx, sess.BotID, chain.Active, fragment)
}

func (s *Service) Count(ctx context.Context, sess session.Session) (keywords int, replies int, err error) {
	sess, chain, err := s.prepare(ctx, sess)
	if err != nil {
		return 0, 0, err
	}

	return s.lexiconSvc.Count(ctx, sess.BotID, chain.Active)
}

// Config returns the command words overridden by the active scope config.
func (s *Service) Config(ctx context.Context, sess session.Session) (map[string]string, error) {
	sess, chain, err := s.prepare(ctx, sess)
	if err != nil {
		return nil, err
	}

	return s.settingsSvc.Commands(ctx, sess.BotID, chain.Active)
}

func (s *Service) AdminAdd(id string) (bool, error) {
	if err := required("admin id", id); err != nil {
		return false, err
	}

	return s.adminSvc.Add(id)
}

func (s *Service) AdminRemove(id string) (bool, error) {
	if err := required("admin id", id); err != nil {
		return false, err
	}

	return s.adminSvc.Remove(id)
}

func (s *Service) AdminList() []string {
	return s.adminSvc.List()
}
