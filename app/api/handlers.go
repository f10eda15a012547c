package api

import (
	"errors"
	"vankeyword/app/service/engine"
	"vankeyword/app/service/lexicon"

	"github.com/gofiber/fiber/v2"
)

type actionHandler func(c *fiber.Ctx, req *Request) (fiber.Map, error)

func (s *Server) actions() map[string]actionHandler {
	return map[string]actionHandler{
		"query":        s.query,
		"respond":      s.respond,
		"decode":       s.decode,
		"transcode":    s.transcode,
		"add":          s.add,
		"remove":       s.remove,
		"add_r":        s.addResponse,
		"remove_r":     s.removeResponse,
		"get_config":   s.getConfig,
		"search":       s.search,
		"list":         s.list,
		"count":        s.count,
		"test":         s.test,
		"admin_add":    s.adminAdd,
		"admin_remove": s.adminRemove,
		"admin_list":   s.adminList,
	}
}

func (s *Server) handleKeyword(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validate.Struct(&req); err != nil {
		return err
	}

	if req.Token != "" && !s.tokenMatches(req.Token) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or missing token")
	}

	handler, ok := s.actions()[req.Action]
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "unknown action: "+req.Action)
	}

	body, err := handler(c, &req)
	if err != nil {
		return err
	}

	if _, set := body["success"]; !set {
		body["success"] = true
	}
	body["action"] = req.Action
	body["timestamp"] = timestamp()

	return c.JSON(body)
}

func (s *Server) query(c *fiber.Ctx, req *Request) (fiber.Map, error) {
	res, err := s.engine.Query(c.UserContext(), req.session(), req.Msg)
	if err != nil {
		return nil, err
	}

	return fiber.Map{
		"found":       res.Found,
		"reply":       res.Reply,
		"keyword":     res.Keyword,
		"mode":        res.Mode,
		"scope":       res.Scope,
		"entry_id":    res.EntryID,
		"entry_count": res.Count,
		"slots":       res.Slots,
	}, nil
}

func (s *Server) respond(c *fiber.Ctx, req *Request) (fiber.Map, error) {
	res, err := s.engine.Respond(c.UserContext(), req.session(), req.Msg, req.cooldown())
	if err != nil {
		return nil, err
	}

	return fiber.Map{
		"found":  res.Match.Found,
		"match":  res.Match,
		"result": res.Result,
	}, nil
}

func (s *Server) decode(c *fiber.Ctx, req *Request) (fiber.Map, error) {
	res, err := s.engine.Decode(c.UserContext(), engine.DecodeRequest{
		Session:    req.session(),
		Text:       req.Text.Text,
		Slots:      req.Text.Slots,
		EntryID:    req.LexiconID,
		EntryCount: req.LexiconN,
		Cooldown:   req.cooldown(),
	})
	if err != nil {
		return nil, err
	}

	return fiber.Map{"result": res}, nil
}

func (s *Server) transcode(_ *fiber.Ctx, req *Request) (fiber.Map, error) {
	return fiber.Map{
		"original":   req.Text.Text,
		"transcoded": s.engine.Transcode(req.Text.Text),
	}, nil
}

func (s *Server) add(c *fiber.Ctx, req *Request) (fiber.Map, error) {
	mode := lexicon.ModeExact
	if req.Mode != nil {
		mode = lexicon.Mode(*req.Mode)
	}

	err := s.engine.Add(c.UserContext(), req.session(), req.Keyword, req.Reply, mode)
	if errors.Is(err, lexicon.ErrDuplicate) {
		return fiber.Map{
			"success": false,
			"message": lexicon.ErrDuplicate.Error(),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return fiber.Map{
		"message": "keyword added",
		"keyword": req.Keyword,
		"mode":    int(mode),
	}, nil
}

func (s *Server) remove(c *fiber.Ctx, req *Request) (fiber.Map, error) {
	if err := s.engine.Remove(c.UserContext(), req.session(), req.Keyword); err != nil {
		return nil, err
	}

	return fiber.Map{"message": "keyword removed", "keyword": req.Keyword}, nil
}

func (s *Server) addResponse(c *fiber.Ctx, req *Request) (fiber.Map, error) {
	if err := s.engine.AddResponse(c.UserContext(), req.session(), req.Keyword, req.Reply); err != nil {
		return nil, err
	}

	return fiber.Map{"message": "reply added", "keyword": req.Keyword}, nil
}

func (s *Server) removeResponse(c *fiber.Ctx, req *Request) (fiber.Map, error) {
	if err := s.engine.RemoveResponse(c.UserContext(), req.session(), req.Keyword, req.Reply); err != nil {
		return nil, err
	}

	return fiber.Map{"message": "reply removed", "keyword": req.Keyword}, nil
}

func (s *Server) getConfig(c *fiber.Ctx, req *Request) (fiber.Map, error) {
	commands, err := s.engine.Config(c.UserContext(), req.session())
	if err != nil {
		return nil, err
	}

	return fiber.Map{"config": commands}, nil
}

func (s *Server) search(c *fiber.Ctx, req *Request) (fiber.Map, error) {
	found, err := s.engine.Search(c.UserContext(), req.session(), req.Keyword)
	if err != nil {
		return nil, err
	}

	return fiber.Map{
		"keyword": req.Keyword,
		"results": found,
		"count":   len(found),
	}, nil
}

func (s *Server) list(c *fiber.Ctx, req *Request) (fiber.Map, error) {
	items, total, err := s.engine.List(c.UserContext(), req.session())
	if err != nil {
		return nil, err
	}

	return fiber.Map{
		"items": items,
		"count": len(items),
		"total": total,
	}, nil
}

func (s *Server) count(c *fiber.Ctx, req *Request) (fiber.Map, error) {
	keywords, replies, err := s.engine.Count(c.UserContext(), req.session())
	if err != nil {
		return nil, err
	}

	return fiber.Map{
		"keyword_count": keywords,
		"reply_count":   replies,
	}, nil
}

func (s *Server) test(_ *fiber.Ctx, _ *Request) (fiber.Map, error) {
	return fiber.Map{
		"message":  "API server is running",
		"version":  Version,
		"features": features,
	}, nil
}

func (s *Server) adminAdd(_ *fiber.Ctx, req *Request) (fiber.Map, error) {
	added, err := s.engine.AdminAdd(req.AdminID.String())
	if err != nil {
		return nil, err
	}

	return fiber.Map{"added": added, "admins": s.engine.AdminList()}, nil
}

func (s *Server) adminRemove(_ *fiber.Ctx, req *Request) (fiber.Map, error) {
	removed, err := s.engine.AdminRemove(req.AdminID.String())
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, fiber.NewError(fiber.StatusNotFound, "admin not found")
	}

	return fiber.Map{"removed": removed, "admins": s.engine.AdminList()}, nil
}

func (s *Server) adminList(_ *fiber.Ctx, _ *Request) (fiber.Map, error) {
	return fiber.Map{"admins": s.engine.AdminList()}, nil
}
