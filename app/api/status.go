package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

var features = []string{
	"keyword matching: exact, fuzzy, [n.1] variables",
	"context variables [qq], [name], [群号]",
	"time variables (Y), (M), (D), (h), (m), (s)",
	"arithmetic (+1+2)",
	"random numbers (1-100)",
	"cooldowns (60~)",
	"conditions {a>b}",
	"rich messages [image], [face], [at]",
	"CQ code transcoding",
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":    "vankeyword",
		"version": Version,
		"status":  "running",
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"storage":   s.cfg.Storage.Driver,
		"admins":    len(s.engine.AdminList()),
		"timestamp": timestamp(),
	})
}

func (s *Server) handleExamples(c *fiber.Ctx) error {
	url := "http://" + s.cfg.Server.Listen + "/api/v1/keyword"

	example := func(body fiber.Map) fiber.Map {
		return fiber.Map{
			"method": fiber.MethodPost,
			"url":    url,
			"headers": fiber.Map{
				fiber.HeaderAuthorization: "Bearer <token>",
				fiber.HeaderContentType:   fiber.MIMEApplicationJSON,
			},
			"body": body,
		}
	}

	return c.JSON(fiber.Map{
		"examples": fiber.Map{
			"query": example(fiber.Map{
				"action":  "query",
				"botid":   123456,
				"userid":  789012,
				"groupid": 987654,
				"msg":     "你好",
			}),
			"respond": example(fiber.Map{
				"action":  "respond",
				"botid":   123456,
				"userid":  789012,
				"groupid": 987654,
				"msg":     "你好",
			}),
			"decode": example(fiber.Map{
				"action": "decode",
				"botid":  123456,
				"userid": 789012,
				"text":   "现在是(Y)年(M)月(D)日 (h):(m):(s)",
				"event_data": fiber.Map{
					"user_id":    789012,
					"group_id":   987654,
					"self_id":    123456,
					"message_id": 123456789,
				},
			}),
			"add": example(fiber.Map{
				"action":  "add",
				"botid":   123456,
				"userid":  789012,
				"keyword": "测试",
				"reply":   "这是一个测试回复",
				"mode":    1,
			}),
		},
	})
}
