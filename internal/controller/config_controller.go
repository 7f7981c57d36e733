package controller

import (
	"ai-chatstream-be/internal/constant"
	"ai-chatstream-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type IConfigController interface {
	RegisterRoutes(r fiber.Router)
	Command(ctx *fiber.Ctx) error
}

type configController struct{}

func NewConfigController() IConfigController {
	return &configController{}
}

func (c *configController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/config")
	h.Get("/command", c.Command)
}

// Command publishes the stream control tokens so clients never hardcode them.
func (c *configController) Command(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get command config", constant.CommandConfig()))
}
