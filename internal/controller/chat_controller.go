package controller

import (
	"ai-chatstream-be/internal/dto"
	"ai-chatstream-be/internal/pkg/serverutils"
	"ai-chatstream-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Modes(ctx *fiber.Ctx) error
	Snapshots(ctx *fiber.Ctx) error
	Record(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
	auth    fiber.Handler
}

func NewChatController(service service.IChatService, auth fiber.Handler) IChatController {
	return &chatController{service: service, auth: auth}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat")
	h.Get("/modes", c.Modes)

	history := h.Group("/history")
	if c.auth != nil {
		history.Use(c.auth)
	}
	history.Post("/snapshots", c.Snapshots)
	history.Post("/record", c.Record)
	history.Post("/delete", c.Delete)
}

func (c *chatController) Modes(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get chat modes", c.service.Modes(ctx.UserContext())))
}

func (c *chatController) Snapshots(ctx *fiber.Ctx) error {
	var req dto.UserNameRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Snapshots(ctx.UserContext(), req.UserName)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get history snapshots", res))
}

func (c *chatController) Record(ctx *fiber.Ctx) error {
	var req dto.SessionRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Record(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get history record", res))
}

func (c *chatController) Delete(ctx *fiber.Ctx) error {
	var req dto.SessionRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	if err := c.service.Delete(ctx.UserContext(), &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete history", nil))
}

// parseBody decodes and validates a JSON body. Decode failures are the
// client's fault and map to 400.
func parseBody(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return serverutils.ValidateRequest(out)
}
