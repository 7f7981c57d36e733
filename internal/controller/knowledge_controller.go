package controller

import (
	"ai-chatstream-be/internal/dto"
	"ai-chatstream-be/internal/pkg/serverutils"
	"ai-chatstream-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IKnowledgeController interface {
	RegisterRoutes(r fiber.Router)
	QueryAll(ctx *fiber.Ctx) error
	QueryChunksByFileId(ctx *fiber.Ctx) error
	QueryMatchChunks(ctx *fiber.Ctx) error
	Ingest(ctx *fiber.Ctx) error
}

type knowledgeController struct {
	service service.IKnowledgeService
}

func NewKnowledgeController(service service.IKnowledgeService) IKnowledgeController {
	return &knowledgeController{service: service}
}

func (c *knowledgeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/rag")
	h.Post("/knowledge/query_all", c.QueryAll)
	h.Post("/knowledge/query_all_chunk_by_file_id", c.QueryChunksByFileId)
	h.Post("/knowledge/ingest", c.Ingest)
	h.Post("/vector/query_match_chunk", c.QueryMatchChunks)
}

func (c *knowledgeController) QueryAll(ctx *fiber.Ctx) error {
	var req dto.UserNameRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.QueryAll(ctx.UserContext(), req.UserName)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get knowledge", res))
}

func (c *knowledgeController) QueryChunksByFileId(ctx *fiber.Ctx) error {
	var req dto.FileIdRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.QueryChunksByFileId(ctx.UserContext(), req.FileId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get knowledge chunks", res))
}

func (c *knowledgeController) QueryMatchChunks(ctx *fiber.Ctx) error {
	var req dto.FileIdChunkRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.QueryMatchChunks(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success match chunks", res))
}

func (c *knowledgeController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestKnowledgeRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Ingest(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Knowledge ingestion queued", res))
}
