package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postforge/autoposter/internal/service"
	"github.com/postforge/autoposter/internal/transfer"
	"github.com/postforge/autoposter/pkg/utils"
)

type IdeaHandler struct {
	s service.IdeaService
}

func NewIdeaHandler(service service.IdeaService) *IdeaHandler {
	return &IdeaHandler{s: service}
}

func (h *IdeaHandler) CreateIdea(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.CreateIdeaRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ideaID, err := h.s.Create(c.Context(), userID, &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"idea_id": ideaID,
	})
}

func (h *IdeaHandler) ListIdeas(c *fiber.Ctx) error {
	userID := GetUserID(c)
	includeUsed := c.QueryBool("include_used", false)

	ideas, err := h.s.List(c.Context(), userID, includeUsed)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list ideas",
		})
	}

	return c.Status(fiber.StatusOK).JSON(ideas)
}

func (h *IdeaHandler) RemoveIdea(c *fiber.Ctx) error {
	userID := GetUserID(c)
	ideaID := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), userID, int64(ideaID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove idea",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
