package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postforge/autoposter/internal/service"
	"github.com/postforge/autoposter/internal/transfer"
	"github.com/postforge/autoposter/pkg/utils"
)

type TemplateHandler struct {
	s service.TemplateService
}

func NewTemplateHandler(service service.TemplateService) *TemplateHandler {
	return &TemplateHandler{s: service}
}

func (h *TemplateHandler) CreateTemplate(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.CreateTemplateRequest
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

	templateID, err := h.s.Create(c.Context(), userID, &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":     true,
		"template_id": templateID,
	})
}

func (h *TemplateHandler) ListTemplates(c *fiber.Ctx) error {
	userID := GetUserID(c)

	templates, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list templates",
		})
	}

	return c.Status(fiber.StatusOK).JSON(templates)
}

func (h *TemplateHandler) RemoveTemplate(c *fiber.Ctx) error {
	userID := GetUserID(c)
	templateID := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), userID, int64(templateID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove template",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
