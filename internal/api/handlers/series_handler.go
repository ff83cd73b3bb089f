package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postforge/autoposter/internal/service"
	"github.com/postforge/autoposter/internal/transfer"
	"github.com/postforge/autoposter/pkg/utils"
)

type SeriesHandler struct {
	s service.SeriesService
}

func NewSeriesHandler(service service.SeriesService) *SeriesHandler {
	return &SeriesHandler{s: service}
}

func (h *SeriesHandler) CreateSeries(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.CreateSeriesRequest
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

	seriesID, err := h.s.Create(c.Context(), userID, &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":   true,
		"series_id": seriesID,
	})
}

func (h *SeriesHandler) ListSeries(c *fiber.Ctx) error {
	userID := GetUserID(c)
	seriesID := c.QueryInt("id", 0)

	if seriesID != 0 {
		series, err := h.s.SeriesInfo(c.Context(), userID, int64(seriesID))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to list series",
			})
		}

		return c.Status(fiber.StatusOK).JSON(series)
	}

	series, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list series",
		})
	}

	return c.Status(fiber.StatusOK).JSON(series)
}

func (h *SeriesHandler) UpdateSeries(c *fiber.Ctx) error {
	userID := GetUserID(c)
	seriesID := c.QueryInt("id", 0)

	var req transfer.CreateSeriesRequest
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

	if err := h.s.Update(c.Context(), userID, int64(seriesID), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}

func (h *SeriesHandler) RemoveSeries(c *fiber.Ctx) error {
	userID := GetUserID(c)
	seriesID := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), userID, int64(seriesID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove series",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
