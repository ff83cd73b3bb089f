package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/postforge/autoposter/internal/service"
	"github.com/postforge/autoposter/internal/transfer"
)

// SweepHandler exposes the four batch passes to the external scheduler.
// Per-post failures are reported inside the result body; only a failure
// to assemble the candidate list produces a non-200.
type SweepHandler struct {
	planner   service.PlannerService
	generator service.GeneratorService
	cutoff    service.CutoffService
	publisher service.PublisherService
}

func NewSweepHandler(
	planner service.PlannerService,
	generator service.GeneratorService,
	cutoff service.CutoffService,
	publisher service.PublisherService,
) *SweepHandler {
	return &SweepHandler{
		planner:   planner,
		generator: generator,
		cutoff:    cutoff,
		publisher: publisher,
	}
}

func (h *SweepHandler) ScheduleSweep(c *fiber.Ctx) error {
	return h.run(c, h.planner.RunSweep)
}

func (h *SweepHandler) GenerateSweep(c *fiber.Ctx) error {
	return h.run(c, h.generator.RunSweep)
}

func (h *SweepHandler) CutoffSweep(c *fiber.Ctx) error {
	return h.run(c, h.cutoff.RunSweep)
}

func (h *SweepHandler) PublishSweep(c *fiber.Ctx) error {
	return h.run(c, h.publisher.RunSweep)
}

func (h *SweepHandler) run(c *fiber.Ctx, sweep func(context.Context) (*transfer.SweepResult, error)) error {
	result, err := sweep(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "sweep could not be started",
		})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
