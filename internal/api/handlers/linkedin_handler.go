package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	config "github.com/postforge/autoposter/configs"
	"github.com/postforge/autoposter/internal/service"
	"github.com/postforge/autoposter/pkg/utils"
)

type LinkedinHandler struct {
	s   service.LinkedinService
	cfg config.Config
}

func NewLinkedinHandler(cfg config.Config, service service.LinkedinService) *LinkedinHandler {
	return &LinkedinHandler{s: service, cfg: cfg}
}

func (h *LinkedinHandler) ConnectLinkedin(c *fiber.Ctx) error {
	sessionToken := c.Cookies(h.cfg.CookieName)
	if sessionToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing session cookie",
		})
	}

	return c.Redirect(h.s.GetAuthURL(sessionToken))
}

func (h *LinkedinHandler) LinkedinCallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")

	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	if err := h.s.LinkedinCallback(c.Context(), code, userID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	return c.Redirect(fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL), fiber.StatusTemporaryRedirect)
}

func (h *LinkedinHandler) Disconnect(c *fiber.Ctx) error {
	userID := GetUserID(c)

	if err := h.s.Disconnect(c.Context(), userID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}
