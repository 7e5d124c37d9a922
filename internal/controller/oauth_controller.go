package controller

import (
	"fmt"

	"ai-agenthub-be/internal/config"
	"ai-agenthub-be/internal/pkg/serverutils"
	"ai-agenthub-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IOAuthController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	Callback(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
}

type oauthController struct {
	service   service.IOAuthService
	clientURL string
}

func NewOAuthController(cfg *config.Config, service service.IOAuthService) IOAuthController {
	return &oauthController{
		service:   service,
		clientURL: cfg.App.ClientURL,
	}
}

func (c *oauthController) RegisterRoutes(r fiber.Router) {
	// Static /auth routes must be registered before these param routes.
	h := r.Group("/auth")
	h.Get("/:provider", c.Login)
	h.Get("/:provider/callback", c.Callback)
	h.Get("/:provider/status", serverutils.JwtMiddleware, c.Status)
}

func (c *oauthController) Login(ctx *fiber.Ctx) error {
	provider := ctx.Params("provider")

	res, err := c.service.GetRedirectURL(provider)
	if err != nil {
		return err
	}

	return ctx.Redirect(res.RedirectURL)
}

func (c *oauthController) Callback(ctx *fiber.Ctx) error {
	provider := ctx.Params("provider")
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" {
		return serverutils.NewValidationError("missing authorization code")
	}

	res, err := c.service.HandleCallback(ctx.Context(), provider, state, code)
	if err != nil {
		return err
	}

	// Hand the session to the SPA via redirect.
	redirectURL := fmt.Sprintf("%s/app?token=%s", c.clientURL, res.AccessToken)
	return ctx.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (c *oauthController) Status(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	provider := ctx.Params("provider")

	res, err := c.service.GetProviderStatus(ctx.Context(), userId, provider)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get provider status", res))
}
