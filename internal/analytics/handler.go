package analytics

import (
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{service: svc}
}

// RegisterRoutes mounts the read API under /api/v1/analytics.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", HealthCheck)

	api := app.Group("/api/v1/analytics")
	api.Get("/top-songs", h.TopSongs)
	api.Get("/top-artists", h.TopArtists)
	api.Get("/top-albums", h.TopAlbums)
	api.Get("/top-songs-by-country", h.TopSongsByCountry)
	api.Get("/most-active-users", h.MostActiveUsers)
}

func (h *Handler) TopSongs(c *fiber.Ctx) error {
	songs, err := h.service.TopSongs(c.Context(), c.QueryInt("limit", defaultLimit))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch top songs",
		})
	}

	return c.JSON(fiber.Map{"data": songs})
}

func (h *Handler) TopArtists(c *fiber.Ctx) error {
	artists, err := h.service.TopArtists(c.Context(), c.QueryInt("limit", defaultLimit))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch top artists",
		})
	}

	return c.JSON(fiber.Map{"data": artists})
}

func (h *Handler) TopAlbums(c *fiber.Ctx) error {
	albums, err := h.service.TopAlbums(c.Context(), c.QueryInt("limit", defaultLimit))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch top albums",
		})
	}

	return c.JSON(fiber.Map{"data": albums})
}

func (h *Handler) TopSongsByCountry(c *fiber.Ctx) error {
	country := c.Query("country")
	if country == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "country is required",
		})
	}

	songs, err := h.service.TopSongsByCountry(c.Context(), country, c.QueryInt("limit", defaultLimit))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch top songs by country",
		})
	}

	return c.JSON(fiber.Map{"data": songs})
}

func (h *Handler) MostActiveUsers(c *fiber.Ctx) error {
	users, err := h.service.MostActiveUsers(c.Context(), c.QueryInt("limit", defaultLimit))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch most active users",
		})
	}

	return c.JSON(fiber.Map{"data": users})
}

func HealthCheck(c *fiber.Ctx) error {
	return c.SendString("OK")
}
