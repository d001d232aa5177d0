package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetProductInterest ranks the linked session's products by comment mentions.
func (s *Server) GetProductInterest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	interest, err := s.analyticsService.ProductInterest(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"products": interest})
}

// GetSentimentBreakdown returns the sentiment distribution of classified comments.
func (s *Server) GetSentimentBreakdown(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	breakdown, err := s.analyticsService.SentimentBreakdown(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(breakdown)
}

// GetCategoryBreakdown returns the category distribution of classified comments.
func (s *Server) GetCategoryBreakdown(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	breakdown, err := s.analyticsService.CategoryBreakdown(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(breakdown)
}

// GetGMVSeries returns hourly order volume for the capture window.
func (s *Server) GetGMVSeries(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	series, err := s.analyticsService.GMVSeries(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"gmv": series})
}

// GetFlashSales returns comment texts that burst past the flash-sale threshold.
func (s *Server) GetFlashSales(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	entries, err := s.reportService.FlashSales(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"flash_sales": entries})
}
