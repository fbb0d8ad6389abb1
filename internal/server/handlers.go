package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
)

// errorResponse returns the standard API error shape.
func errorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// getVideos serves the current snapshot; an absent snapshot is an empty
// object, not an error.
func (s *Server) getVideos(c fiber.Ctx) error {
	return c.JSON(s.snap.Read(c.Context()))
}

func (s *Server) listCategories(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"categories": s.prefs.Channels(),
	})
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) addCategory(c fiber.Ctx) error {
	var req categoryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Expected JSON body with a name field")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "name is required")
	}

	created := s.prefs.AddCategory(name)
	if created {
		s.prefs.Save(c.Context())
	}
	return c.JSON(fiber.Map{"created": created})
}

func (s *Server) deleteCategory(c fiber.Ctx) error {
	deleted := s.prefs.RemoveCategory(c.Params("name"))
	if deleted {
		s.prefs.Save(c.Context())
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

type channelRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (s *Server) addChannel(c fiber.Ctx) error {
	var req channelRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Expected JSON body with name and category fields")
	}
	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)
	if name == "" || category == "" {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "name and category are required")
	}

	created := s.prefs.AddChannel(name, category)
	if created {
		s.prefs.Save(c.Context())
	}
	return c.JSON(fiber.Map{"created": created})
}

func (s *Server) deleteChannel(c fiber.Ctx) error {
	category := fiber.Query[string](c, "category")
	deleted := s.prefs.RemoveChannel(c.Params("name"), category)
	if deleted {
		s.prefs.Save(c.Context())
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

func (s *Server) getDuration(c fiber.Ctx) error {
	d := s.prefs.Duration()
	return c.JSON(fiber.Map{"days": d.Days, "months": d.Months})
}

type durationRequest struct {
	Days   int `json:"days"`
	Months int `json:"months"`
}

func (s *Server) setDuration(c fiber.Ctx) error {
	var req durationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Expected JSON body with days and months fields")
	}
	if !s.prefs.SetDuration(c.Context(), req.Days, req.Months) {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "days and months must be non-negative")
	}
	d := s.prefs.Duration()
	return c.JSON(fiber.Map{"days": d.Days, "months": d.Months})
}

// refresh re-runs the full pipeline and overwrites the snapshot. Partial
// channel failures still produce a success response with a reduced count;
// only failures outside the fail-soft taxonomy surface as server errors.
func (s *Server) refresh(c fiber.Ctx) error {
	result, stats := s.pipeline.Run(c.Context())
	if err := s.snap.Write(c.Context(), result, stats); err != nil {
		s.log.Error().Err(err).Str("run_id", stats.ID).Msg("snapshot write failed, prior snapshot kept")
	}
	return c.JSON(fiber.Map{
		"id":         stats.ID,
		"categories": stats.Categories,
		"videos":     stats.Videos,
	})
}

func (s *Server) getStats(c fiber.Ctx) error {
	stats, ok := s.snap.LastRefresh(c.Context())
	if !ok {
		return c.JSON(fiber.Map{"refreshed": false})
	}
	return c.JSON(fiber.Map{
		"refreshed":   true,
		"id":          stats.ID,
		"finished_at": stats.FinishedAt,
		"categories":  stats.Categories,
		"videos":      stats.Videos,
	})
}

func (s *Server) evictChannel(c fiber.Ctx) error {
	deleted := s.resolver.Evict(c.Context(), c.Params("name"))
	return c.JSON(fiber.Map{"deleted": deleted})
}

func (s *Server) listKeys(c fiber.Ctx) error {
	keys, err := s.records.Keys(c.Context())
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list record keys")
	}
	return c.JSON(fiber.Map{"keys": keys})
}

func (s *Server) deleteKey(c fiber.Ctx) error {
	deleted, err := s.records.Delete(c.Context(), c.Params("key"))
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete record")
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

func (s *Server) backup(c fiber.Ctx) error {
	path := fmt.Sprintf("backup_%s.json", time.Now().UTC().Format("20060102_150405"))
	if err := s.records.Backup(c.Context(), path); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("backup failed")
		return errorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create backup")
	}
	return c.JSON(fiber.Map{"path": path})
}
