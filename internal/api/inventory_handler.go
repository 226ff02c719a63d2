package api

import (
	"errors"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"
	"invplan-backend/internal/pipeline"
	"invplan-backend/internal/source"
	"invplan-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

type LatestInventoryResponse struct {
	Items []models.SKUFact `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// GET /api/inventory/latest?search=&brand=&page=&limit=
func LatestInventoryHandler(facts store.FactRepo, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, limit := store.Paging(c.QueryInt("page", 1), c.QueryInt("limit", 15))
		rows, total, err := facts.SearchLatest(c.UserContext(), store.FactQuery{
			Search: c.Query("search"),
			Brand:  c.Query("brand"),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			log.Error("latest inventory query failed", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be loaded")
		}
		if rows == nil {
			rows = []models.SKUFact{}
		}
		return c.JSON(LatestInventoryResponse{Items: rows, Total: total, Page: page, Limit: limit})
	}
}

// POST /api/inventory/upload (multipart, field "file")
//
// The workbook is read like the inventory_details feed and merged under
// that source's policy.
func UploadInventoryHandler(runner Runner, log *logger.Logger) fiber.Handler {
	def, _ := source.Lookup(source.InventoryDetails)
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		if !source.IsWorkbookName(fh.Filename) {
			return fiber.NewError(fiber.StatusBadRequest, "only .xlsx files are accepted")
		}
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file could not be opened")
		}
		defer f.Close()

		patches, err := source.ReadWorkbook(c.UserContext(), def, f, log)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if len(patches) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "workbook has no rows with an ean")
		}

		rep, err := runner.Ingest(c.UserContext(), source.InventoryDetails, "upload", patches)
		if errors.Is(err, pipeline.ErrRunInProgress) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		if err != nil {
			log.Error("inventory upload merge failed", "file", fh.Filename, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "upload could not be merged")
		}
		log.Info("inventory workbook merged", "file", fh.Filename, "rows", len(patches),
			"updated", rep.Merge.Updated, "forked", rep.Merge.Forked, "inserted", rep.Merge.Inserted)
		return c.Status(fiber.StatusCreated).JSON(rep)
	}
}
