// Package web provides HTTP handlers and REST API endpoints for release
// management.
package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/relengworks/shipit/pkg/models"
	"github.com/relengworks/shipit/pkg/services"
)

// ActorHeader carries the identity of the caller, set by the authenticating
// gateway in front of the API.
const ActorHeader = "X-Forwarded-User"

const anonymousActor = "anonymous"

type APIHandlers struct {
	releaseService *services.Release
	validator      *validator.Validate
}

func NewAPIHandlers(releaseService *services.Release, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		releaseService: releaseService,
		validator:      validator,
	}
}

func (h *APIHandlers) GetReleases(c fiber.Ctx) error {
	req, err := h.parseListReleasesRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	releases, err := h.releaseService.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(releases)
}

// parseListReleasesRequest parses and validates query parameters for listing
// releases.
func (h *APIHandlers) parseListReleasesRequest(c fiber.Ctx) (*services.ListReleasesRequest, error) {
	req := &services.ListReleasesRequest{
		Product: c.Query("product"),
		Branch:  c.Query("branch"),
		Version: c.Query("version"),
	}

	if buildNumberStr := c.Query("build_number"); buildNumberStr != "" {
		buildNumber, err := strconv.Atoi(buildNumberStr)
		if err != nil {
			return nil, err
		}

		req.BuildNumber = buildNumber
	}

	if statusStr := c.Query("status"); statusStr != "" {
		for _, status := range strings.Split(statusStr, ",") {
			req.Statuses = append(req.Statuses, models.ReleaseStatus(strings.TrimSpace(status)))
		}
	}

	return req, nil
}

func (h *APIHandlers) GetRelease(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Release name is required")
	}

	release, err := h.releaseService.Get(c.Context(), name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(release)
}

func (h *APIHandlers) CreateRelease(c fiber.Ctx) error {
	var req CreateReleaseRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	release, err := h.releaseService.Add(c.Context(), services.AddReleaseRequest{
		Product:        req.Product,
		Version:        req.Version,
		Branch:         req.Branch,
		Revision:       req.Revision,
		BuildNumber:    req.BuildNumber,
		ReleaseETA:     req.ReleaseETA,
		PartialUpdates: req.PartialUpdates,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(release)
}

func (h *APIHandlers) GetPhase(c fiber.Ctx) error {
	name := c.Params("name")
	phaseName := c.Params("phase")

	if name == "" || phaseName == "" {
		return badRequest(c, "Release name and phase name are required")
	}

	phase, err := h.releaseService.GetPhase(c.Context(), name, phaseName)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(phase)
}

func (h *APIHandlers) SchedulePhase(c fiber.Ctx) error {
	name := c.Params("name")
	phaseName := c.Params("phase")

	if name == "" || phaseName == "" {
		return badRequest(c, "Release name and phase name are required")
	}

	phase, err := h.releaseService.SchedulePhase(c.Context(), name, phaseName, h.actor(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(phase)
}

func (h *APIHandlers) AbandonRelease(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Release name is required")
	}

	release, err := h.releaseService.Abandon(c.Context(), name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(release)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.releaseService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Ship-it API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Ship-it API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) actor(c fiber.Ctx) string {
	actor := c.Get(ActorHeader)
	if actor == "" {
		return anonymousActor
	}

	return actor
}
