package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/relengworks/shipit/pkg/actions"
	"github.com/relengworks/shipit/pkg/flavors"
	"github.com/relengworks/shipit/pkg/persistence"
	"github.com/relengworks/shipit/pkg/services"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		// Unsupported product/branch carries a description listing what is
		// supported; surface it instead of the bare error string.
		var flavorErr *flavors.UnsupportedFlavorError
		if errors.As(err, &flavorErr) {
			problem := problems.NewStatusProblem(400).
				WithInstance(c.Path()).
				WithType("unsupported_flavor").
				WithDetail(flavorErr.Description())

			return c.Status(fiber.StatusBadRequest).JSON(problem)
		}

		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("validation_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case persistence.IsReleaseNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("release_not_found").
			WithDetail("release not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsPhaseNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("phase_not_found").
			WithDetail("phase not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case services.IsAbandonError(err), errors.Is(err, actions.ErrManifestNotFound):
		// Cancellation depends on the task backend; its failures are
		// upstream errors, and the release keeps its previous status.
		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("upstream_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadGateway).JSON(problem)

	default:
		// Log unexpected errors but don't expose details
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}
