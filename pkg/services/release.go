package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/relengworks/shipit/pkg/actions"
	"github.com/relengworks/shipit/pkg/eventbus"
	"github.com/relengworks/shipit/pkg/events"
	"github.com/relengworks/shipit/pkg/flavors"
	"github.com/relengworks/shipit/pkg/models"
	"github.com/relengworks/shipit/pkg/otelhelper"
	"github.com/relengworks/shipit/pkg/persistence"
	"github.com/relengworks/shipit/pkg/queue"
)

// cancelAction is the manifest action used to cancel every task of a
// submitted task group.
const cancelAction = "cancel-all"

// Release orchestrates the release lifecycle: creation with a generated
// phase plan, per-phase sign-off, and abandoning with cancellation of
// in-flight work.
type Release struct {
	persistence persistence.Persistence
	queue       queue.Queue
	resolver    actions.Resolver
	generator   *actions.Generator
	planner     *flavors.Planner
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewRelease creates a new release service. publisher may be nil; lifecycle
// events are then skipped.
func NewRelease(
	persistence persistence.Persistence,
	taskQueue queue.Queue,
	resolver actions.Resolver,
	planner *flavors.Planner,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Release {
	return &Release{
		persistence: persistence,
		queue:       taskQueue,
		resolver:    resolver,
		generator:   actions.NewGenerator(),
		planner:     planner,
		publisher:   publisher,
		logger:      logger,
		tracer:      otel.Tracer("shipit.releases"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Release) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// AddReleaseRequest contains the coordinates of a new release.
type AddReleaseRequest struct {
	Product        string
	Version        string
	Branch         string
	Revision       string
	BuildNumber    int
	ReleaseETA     *time.Time
	PartialUpdates map[string]any
}

// Add creates a release together with its generated phase plan, as one
// atomic unit. Returns an UnsupportedFlavorError when the product/branch
// combination has no plan.
func (s *Release) Add(ctx context.Context, req AddReleaseRequest) (*models.Release, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "release.add",
		attribute.String(otelhelper.ProductKey, req.Product))
	defer span.End()

	release := &models.Release{
		Name:           models.ReleaseName(req.Product, req.Version, req.BuildNumber),
		Product:        req.Product,
		Version:        req.Version,
		Branch:         req.Branch,
		Revision:       req.Revision,
		BuildNumber:    req.BuildNumber,
		ReleaseETA:     req.ReleaseETA,
		Status:         models.ReleaseStatusScheduled,
		PartialUpdates: req.PartialUpdates,
	}

	phases, err := s.planner.GeneratePhases(release)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	release.Phases = phases

	err = s.persistence.ReleaseRepository().Create(ctx, release)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	s.logger.InfoContext(ctx, "Release created", "release", release.Name, "phases", len(phases))

	phaseNames := make([]string, 0, len(phases))
	for _, phase := range phases {
		phaseNames = append(phaseNames, phase.Name)
	}

	s.publish(ctx, release.Name, events.ReleaseCreated{
		BaseEvent:   s.baseEvent(events.ReleaseCreatedEvent, release.Name),
		Product:     release.Product,
		Version:     release.Version,
		BuildNumber: release.BuildNumber,
		Phases:      phaseNames,
	})

	return release, nil
}

// ListReleasesRequest contains filters for listing releases.
type ListReleasesRequest struct {
	Product     string
	Branch      string
	Version     string
	BuildNumber int
	Statuses    []models.ReleaseStatus
}

// List retrieves releases matching the filters. Without an explicit status
// filter only scheduled releases are returned.
func (s *Release) List(ctx context.Context, req ListReleasesRequest) ([]*models.Release, error) {
	if req.BuildNumber > 0 && req.Version == "" {
		return nil, ErrBuildNumberWithoutVersion
	}

	if len(req.Statuses) == 0 {
		req.Statuses = []models.ReleaseStatus{models.ReleaseStatusScheduled}
	}

	releases, err := s.persistence.ReleaseRepository().List(ctx, persistence.ListReleasesOptions{
		Product:     req.Product,
		Branch:      req.Branch,
		Version:     req.Version,
		BuildNumber: req.BuildNumber,
		Statuses:    req.Statuses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}

	return releases, nil
}

// Get retrieves a release by name.
func (s *Release) Get(ctx context.Context, name string) (*models.Release, error) {
	return s.persistence.ReleaseRepository().GetByName(ctx, name)
}

// GetPhase retrieves a single phase of a release.
func (s *Release) GetPhase(ctx context.Context, releaseName, phaseName string) (*models.Phase, error) {
	release, err := s.persistence.ReleaseRepository().GetByName(ctx, releaseName)
	if err != nil {
		return nil, err
	}

	phase := release.Phase(phaseName)
	if phase == nil {
		return nil, &persistence.ReleaseError{Op: "GetPhase", Release: releaseName, Phase: phaseName, Err: persistence.ErrPhaseNotFound}
	}

	return phase, nil
}

// SchedulePhase signs off one phase: the phase's task is submitted to the
// queue first, and only on success is the submitted flag persisted. A phase
// that was already submitted is a conflict, never a silent no-op. When the
// last phase of a release is submitted the release advances to shipped.
func (s *Release) SchedulePhase(ctx context.Context, releaseName, phaseName, actor string) (*models.Phase, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "release.schedule_phase",
		attribute.String(otelhelper.ReleaseNameKey, releaseName),
		attribute.String(otelhelper.PhaseNameKey, phaseName),
		attribute.String(otelhelper.ActorKey, actor))
	defer span.End()

	release, err := s.persistence.ReleaseRepository().GetByName(ctx, releaseName)
	if err != nil {
		return nil, err
	}

	// Status only moves forward; a shipped or aborted release must never
	// pick up new sign-offs.
	if release.Status != models.ReleaseStatusScheduled {
		return nil, fmt.Errorf("release %s is %s: %w", releaseName, release.Status, ErrReleaseNotScheduled)
	}

	phase := release.Phase(phaseName)
	if phase == nil {
		return nil, &persistence.ReleaseError{Op: "SchedulePhase", Release: releaseName, Phase: phaseName, Err: persistence.ErrPhaseNotFound}
	}

	if phase.Submitted {
		return nil, fmt.Errorf("phase %s of release %s: %w", phaseName, releaseName, ErrPhaseAlreadySubmitted)
	}

	// The queue submission must complete before any persisted state changes;
	// the submitted flag is never true unless the task was accepted.
	err = s.queue.CreateTask(ctx, phase.TaskID, phase.Rendered)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	now := time.Now().UTC()
	phase.Submitted = true
	phase.Completed = &now
	phase.CompletedBy = actor

	shipped := release.AllPhasesSubmitted()
	if shipped {
		release.Status = models.ReleaseStatusShipped
	}

	err = s.persistence.ReleaseRepository().Update(ctx, release)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	s.logger.InfoContext(ctx, "Phase submitted",
		"release", releaseName, "phase", phaseName, "task_id", phase.TaskID, "actor", actor)

	s.publish(ctx, release.Name, events.PhaseSubmitted{
		BaseEvent:   s.baseEvent(events.PhaseSubmittedEvent, release.Name),
		Phase:       phase.Name,
		TaskID:      phase.TaskID,
		CompletedBy: actor,
	})

	if shipped {
		s.publish(ctx, release.Name, events.ReleaseShipped{
			BaseEvent: s.baseEvent(events.ReleaseShippedEvent, release.Name),
		})
	}

	return phase, nil
}

// Abandon cancels every submitted phase of the release and marks it aborted.
// Each phase's cancellation pipeline runs strictly in order: resolve the
// actions manifest, generate the cancel task, strip oversized parameters,
// render with the phase's own task id pinned as origin, append the
// dependency edge, submit. The first failing phase stops the loop and the
// release keeps its scheduled status so Abandon can be retried.
func (s *Release) Abandon(ctx context.Context, releaseName string) (*models.Release, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "release.abandon",
		attribute.String(otelhelper.ReleaseNameKey, releaseName))
	defer span.End()

	release, err := s.persistence.ReleaseRepository().GetByName(ctx, releaseName)
	if err != nil {
		return nil, err
	}

	if release.Status != models.ReleaseStatusScheduled {
		return nil, fmt.Errorf("release %s is %s: %w", releaseName, release.Status, ErrReleaseNotScheduled)
	}

	var cancelTaskIDs []string

	for _, phase := range release.Phases {
		if !phase.Submitted {
			continue
		}

		cancelTaskID, err := s.cancelPhase(ctx, phase)
		if err != nil {
			abandonErr := &AbandonError{Release: releaseName, Phase: phase.Name, Err: err}
			otelhelper.SetError(span, abandonErr)

			return nil, abandonErr
		}

		cancelTaskIDs = append(cancelTaskIDs, cancelTaskID)
	}

	release.Status = models.ReleaseStatusAborted

	err = s.persistence.ReleaseRepository().Update(ctx, release)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	s.logger.InfoContext(ctx, "Release abandoned", "release", releaseName, "cancelled_phases", len(cancelTaskIDs))

	s.publish(ctx, release.Name, events.ReleaseAborted{
		BaseEvent:     s.baseEvent(events.ReleaseAbortedEvent, release.Name),
		CancelTaskIDs: cancelTaskIDs,
	})

	return release, nil
}

// cancelPhase runs the cancellation pipeline for one submitted phase and
// returns the id of the generated cancel task.
func (s *Release) cancelPhase(ctx context.Context, phase *models.Phase) (string, error) {
	manifest, err := s.resolver.FetchActions(ctx, phase.TaskID)
	if err != nil {
		return "", err
	}

	cancelTaskID, skeleton, actionCtx, err := s.generator.Generate(cancelAction, nil, manifest)
	if err != nil {
		return "", err
	}

	// Some parameters carry full task graphs and release history; left in
	// place they can push the rendered task over the backend's size limit.
	actions.StripOversizedParameters(actionCtx)

	rendered, err := s.generator.Render(skeleton, actionCtx, phase.TaskID)
	if err != nil {
		return "", err
	}

	// The origin task joins the dependency list so the cancel task cannot
	// fire before the task it is meant to cancel is scheduled.
	rendered.AppendDependency(phase.TaskID)

	s.logger.InfoContext(ctx, "Cancelling phase", "phase", phase.Name, "action_task_id", cancelTaskID)

	err = s.queue.CreateTask(ctx, cancelTaskID, rendered)
	if err != nil {
		// Cancel task ids are deterministic, so a retried abandon can hit a
		// task that was already submitted. That phase is already cancelled.
		if errors.Is(err, queue.ErrTaskConflict) {
			s.logger.InfoContext(ctx, "Cancel task already submitted", "phase", phase.Name, "action_task_id", cancelTaskID)

			return cancelTaskID, nil
		}

		return "", err
	}

	return cancelTaskID, nil
}

func (s *Release) baseEvent(eventType events.EventType, releaseName string) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Release:   releaseName,
	}
}

// publish sends a lifecycle event; failures are logged, never fatal to the
// operation that produced them.
func (s *Release) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, key, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
