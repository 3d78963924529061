package flavors

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/relengworks/shipit/pkg/models"
	"github.com/relengworks/shipit/pkg/template"
)

// phaseIDNamespace seeds the name-based phase task id derivation.
var phaseIDNamespace = uuid.MustParse("c53f04a5-0e7b-4b1f-9c2d-48c1fd20ab37")

// Planner renders a release's phase plan from flavor configuration.
type Planner struct {
	config *Config
}

// NewPlanner creates a planner over the given flavor configuration.
func NewPlanner(config *Config) *Planner {
	return &Planner{config: config}
}

// GeneratePhases materializes the ordered phase sequence for release.
// Returns an UnsupportedFlavorError when the product/branch combination has
// no plan.
func (p *Planner) GeneratePhases(release *models.Release) ([]*models.Phase, error) {
	templates, err := p.config.Templates(release.Product, release.Branch)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"release": map[string]any{
			"name":         release.Name,
			"product":      release.Product,
			"version":      release.Version,
			"branch":       release.Branch,
			"revision":     release.Revision,
			"build_number": release.BuildNumber,
		},
	}

	phases := make([]*models.Phase, 0, len(templates))

	for _, tmpl := range templates {
		rendered, err := template.RenderDeep(tmpl.Task, data)
		if err != nil {
			return nil, fmt.Errorf("failed to render phase %s: %w", tmpl.Name, err)
		}

		renderedMap, ok := rendered.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("phase %s task template is not an object", tmpl.Name)
		}

		phases = append(phases, &models.Phase{
			Name:        tmpl.Name,
			ReleaseName: release.Name,
			TaskID:      derivePhaseTaskID(release.Name, tmpl.Name),
			Rendered:    models.TaskDefinition(renderedMap),
		})
	}

	return phases, nil
}

// derivePhaseTaskID produces a 22-character URL-safe slug, stable for a
// given release and phase.
func derivePhaseTaskID(releaseName, phaseName string) string {
	id := uuid.NewSHA1(phaseIDNamespace, []byte(releaseName+"\x00"+phaseName))

	return base64.RawURLEncoding.EncodeToString(id[:])
}
