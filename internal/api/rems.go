package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type remsResponse struct {
	Organisations []string                 `json:"organisations"`
	Workflows     []map[string]interface{} `json:"workflows"`
	Licenses      []map[string]interface{} `json:"licenses"`
}

// GetRemsCatalogue handles GET /rems?language&organisation, surfacing the
// organisations, workflows, and licenses a submission's rems block can
// reference when building a RemsSpec.
func (h *Handlers) GetRemsCatalogue(c echo.Context) error {
	ctx := c.Request().Context()
	workflows, err := h.Rems.GetWorkflows(ctx)
	if err != nil {
		return writeProblem(c, err)
	}
	licenses, err := h.Rems.GetLicenses(ctx)
	if err != nil {
		return writeProblem(c, err)
	}

	seen := map[string]bool{}
	var orgs []string
	for _, wf := range workflows {
		org, _ := wf["organization"].(map[string]interface{})
		id, _ := org["organization/id"].(string)
		if id != "" && !seen[id] {
			seen[id] = true
			orgs = append(orgs, id)
		}
	}

	if org := c.QueryParam("organisation"); org != "" {
		filtered := workflows[:0:0]
		for _, wf := range workflows {
			wfOrg, _ := wf["organization"].(map[string]interface{})
			id, _ := wfOrg["organization/id"].(string)
			if id == org {
				filtered = append(filtered, wf)
			}
		}
		workflows = filtered
	}

	return c.JSON(http.StatusOK, remsResponse{
		Organisations: orgs,
		Workflows:     workflows,
		Licenses:      licenses,
	})
}
