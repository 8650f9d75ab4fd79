package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/recoverycoach/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

var resMuscleCatalog = mcp.NewResource(
	"coach://muscle_catalog",
	"Muscle Catalog",
	mcp.WithResourceDescription("The muscle groups accepted by log_workout, in display order"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) muscleCatalog(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(models.Catalog())
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
