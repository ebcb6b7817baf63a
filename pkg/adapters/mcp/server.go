package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/catchment"
	"github.com/aretw0/catchment/pkg/domain"
	"github.com/aretw0/catchment/pkg/ports"
	"github.com/aretw0/catchment/pkg/region"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DatasetURI is the resource exposing the flow grid metadata.
const DatasetURI = "catchment://dataset"

// DelineateResponse summarises a delineation for a model. The mask is only
// included on request since it can be large.
type DelineateResponse struct {
	Kind     string          `json:"kind" jsonschema_description:"Region kind: basin, subbasin or interbasin"`
	Cells    int             `json:"cells" jsonschema_description:"Number of selected cells"`
	Bounds   domain.BBox     `json:"bounds" jsonschema_description:"Map extent of the selected cells"`
	Outlets  []domain.Outlet `json:"outlets" jsonschema_description:"Cells the region drains to, with map coordinates"`
	Warnings []string        `json:"warnings,omitempty" jsonschema_description:"Non-fatal conditions, e.g. a truncated subbasin"`
	Mask     *domain.Mask    `json:"mask,omitempty" jsonschema_description:"Run-length encoded mask, when include_mask is set"`
}

// DatasetResponse describes the flow grid.
type DatasetResponse struct {
	Dataset domain.RasterInfo `json:"dataset" jsonschema_description:"Flow grid metadata"`
	Extent  domain.BBox       `json:"extent" jsonschema_description:"Map extent of the grid"`
}

// Server wraps the Engine and exposes it as an MCP Server.
type Server struct {
	engine    ports.Delineator
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.Delineator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("catchment-mcp", strings.TrimSpace(catchment.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves on the given port using SSE until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	delineateTool := mcp.NewTool("delineate",
		mcp.WithDescription("Delineate a drainage region from the flow-direction grid. "+
			`The region is a JSON mapping such as {"subbasin": [x, y], "strord": 4} or {"basin": [xmin, ymin, xmax, ymax]}.`),
		mcp.WithString("region", mcp.Required(), mcp.Description("JSON region mapping")),
		mcp.WithBoolean("include_mask", mcp.Description("Return the run-length encoded mask")),
		mcp.WithOutputSchema[DelineateResponse](),
	)
	s.mcpServer.AddTool(delineateTool, mcp.NewStructuredToolHandler(s.handleDelineate))

	infoTool := mcp.NewTool("dataset_info",
		mcp.WithDescription("Describe the flow-direction grid: size, transform, CRS and extent."),
		mcp.WithOutputSchema[DatasetResponse](),
	)
	s.mcpServer.AddTool(infoTool, mcp.NewStructuredToolHandler(s.handleDatasetInfo))
}

func (s *Server) handleDelineate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DelineateResponse, error) {
	raw, _ := args["region"].(string)
	if raw == "" {
		return DelineateResponse{}, fmt.Errorf("%w: region is required", domain.ErrInvalidRequest)
	}
	reqs, err := region.Decode([]byte(raw), true)
	if err != nil {
		return DelineateResponse{}, err
	}
	if len(reqs) != 1 {
		return DelineateResponse{}, fmt.Errorf("%w: expected one region, got %d", domain.ErrInvalidRequest, len(reqs))
	}

	d, err := s.engine.Delineate(ctx, reqs[0])
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidRequest) && !errors.Is(err, domain.ErrNoMatch) {
			s.logger.Error("MCP delineate failed", "error", err)
		}
		return DelineateResponse{}, fmt.Errorf("delineate failed: %w", err)
	}

	resp := DelineateResponse{
		Kind:    d.Kind.String(),
		Cells:   d.Cells(),
		Bounds:  d.Mask.Bounds(),
		Outlets: d.Outlets,
	}
	for _, w := range d.Warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	if include, _ := args["include_mask"].(bool); include {
		resp.Mask = d.Mask
	}
	return resp, nil
}

func (s *Server) handleDatasetInfo(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DatasetResponse, error) {
	info, err := s.engine.Info(ctx)
	if err != nil {
		return DatasetResponse{}, fmt.Errorf("dataset info failed: %w", err)
	}
	return DatasetResponse{Dataset: info, Extent: info.Extent()}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(DatasetURI, "Flow grid metadata",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		resp, err := s.handleDatasetInfo(ctx, mcp.CallToolRequest{}, nil)
		if err != nil {
			return nil, err
		}
		jsonBytes, _ := json.Marshal(resp)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      DatasetURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
