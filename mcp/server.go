// Package mcp exposes a concept map editing session over the Model Context
// Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/conceptmap-go/internal/geometry"
	"github.com/Benny93/conceptmap-go/internal/scene"
	"github.com/Benny93/conceptmap-go/internal/session"
	"github.com/Benny93/conceptmap-go/internal/storage"
)

var implementation = &mcp.Implementation{
	Name:    "conceptmap-go",
	Version: "0.1.0",
}

// Server represents the MCP server.
type Server struct {
	mu      sync.Mutex
	sess    *session.Session
	backend storage.Backend
	server  *mcp.Server
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a server editing sess and registers every tool and
// resource with the MCP server. backend may be nil, in which case cmap_save
// and cmap_search report an error.
func NewServer(sess *session.Session, backend storage.Backend) *Server {
	s := &Server{
		sess:    sess,
		backend: backend,
		server:  mcp.NewServer(implementation, nil),
	}

	for _, tool := range s.ListTools() {
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, s.toolHandler(tool.Name))
	}
	for _, res := range s.ListResources() {
		s.server.AddResource(&mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MimeType,
		}, s.resourceHandler(res.MimeType))
	}
	return s
}

func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	empty := objectSchema(map[string]*jsonschema.Schema{})
	point := map[string]*jsonschema.Schema{
		"x": {Type: "number", Description: "Horizontal scene coordinate"},
		"y": {Type: "number", Description: "Vertical scene coordinate"},
	}

	return []Tool{
		{
			Name:        "cmap_show",
			Description: "List every node and edge of the concept map being edited.",
			InputSchema: empty,
		},
		{
			Name:        "cmap_add_node",
			Description: "Add a concept. Without x and y it is placed on the next free grid slot.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"text":  {Type: "string", Description: "Concept text"},
				"x":     point["x"],
				"y":     point["y"],
				"shape": {Type: "string", Enum: []any{"rectangle", "ellipse", "rounded_rect"}, Description: "Node outline"},
			}),
		},
		{
			Name:        "cmap_add_edge",
			Description: "Connect two concepts with a labeled, directed edge.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"source": {Type: "string", Description: "Source node ID"},
				"target": {Type: "string", Description: "Target node ID"},
				"label":  {Type: "string", Description: "Relationship label"},
			}, "source", "target"),
		},
		{
			Name:        "cmap_remove_node",
			Description: "Delete a concept together with every edge touching it.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"id": {Type: "string", Description: "Node ID"},
			}, "id"),
		},
		{
			Name:        "cmap_remove_edge",
			Description: "Delete a single edge.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"id": {Type: "string", Description: "Edge ID"},
			}, "id"),
		},
		{
			Name:        "cmap_move_node",
			Description: "Move a concept so its top-left corner is at (x, y).",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"id": {Type: "string", Description: "Node ID"},
				"x":  point["x"],
				"y":  point["y"],
			}, "id", "x", "y"),
		},
		{
			Name:        "cmap_gesture",
			Description: "Feed a pointer event to the scene. Shift-press on a node and release on another draws an edge.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"op":    {Type: "string", Enum: []any{"press", "move", "release", "click"}, Description: "Pointer event"},
				"x":     point["x"],
				"y":     point["y"],
				"shift": {Type: "boolean", Description: "Shift held"},
				"ctrl":  {Type: "boolean", Description: "Ctrl held"},
			}, "op", "x", "y"),
		},
		{
			Name:        "cmap_anchor",
			Description: "Return the points where an edge meets its source and target outlines.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"id": {Type: "string", Description: "Edge ID"},
			}, "id"),
		},
		{
			Name:        "cmap_undo",
			Description: "Undo the most recent edit.",
			InputSchema: empty,
		},
		{
			Name:        "cmap_redo",
			Description: "Redo the most recently undone edit.",
			InputSchema: empty,
		},
		{
			Name:        "cmap_save",
			Description: "Persist the map to the backing store.",
			InputSchema: empty,
		},
		{
			Name:        "cmap_search",
			Description: "Search node texts and edge labels of the saved map.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"query": {Type: "string", Description: "Search query text"},
				"limit": {Type: "integer", Description: "Maximum number of results"},
			}, "query"),
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "cmap://map",
			Name:        "Concept Map",
			Description: "The current map as JSON",
			MimeType:    "application/json",
		},
		{
			URI:         "cmap://history",
			Name:        "Edit History",
			Description: "Undo and redo state of the session",
			MimeType:    "text/plain",
		},
		{
			URI:         "cmap://selection",
			Name:        "Selection",
			Description: "Currently selected nodes and edges",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case "cmap_show":
		return formatMap(s.sess), nil
	case "cmap_add_node":
		return s.handleAddNode(args)
	case "cmap_add_edge":
		e, ok := s.sess.Connect(stringArg(args, "source"), stringArg(args, "target"), stringArg(args, "label"))
		if !ok {
			return "", fmt.Errorf("cannot connect %q to %q: both nodes must exist", stringArg(args, "source"), stringArg(args, "target"))
		}
		return fmt.Sprintf("Added edge %s", e.ID), nil
	case "cmap_remove_node":
		id := stringArg(args, "id")
		if !s.sess.DeleteNode(id) {
			return "", fmt.Errorf("no node %q", id)
		}
		return fmt.Sprintf("Removed node %s", id), nil
	case "cmap_remove_edge":
		id := stringArg(args, "id")
		if !s.sess.DeleteEdge(id) {
			return "", fmt.Errorf("no edge %q", id)
		}
		return fmt.Sprintf("Removed edge %s", id), nil
	case "cmap_move_node":
		id := stringArg(args, "id")
		if !s.sess.MoveNode(id, pointArg(args)) {
			return "", fmt.Errorf("no node %q", id)
		}
		return fmt.Sprintf("Moved node %s", id), nil
	case "cmap_gesture":
		return s.handleGesture(args)
	case "cmap_anchor":
		return s.handleAnchor(args)
	case "cmap_undo":
		text := s.sess.History().UndoText()
		if !s.sess.Undo() {
			return "Nothing to undo", nil
		}
		return "Undid: " + text, nil
	case "cmap_redo":
		text := s.sess.History().RedoText()
		if !s.sess.Redo() {
			return "Nothing to redo", nil
		}
		return "Redid: " + text, nil
	case "cmap_save":
		if s.backend == nil {
			return "", fmt.Errorf("no backing store configured")
		}
		if err := s.sess.Save(ctx, s.backend); err != nil {
			return "", err
		}
		return fmt.Sprintf("Saved %d nodes and %d edges", s.sess.Map().NodeCount(), s.sess.Map().EdgeCount()), nil
	case "cmap_search":
		return s.handleSearch(ctx, args)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch uri {
	case "cmap://map":
		data, err := json.Marshal(s.sess.Snapshot())
		if err != nil {
			return "", fmt.Errorf("encoding map: %w", err)
		}
		return string(data), nil
	case "cmap://history":
		return formatHistory(s.sess), nil
	case "cmap://selection":
		sc := s.sess.Scene()
		return fmt.Sprintf("Nodes: %s\nEdges: %s\n",
			strings.Join(sc.SelectedNodes(), ", "),
			strings.Join(sc.SelectedEdges(), ", ")), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run serves MCP over stdin and stdout until the client disconnects or ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve serves MCP over t.
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	return s.server.Run(ctx, t)
}

// toolHandler adapts CallTool to the MCP server. Tool failures are reported
// to the client as error results rather than protocol errors.
func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, fmt.Errorf("decoding arguments: %w", err)
			}
		}

		text, err := s.CallTool(ctx, name, args)
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

func (s *Server) resourceHandler(mimeType string) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		text, err := s.ReadResource(ctx, uri)
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeType, Text: text}},
		}, nil
	}
}

// Tool Handlers

func (s *Server) handleAddNode(args map[string]any) (string, error) {
	shape, err := geometry.ParseShape(stringArg(args, "shape"))
	if err != nil {
		return "", err
	}

	pos := pointArg(args)
	if _, hasX := args["x"]; !hasX {
		pos = s.sess.Grid().Next()
	}

	n, ok := s.sess.NewNodeAt(stringArg(args, "text"), pos, shape)
	if !ok {
		return "", fmt.Errorf("node rejected")
	}
	return fmt.Sprintf("Added node %s at (%g, %g)", n.ID, n.X, n.Y), nil
}

func (s *Server) handleGesture(args map[string]any) (string, error) {
	sc := s.sess.Scene()
	p := pointArg(args)

	var mods scene.Modifiers
	if boolArg(args, "shift") {
		mods |= scene.ModShift
	}
	if boolArg(args, "ctrl") {
		mods |= scene.ModCtrl
	}

	switch op := stringArg(args, "op"); op {
	case "press":
		sc.PointerDown(p, mods)
	case "move":
		sc.PointerMove(p)
	case "release":
		if e, ok := sc.PointerUp(p); ok {
			return fmt.Sprintf("Added edge %s", e.ID), nil
		}
	case "click":
		sc.Click(p, mods)
	default:
		return "", fmt.Errorf("unknown gesture: %s", op)
	}
	return fmt.Sprintf("Scene is %s", sc.Mode()), nil
}

func (s *Server) handleAnchor(args map[string]any) (string, error) {
	id := stringArg(args, "id")
	src, dst, ok := s.sess.Scene().Anchors(id)
	if !ok {
		return "", fmt.Errorf("no edge %q", id)
	}
	return fmt.Sprintf("Source anchor: (%g, %g)\nTarget anchor: (%g, %g)", src.X, src.Y, dst.X, dst.Y), nil
}

func (s *Server) handleSearch(ctx context.Context, args map[string]any) (string, error) {
	query := stringArg(args, "query")
	if query == "" {
		return "No query provided", nil
	}
	if s.backend == nil {
		return "", fmt.Errorf("no backing store configured")
	}

	limit := int(floatArg(args, "limit"))
	if limit == 0 {
		limit = 20
	}

	results, err := s.backend.Search(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d results for '%s':\n\n", len(results), query))
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%s %s)\n", i+1, r.Text, r.Kind, r.ID))
		sb.WriteString(fmt.Sprintf("   Score: %.3f\n", r.Score))
	}
	return sb.String(), nil
}

func formatMap(sess *session.Session) string {
	m := sess.Map()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", m.Name()))
	sb.WriteString(fmt.Sprintf("Nodes (%d):\n", m.NodeCount()))
	for _, n := range m.Nodes() {
		sb.WriteString(fmt.Sprintf("- %s **%s** %s at (%g, %g)\n", n.ID, n.Text, n.Shape, n.X, n.Y))
	}

	sb.WriteString(fmt.Sprintf("\nEdges (%d):\n", m.EdgeCount()))
	for _, e := range m.Edges() {
		src, _ := m.NodeByID(e.Source)
		dst, _ := m.NodeByID(e.Target)
		sb.WriteString(fmt.Sprintf("- %s %s --%s--> %s\n", e.ID, src.Text, e.Label, dst.Text))
	}

	if sess.Modified() {
		sb.WriteString("\nUnsaved changes.")
	}
	return sb.String()
}

func formatHistory(sess *session.Session) string {
	h := sess.History()

	var sb strings.Builder
	for i := 0; i < h.Count(); i++ {
		marker := " "
		if i < h.Index() {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("%s %d. %s\n", marker, i+1, h.Command(i).Text()))
	}
	sb.WriteString(fmt.Sprintf("\nUndo: %s\nRedo: %s\nClean: %t\n", h.UndoText(), h.RedoText(), h.IsClean()))
	return sb.String()
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func floatArg(args map[string]any, key string) float64 {
	v, _ := args[key].(float64)
	return v
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func pointArg(args map[string]any) geometry.Point {
	return geometry.Point{X: floatArg(args, "x"), Y: floatArg(args, "y")}
}
