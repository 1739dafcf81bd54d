// Package cmd provides CLI command implementations for conceptmap-go.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/fatih/color"

	"github.com/Benny93/conceptmap-go/internal/geometry"
	"github.com/Benny93/conceptmap-go/internal/graph"
	"github.com/Benny93/conceptmap-go/internal/logging"
	"github.com/Benny93/conceptmap-go/internal/replay"
	"github.com/Benny93/conceptmap-go/internal/session"
	"github.com/Benny93/conceptmap-go/internal/storage"
	"github.com/Benny93/conceptmap-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Workspace layout under Globals.Dir.
const (
	workspaceDir = ".cmap"
	badgerDir    = "badger"
	metaFile     = "meta.json"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	bold   = color.New(color.Bold)
)

// Globals are flags shared by every command.
type Globals struct {
	Dir     string `short:"C" type:"path" default:"." env:"CMAP_DIR" help:"Directory holding the .cmap workspace"`
	Verbose bool   `short:"v" env:"CMAP_VERBOSE" help:"Enable verbose output"`
	Quiet   bool   `short:"q" help:"Suppress non-essential output"`

	out    io.Writer
	logger *log.Logger
}

func (g *Globals) workspace() string { return filepath.Join(g.Dir, workspaceDir) }

// InitCmd creates an empty concept map workspace.
type InitCmd struct {
	Name  string `default:"Untitled" help:"Map name"`
	Force bool   `short:"f" help:"Overwrite an existing map"`
}

// Run executes the init command.
func (c *InitCmd) Run(ctx context.Context, g *Globals) error {
	dir := g.workspace()
	if _, err := os.Stat(dir); err == nil && !c.Force {
		return fmt.Errorf("a map already exists at %s; use --force to overwrite", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", workspaceDir, err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(filepath.Join(dir, badgerDir), false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	snap := graph.Snapshot{Name: c.Name}
	if err := store.BulkLoad(ctx, snap); err != nil {
		return fmt.Errorf("writing map: %w", err)
	}
	if err := writeMeta(dir, snap); err != nil {
		return err
	}

	green.Fprintf(g.out, "Created map %q in %s\n", c.Name, dir)
	return nil
}

// AddNodeCmd adds a concept.
type AddNodeCmd struct {
	Text  string   `arg:"" help:"Concept text"`
	X     *float64 `help:"Horizontal position (default: next grid slot)"`
	Y     *float64 `help:"Vertical position (default: next grid slot)"`
	Shape string   `default:"rectangle" enum:"rectangle,ellipse,rounded_rect" help:"Node outline"`
}

// Run executes the add-node command.
func (c *AddNodeCmd) Run(ctx context.Context, g *Globals) error {
	shape, err := geometry.ParseShape(c.Shape)
	if err != nil {
		return err
	}

	return edit(ctx, g, func(sess *session.Session) error {
		pos := sess.Grid().Next()
		if c.X != nil {
			pos.X = *c.X
		}
		if c.Y != nil {
			pos.Y = *c.Y
		}

		n, ok := sess.NewNodeAt(c.Text, pos, shape)
		if !ok {
			return fmt.Errorf("node rejected")
		}
		green.Fprintf(g.out, "Added node %s", n.ID)
		fmt.Fprintf(g.out, " at (%g, %g)\n", n.X, n.Y)
		return nil
	})
}

// AddEdgeCmd connects two concepts.
type AddEdgeCmd struct {
	Source string `arg:"" help:"Source node ID or text"`
	Target string `arg:"" help:"Target node ID or text"`
	Label  string `short:"l" default:"connects" help:"Relationship label"`
}

// Run executes the add-edge command.
func (c *AddEdgeCmd) Run(ctx context.Context, g *Globals) error {
	return edit(ctx, g, func(sess *session.Session) error {
		src, err := findNode(sess.Map(), c.Source)
		if err != nil {
			return err
		}
		dst, err := findNode(sess.Map(), c.Target)
		if err != nil {
			return err
		}

		e, ok := sess.Connect(src, dst, c.Label)
		if !ok {
			return fmt.Errorf("edge rejected")
		}
		green.Fprintf(g.out, "Added edge %s\n", e.ID)
		return nil
	})
}

// RemoveNodeCmd deletes a concept and its edges.
type RemoveNodeCmd struct {
	Node string `arg:"" help:"Node ID or text"`
}

// Run executes the remove-node command.
func (c *RemoveNodeCmd) Run(ctx context.Context, g *Globals) error {
	return edit(ctx, g, func(sess *session.Session) error {
		id, err := findNode(sess.Map(), c.Node)
		if err != nil {
			return err
		}
		removed := len(sess.Map().EdgesByNodeID(id))
		sess.DeleteNode(id)
		green.Fprintf(g.out, "Removed node %s", id)
		fmt.Fprintf(g.out, " and %d edge(s)\n", removed)
		return nil
	})
}

// RemoveEdgeCmd deletes an edge.
type RemoveEdgeCmd struct {
	ID string `arg:"" help:"Edge ID"`
}

// Run executes the remove-edge command.
func (c *RemoveEdgeCmd) Run(ctx context.Context, g *Globals) error {
	return edit(ctx, g, func(sess *session.Session) error {
		if !sess.DeleteEdge(c.ID) {
			return fmt.Errorf("no edge %q", c.ID)
		}
		green.Fprintf(g.out, "Removed edge %s\n", c.ID)
		return nil
	})
}

// MoveCmd repositions a concept.
type MoveCmd struct {
	Node string  `arg:"" help:"Node ID or text"`
	X    float64 `arg:"" help:"New horizontal position"`
	Y    float64 `arg:"" help:"New vertical position"`
}

// Run executes the move command.
func (c *MoveCmd) Run(ctx context.Context, g *Globals) error {
	return edit(ctx, g, func(sess *session.Session) error {
		id, err := findNode(sess.Map(), c.Node)
		if err != nil {
			return err
		}
		sess.MoveNode(id, geometry.Point{X: c.X, Y: c.Y})
		green.Fprintf(g.out, "Moved node %s", id)
		fmt.Fprintf(g.out, " to (%g, %g)\n", c.X, c.Y)
		return nil
	})
}

// ShowCmd prints the map.
type ShowCmd struct {
	JSON bool `help:"Print the map as JSON"`
}

// Run executes the show command.
func (c *ShowCmd) Run(ctx context.Context, g *Globals) error {
	return view(ctx, g, func(sess *session.Session) error {
		snap := sess.Snapshot()
		if c.JSON {
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding map: %w", err)
			}
			fmt.Fprintln(g.out, string(data))
			return nil
		}

		m := sess.Map()
		bold.Fprintf(g.out, "%s\n", snap.Name)
		fmt.Fprintf(g.out, "\nNodes (%d):\n", len(snap.Nodes))
		for _, n := range snap.Nodes {
			fmt.Fprintf(g.out, "  %s  %-20s %-12s (%g, %g)\n", n.ID, n.Text, n.Shape, n.X, n.Y)
		}
		fmt.Fprintf(g.out, "\nEdges (%d):\n", len(snap.Edges))
		for _, e := range snap.Edges {
			src, _ := m.NodeByID(e.Source)
			dst, _ := m.NodeByID(e.Target)
			fmt.Fprintf(g.out, "  %s  %s --%s--> %s\n", e.ID, src.Text, e.Label, dst.Text)
		}
		return nil
	})
}

// AnchorCmd prints where an edge meets its endpoint outlines.
type AnchorCmd struct {
	ID string `arg:"" help:"Edge ID"`
}

// Run executes the anchor command.
func (c *AnchorCmd) Run(ctx context.Context, g *Globals) error {
	return view(ctx, g, func(sess *session.Session) error {
		src, dst, ok := sess.Scene().Anchors(c.ID)
		if !ok {
			return fmt.Errorf("no edge %q", c.ID)
		}
		fmt.Fprintf(g.out, "Source anchor: (%g, %g)\n", src.X, src.Y)
		fmt.Fprintf(g.out, "Target anchor: (%g, %g)\n", dst.X, dst.Y)
		return nil
	})
}

// FindCmd searches node texts and edge labels.
type FindCmd struct {
	Query string `arg:"" help:"Search query"`
	Limit int    `short:"n" default:"20" help:"Maximum results"`
}

// Run executes the find command.
func (c *FindCmd) Run(ctx context.Context, g *Globals) error {
	store, err := openStorage(g, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	results, err := store.Search(ctx, c.Query, c.Limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(g.out, "No results found")
		return nil
	}

	for i, r := range results {
		fmt.Fprintf(g.out, "%d. %s (%s %s)\n", i+1, r.Text, r.Kind, r.ID)
		fmt.Fprintf(g.out, "   Score: %.3f\n", r.Score)
	}
	return nil
}

// ReplayCmd runs an edit script against the map.
type ReplayCmd struct {
	Script string `arg:"" type:"existingfile" help:"YAML edit script"`
	DryRun bool   `help:"Run the script without saving the result"`
}

// Run executes the replay command.
func (c *ReplayCmd) Run(ctx context.Context, g *Globals) error {
	script, err := replay.Load(c.Script)
	if err != nil {
		return err
	}

	apply := func(sess *session.Session) error {
		res, err := replay.Run(ctx, sess, script)
		if err != nil {
			return err
		}
		printResult(g, script, res)
		return nil
	}

	if c.DryRun {
		return view(ctx, g, apply)
	}
	return edit(ctx, g, apply)
}

// WatchCmd re-runs an edit script whenever it changes.
type WatchCmd struct {
	Script string `arg:"" help:"YAML edit script"`
}

// Run executes the watch command. Every run starts from the saved map and
// nothing is written back.
func (c *WatchCmd) Run(ctx context.Context, g *Globals) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	if !g.Quiet {
		fmt.Fprintf(g.out, "Watching %s for changes (Ctrl+C to stop)\n", c.Script)
	}

	err := replay.Watch(ctx, c.Script, func(ctx context.Context, script *replay.Script, loadErr error) {
		if loadErr != nil {
			yellow.Fprintf(g.out, "%v\n", loadErr)
			return
		}
		err := view(ctx, g, func(sess *session.Session) error {
			res, err := replay.Run(ctx, sess, script)
			if err != nil {
				return err
			}
			printResult(g, script, res)
			return nil
		})
		if err != nil {
			yellow.Fprintf(g.out, "%v\n", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// MCPCmd starts the MCP server.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run(ctx context.Context, g *Globals) error {
	store, err := openStorage(g, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sess := newSession(g)
	defer sess.Close()
	if err := sess.Open(ctx, store); err != nil {
		return err
	}

	ctx, cancel := signalContext(ctx)
	defer cancel()

	server := mcp.NewServer(sess, store)

	// Note: No output to stdout - MCP server uses stdio for JSON-RPC only
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// StatusCmd shows workspace status.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(ctx context.Context, g *Globals) error {
	meta, err := readMeta(g.workspace())
	if err != nil {
		return err
	}

	fmt.Fprintf(g.out, "Map status for %s\n", g.Dir)
	fmt.Fprintf(g.out, "  Name:        %s\n", meta.Name)
	fmt.Fprintf(g.out, "  Version:     %s\n", meta.Version)
	fmt.Fprintf(g.out, "  Nodes:       %d\n", meta.Nodes)
	fmt.Fprintf(g.out, "  Edges:       %d\n", meta.Edges)
	fmt.Fprintf(g.out, "  Last saved:  %s\n", meta.SavedAt)
	return nil
}

// CleanCmd deletes the workspace.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(g *Globals) error {
	dir := g.workspace()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("no map found at %s. Nothing to clean", g.Dir)
	}

	if !c.Force {
		fmt.Fprintf(g.out, "Delete map at %s? [y/N] ", dir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(g.out, "Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting map: %w", err)
	}

	green.Fprintf(g.out, "Deleted %s\n", dir)
	return nil
}

// Helper functions

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

func newSession(g *Globals) *session.Session {
	return session.New(session.WithLogger(g.logger))
}

func openStorage(g *Globals, readOnly bool) (*storage.BadgerBackend, error) {
	dbPath := filepath.Join(g.workspace(), badgerDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no map found at %s. Run 'cmap init' first", g.Dir)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// view loads the saved map into a fresh session and runs fn without saving.
func view(ctx context.Context, g *Globals, fn func(*session.Session) error) error {
	store, err := openStorage(g, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sess := newSession(g)
	defer sess.Close()
	if err := sess.Open(ctx, store); err != nil {
		return err
	}
	return fn(sess)
}

// edit loads the saved map, runs fn and saves the result if it changed.
func edit(ctx context.Context, g *Globals, fn func(*session.Session) error) error {
	store, err := openStorage(g, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sess := newSession(g)
	defer sess.Close()
	if err := sess.Open(ctx, store); err != nil {
		return err
	}

	if err := fn(sess); err != nil {
		return err
	}
	if !sess.Modified() {
		g.logger.Debug("nothing to save")
		return nil
	}

	if err := sess.Save(ctx, store); err != nil {
		return err
	}
	return writeMeta(g.workspace(), sess.Snapshot())
}

// findNode resolves ref as a node ID or, failing that, as the exact text
// of a single node.
func findNode(m *graph.ConceptMap, ref string) (string, error) {
	if m.HasNode(ref) {
		return ref, nil
	}

	var matches []string
	for _, n := range m.Nodes() {
		if n.Text == ref {
			matches = append(matches, n.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no node %q", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%d nodes have text %q; use an ID", len(matches), ref)
	}
}

func printResult(g *Globals, script *replay.Script, res replay.Result) {
	if g.Quiet {
		return
	}
	green.Fprintf(g.out, "✓ %s", script.Name)
	fmt.Fprintf(g.out, ": %d steps, %d nodes, %d edges\n", res.Steps, res.Nodes, res.Edges)
}

type meta struct {
	Version string `json:"version"`
	Name    string `json:"name"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
	SavedAt string `json:"saved_at"`
}

func writeMeta(dir string, snap graph.Snapshot) error {
	data, err := json.MarshalIndent(meta{
		Version: Version,
		Name:    snap.Name,
		Nodes:   len(snap.Nodes),
		Edges:   len(snap.Edges),
		SavedAt: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", metaFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", metaFile, err)
	}
	return nil
}

func readMeta(dir string) (meta, error) {
	var m meta
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return m, fmt.Errorf("no map found at %s. Run 'cmap init' first", filepath.Dir(dir))
		}
		return m, fmt.Errorf("reading %s: %w", metaFile, err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing %s: %w", metaFile, err)
	}
	return m, nil
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Init       InitCmd       `cmd:"" help:"Create an empty concept map"`
	AddNode    AddNodeCmd    `cmd:"" help:"Add a concept"`
	AddEdge    AddEdgeCmd    `cmd:"" help:"Connect two concepts"`
	RemoveNode RemoveNodeCmd `cmd:"" help:"Delete a concept and its edges"`
	RemoveEdge RemoveEdgeCmd `cmd:"" help:"Delete an edge"`
	Move       MoveCmd       `cmd:"" help:"Move a concept"`
	Show       ShowCmd       `cmd:"" help:"Print the map"`
	Anchor     AnchorCmd     `cmd:"" help:"Print where an edge meets its endpoints"`
	Find       FindCmd       `cmd:"" help:"Search concepts and edge labels"`
	Replay     ReplayCmd     `cmd:"" help:"Apply a YAML edit script"`
	Watch      WatchCmd      `cmd:"" help:"Re-run an edit script on every change"`
	MCP        MCPCmd        `cmd:"" name:"mcp" help:"Start MCP server (stdio transport)"`
	Status     StatusCmd     `cmd:"" help:"Show map status"`
	Clean      CleanCmd      `cmd:"" help:"Delete the map workspace"`
}

// NewCLI creates a new CLI instance writing to stdout.
func NewCLI() *CLI {
	return &CLI{Globals: Globals{out: os.Stdout}}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	if c.out == nil {
		c.out = os.Stdout
	}

	parser, err := kong.New(c,
		kong.Name("cmap"),
		kong.Description("Concept map editor with undo history"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	c.logger = logging.New(os.Stderr, logging.Level(c.Verbose, c.Quiet))
	ctx := logging.WithLogger(context.Background(), c.logger)

	kongCtx.BindTo(ctx, (*context.Context)(nil))
	return kongCtx.Run(&c.Globals)
}
