package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/grove/pkg/config"
	"github.com/chazu/grove/pkg/engine"
	"github.com/chazu/grove/pkg/eval"
	"github.com/chazu/grove/pkg/graph"
	"github.com/chazu/grove/pkg/kernel"
	"github.com/chazu/grove/pkg/kernel/sdfx"
	"github.com/chazu/grove/pkg/modules"
	"github.com/chazu/grove/pkg/project"
	"github.com/chazu/grove/pkg/rng"
	"github.com/chazu/grove/pkg/scene"
	"github.com/chazu/grove/pkg/tessellate"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
)

// projectExt marks binary graph files; anything else is Lisp source.
const projectExt = ".grv"

// colorPalette assigns distinct colors to generated meshes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App ties the loader, evaluator and tessellator together for the commands.
type App struct {
	cfg     config.Config
	log     hclog.Logger
	kernel  kernel.Kernel
	store   *scene.Store
	engine  *engine.Engine
	metrics *eval.Metrics
}

// MeshData is the JSON form of a placed mesh.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// ErrorData is the JSON form of a load or generation error.
type ErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// Result is the outcome of evaluating source into meshes.
type Result struct {
	Meshes []MeshData  `json:"meshes"`
	Errors []ErrorData `json:"errors"`
}

// NewApp creates an App using the sdfx kernel at the configured resolution.
// Metrics are registered with reg when it is non-nil.
func NewApp(cfg config.Config, log hclog.Logger, reg prometheus.Registerer) (*App, error) {
	return newApp(cfg, log, reg, sdfx.NewWithCells(cfg.MeshCells))
}

func newApp(cfg config.Config, log hclog.Logger, reg prometheus.Registerer, k kernel.Kernel) (*App, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	metrics, err := eval.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	store := scene.NewStore()
	return &App{
		cfg:     cfg,
		log:     log,
		kernel:  k,
		store:   store,
		engine:  engine.NewEngine(k, store, engine.WithTimeout(cfg.EvalTimeout)),
		metrics: metrics,
	}, nil
}

func (a *App) env() modules.Env {
	return modules.Env{Kernel: a.kernel, Repo: a.store}
}

// Load reads a graph from path: a binary project for .grv files, Lisp
// source otherwise. Lisp evaluation errors are returned together.
func (a *App) Load(path string) (*graph.Graph, error) {
	if filepath.Ext(path) == projectExt {
		return project.Load(path, a.env())
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, evalErrs, err := a.engine.Evaluate(string(source))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		var merr *multierror.Error
		for _, e := range evalErrs {
			merr = multierror.Append(merr, e)
		}
		return nil, fmt.Errorf("%s: %w", path, merr)
	}
	return g, nil
}

// LoadShapes evaluates the Lisp source at path for its store entries only.
// The graph it builds is discarded.
func (a *App) LoadShapes(path string) error {
	g, err := a.Load(path)
	if err != nil {
		return fmt.Errorf("shapes: %w", err)
	}
	for _, m := range g.Modules() {
		if err := g.Remove(m.ID()); err != nil {
			return fmt.Errorf("shapes: %w", err)
		}
	}
	return nil
}

// evaluator returns an evaluator for g with the app's logger and metrics.
func (a *App) evaluator(g *graph.Graph) *eval.Evaluator {
	return eval.New(g, eval.WithLogger(a.log), eval.WithMetrics(a.metrics))
}

// Generate runs one generation pass over g. The configured entry names
// replace the graph's own entries when set.
func (a *App) Generate(g *graph.Graph, seed uint64) ([]*scene.Collection, error) {
	if err := graph.Validate(g); err != nil {
		return nil, err
	}
	ev := a.evaluator(g)
	if len(a.cfg.Entries) == 0 {
		return ev.GenerateEntries(seed)
	}

	ids := make([]graph.ModuleID, 0, len(a.cfg.Entries))
	for _, name := range a.cfg.Entries {
		m := g.Lookup(name)
		if m == nil {
			return nil, fmt.Errorf("entry %q: %w", name, graph.ErrUnknownModule)
		}
		ids = append(ids, m.ID())
	}
	ev.BeginGenerationPass()
	colls := make([]*scene.Collection, 0, len(ids))
	for i, id := range ids {
		c, err := ev.Collection(id, eval.EntryOutput, rng.Derive(seed, uint64(i)))
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", a.cfg.Entries[i], err)
		}
		colls = append(colls, c)
	}
	return colls, nil
}

// Evaluate builds source, generates its entries with seed and tessellates
// the result.
func (a *App) Evaluate(source string, seed uint64) Result {
	result := Result{Meshes: []MeshData{}, Errors: []ErrorData{}}

	g, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.log.Error("evaluation failed", "error", err)
		result.Errors = append(result.Errors, ErrorData{Message: err.Error()})
		return result
	}
	for _, e := range evalErrs {
		result.Errors = append(result.Errors, ErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
	}
	if len(evalErrs) > 0 {
		return result
	}

	colls, err := a.Generate(g, seed)
	if err != nil {
		result.Errors = append(result.Errors, ErrorData{Message: "generation failed: " + err.Error()})
		return result
	}
	meshes, err := a.Meshes(colls)
	if err != nil {
		result.Errors = append(result.Errors, ErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}
	result.Meshes = meshes
	return result
}

// Meshes tessellates colls and assigns palette colors in order.
func (a *App) Meshes(colls []*scene.Collection) ([]MeshData, error) {
	out := []MeshData{}
	for _, c := range colls {
		meshes, err := tessellate.Tessellate(c, a.kernel)
		if err != nil {
			return nil, err
		}
		for _, m := range meshes {
			out = append(out, MeshData{
				Vertices: m.Vertices,
				Normals:  m.Normals,
				Indices:  m.Indices,
				PartName: m.PartName,
				Color:    colorPalette[len(out)%len(colorPalette)],
			})
		}
	}
	return out, nil
}
