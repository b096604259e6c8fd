package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/grove/pkg/config"
	"github.com/chazu/grove/pkg/graph"
	"github.com/chazu/grove/pkg/kernel"
	"github.com/chazu/grove/pkg/modules"
	"github.com/chazu/grove/pkg/project"
	"github.com/chazu/grove/pkg/scene"
	"github.com/mitchellh/cli"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xlab/treeprint"
)

// Meta holds what every command shares.
type Meta struct {
	Ui cli.Ui

	// LogOutput receives log lines. Nil means stderr.
	LogOutput io.Writer

	// kernel replaces the sdfx kernel when set.
	kernel kernel.Kernel
}

// sharedFlags are accepted by every graph command.
type sharedFlags struct {
	config string
	shapes string
}

// flags returns a flag set for command name with the shared flags.
func (m *Meta) flags(name string) (*flag.FlagSet, *sharedFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	sf := &sharedFlags{}
	fs.StringVar(&sf.config, "config", "", "path to a YAML configuration file")
	fs.StringVar(&sf.shapes, "shapes", "", "Lisp source whose box and cylinder shapes fill the object store")
	return fs, sf
}

// setup loads the configuration and builds the App. A -seed flag that was
// set on fs overrides the configured seed.
func (m *Meta) setup(fs *flag.FlagSet, sf *sharedFlags, seed *uint64, reg prometheus.Registerer) (*App, error) {
	cfg, err := config.Load(sf.config)
	if err != nil {
		return nil, err
	}
	if seed != nil {
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "seed" {
				cfg.Seed = *seed
			}
		})
	}
	out := m.LogOutput
	if out == nil {
		out = os.Stderr
	}
	log := cfg.Logger("grove", out)

	var app *App
	if m.kernel != nil {
		app, err = newApp(cfg, log, reg, m.kernel)
	} else {
		app, err = NewApp(cfg, log, reg)
	}
	if err != nil {
		return nil, err
	}
	if sf.shapes != "" {
		if err := app.LoadShapes(sf.shapes); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// EvalCommand pulls a single module output.
type EvalCommand struct {
	Meta
}

func (c *EvalCommand) Run(args []string) int {
	fs, sf := c.flags("eval")
	seed := fs.Uint64("seed", 0, "root seed")
	if err := fs.Parse(args); err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	rest := fs.Args()
	if len(rest) < 2 || len(rest) > 3 {
		c.Ui.Error(c.Help())
		return 1
	}
	port := 0
	if len(rest) == 3 {
		p, err := strconv.Atoi(rest[2])
		if err != nil {
			c.Ui.Error(fmt.Sprintf("invalid port %q", rest[2]))
			return 1
		}
		port = p
	}

	app, err := c.setup(fs, sf, seed, nil)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	g, err := app.Load(rest[0])
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	m := g.Lookup(rest[1])
	if m == nil {
		c.Ui.Error(fmt.Sprintf("no module named %q", rest[1]))
		return 1
	}

	ev := app.evaluator(g)
	switch m.(type) {
	case graph.ValueModule:
		v, err := ev.Value(m.ID(), port, app.cfg.Seed)
		if err != nil {
			c.Ui.Error(err.Error())
			return 1
		}
		c.Ui.Output(strconv.FormatFloat(v, 'g', -1, 64))
	case graph.ObjectModule:
		coll, err := ev.Generate(m.ID(), port, app.cfg.Seed)
		if err != nil {
			c.Ui.Error(err.Error())
			return 1
		}
		c.Ui.Output(renderCollection(coll))
	}
	return 0
}

func (c *EvalCommand) Help() string {
	return strings.TrimSpace(`
Usage: grove eval [-config FILE] [-shapes SOURCE] [-seed N] SOURCE MODULE [PORT]

  Evaluates output PORT (default 0) of the module named MODULE and prints
  the value, or the generated object tree for object modules.
`)
}

func (c *EvalCommand) Synopsis() string {
	return "Evaluate one module output"
}

// GenerateCommand runs a generation pass over the entry modules.
type GenerateCommand struct {
	Meta
}

func (c *GenerateCommand) Run(args []string) int {
	fs, sf := c.flags("generate")
	seed := fs.Uint64("seed", 0, "root seed")
	save := fs.String("save", "", "write the loaded graph as a binary project")
	meshOut := fs.String("json", "", "write tessellated meshes as JSON")
	showMetrics := fs.Bool("metrics", false, "print evaluation metrics")
	if err := fs.Parse(args); err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	if fs.NArg() != 1 {
		c.Ui.Error(c.Help())
		return 1
	}

	reg := prometheus.NewRegistry()
	app, err := c.setup(fs, sf, seed, reg)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	g, err := app.Load(fs.Arg(0))
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	colls, err := app.Generate(g, app.cfg.Seed)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	for _, coll := range colls {
		c.Ui.Output(renderCollection(coll))
	}

	if *save != "" {
		if err := project.Save(*save, g); err != nil {
			c.Ui.Error(err.Error())
			return 1
		}
	}
	if *meshOut != "" {
		if err := writeMeshes(app, colls, *meshOut); err != nil {
			c.Ui.Error(err.Error())
			return 1
		}
	}
	if *showMetrics {
		if err := printMetrics(c.Ui, reg); err != nil {
			c.Ui.Error(err.Error())
			return 1
		}
	}
	return 0
}

func (c *GenerateCommand) Help() string {
	return strings.TrimSpace(`
Usage: grove generate [-config FILE] [-shapes SOURCE] [-seed N] [-save OUT.grv] [-json OUT] [-metrics] SOURCE

  Runs one generation pass over the entry modules of SOURCE and prints the
  generated object trees. SOURCE is a binary project when it ends in .grv
  and Lisp source otherwise. Object modules of a project refer to store
  entries by index; -shapes rebuilds them from the source the project was
  saved from.
`)
}

func (c *GenerateCommand) Synopsis() string {
	return "Generate the entry modules of a graph"
}

// InspectCommand prints the structure of a graph.
type InspectCommand struct {
	Meta
}

func (c *InspectCommand) Run(args []string) int {
	fs, sf := c.flags("inspect")
	if err := fs.Parse(args); err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	if fs.NArg() != 1 {
		c.Ui.Error(c.Help())
		return 1
	}
	app, err := c.setup(fs, sf, nil, nil)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	g, err := app.Load(fs.Arg(0))
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	c.Ui.Output(renderGraph(g))
	if err := graph.Validate(g); err != nil {
		c.Ui.Warn(err.Error())
		return 1
	}
	return 0
}

func (c *InspectCommand) Help() string {
	return strings.TrimSpace(`
Usage: grove inspect [-config FILE] [-shapes SOURCE] SOURCE

  Prints the modules, connections and entries of a graph and reports
  structural problems.
`)
}

func (c *InspectCommand) Synopsis() string {
	return "Show the structure of a graph"
}

// ModulesCommand lists the module kinds.
type ModulesCommand struct {
	Meta
}

func (c *ModulesCommand) Run(args []string) int {
	tree := treeprint.NewWithRoot("modules")
	for _, info := range modules.Kinds() {
		produces := "value"
		if info.Produces == graph.PortObject {
			produces = "objects"
		}
		tree.AddNode(fmt.Sprintf("%s (%s): %s", info.Name(), produces, info.Description))
	}
	c.Ui.Output(tree.String())
	return 0
}

func (c *ModulesCommand) Help() string {
	return "Usage: grove modules\n\n  Lists the available module kinds."
}

func (c *ModulesCommand) Synopsis() string {
	return "List module kinds"
}

// describe returns a one-line label for a generated object.
func describe(o *scene.Object) string {
	if o == nil {
		return "(empty)"
	}
	var b strings.Builder
	b.WriteString(o.Module)
	if o.Geometry != nil && o.Geometry.Solid != nil {
		size := kernel.Size(o.Geometry.Solid)
		fmt.Fprintf(&b, " %gx%gx%g", size[0], size[1], size[2])
	}
	if t := o.Placement.Translation; !t.IsZero() {
		fmt.Fprintf(&b, " at (%g, %g, %g)", t.X, t.Y, t.Z)
	}
	if o.Geometry != nil && o.Geometry.Shared() {
		b.WriteString(" shared")
	}
	if !o.Visible {
		b.WriteString(" hidden")
	}
	return b.String()
}

// renderCollection prints a collection as a tree.
func renderCollection(c *scene.Collection) string {
	name := c.Name
	if name == "" {
		name = "(collection)"
	}
	tree := treeprint.NewWithRoot(name)
	var add func(t treeprint.Tree, n *scene.Node)
	add = func(t treeprint.Tree, n *scene.Node) {
		if len(n.Children) == 0 {
			t.AddNode(describe(n.Object))
			return
		}
		branch := t.AddBranch(describe(n.Object))
		for _, child := range n.Children {
			add(branch, child)
		}
	}
	for _, root := range c.Roots {
		add(tree, root)
	}
	return tree.String()
}

// renderGraph prints modules with their incoming connections, then entries.
func renderGraph(g *graph.Graph) string {
	tree := treeprint.NewWithRoot(fmt.Sprintf("graph (%d modules)", g.Len()))
	mods := tree.AddBranch("modules")
	for _, m := range g.Modules() {
		label := fmt.Sprintf("%s [%s] %s", m.Name(), m.Kind(), m.ID().Short())
		ins := m.Inputs()
		var conns []string
		for port := range ins {
			for _, src := range g.Index().Producers(m.ID(), port) {
				from := g.Module(src.Module)
				if from == nil {
					continue
				}
				conns = append(conns, fmt.Sprintf("%s <- %s.%d", ins[port].Name, from.Name(), src.Port))
			}
		}
		if len(conns) == 0 {
			mods.AddNode(label)
			continue
		}
		branch := mods.AddBranch(label)
		for _, c := range conns {
			branch.AddNode(c)
		}
	}
	entries := tree.AddBranch("entries")
	for _, id := range g.Entries() {
		if m := g.Module(id); m != nil {
			entries.AddNode(m.Name())
		}
	}
	return tree.String()
}

// writeMeshes tessellates colls and writes them to path as JSON.
func writeMeshes(app *App, colls []*scene.Collection, path string) error {
	meshes, err := app.Meshes(colls)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(meshes, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// printMetrics writes every counter gathered from reg.
func printMetrics(ui cli.Ui, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			ui.Output(fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
		}
	}
	return nil
}
