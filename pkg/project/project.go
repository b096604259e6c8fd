// Package project reads and writes graph files: a magic header, the module
// records, the connections between them and the entry list.
//
// A module record is its kind, id, name and editor position, a record
// version (always 0) and the module's own fields. Connections and entries
// refer to modules by their position in the file.
package project

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/grove/pkg/graph"
	"github.com/chazu/grove/pkg/modules"
	"github.com/chazu/grove/pkg/wire"
)

const (
	// Magic opens every graph file.
	Magic = "GRVE"

	// Version is the container version this package writes and reads.
	Version int16 = 0

	// RecordVersion is the module record version this package writes and reads.
	RecordVersion int16 = 0

	// MaxModules bounds the module and connection counts of a decoded file.
	MaxModules = 1 << 20
)

var (
	// ErrFormat reports a file that is not a valid graph file.
	ErrFormat = errors.New("project: invalid graph file")

	// ErrUnsupportedVersion reports a container or module record version
	// other than 0. It matches ErrFormat.
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrFormat)
)

// Encode writes g to w.
func Encode(w io.Writer, g *graph.Graph) error {
	ww := wire.NewWriter(w)
	ww.Bytes([]byte(Magic))
	ww.Int16(Version)

	ms := g.Modules()
	pos := make(map[graph.ModuleID]int32, len(ms))
	ww.Int32(int32(len(ms)))
	for i, m := range ms {
		pos[m.ID()] = int32(i)
		p := m.Position()
		ww.Int16(int16(m.Kind()))
		ww.String(string(m.ID()))
		ww.String(m.Name())
		ww.Float64(p.X)
		ww.Float64(p.Y)
		ww.Int16(RecordVersion)
		m.EncodeFields(ww)
	}

	conns := g.Connections()
	ww.Int32(int32(len(conns)))
	for _, c := range conns {
		ww.Int32(pos[c.From.Module])
		ww.Int16(int16(c.From.Port))
		ww.Int32(pos[c.To.Module])
		ww.Int16(int16(c.To.Port))
	}

	entries := g.Entries()
	ww.Int32(int32(len(entries)))
	for _, id := range entries {
		ww.Int32(pos[id])
	}

	if err := ww.Err(); err != nil {
		return fmt.Errorf("project: encode: %w", err)
	}
	return nil
}

// Decode reads a graph written by Encode. Object modules are bound to env.
// Any error aborts the whole load; modules decoded before the failure
// release their repository references.
func Decode(r io.Reader, env modules.Env) (*graph.Graph, error) {
	d := &decoder{r: wire.NewReader(r), env: env, g: graph.New()}
	if err := d.decode(); err != nil {
		for _, m := range d.ms {
			if u, ok := m.(graph.Unregisterer); ok {
				u.Unregister()
			}
		}
		return nil, err
	}
	return d.g, nil
}

type decoder struct {
	r   *wire.Reader
	env modules.Env
	g   *graph.Graph
	ms  []graph.Module
}

func (d *decoder) fail(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrFormat}, args...)...)
}

// wireErr converts a reader error into a format error.
func (d *decoder) wireErr(what string) error {
	if err := d.r.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFormat, what, err)
	}
	return nil
}

func (d *decoder) count(what string) (int, error) {
	n := d.r.Int32()
	if err := d.wireErr(what); err != nil {
		return 0, err
	}
	if n < 0 || n > MaxModules {
		return 0, d.fail("%s count %d", what, n)
	}
	return int(n), nil
}

func (d *decoder) module(i int) (graph.Module, error) {
	kind := graph.Kind(d.r.Int16())
	id := graph.ModuleID(d.r.String())
	name := d.r.String()
	pos := graph.Position{X: d.r.Float64(), Y: d.r.Float64()}
	version := d.r.Int16()
	if err := d.wireErr(fmt.Sprintf("module %d", i)); err != nil {
		return nil, err
	}
	if version != RecordVersion {
		return nil, fmt.Errorf("%w: module %d (%q) record version %d", ErrUnsupportedVersion, i, name, version)
	}
	if id.IsZero() {
		return nil, d.fail("module %d (%q) has no id", i, name)
	}
	m, err := modules.New(kind, d.env, name)
	if err != nil {
		return nil, d.fail("module %d: %v", i, err)
	}
	d.ms = append(d.ms, m)
	m.SetID(id)
	m.SetPosition(pos)
	m.DecodeFields(d.r)
	if err := d.wireErr(fmt.Sprintf("module %d (%q) fields", i, name)); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *decoder) ref(i int32) (graph.ModuleID, bool) {
	if i < 0 || int(i) >= len(d.ms) {
		return "", false
	}
	return d.ms[i].ID(), true
}

func (d *decoder) decode() error {
	magic := d.r.Bytes(len(Magic))
	version := d.r.Int16()
	if err := d.wireErr("header"); err != nil {
		return err
	}
	if string(magic) != Magic {
		return d.fail("bad magic %q", magic)
	}
	if version != Version {
		return fmt.Errorf("%w: container version %d", ErrUnsupportedVersion, version)
	}

	n, err := d.count("module")
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		m, err := d.module(i)
		if err != nil {
			return err
		}
		if err := d.g.Add(m); err != nil {
			return d.fail("module %d: %v", i, err)
		}
	}

	n, err = d.count("connection")
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		fromIdx, fromPort := d.r.Int32(), d.r.Int16()
		toIdx, toPort := d.r.Int32(), d.r.Int16()
		if err := d.wireErr(fmt.Sprintf("connection %d", i)); err != nil {
			return err
		}
		from, ok1 := d.ref(fromIdx)
		to, ok2 := d.ref(toIdx)
		if !ok1 || !ok2 {
			return d.fail("connection %d refers to module %d -> %d", i, fromIdx, toIdx)
		}
		if err := d.g.Connect(from, int(fromPort), to, int(toPort)); err != nil {
			return d.fail("connection %d: %v", i, err)
		}
	}

	n, err = d.count("entry")
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		idx := d.r.Int32()
		if err := d.wireErr(fmt.Sprintf("entry %d", i)); err != nil {
			return err
		}
		id, ok := d.ref(idx)
		if !ok {
			return d.fail("entry %d refers to module %d", i, idx)
		}
		if err := d.g.AddEntry(id); err != nil {
			return d.fail("entry %d: %v", i, err)
		}
	}
	return nil
}

// Save writes g to the file at path.
func Save(path string, g *graph.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("project: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := Encode(bw, g); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("project: %w", err)
	}
	return f.Close()
}

// Load reads the graph file at path.
func Load(path string, env modules.Env) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	defer f.Close()
	return Decode(bufio.NewReader(f), env)
}
