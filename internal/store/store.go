// Package store persists planned routes so that planning and simulation can
// run as separate processes.
//
// An artifact is a fixed header followed by a zstd stream carrying a gob
// encoded body. The header records the artifact kind so that a paths-only file
// is never mistaken for a bundle that also carries its graph.
package store

import (
	"bufio"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"roadsim/internal/graph"
)

var (
	ErrCorruptArtifact = errors.New("corrupt route artifact")
	ErrArtifactKind    = errors.New("unexpected route artifact kind")
)

type Kind uint8

const (
	KindPaths  Kind = 1 // route list only
	KindBundle Kind = 2 // graph plus route list
)

func (k Kind) String() string {
	switch k {
	case KindPaths:
		return "paths"
	case KindBundle:
		return "bundle"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

const version uint8 = 1

var magic = [4]byte{'R', 'P', 'L', 'N'}

// Artifact is the persisted outcome of a planning run. Graph is nil for
// paths-only artifacts.
type Artifact struct {
	Graph *graph.Graph
	Paths [][]int
}

func (a *Artifact) Kind() Kind {
	if a.Graph != nil {
		return KindBundle
	}
	return KindPaths
}

type header struct {
	Magic   [4]byte
	Version uint8
	Kind    Kind
}

// body is the gob wire form. The graph's adjacency is rebuilt on decode.
type body struct {
	Nodes []graph.Node
	Edges []wireEdge
	Paths [][]int
}

// wireEdge spells out the optional width, since gob flattens pointers and
// would turn a zero width into an absent one.
type wireEdge struct {
	Id       int
	From     int
	To       int
	Distance float64
	HasWidth bool
	Width    float64
	Weight   float64
}

func toWire(e *graph.Edge) wireEdge {
	w := wireEdge{Id: e.Id, From: e.From, To: e.To, Distance: e.Distance, Weight: e.Weight}
	if e.Width != nil {
		w.HasWidth = true
		w.Width = *e.Width
	}
	return w
}

func (w wireEdge) edge() *graph.Edge {
	e := &graph.Edge{Id: w.Id, From: w.From, To: w.To, Distance: w.Distance, Weight: w.Weight}
	if w.HasWidth {
		width := w.Width
		e.Width = &width
	}
	return e
}

// Encode writes a to w.
func Encode(w io.Writer, a *Artifact) error {
	h := header{Magic: magic, Version: version, Kind: a.Kind()}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}

	b := body{Paths: a.Paths}
	if a.Graph != nil {
		b.Nodes = a.Graph.Nodes
		b.Edges = make([]wireEdge, len(a.Graph.Edges))
		for i, e := range a.Graph.Edges {
			b.Edges[i] = toWire(e)
		}
	}

	if err := gob.NewEncoder(zw).Encode(&b); err != nil {
		zw.Close()
		return fmt.Errorf("encode artifact: %w", err)
	}
	return zw.Close()
}

// Decode reads an artifact of any kind from r.
func Decode(r io.Reader) (*Artifact, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read header: %w: %v", ErrCorruptArtifact, err)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("bad magic %q: %w", h.Magic[:], ErrCorruptArtifact)
	}
	if h.Version != version {
		return nil, fmt.Errorf("version %d: %w", h.Version, ErrCorruptArtifact)
	}
	if h.Kind != KindPaths && h.Kind != KindBundle {
		return nil, fmt.Errorf("%s: %w", h.Kind, ErrCorruptArtifact)
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open zstd stream: %w: %v", ErrCorruptArtifact, err)
	}
	defer zr.Close()

	var b body
	dec := gob.NewDecoder(zr)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decode artifact: %w: %v", ErrCorruptArtifact, err)
	}
	// the body is the last thing in the stream
	var extra body
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, fmt.Errorf("trailing data after body: %w: %v", ErrCorruptArtifact, err)
	}

	if err := b.check(h.Kind); err != nil {
		return nil, fmt.Errorf("%s artifact: %w: %v", h.Kind, ErrCorruptArtifact, err)
	}

	a := &Artifact{Paths: normalize(b.Paths)}
	if h.Kind == KindBundle {
		edges := make([]*graph.Edge, len(b.Edges))
		for i, w := range b.Edges {
			edges[i] = w.edge()
		}
		g, err := graph.Assemble(b.Nodes, edges)
		if err != nil {
			return nil, fmt.Errorf("rebuild graph: %w: %v", ErrCorruptArtifact, err)
		}
		a.Graph = g
	}
	return a, nil
}

// check reports a body that does not match the kind in its header.
func (b *body) check(k Kind) error {
	if k == KindPaths {
		if len(b.Nodes) > 0 || len(b.Edges) > 0 {
			return fmt.Errorf("carries %d nodes and %d edges", len(b.Nodes), len(b.Edges))
		}
		return nil
	}
	for i, route := range b.Paths {
		for _, v := range route {
			if v < 0 || v >= len(b.Nodes) {
				return fmt.Errorf("route %d visits node %d of %d", i, v, len(b.Nodes))
			}
		}
	}
	return nil
}

// gob drops empty slices; an unrouted plan must stay an empty, non-nil route.
func normalize(paths [][]int) [][]int {
	if paths == nil {
		return [][]int{}
	}
	for i, p := range paths {
		if p == nil {
			paths[i] = []int{}
		}
	}
	return paths
}

// Save writes a to path atomically.
func Save(path string, a *Artifact) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := Encode(bw, a); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads the artifact at path.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}

// LoadBundle reads an artifact that must carry its graph.
func LoadBundle(path string) (*Artifact, error) {
	a, err := Load(path)
	if err != nil {
		return nil, err
	}
	if a.Graph == nil {
		return nil, fmt.Errorf("%s holds %s: %w", path, KindPaths, ErrArtifactKind)
	}
	return a, nil
}
