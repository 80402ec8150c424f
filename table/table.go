// Package table indexes flattened controllers by identity and answers
// runtime metadata queries.
package table

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/milk9111/animdb/controller"
)

var (
	ErrNotFound            = errors.New("table: controller not found")
	ErrDuplicateController = errors.New("table: duplicate controller identity")
	ErrStateNotFound       = errors.New("table: state not found")
	ErrClosed              = errors.New("table: closed")
)

// Table is built lazily from a fixed set of records, at most once per
// generation. After the build every query is a lock-free read.
type Table struct {
	gen    atomic.Pointer[generation]
	builds atomic.Uint64
	logger *slog.Logger
}

type generation struct {
	records []controller.Controller
	closed  bool

	once  sync.Once
	index map[controller.ID]*controller.Controller
	err   error
}

type Option func(*Table)

func WithLogger(l *slog.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.logger = l
		}
	}
}

// New returns an unbuilt table over records. The table takes ownership of
// records; callers must not modify them afterwards.
func New(records []controller.Controller, opts ...Option) *Table {
	t := &Table{logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	t.gen.Store(&generation{records: records})
	return t
}

// Build forces the one-time build and reports its error.
func (t *Table) Build() error {
	_, err := t.built()
	return err
}

// Reset replaces the records with a new unbuilt generation. Queries already
// running keep reading the previous generation.
func (t *Table) Reset(records []controller.Controller) {
	t.gen.Store(&generation{records: records})
}

// Close drops the records. Every later query fails with ErrClosed.
func (t *Table) Close() error {
	t.gen.Store(&generation{closed: true})
	return nil
}

// Builds reports how many build passes have run over the table's lifetime.
func (t *Table) Builds() uint64 {
	return t.builds.Load()
}

func (t *Table) built() (*generation, error) {
	g := t.gen.Load()
	if g.closed {
		return nil, ErrClosed
	}
	g.once.Do(func() {
		g.index, g.err = buildIndex(g.records)
		t.builds.Add(1)
		if g.err != nil {
			t.logger.Error("controller table build failed", "error", g.err)
			return
		}
		t.logger.Debug("controller table built", "controllers", len(g.index))
	})
	if g.err != nil {
		return nil, g.err
	}
	return g, nil
}

func buildIndex(records []controller.Controller) (map[controller.ID]*controller.Controller, error) {
	index := make(map[controller.ID]*controller.Controller, len(records))
	for i := range records {
		c := &records[i]
		if _, ok := index[c.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateController, c.ID)
		}
		index[c.ID] = c
	}
	return index, nil
}

func (t *Table) lookup(id controller.ID) (*controller.Controller, error) {
	g, err := t.built()
	if err != nil {
		return nil, err
	}
	c, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return c, nil
}

// IDs returns the indexed controller identities in record order.
func (t *Table) IDs() ([]controller.ID, error) {
	g, err := t.built()
	if err != nil {
		return nil, err
	}
	ids := make([]controller.ID, len(g.records))
	for i, c := range g.records {
		ids[i] = c.ID
	}
	return ids, nil
}

// Has reports whether id was indexed. A failed build reports false.
func (t *Table) Has(id controller.ID) bool {
	_, err := t.lookup(id)
	return err == nil
}

// GetParameters returns the parameters of id in declared order.
func (t *Table) GetParameters(id controller.ID) ([]controller.Parameter, error) {
	c, err := t.lookup(id)
	if err != nil {
		return nil, err
	}
	params := make([]controller.Parameter, len(c.Parameters))
	copy(params, c.Parameters)
	return params, nil
}

// GetLayers returns deep copies of the layers of id in declared order.
func (t *Table) GetLayers(id controller.ID) ([]controller.Layer, error) {
	c, err := t.lookup(id)
	if err != nil {
		return nil, err
	}
	layers := make([]controller.Layer, len(c.Layers))
	for i, l := range c.Layers {
		layers[i] = l.Clone()
	}
	return layers, nil
}

func (t *Table) GetLayerCount(id controller.ID) (int, error) {
	c, err := t.lookup(id)
	if err != nil {
		return 0, err
	}
	return len(c.Layers), nil
}

// GetStates returns every state of id: each layer's tree in pre-order,
// layers in declared order.
func (t *Table) GetStates(id controller.ID) ([]controller.State, error) {
	seq, err := t.StatesSeq(id)
	if err != nil {
		return nil, err
	}
	states := []controller.State{}
	for s := range seq {
		states = append(states, s)
	}
	return states, nil
}

// StatesSeq is the lazy form of GetStates.
func (t *Table) StatesSeq(id controller.ID) (iter.Seq[controller.State], error) {
	c, err := t.lookup(id)
	if err != nil {
		return nil, err
	}
	return c.AllStates(), nil
}

// FindState returns the state of id whose unique name hashes to hash.
func (t *Table) FindState(id controller.ID, hash int32) (controller.State, error) {
	seq, err := t.StatesSeq(id)
	if err != nil {
		return controller.State{}, err
	}
	for s := range seq {
		if s.UniqueNameHash == hash {
			return s, nil
		}
	}
	return controller.State{}, fmt.Errorf("%w: %q hash %d", ErrStateNotFound, id, hash)
}
