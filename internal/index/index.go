// Package index maps resolved entities to the headers that declare and
// define them.
//
// An Index is built once with a Builder and frozen before use. A frozen
// Index is read-only and may be shared by concurrent pipelines.
package index

import (
	"errors"
	"fmt"
	"slices"

	"github.com/phobologic/hdrcheck/internal/diag"
	"github.com/phobologic/hdrcheck/internal/location"
	"github.com/phobologic/hdrcheck/internal/model"
)

var (
	// ErrNotFound is returned by Lookup for unknown names.
	ErrNotFound = errors.New("declaration not found")
	// ErrFrozen is returned when adding to a frozen builder.
	ErrFrozen = errors.New("index is frozen")
)

type nameKey struct {
	name string
	kind model.Kind
}

// Builder accumulates declarations. The zero value is not usable; call
// NewBuilder.
type Builder struct {
	decls  map[model.EntityID]*model.Declaration
	order  []model.EntityID
	frozen bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{decls: make(map[model.EntityID]*model.Declaration)}
}

// Add records d. Redeclarations of the same entity are merged: the first
// declaration header wins and later ones are kept as redeclarations; the
// definition header is set by the first definition seen.
func (b *Builder) Add(d model.Declaration) error {
	if b.frozen {
		return ErrFrozen
	}
	if d.ID == "" {
		return fmt.Errorf("declaration %q: empty entity id", d.Name)
	}
	if d.DeclHeader == "" && d.DefHeader == "" {
		return fmt.Errorf("declaration %s: no declaring or defining header", d.ID)
	}

	cur, ok := b.decls[d.ID]
	if !ok {
		cp := d
		cp.Params = slices.Clone(d.Params)
		cp.Redeclared = slices.Clone(d.Redeclared)
		b.decls[d.ID] = &cp
		b.order = append(b.order, d.ID)
		return nil
	}

	if cur.Kind != d.Kind {
		return fmt.Errorf("declaration %s: kind %s conflicts with earlier %s", d.ID, d.Kind, cur.Kind)
	}
	if d.DeclHeader != "" {
		switch {
		case cur.DeclHeader == "":
			cur.DeclHeader = d.DeclHeader
		case cur.DeclHeader != d.DeclHeader && !slices.Contains(cur.Redeclared, d.DeclHeader):
			cur.Redeclared = append(cur.Redeclared, d.DeclHeader)
		}
	}
	for _, h := range d.Redeclared {
		if h != cur.DeclHeader && !slices.Contains(cur.Redeclared, h) {
			cur.Redeclared = append(cur.Redeclared, h)
		}
	}
	if cur.DefHeader == "" && d.DefHeader != "" {
		cur.DefHeader = d.DefHeader
		cur.Inline = d.Inline
		if len(d.Params) > 0 {
			cur.Params = slices.Clone(d.Params)
			cur.Variadic = d.Variadic
		}
		if cur.Site.IsZero() {
			cur.Site = d.Site
		}
	}
	if len(cur.Params) == 0 && len(d.Params) > 0 {
		cur.Params = slices.Clone(d.Params)
		cur.Variadic = d.Variadic
	}
	return nil
}

// Freeze publishes the accumulated declarations. The builder rejects further
// additions.
func (b *Builder) Freeze() *Index {
	b.frozen = true
	idx := &Index{
		byID:   make(map[model.EntityID]model.Declaration, len(b.decls)),
		byName: make(map[nameKey][]model.EntityID),
	}
	for _, id := range b.order {
		d := *b.decls[id]
		idx.byID[id] = d
		k := nameKey{d.Name, d.Kind}
		idx.byName[k] = append(idx.byName[k], id)
	}
	return idx
}

// Build is a convenience for building and freezing in one step.
func Build(decls []model.Declaration) (*Index, error) {
	b := NewBuilder()
	for _, d := range decls {
		if err := b.Add(d); err != nil {
			return nil, err
		}
	}
	return b.Freeze(), nil
}

// Index is a frozen declaration table.
type Index struct {
	byID   map[model.EntityID]model.Declaration
	byName map[nameKey][]model.EntityID
}

// Len returns the number of entities.
func (x *Index) Len() int {
	return len(x.byID)
}

// Resolve maps a resolved-entity identifier to its declaration. An unknown
// identifier is a *diag.DanglingReferenceError.
func (x *Index) Resolve(id model.EntityID, name string, loc location.Location) (model.Declaration, error) {
	d, ok := x.byID[id]
	if !ok {
		return model.Declaration{}, &diag.DanglingReferenceError{Entity: id, Name: name, Loc: loc}
	}
	return clone(d), nil
}

// Lookup finds a declaration by canonical name and kind. When several
// entities share a name and kind (e.g. specializations registered under the
// same canonical name), the first one added wins; callers that need a
// specific one use Resolve with the front-end's identifier.
func (x *Index) Lookup(name string, kind model.Kind) (model.Declaration, error) {
	ids := x.byName[nameKey{name, kind}]
	if len(ids) == 0 {
		return model.Declaration{}, fmt.Errorf("%s %s: %w", kind, name, ErrNotFound)
	}
	return clone(x.byID[ids[0]]), nil
}

func clone(d model.Declaration) model.Declaration {
	d.Params = slices.Clone(d.Params)
	d.Redeclared = slices.Clone(d.Redeclared)
	return d
}
