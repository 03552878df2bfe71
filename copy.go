// copy.go: Structural copy between containers
//
// Copy walks the source depth first and reconciles the destination child by
// child:
//
//   - a source leaf sets the destination leaf in place, so live leaves keep
//     their binding and a restore pushes values through the setters
//   - a source container reuses a destination container of the same variant
//   - a source container meeting a live leaf is exported and handed to the
//     setter, since stored snapshots turn slice and map values into
//     containers
//   - any other kind clash (leaf vs container, Object vs List) removes the
//     destination node, running its Delete hook, and builds a new one
//   - destination children missing from the source are left alone
//
// New nodes under config.running are bound through the route table when a
// pattern matches. Everywhere else they hold plain data.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"strconv"
	"strings"

	"github.com/agilira/go-errors"
)

// copyInto copies the children of src into dst. Caller holds m.mu.
func (m *Manager) copyInto(src, dst Container) error {
	dstPath := PathOf(dst)
	_, dstIsList := dst.(*List)

	for _, key := range src.Keys() {
		child, ok := src.GetChild(key)
		if !ok {
			continue
		}
		name := child.Name()
		if !dstIsList {
			name = key
		}
		existing, has := dst.GetChild(key)
		if !has && dstIsList {
			key = strconv.Itoa(dst.Len())
		}
		childPath := JoinPath(dstPath, key)

		if leaf, isLeaf := child.(*Leaf); isLeaf {
			if err := m.copyLeaf(leaf, dst, existing, has, name, key, childPath); err != nil {
				return err
			}
			continue
		}

		srcContainer := child.(Container)
		if dstLeaf, isLeaf := existing.(*Leaf); has && isLeaf && dstLeaf.IsLive() {
			value, err := Export(srcContainer)
			if err != nil {
				return err
			}
			if err := skipWriteDenied(dstLeaf.Set(value)); err != nil {
				return err
			}
			continue
		}
		if has && sameVariant(existing, child) {
			if err := m.copyInto(srcContainer, existing.(Container)); err != nil {
				return err
			}
			continue
		}
		if has {
			if err := m.removeChild(dst, key); err != nil {
				return err
			}
		}
		created, err := m.attachContainer(dst, srcContainer.NewEmpty(name), key, childPath, has)
		if err != nil {
			return err
		}
		if err := m.copyInto(srcContainer, created); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) copyLeaf(src *Leaf, dst Container, existing Node, has bool, name, key, path string) error {
	value, err := src.Get()
	if err != nil {
		if HasCode(err, ErrCodeReadDenied) {
			return nil
		}
		return err
	}

	if has {
		if leaf, isLeaf := existing.(*Leaf); isLeaf {
			return skipWriteDenied(leaf.Set(value))
		}
		if err := m.removeChild(dst, key); err != nil {
			return err
		}
	}
	copiedLeaves.Inc()
	return skipWriteDenied(m.attachLeaf(dst, name, key, path, value, has))
}

// skipWriteDenied drops write refusals: a read-only leaf keeps the value
// the application gives it.
func skipWriteDenied(err error) error {
	if HasCode(err, ErrCodeWriteDenied) {
		return nil
	}
	return err
}

// attachLeaf creates the leaf for path, adds it to dst and assigns value.
// A matching route with a Create callback receives the value instead of
// Set. replacing inserts at key when dst is a list.
func (m *Manager) attachLeaf(dst Container, name, key, path string, value interface{}, replacing bool) error {
	rel, underRunning := runningRelative(path)
	var route Route
	routed := false
	if underRunning {
		route, routed = m.routes.Match(rel)
	}

	var leaf *Leaf
	if routed {
		leaf = NewLeaf(name, route.Bind(SplitPath(rel)))
	} else {
		leaf = NewValueLeaf(name, nil)
	}
	if err := place(dst, key, leaf, replacing); err != nil {
		return err
	}
	if routed && route.Create != nil {
		return route.Create(SplitPath(rel), value)
	}
	return leaf.Set(value)
}

// attachContainer adds an empty container at key and notifies a matching
// route.
func (m *Manager) attachContainer(dst Container, c Container, key, path string, replacing bool) (Container, error) {
	if err := place(dst, key, c, replacing); err != nil {
		return nil, err
	}
	if rel, underRunning := runningRelative(path); underRunning {
		if route, ok := m.routes.Match(rel); ok && route.Create != nil {
			if err := route.Create(SplitPath(rel), nil); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// place adds n to dst. When replacing inside a list, n goes back to the
// index it replaces.
func place(dst Container, key string, n Node, replacing bool) error {
	if list, ok := dst.(*List); ok && replacing {
		index, err := strconv.Atoi(key)
		if err == nil {
			_, err := list.Insert(index, n)
			return err
		}
	}
	_, err := dst.AddChild(n)
	return err
}

func sameVariant(a, b Node) bool {
	switch a.(type) {
	case *Object:
		_, ok := b.(*Object)
		return ok
	case *List:
		_, ok := b.(*List)
		return ok
	default:
		return false
	}
}

// checkCopyTarget fails when dst is src or lies inside it.
func checkCopyTarget(src, dst Container) error {
	for cur := dst; cur != nil; cur = cur.Parent() {
		if cur == src {
			return errors.New(ErrCodeInvalidValue, "cannot copy a container into itself or a descendant").
				WithContext("source", PathOf(src)).
				WithContext("dest", PathOf(dst))
		}
	}
	return nil
}

// runningRelative strips the config.running prefix from path.
func runningRelative(path string) (string, bool) {
	if path == PathRunning {
		return "", true
	}
	if rel, ok := strings.CutPrefix(path, PathRunning+PathSeparator); ok {
		return rel, true
	}
	return "", false
}
