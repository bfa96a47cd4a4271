// Package adt is the spatial index spec.md §2 calls L3b, "supplied by
// Parfait" and marked external. The corpus carries a direct, well-fitted
// substitute for exactly this shape of problem — box-keyed candidate
// retrieval — in github.com/tidwall/buntdb's in-memory spatial index, so
// the "external ADT" collaborator becomes a concrete component here
// instead of a hand-rolled R-tree.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package adt

import (
	"fmt"
	"strconv"

	"github.com/tidwall/buntdb"

	"github.com/nasa/YOGA-sub004/cmn"
)

// Extent is an axis-aligned box: spec.md §3's Work Voxel extent and the
// per-cell bounding box candidate donors are queried against.
type Extent struct {
	Min, Max [3]float64
}

// Contains reports whether p falls within e, inclusive on both faces: a
// point exactly on a face shared by two adjacent extents is inside both,
// and no tie-break assigns it to only one of them.
func (e Extent) Contains(p [3]float64) bool {
	for ax := 0; ax < 3; ax++ {
		if p[ax] < e.Min[ax] || p[ax] > e.Max[ax] {
			return false
		}
	}
	return true
}

func rectString(e Extent) string {
	return fmt.Sprintf("[%g %g %g],[%g %g %g]", e.Min[0], e.Min[1], e.Min[2], e.Max[0], e.Max[1], e.Max[2])
}

// Tree is a single component grid's ADT: cell ids keyed by bounding box,
// queried for candidates whose box contains a point (spec.md §4.5 step
// 2, "retrieve cells whose bounding boxes contain n").
type Tree struct {
	db        *buntdb.DB
	indexName string
}

// NewTree builds an empty in-memory spatial index. One Tree is built per
// component grid per voxel (spec.md §4.5 step 1, "partition the voxel's
// cells by component grid into one ADT per component").
func NewTree() (*Tree, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrConfiguration, err, "open spatial index")
	}
	const indexName = "bbox"
	if err := db.CreateSpatialIndex(indexName, "*", buntdb.IndexRect); err != nil {
		db.Close()
		return nil, cmn.Wrap(cmn.ErrConfiguration, err, "create spatial index")
	}
	return &Tree{db: db, indexName: indexName}, nil
}

// Insert adds cellLocal (a local cell id within the owning voxel) keyed
// by its bounding box e.
func (t *Tree) Insert(cellLocal int, e Extent) error {
	key := strconv.Itoa(cellLocal)
	err := t.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, rectString(e), nil)
		return err
	})
	if err != nil {
		return cmn.Wrap(cmn.ErrConfiguration, err, "spatial index insert")
	}
	return nil
}

// QueryPoint returns every inserted cell local id whose bounding box
// contains p, in index-scan order (spec.md §4.5's tie-break rule:
// "candidates are emitted in ADT-scan order").
func (t *Tree) QueryPoint(p [3]float64) ([]int, error) {
	pointRect := Extent{Min: p, Max: p}
	var hits []int
	err := t.db.View(func(tx *buntdb.Tx) error {
		return tx.Intersects(t.indexName, rectString(pointRect), func(key, val string) bool {
			id, convErr := strconv.Atoi(key)
			if convErr != nil {
				return true
			}
			hits = append(hits, id)
			return true
		})
	})
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrConfiguration, err, "spatial index query")
	}
	return hits, nil
}

// Close releases the tree's in-memory database.
func (t *Tree) Close() error { return t.db.Close() }
