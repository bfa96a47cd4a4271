// Package assembler implements spec.md §4.6's Overset Assembler (L5):
// the pipeline that turns a set of per-component mesh partitions into a
// single DCIF interchange file — voxel plan, fragment exchange, parallel
// per-voxel donor search, owner-side donor resolution, and export.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package assembler

import (
	"github.com/nasa/YOGA-sub004/mesh"
)

// ComponentMesh is one component grid's partition resident on this
// rank, plus the per-node field the donor search interpolates
// (spec.md §3's Transfer-Node "wall distance"). WallDistance is indexed
// by the same local node ids as the embedded Mesh.
//
// Motion is the SPEC_FULL §3 Component Grid Script Entry's
// `motion_matrix`, a row-major 4x4 affine transform applied to every
// node's (x,y,z) before voxel placement so a moving body's component
// grid is always voxelized in its current position (grounded in
// original_source/yoga/src/MovingBodyParser.h's moving-body input, and
// original_source/yoga/utilities/MakeCompositeCommand.cpp's
// `MeshMover::move(mesh, entry.motion_matrix)`). The zero value means
// "no motion entry supplied" and is treated as identity, the same
// default cmd/yoga-assemble applies to an all-zero script entry.
type ComponentMesh struct {
	ComponentID int
	BodyName    string
	Mesh        *mesh.Mesh
	WallDistance []float64
	Motion      [16]float64
}

func (c *ComponentMesh) wallDistance(local int) float64 {
	if local < 0 || local >= len(c.WallDistance) {
		return 0
	}
	return c.WallDistance[local]
}

// identityMotion is the row-major 4x4 identity: applyMotion against it
// is a no-op on (x,y,z).
var identityMotion = [16]float64{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// motion returns c.Motion, or identityMotion when c.Motion was never
// set (the zero [16]float64, which is not itself a usable transform).
func (c *ComponentMesh) motion() [16]float64 {
	if c.Motion == ([16]float64{}) {
		return identityMotion
	}
	return c.Motion
}

// transformPoint applies c's motion matrix to a node coordinate. The
// matrix is row-major: rows 0-2 are the affine transform, row 3 is
// unused (assumed (0,0,0,1) for a rigid/affine motion).
func (c *ComponentMesh) transformPoint(x, y, z float64) (float64, float64, float64) {
	m := c.motion()
	tx := m[0]*x + m[1]*y + m[2]*z + m[3]
	ty := m[4]*x + m[5]*y + m[6]*z + m[7]
	tz := m[8]*x + m[9]*y + m[10]*z + m[11]
	return tx, ty, tz
}
