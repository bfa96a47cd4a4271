package voxel

// ShapeWeights solves, by least-squares, the minimum-norm weights w
// such that sum(w_i * nodeXYZ_i) == point and sum(w_i) == 1 (spec.md
// §4.5 step 2, "compute shape-function weights by least-squares"). This
// is the constrained-minimum-norm solution of the underdetermined
// system A w = b where A is the 4xN matrix of [x;y;z;1] per node and b
// is [point.x, point.y, point.z, 1]: w = A^T (A A^T)^-1 b. For a
// simplex (N equal to the point's dimension + 1, e.g. a tetrahedron)
// this reduces exactly to barycentric coordinates; for cells with more
// nodes than the four constraints (quads, hexes, and their elevations)
// it's the shortest weight vector consistent with linear reproduction,
// which is exactly what spec.md §8 invariant 8's linear-recovery check
// requires: any set of weights summing to 1 that reproduces node
// coordinates also reproduces a linear function exactly.
func ShapeWeights(nodeXYZ [][3]float64, point [3]float64) []float64 {
	n := len(nodeXYZ)
	if n == 0 {
		return nil
	}
	// A is 4xn; compute G = A A^T (4x4) and b = [point,1].
	var A [4][]float64
	for row := 0; row < 4; row++ {
		A[row] = make([]float64, n)
	}
	for i, p := range nodeXYZ {
		A[0][i] = p[0]
		A[1][i] = p[1]
		A[2][i] = p[2]
		A[3][i] = 1
	}
	var G [4][4]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float64
			for i := 0; i < n; i++ {
				sum += A[r][i] * A[c][i]
			}
			G[r][c] = sum
		}
	}
	b := [4]float64{point[0], point[1], point[2], 1}
	y := solve4(G, b)

	w := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for row := 0; row < 4; row++ {
			sum += A[row][i] * y[row]
		}
		w[i] = sum
	}
	return w
}

// solve4 solves the 4x4 linear system Gy = b by Gaussian elimination
// with partial pivoting. G is expected to be symmetric positive
// semi-definite (a Gram matrix); a genuinely singular G (e.g. every
// node coincident) returns the zero vector rather than dividing by
// zero, since a degenerate cell can never contain a distinct query
// point anyway.
func solve4(G [4][4]float64, b [4]float64) [4]float64 {
	var a [4][5]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			a[r][c] = G[r][c]
		}
		a[r][4] = b[r]
	}
	for col := 0; col < 4; col++ {
		piv := col
		best := a[col][col]
		if best < 0 {
			best = -best
		}
		for r := col + 1; r < 4; r++ {
			v := a[r][col]
			if v < 0 {
				v = -v
			}
			if v > best {
				piv, best = r, v
			}
		}
		if best < 1e-300 {
			return [4]float64{}
		}
		a[col], a[piv] = a[piv], a[col]
		pivVal := a[col][col]
		for c := col; c < 5; c++ {
			a[col][c] /= pivVal
		}
		for r := 0; r < 4; r++ {
			if r == col {
				continue
			}
			factor := a[r][col]
			if factor == 0 {
				continue
			}
			for c := col; c < 5; c++ {
				a[r][c] -= factor * a[col][c]
			}
		}
	}
	var y [4]float64
	for r := 0; r < 4; r++ {
		y[r] = a[r][4]
	}
	return y
}

// ContainsWithWeights reports whether weights are consistent with point
// lying inside the cell: every weight within [-tol, 1+tol] of the
// barycentric simplex (spec.md §3's "point... is geometrically
// contained in the donor cell," tested here via the same weights the
// interpolation itself uses rather than a second, independent geometric
// predicate).
func ContainsWithWeights(weights []float64, tol float64) bool {
	for _, w := range weights {
		if w < -tol || w > 1+tol {
			return false
		}
	}
	return true
}
