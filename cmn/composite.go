package cmn

// CompositeGrid is one component grid's contribution to a composite
// assembly output (spec.md §6): its body name, node count (for
// imesh.dat), and boundary-condition names (for composite.mapbc).
type CompositeGrid struct {
	BodyName string
	NodeFile string
	NodeCount int
	BCNames  []string
}

// UgridWriter emits the single composite UGRID file spec.md §6 names.
// Writing an actual UGRID file is a file-format adapter explicitly out
// of this project's core scope; callers inject whatever concrete writer
// their build links.
type UgridWriter interface {
	WriteUGRID(path string, grids []CompositeGrid) error
}

// CompositeOutputs bundles everything the composite assembly CLI
// produces, so main() has a single seam to inject a real UgridWriter
// against in place of the stub.
type CompositeOutputs struct {
	Ugrid UgridWriter
}
