package mesh

// CellKind enumerates the supported cell topologies (spec.md §3's "one
// of: Node, Bar-2, Tri-3, Quad-4, Tetra-4, Pyramid-5, Prism-6, Hex-8,
// plus their higher-order elevations").
type CellKind int32

const (
	Node CellKind = iota
	Bar2
	Tri3
	Quad4
	Tetra4
	Pyramid5
	Prism6
	Hex8
	Bar3   // elevated Bar2
	Tri6   // elevated Tri3
	Quad8  // elevated Quad4
	Tetra10
	Pyramid14
	Prism18
	Hex27
)

// NodeCount returns how many ordered node references a cell of this kind
// carries.
func (k CellKind) NodeCount() int {
	switch k {
	case Node:
		return 1
	case Bar2:
		return 2
	case Tri3:
		return 3
	case Quad4, Tetra4:
		return 4
	case Pyramid5:
		return 5
	case Prism6:
		return 6
	case Hex8:
		return 8
	case Bar3:
		return 3
	case Tri6:
		return 6
	case Quad8:
		return 8
	case Tetra10:
		return 10
	case Pyramid14:
		return 14
	case Prism18:
		return 18
	case Hex27:
		return 27
	default:
		return 0
	}
}

func (k CellKind) String() string {
	switch k {
	case Node:
		return "Node"
	case Bar2:
		return "Bar2"
	case Tri3:
		return "Tri3"
	case Quad4:
		return "Quad4"
	case Tetra4:
		return "Tetra4"
	case Pyramid5:
		return "Pyramid5"
	case Prism6:
		return "Prism6"
	case Hex8:
		return "Hex8"
	case Bar3:
		return "Bar3"
	case Tri6:
		return "Tri6"
	case Quad8:
		return "Quad8"
	case Tetra10:
		return "Tetra10"
	case Pyramid14:
		return "Pyramid14"
	case Prism18:
		return "Prism18"
	case Hex27:
		return "Hex27"
	default:
		return "Unknown"
	}
}
