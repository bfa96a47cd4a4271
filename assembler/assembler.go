package assembler

import (
	"runtime"
	"sync"
	"time"

	"github.com/teris-io/shortid"
	"golang.org/x/sync/errgroup"

	"github.com/nasa/YOGA-sub004/adt"
	"github.com/nasa/YOGA-sub004/cmn/nlog"
	"github.com/nasa/YOGA-sub004/dcif"
	"github.com/nasa/YOGA-sub004/metrics"
	"github.com/nasa/YOGA-sub004/mp"
	"github.com/nasa/YOGA-sub004/postman"
	"github.com/nasa/YOGA-sub004/voxel"
)

// Message types this package routes through PostMan (spec.md §4.6
// steps 2 and 4).
const (
	MsgFragment  int32 = 1
	MsgReceptors int32 = 2
)

// FragmentSink accumulates inbound fragments keyed by voxel index,
// mirroring the pending-work map a worker pool drains from (the same
// shape spec.md's Design Notes and this repo's worker-pool idiom use
// elsewhere: a map guarded by one mutex, read by many goroutines during
// processing).
type FragmentSink struct {
	mu      sync.Mutex
	byVoxel map[int32][]fragment
}

func NewFragmentSink() *FragmentSink {
	return &FragmentSink{byVoxel: make(map[int32][]fragment)}
}

// HandleFragment is the Callback to register against MsgFragment.
func (s *FragmentSink) HandleFragment(body []byte) {
	f, err := unpackFragment(body)
	if err != nil {
		nlog.Errorf("assembler: dropping malformed fragment: %v", err)
		return
	}
	s.mu.Lock()
	s.byVoxel[f.VoxelIndex] = append(s.byVoxel[f.VoxelIndex], f)
	s.mu.Unlock()
}

// Take removes and returns every fragment queued for voxelIndex.
func (s *FragmentSink) Take(voxelIndex int32) []fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.byVoxel[voxelIndex]
	delete(s.byVoxel, voxelIndex)
	return f
}

// Assembler drives spec.md §4.6's pipeline end to end for one rank.
type Assembler struct {
	group  *mp.Group
	router *postman.Server
	sink   *FragmentSink
	coll   *DonorCollector
	plan   *VoxelPlan
	RunID  string
}

// NewAssembler binds an assembler to this rank's group and router. The
// router must still be started by the caller after RegisterCallbacks
// (spec.md §4.4: callbacks must be bound before start()). RunID tags the
// log lines this assembler emits, so a multi-rank run's output can be
// grepped back together even when ranks interleave.
func NewAssembler(g *mp.Group, router *postman.Server) *Assembler {
	id, err := shortid.Generate()
	if err != nil {
		id = "run"
	}
	return &Assembler{
		group:  g,
		router: router,
		sink:   NewFragmentSink(),
		coll:   NewDonorCollector(),
		RunID:  id,
	}
}

// RegisterCallbacks binds this assembler's PostMan handlers. Call before
// router.Start.
func (a *Assembler) RegisterCallbacks() error {
	if err := a.router.RegisterCallback(MsgFragment, a.sink.HandleFragment); err != nil {
		return err
	}
	return a.router.RegisterCallback(MsgReceptors, a.coll.HandleReceptorBatch)
}

func localExtent(components []*ComponentMesh) adt.Extent {
	e := adt.Extent{
		Min: [3]float64{1e300, 1e300, 1e300},
		Max: [3]float64{-1e300, -1e300, -1e300},
	}
	for _, c := range components {
		for _, local := range c.Mesh.OwnedNodes() {
			n := c.Mesh.Node(local)
			x, y, z := c.transformPoint(n.X, n.Y, n.Z)
			p := [3]float64{x, y, z}
			for ax := 0; ax < 3; ax++ {
				if p[ax] < e.Min[ax] {
					e.Min[ax] = p[ax]
				}
				if p[ax] > e.Max[ax] {
					e.Max[ax] = p[ax]
				}
			}
		}
	}
	return e
}

// BuildPlan runs spec.md §4.6 step 1.
func (a *Assembler) BuildPlan(components []*ComponentMesh, voxelsPerAxis int) error {
	plan, err := BuildVoxelPlan(a.group, localExtent(components), voxelsPerAxis)
	if err != nil {
		return err
	}
	a.plan = plan
	nlog.Infof("assembler[%s]: voxel plan built, %d voxels across %d ranks", a.RunID, plan.VoxelCount(), plan.nRanks)
	return nil
}

// ExchangeFragments runs spec.md §4.6 step 2: every rank packs the
// cells it owns that overlap each voxel and routes them to that
// voxel's processing owner. Every node coordinate is first passed
// through its component's motion matrix (SPEC_FULL §3), so placement
// and the geometry carried into the fragment both reflect the body's
// current position. A node is assigned to the voxel containing its
// (transformed) coordinate; a cell is assigned to the voxel containing
// its (transformed) centroid, carrying along all of its own nodes so
// the owning voxel has complete geometry for containment tests (a
// documented simplification of spec.md §4.5's exact face-ownership
// tie-break).
func (a *Assembler) ExchangeFragments(components []*ComponentMesh) error {
	type builder struct {
		nodes map[int64]fragmentNode
		cells []fragmentCell
	}
	byVoxel := make(map[int32]*builder)
	ensure := func(idx int32) *builder {
		b, ok := byVoxel[idx]
		if !ok {
			b = &builder{nodes: make(map[int64]fragmentNode)}
			byVoxel[idx] = b
		}
		return b
	}

	for _, c := range components {
		for _, local := range c.Mesh.OwnedNodes() {
			n := c.Mesh.Node(local)
			x, y, z := c.transformPoint(n.X, n.Y, n.Z)
			ix, iy, iz := a.plan.VoxelOf([3]float64{x, y, z})
			idx := int32(a.plan.Index(ix, iy, iz))
			b := ensure(idx)
			b.nodes[n.GlobalID] = fragmentNode{
				GlobalID: n.GlobalID, X: x, Y: y, Z: z,
				ComponentID: int32(c.ComponentID), OwningRank: int32(n.Owner),
				WallDistance: c.wallDistance(local),
			}
		}
		for _, local := range c.Mesh.OwnedCells() {
			cell := c.Mesh.Cell(local)
			var centroid [3]float64
			globalIDs := make([]int64, len(cell.Nodes))
			for i, ln := range cell.Nodes {
				node := c.Mesh.Node(ln)
				x, y, z := c.transformPoint(node.X, node.Y, node.Z)
				centroid[0] += x
				centroid[1] += y
				centroid[2] += z
				globalIDs[i] = node.GlobalID
			}
			n := float64(len(cell.Nodes))
			if n > 0 {
				centroid[0] /= n
				centroid[1] /= n
				centroid[2] /= n
			}
			ix, iy, iz := a.plan.VoxelOf(centroid)
			idx := int32(a.plan.Index(ix, iy, iz))
			b := ensure(idx)
			for _, ln := range cell.Nodes {
				node := c.Mesh.Node(ln)
				if _, ok := b.nodes[node.GlobalID]; !ok {
					x, y, z := c.transformPoint(node.X, node.Y, node.Z)
					b.nodes[node.GlobalID] = fragmentNode{
						GlobalID: node.GlobalID, X: x, Y: y, Z: z,
						ComponentID: int32(c.ComponentID), OwningRank: int32(node.Owner),
						WallDistance: c.wallDistance(ln),
					}
				}
			}
			b.cells = append(b.cells, fragmentCell{
				Kind: cell.Kind, ComponentID: int32(c.ComponentID),
				OriginCellID: cell.GlobalID, OriginOwningRank: int32(c.Mesh.Rank()),
				NodeGlobalIDs: globalIDs,
			})
		}
	}

	for idx, b := range byVoxel {
		nodes := make([]fragmentNode, 0, len(b.nodes))
		for _, n := range b.nodes {
			nodes = append(nodes, n)
		}
		frag := fragment{VoxelIndex: idx, Nodes: nodes, Cells: b.cells}
		owner := a.plan.Owner(int(idx))
		a.router.Push(owner, MsgFragment, packFragment(frag))
	}
	return nil
}

// ProcessOwnedVoxels runs spec.md §4.6 step 3 over every voxel this
// rank owns, bounded to GOMAXPROCS workers, then routes the resulting
// receptors to their owning ranks (step 4).
func (a *Assembler) ProcessOwnedVoxels() error {
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	rank := a.group.Rank()
	for idx := 0; idx < a.plan.VoxelCount(); idx++ {
		idx := idx
		if a.plan.Owner(idx) != rank {
			continue
		}
		g.Go(func() error {
			return a.processVoxel(int32(idx))
		})
	}
	return g.Wait()
}

func (a *Assembler) processVoxel(idx int32) error {
	frags := a.sink.Take(idx)
	ix := int(idx) % a.plan.Dims[0]
	iy := (int(idx) / a.plan.Dims[0]) % a.plan.Dims[1]
	iz := int(idx) / (a.plan.Dims[0] * a.plan.Dims[1])
	v := voxel.New(a.plan.Extent(ix, iy, iz), 1024)
	for _, f := range frags {
		if err := f.applyToVoxel(v); err != nil {
			return err
		}
	}
	start := time.Now()
	receptors, err := voxel.FindDonors(v)
	metrics.DonorSearchSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	metrics.VoxelsProcessed.Inc()
	byOwner := make(map[int][]voxel.Receptor)
	for _, r := range receptors {
		byOwner[r.OwningRank] = append(byOwner[r.OwningRank], r)
	}
	for owner, batch := range byOwner {
		a.router.Push(owner, MsgReceptors, packReceptorBatch(batch))
	}
	return nil
}

// ReceptorComponentMap maps every node owned by components to its own
// component id, the input Resolve needs to exclude same-component hits
// from donor selection.
func ReceptorComponentMap(components []*ComponentMesh) map[int64]int {
	out := make(map[int64]int)
	for _, c := range components {
		for _, local := range c.Mesh.OwnedNodes() {
			out[c.Mesh.Node(local).GlobalID] = c.ComponentID
		}
	}
	return out
}

// Resolve runs spec.md §4.6 step 5 for every receptor this rank owns.
// receptorComponent maps a node's global id to its own component, so
// same-component hits (not valid donors) are excluded from selection.
func (a *Assembler) Resolve(receptorComponent map[int64]int) []Resolved {
	return a.coll.Resolve(receptorComponent)
}

// Barrier synchronizes every rank on the message-passing facade, used
// between pipeline stages that must fully complete (all fragments sent,
// all receptors distributed) before the next begins.
func (a *Assembler) Barrier() error { return mp.Barrier(a.group) }

// EmitDCIF runs spec.md §4.6 step 6: gather every rank's owned-node
// classification to root and build the single global interchange file.
func (a *Assembler) EmitDCIF(root int, components []*ComponentMesh, resolved []Resolved) (*dcif.File, error) {
	byID := make(map[int64]*Resolved, len(resolved))
	for i := range resolved {
		byID[resolved[i].GlobalNodeID] = &resolved[i]
	}

	var mine []nodeResult
	for _, c := range components {
		for _, local := range c.Mesh.OwnedNodes() {
			n := c.Mesh.Node(local)
			nr := nodeResult{GlobalID: n.GlobalID, ComponentID: int32(c.ComponentID), IBlank: 1}
			if r, ok := byID[n.GlobalID]; ok {
				if r.Donor == nil {
					nr.IBlank = 0
				} else {
					nr.IBlank = -1
					nr.DonorGlobalIDs = r.Donor.DonorNodeGlobalIDs
					nr.DonorWeights = r.Donor.DonorWeights
				}
			}
			mine = append(mine, nr)
		}
	}

	gathered, err := mp.Gather(a.group, root, mine, packNodeResults, unpackNodeResults)
	if err != nil {
		return nil, err
	}
	if a.group.Rank() != root {
		return nil, nil
	}
	return buildDCIF(gathered)
}
