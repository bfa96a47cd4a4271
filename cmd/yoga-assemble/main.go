// Command yoga-assemble runs the composite assembly CLI spec.md §6
// describes: it parses a script of component-grid entries, expands any
// directory entries to the grid files beneath them, and emits the
// composite UGRID, `composite.mapbc`, and `imesh.dat` outputs.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/karrick/godirwalk"

	"github.com/nasa/YOGA-sub004/cmn"
	"github.com/nasa/YOGA-sub004/cmn/nlog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// scriptEntry is one line of spec.md §6's composite assembly script.
// MotionMatrix is the row-major 4x4 transform a grid loader applies to
// every node's (x,y,z) via assembler.ComponentMesh.Motion before voxel
// placement (SPEC_FULL §3); this CLI only parses and defaults it here
// since building a ComponentMesh from ComponentGridFile is a grid-file
// adapter outside this project's core scope (spec.md §1) — the
// component that actually applies it is assembler.ExchangeFragments.
type scriptEntry struct {
	ComponentGridFile string     `json:"component_grid_file"`
	MotionMatrix      [16]float64 `json:"motion_matrix"`
	MapbcFile         string     `json:"mapbc_file"`
	BodyName          string     `json:"body_name"`
	LumpBCByName      bool       `json:"lump_bc_by_name"`
	PrefixBCWithBody  bool       `json:"prefix_bc_with_body"`
}

func identityMotion() [16]float64 {
	var m [16]float64
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}

func loadScript(path string) ([]scriptEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrConfiguration, err, "read assembly script")
	}
	var entries []scriptEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, cmn.Wrap(cmn.ErrConfiguration, err, "parse assembly script")
	}
	for i := range entries {
		if entries[i].MotionMatrix == [16]float64{} {
			entries[i].MotionMatrix = identityMotion()
		}
	}
	return entries, nil
}

// expandDirectories replaces any entry whose ComponentGridFile names a
// directory with one entry per grid file found beneath it (SPEC_FULL
// §4.8's supplement over the original's flat-file-only parser).
func expandDirectories(entries []scriptEntry) ([]scriptEntry, error) {
	var out []scriptEntry
	for _, e := range entries {
		info, err := os.Stat(e.ComponentGridFile)
		if err != nil {
			return nil, cmn.Wrap(cmn.ErrConfiguration, err, "stat component grid path")
		}
		if !info.IsDir() {
			out = append(out, e)
			continue
		}
		err = godirwalk.Walk(e.ComponentGridFile, &godirwalk.Options{
			Callback: func(path string, dirent *godirwalk.Dirent) error {
				if dirent.IsDir() {
					return nil
				}
				expanded := e
				expanded.ComponentGridFile = path
				out = append(out, expanded)
				return nil
			},
			Unsorted: false,
		})
		if err != nil {
			return nil, cmn.Wrap(cmn.ErrConfiguration, err, "expand component grid directory")
		}
	}
	return out, nil
}

// readMapbc parses the trivial "id name" line format this assembler
// treats as a component grid's boundary-condition list.
func readMapbc(path string) (map[int]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrConfiguration, err, "open mapbc file")
	}
	defer f.Close()

	bcNames := make(map[int]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(fields[0], "%d", &id); err != nil {
			continue
		}
		bcNames[id] = fields[1]
	}
	return bcNames, scanner.Err()
}

func writeComposite(outDir string, grids []cmn.CompositeGrid, bcByGrid [][]string) error {
	mapbcPath := filepath.Join(outDir, "composite.mapbc")
	mf, err := os.Create(mapbcPath)
	if err != nil {
		return cmn.Wrap(cmn.ErrConfiguration, err, "create composite.mapbc")
	}
	defer mf.Close()
	id := 1
	for _, names := range bcByGrid {
		for _, name := range names {
			fmt.Fprintf(mf, "%d %s\n", id, name)
			id++
		}
	}

	imeshPath := filepath.Join(outDir, "imesh.dat")
	nf, err := os.Create(imeshPath)
	if err != nil {
		return cmn.Wrap(cmn.ErrConfiguration, err, "create imesh.dat")
	}
	defer nf.Close()
	fmt.Fprintf(nf, "%d\n", len(grids))
	for _, g := range grids {
		fmt.Fprintf(nf, "%s %d\n", g.BodyName, g.NodeCount)
	}
	return nil
}

// stubUgridWriter satisfies cmn.UgridWriter with a placeholder: actual
// UGRID binary output is a file-format adapter outside this project's
// core scope (spec.md §1).
type stubUgridWriter struct{}

func (stubUgridWriter) WriteUGRID(path string, grids []cmn.CompositeGrid) error {
	f, err := os.Create(path)
	if err != nil {
		return cmn.Wrap(cmn.ErrConfiguration, err, "create ugrid placeholder")
	}
	defer f.Close()
	fmt.Fprintf(f, "# placeholder UGRID output, %d component grids\n", len(grids))
	for _, g := range grids {
		fmt.Fprintf(f, "# %s: %d nodes\n", g.BodyName, g.NodeCount)
	}
	return nil
}

func run(scriptPath, outDir string) error {
	entries, err := loadScript(scriptPath)
	if err != nil {
		return err
	}
	entries, err = expandDirectories(entries)
	if err != nil {
		return err
	}

	var grids []cmn.CompositeGrid
	var bcByGrid [][]string
	for _, e := range entries {
		bcs, err := readMapbc(e.MapbcFile)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(bcs))
		for _, name := range bcs {
			if e.PrefixBCWithBody && e.BodyName != "" {
				name = e.BodyName + "_" + name
			}
			names = append(names, name)
		}
		if e.LumpBCByName {
			names = lumpByName(names)
		}
		grids = append(grids, cmn.CompositeGrid{
			BodyName: e.BodyName,
			NodeFile: e.ComponentGridFile,
			BCNames:  names,
		})
		bcByGrid = append(bcByGrid, names)
		nlog.Infof("composite assembly: loaded %s (body %q, %d bc names)", e.ComponentGridFile, e.BodyName, len(names))
	}

	outputs := cmn.CompositeOutputs{Ugrid: stubUgridWriter{}}
	if err := outputs.Ugrid.WriteUGRID(filepath.Join(outDir, "composite.ugrid"), grids); err != nil {
		return err
	}
	return writeComposite(outDir, grids, bcByGrid)
}

func lumpByName(names []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: yoga-assemble <script.json> <output-dir>")
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2]); err != nil {
		kind := cmn.KindOf(err)
		if kind != nil {
			nlog.Errorf("%s: %v", kind, err)
		} else {
			nlog.Errorf("%v", err)
		}
		os.Exit(1)
	}
}
