// Command yoga-dcif-check validates a standalone DCIF file against
// spec.md §4.7's checker contracts (count consistency, fringe-id
// validity, linear-function recovery), printing one diagnostic line
// and exiting non-zero on failure (spec.md §7).
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/nasa/YOGA-sub004/cmn"
	"github.com/nasa/YOGA-sub004/cmn/nlog"
	"github.com/nasa/YOGA-sub004/dcif"
)

// loadCoordinates reads a side-car text file mapping node id to x y z,
// one per line, used only to run the checker's linear-recovery test —
// the DCIF file itself carries no coordinates.
func loadCoordinates(path string) (map[int64][3]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrConfiguration, err, "open coordinate file")
	}
	defer f.Close()

	out := make(map[int64][3]float64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var id int64
		var x, y, z float64
		if _, err := fmt.Sscanf(line, "%d %g %g %g", &id, &x, &y, &z); err != nil {
			return nil, cmn.Wrap(cmn.ErrConfiguration, err, "parse coordinate line")
		}
		out[id] = [3]float64{x, y, z}
	}
	return out, scanner.Err()
}

func run(dcifPath, coordPath string) error {
	f, err := os.Open(dcifPath)
	if err != nil {
		return cmn.Wrap(cmn.ErrConfiguration, err, "open dcif file")
	}
	defer f.Close()

	file, err := dcif.Read(f)
	if err != nil {
		return err
	}

	if coordPath == "" {
		// coordinate-free subset of Check
		if err := dcif.CheckCounts(file); err != nil {
			return err
		}
		return dcif.CheckFringeIDs(file)
	}
	coords, err := loadCoordinates(coordPath)
	if err != nil {
		return err
	}
	lookup := func(id int64) (float64, float64, float64, bool) {
		p, ok := coords[id]
		return p[0], p[1], p[2], ok
	}
	return dcif.Check(file, lookup)
}

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Fprintln(os.Stderr, "usage: yoga-dcif-check <file.dcif> [coordinates.txt]")
		os.Exit(2)
	}
	coordPath := ""
	if len(os.Args) == 3 {
		coordPath = os.Args[2]
	}
	if err := run(os.Args[1], coordPath); err != nil {
		kind := cmn.KindOf(err)
		if kind != nil {
			nlog.Errorf("%s: %v", kind, err)
		} else {
			nlog.Errorf("%v", err)
		}
		os.Exit(1)
	}
	fmt.Println("ok")
}
