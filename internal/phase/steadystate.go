// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package phase

import (
	"context"

	"mdworkbench/internal/backend"
	"mdworkbench/internal/pattern"
	"mdworkbench/internal/stats"
)

// RunSteadyState runs one benchmark round: for every (f, d) it writes a
// future-index object on a neighbour rank and stats+reads+deletes a
// past-index object owned by a different neighbour, per the skewed
// access pattern in package pattern.
func RunSteadyState(ctx context.Context, d *Deps, cumulativeIndex int) error {
	latency := d.Cfg.LatencyFilePrefix != ""
	if latency {
		n := d.Cfg.Num * d.Cfg.DsetCount
		d.Bundle.CreateLatencies = make([]stats.Latency, n)
		d.Bundle.StatLatencies = make([]stats.Latency, n)
		d.Bundle.ReadLatencies = make([]stats.Latency, n)
		d.Bundle.DeleteLatencies = make([]stats.Latency, n)
	}

	for f := 0; f < d.Cfg.Num; f++ {
		for di := 0; di < d.Cfg.DsetCount; di++ {
			idx := f*d.Cfg.DsetCount + di
			prevFile := f + cumulativeIndex

			writeRank := pattern.WriteRank(d.Rank, di, d.Cfg.Offset, d.Size)
			writeDataset := d.Backend.NameOfDataset(writeRank, di)
			writeName := d.Backend.NameOfObject(writeRank, di, d.Cfg.Precreate+prevFile)

			var start float64
			if latency {
				start = d.since()
			}
			status, err := d.Backend.WriteObject(ctx, writeDataset, writeName, d.Buf)
			if latency {
				d.Bundle.CreateLatencies[idx] = stats.Latency{Since: start, Duration: d.since() - start}
			}
			if d.Cfg.Verbosity > 1 {
				d.print("%d Create %s:%s\n", d.Rank, writeDataset, writeName)
			}
			switch {
			case status == backend.ErrorCreate || err != nil:
				if d.Cfg.Verbosity > 0 {
					d.print("%d: Error while creating file %s (%v)\n", d.Rank, writeName, err)
				}
				d.Bundle.ObjectCreate.Error++
			case status == backend.NoOp:
				// do not increment any counter
			case status != backend.Success:
				if d.Cfg.Verbosity > 0 {
					d.print("%d: Error while writing file %s (%v)\n", d.Rank, writeName, err)
				}
				d.Bundle.ObjectCreate.Error++
			default:
				d.Bundle.ObjectCreate.Success++
			}

			readRank := pattern.ReadRank(d.Rank, di, d.Cfg.Offset, d.Size)
			readDataset := d.Backend.NameOfDataset(readRank, di)
			readName := d.Backend.NameOfObject(readRank, di, prevFile)

			if latency {
				start = d.since()
			}
			statStatus, statErr := d.Backend.StatObject(ctx, readDataset, readName, len(d.Buf))
			if latency {
				d.Bundle.StatLatencies[idx] = stats.Latency{Since: start, Duration: d.since() - start}
			}
			if d.Cfg.Verbosity > 1 {
				d.print("%d Access %s:%s\n", d.Rank, readDataset, readName)
			}
			if statStatus != backend.Success && statStatus != backend.NoOp {
				if d.Cfg.Verbosity > 0 {
					d.print("%d: Error while stating file %s (%v)\n", d.Rank, readName, statErr)
				}
				d.Bundle.ObjectStat.Error++
				continue
			}
			if statStatus == backend.Success {
				d.Bundle.ObjectStat.Success++
			}

			if latency {
				start = d.since()
			}
			readStatus, readErr := d.Backend.ReadObject(ctx, readDataset, readName, d.Buf)
			if latency {
				d.Bundle.ReadLatencies[idx] = stats.Latency{Since: start, Duration: d.since() - start}
			}
			switch {
			case readStatus == backend.NoOp:
				// nothing to do
			case readStatus == backend.ErrorFind:
				d.print("%d: Error while accessing file %s (%v)\n", d.Rank, readName, readErr)
				d.Bundle.ObjectRead.Error++
			case readStatus != backend.Success || readErr != nil:
				d.print("%d: Error while reading file %s (%v)\n", d.Rank, readName, readErr)
				d.Bundle.ObjectRead.Error++
			default:
				d.Bundle.ObjectRead.Success++
			}

			if latency {
				start = d.since()
			}
			delStatus, delErr := d.Backend.DeleteObject(ctx, readDataset, readName)
			if latency {
				d.Bundle.DeleteLatencies[idx] = stats.Latency{Since: start, Duration: d.since() - start}
			}
			switch {
			case delStatus == backend.NoOp:
				// nothing to do
			case delStatus != backend.Success || delErr != nil:
				d.print("%d: Error while deleting file %s (%v)\n", d.Rank, readName, delErr)
				d.Bundle.ObjectDelete.Error++
			default:
				d.Bundle.ObjectDelete.Success++
			}
		}
	}
	return nil
}
