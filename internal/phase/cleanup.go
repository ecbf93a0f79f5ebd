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
	"mdworkbench/internal/stats"
)

// RunCleanup removes every object and dataset this rank created during
// precreate and steady-state, starting from cumulativeIndex.
func RunCleanup(ctx context.Context, d *Deps, cumulativeIndex int) error {
	latency := d.Cfg.LatencyFilePrefix != ""
	if latency {
		d.Bundle.DeleteLatencies = make([]stats.Latency, d.Cfg.DsetCount*d.Cfg.Precreate)
	}

	for di := 0; di < d.Cfg.DsetCount; di++ {
		dsName := d.Backend.NameOfDataset(d.Rank, di)

		for f := 0; f < d.Cfg.Precreate; f++ {
			objName := d.Backend.NameOfObject(d.Rank, di, f+cumulativeIndex)

			var start float64
			if latency {
				start = d.since()
			}
			status, err := d.Backend.DeleteObject(ctx, dsName, objName)
			if latency {
				d.Bundle.DeleteLatencies[di*d.Cfg.Precreate+f] = stats.Latency{Since: start, Duration: d.since() - start}
			}
			switch {
			case status == backend.NoOp:
				// nothing to do
			case status == backend.Success && err == nil:
				d.Bundle.ObjectDelete.Success++
			default:
				d.Bundle.ObjectDelete.Error++
			}
		}

		status, err := d.Backend.RemoveDataset(ctx, dsName)
		switch {
		case status == backend.NoOp:
			// nothing to do
		case status == backend.Success && err == nil:
			d.Bundle.DatasetDelete.Success++
		default:
			d.Bundle.DatasetDelete.Error++
		}
	}
	return nil
}
