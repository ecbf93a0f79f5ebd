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

// RunPrecreate builds every dataset this rank owns and precreates
// Cfg.Precreate objects in each, per the precreate phase contract.
func RunPrecreate(ctx context.Context, d *Deps) error {
	latency := d.Cfg.LatencyFilePrefix != ""
	if latency {
		d.Bundle.CreateLatencies = make([]stats.Latency, d.Cfg.DsetCount*d.Cfg.Precreate)
	}

	dsetNames := make([]string, d.Cfg.DsetCount)
	for di := 0; di < d.Cfg.DsetCount; di++ {
		name := d.Backend.NameOfDataset(d.Rank, di)
		dsetNames[di] = name
		d.Bundle.DatasetName.Success++

		status, err := d.Backend.CreateDataset(ctx, name)
		switch {
		case err != nil || (status != backend.Success && status != backend.NoOp):
			d.Bundle.DatasetCreate.Error++
			if !d.Cfg.IgnorePrecreateErrors {
				d.print("Error while creating the dataset %s (%v)\n", name, err)
				return fatalf("precreate: creating dataset %s: status=%v err=%v", name, status, err)
			}
		case status == backend.NoOp:
			// do not increment any counter
		default:
			d.Bundle.DatasetCreate.Success++
		}
	}

	for di := 0; di < d.Cfg.DsetCount; di++ {
		dsName := dsetNames[di]
		for f := 0; f < d.Cfg.Precreate; f++ {
			objName := d.Backend.NameOfObject(d.Rank, di, f)
			d.Bundle.ObjectName.Success++

			var opStart float64
			if latency {
				opStart = d.since()
			}
			status, err := d.Backend.WriteObject(ctx, dsName, objName, d.Buf)
			if latency {
				d.Bundle.CreateLatencies[di*d.Cfg.Precreate+f] = stats.Latency{
					Since:    opStart,
					Duration: d.since() - opStart,
				}
			}

			switch {
			case err != nil || (status != backend.Success && status != backend.NoOp):
				d.Bundle.ObjectCreate.Error++
				if !d.Cfg.IgnorePrecreateErrors {
					d.print("Error while creating the obj %s (%v)\n", objName, err)
					return fatalf("precreate: writing object %s: status=%v err=%v", objName, status, err)
				}
			case status == backend.NoOp:
				// do not increment any counter
			default:
				d.Bundle.ObjectCreate.Success++
			}
		}
	}
	return nil
}
