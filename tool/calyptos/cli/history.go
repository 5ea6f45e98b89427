/*
Copyright 2020 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eucalyptus/calyptos/lib/storage"

	"github.com/gravitational/trace"
	"github.com/olekukonko/tablewriter"
)

// printHistory prints the phases recorded in the operation journal
func printHistory(w io.Writer, stateDir string, limit int) error {
	journal, err := openJournal(stateDir, true)
	if err != nil {
		return trace.Wrap(err)
	}
	defer journal.Close()
	operations, err := journal.GetOperations()
	if err != nil {
		return trace.Wrap(err)
	}
	writeHistory(w, operations, limit)
	return nil
}

func writeHistory(w io.Writer, operations []storage.Operation, limit int) {
	if len(operations) == 0 {
		fmt.Fprintln(w, "No operations have been recorded.")
		return
	}
	if limit > 0 && len(operations) > limit {
		operations = operations[:limit]
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Phase", "Environment", "State", "Started", "Duration", "Failed hosts"})
	table.SetAutoWrapText(false)

	var data [][]string
	for _, op := range operations {
		data = append(data, []string{
			op.ID,
			op.Phase,
			op.Environment,
			op.State,
			op.Created.Format(time.RFC3339),
			op.Updated.Sub(op.Created).Truncate(time.Second).String(),
			strings.Join(op.FailedHosts(), ", "),
		})
	}

	table.AppendBulk(data)
	table.Render()
}
