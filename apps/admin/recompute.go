package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/libreta/backend/core/audit"
	"github.com/libreta/backend/core/gradebook"
)

func (cli *commandLine) recompute(filter gradebook.RecordFilter) error {
	res, err := cli.gradebookSvc.Recompute(context.Background(), audit.System, &filter)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%d recomputed, %d failed\n", res.Affected, res.Failed)
	keys := make([]string, 0, len(res.Errors))
	for k := range res.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cli.out, "  %s: %s\n", k, res.Errors[k])
	}
	return nil
}
