package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	model "github.com/zhouzirui/lexdesk/backend/internal/model/history"
	"github.com/zhouzirui/lexdesk/backend/internal/service/assistant"
	"github.com/zhouzirui/lexdesk/backend/internal/storage"
)

type target struct {
	key        string
	exportName string
}

var targets = map[string]target{
	"chat":     {assistant.ChatKey, assistant.ChatExport},
	"summary":  {assistant.SummaryKey, assistant.SummaryExport},
	"analysis": {assistant.AnalysisKey, assistant.AnalysisExport},
	"citation": {assistant.CitationKey, assistant.CitationExport},
}

// rawRecord leaves the feature-specific payloads undecoded.
type rawRecord = model.Record[json.RawMessage, json.RawMessage]

type opener func() (storage.Adapter, error)

func openAdapter() (storage.Adapter, error) {
	if strings.EqualFold(driverFlag, storage.DriverMemory) {
		return nil, fmt.Errorf("the memory driver holds nothing between runs")
	}
	return storage.Open(storage.Config{Driver: driverFlag, Path: pathFlag})
}

func lookup(feature string) (target, error) {
	t, ok := targets[strings.ToLower(strings.TrimSpace(feature))]
	if !ok {
		names := make([]string, 0, len(targets))
		for name := range targets {
			names = append(names, name)
		}
		sort.Strings(names)
		return target{}, fmt.Errorf("unknown feature %q (want one of %s)", feature, strings.Join(names, ", "))
	}
	return t, nil
}

func loadRecords(ctx context.Context, a storage.Adapter, key string) ([]rawRecord, error) {
	data, ok, err := a.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var records []rawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return records, nil
}

func runKeys(ctx context.Context, open opener, out io.Writer) error {
	a, err := open()
	if err != nil {
		return err
	}
	defer a.Close()

	keys, err := a.Keys(ctx)
	if err != nil {
		return err
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintln(out, k)
	}
	return nil
}

func runList(ctx context.Context, open opener, feature string, limit int, out io.Writer) error {
	t, err := lookup(feature)
	if err != nil {
		return err
	}
	a, err := open()
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := loadRecords(ctx, a, t.key)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(out, "no %s history\n", feature)
		return nil
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tKIND\tLIKED\tBOOKMARKED\tINPUT")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.InputKind, r.Liked, r.Bookmarked, truncate(r.InputPayload, 48))
	}
	return tw.Flush()
}

func runExport(ctx context.Context, open opener, feature, dest string, stdout io.Writer) error {
	t, err := lookup(feature)
	if err != nil {
		return err
	}
	a, err := open()
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := loadRecords(ctx, a, t.key)
	if err != nil {
		return err
	}
	if records == nil {
		records = []rawRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	if dest == "-" {
		_, err = stdout.Write(append(data, '\n'))
		return err
	}
	if dest == "" {
		dest = t.exportName
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported %d records to %s\n", len(records), dest)
	return nil
}

func runClear(ctx context.Context, open opener, feature string, out io.Writer) error {
	t, err := lookup(feature)
	if err != nil {
		return err
	}
	a, err := open()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Clear(ctx, t.key); err != nil {
		return err
	}
	fmt.Fprintf(out, "cleared %s history\n", feature)
	return nil
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
