// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package finalizer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/NVIDIA/bootcheck/pkg/crashstore"
	"github.com/NVIDIA/bootcheck/pkg/report"
)

// Cleartext renders the newest completed archive into a human-readable
// report and records that in the crash store.
type Cleartext struct {
	root    string
	storage Storage
	store   crashstore.Store
}

// NewCleartext creates a cleartext finalizer for archives under root.
func NewCleartext(root string, storage Storage, store crashstore.Store) *Cleartext {
	return &Cleartext{root: root, storage: storage, store: store}
}

// FinalizeCleartext writes report.txt into the newest archive that has both
// a DONE marker and a report, then marks the cleartext flag done. With no
// such archive there is nothing to render and the flag is marked done.
func (c *Cleartext) FinalizeCleartext(ctx context.Context) error {
	archives, err := ListArchives(c.root)
	if err != nil {
		return err
	}

	for i := len(archives) - 1; i >= 0; i-- {
		a := archives[i]
		if !a.Complete {
			continue
		}
		r, err := report.Load(filepath.Join(a.Dir, report.FileName))
		if err != nil {
			slog.Debug("archive has no usable report", "name", a.Name, "error", err)
			continue
		}
		if err := c.storage.WriteFile(ctx, a.Dir, CleartextName, Render(r)); err != nil {
			return fmt.Errorf("failed to write cleartext report: %w", err)
		}
		slog.Info("cleartext report written", "name", a.Name)
		break
	}

	return crashstore.Update(ctx, c.store, func(h *crashstore.Header) {
		h.Cleartext.SavefileFlag = crashstore.SaveDone
	})
}

// Render formats r as plain text.
func Render(r *report.Report) []byte {
	title := cases.Title(language.English)

	var sb strings.Builder
	heading := title.String(splitCamel(r.Kind.String()))
	fmt.Fprintf(&sb, "%s\n%s\n", heading, strings.Repeat("=", len(heading)))
	for _, k := range []string{"version", "timestamp"} {
		if v, ok := r.Metadata[k]; ok {
			fmt.Fprintf(&sb, "%s: %s\n", title.String(k), v)
		}
	}

	section := func(name string, rows [][2]string) {
		fmt.Fprintf(&sb, "\n%s\n%s\n", title.String(name), strings.Repeat("-", len(name)))
		for _, row := range rows {
			fmt.Fprintf(&sb, "  %-12s %s\n", title.String(row[0])+":", row[1])
		}
	}

	section("incident", [][2]string{
		{"mod id", r.Incident.ModID},
		{"outcome", r.Incident.Outcome},
		{"reason", r.Incident.Reason},
		{"class", r.Incident.Class},
		{"subtype", fmt.Sprintf("%d", r.Incident.Subtype)},
	})
	section("modules", [][2]string{
		{"core", list(r.Modules.Core)},
		{"requested", list(r.Modules.Requested)},
		{"completed", list(r.Modules.Completed)},
		{"remaining", list(r.Modules.Remaining)},
	})
	section("drain", [][2]string{
		{"rounds", fmt.Sprintf("%d", r.Drain.Rounds)},
		{"stop", r.Drain.Stop},
		{"partial", fmt.Sprintf("%t", r.Drain.Partial)},
	})
	section("archive", [][2]string{
		{"name", r.Archive.Name},
		{"path", r.Archive.Path},
	})

	return []byte(sb.String())
}

func list(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

// splitCamel turns "IncidentReport" into "incident report".
func splitCamel(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	return strings.ToLower(sb.String())
}
