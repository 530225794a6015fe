package upload

import (
	"fmt"
	"sort"

	"github.com/datachat/console/internal/format"
)

// EmptyMessage is shown when nothing is staged.
const EmptyMessage = "No structured data file selected yet."

// View is the upload section view model.
type View struct {
	File          *FileRow
	Empty         string
	SubmitEnabled bool
	SubmitLabel   string
	Preview       *Preview
}

// FileRow describes the staged file.
type FileRow struct {
	Name string
	Size string
}

// Preview is the first rows returned by the last successful upload.
type Preview struct {
	Filename string
	Columns  []string
	Rows     [][]string
}

// BuildView derives the view model from s.
func BuildView(s State) View {
	v := View{
		SubmitEnabled: s.SubmitEnabled(),
		SubmitLabel:   "Upload data",
	}
	if s.InFlight {
		v.SubmitLabel = "Processing..."
	}

	if s.Pending == nil {
		v.Empty = EmptyMessage
	} else {
		v.File = &FileRow{Name: s.Pending.Name, Size: format.SizeMB(s.Pending.Size)}
	}

	if s.Last != nil && len(s.Last.DataPreview) > 0 {
		v.Preview = buildPreview(s.Last.Filename, s.Last.DataPreview)
	}
	return v
}

func buildPreview(filename string, rows []map[string]any) *Preview {
	seen := make(map[string]struct{})
	var cols []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)

	p := &Preview{Filename: filename, Columns: cols}
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := row[c]; ok && v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		p.Rows = append(p.Rows, cells)
	}
	return p
}
