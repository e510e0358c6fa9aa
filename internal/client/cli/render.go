package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/dmitrijs2005/creditconsole/internal/client/services"
)

const maxColWidth = 40

// renderView prints the rows of v as a table followed by a page footer.
func renderView(w io.Writer, v *services.ListView) {
	rows := v.Rows()
	st := v.State()

	if len(rows) == 0 {
		fmt.Fprintln(w, "No results")
	} else {
		bold := color.New(color.Bold)

		tbl := uitable.New()
		tbl.Separator = "  "
		tbl.MaxColWidth = maxColWidth

		header := make([]any, len(v.Resource.Columns))
		for i, c := range v.Resource.Columns {
			header[i] = bold.Sprint(c.Title)
		}
		tbl.AddRow(header...)

		for _, r := range rows {
			cells := make([]any, len(v.Resource.Columns))
			for i, c := range v.Resource.Columns {
				cells[i] = r.Cell(c.Field)
			}
			tbl.AddRow(cells...)
		}
		_, _ = fmt.Fprintln(w, tbl)
	}

	fmt.Fprintf(w, "page %d/%d, %d per page, %d total\n", st.CurrentPage, st.TotalPages, st.PageSize, st.TotalItems)
}

func renderFilters(w io.Writer, v *services.ListView) {
	tbl := uitable.New()
	tbl.Separator = "  "
	search := v.SearchText()
	if search == "" {
		search = "-"
	}
	tbl.AddRow("search", search)

	filters := v.Filters()
	for _, k := range v.FilterKeys() {
		tbl.AddRow(k, filters[k])
	}
	_, _ = fmt.Fprintln(w, tbl)
}
