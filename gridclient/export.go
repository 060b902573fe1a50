package gridclient

// ExportRow is the tabular-export projection of a row: image references
// rewritten to absolute URLs, status and date as literal strings. Read-only;
// it never feeds back into edit state.
type ExportRow struct {
	ID          string
	Name        string
	Description string
	Date        string
	Time        string
	Location    string
	Status      string
	Cost        string
	ImageURL    string
}

// Export projects the current row set for export. Display defaults apply the
// same way they do in the live grid.
func (g *Grid) Export() []ExportRow {
	rows := g.Rows()
	out := make([]ExportRow, len(rows))
	for i, e := range rows {
		out[i] = ExportRow{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Date:        e.DateTime.UTC().Format("2006-01-02"),
			Time:        e.Time,
			Location:    e.Location,
			Status:      string(e.Status),
			Cost:        e.Cost,
			ImageURL:    g.api.ResolveImage(e.ImageRef),
		}
	}
	return out
}
