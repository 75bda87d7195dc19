package analysis

import "sort"

type Row struct {
	Unit      Unit    `json:"unit"`
	Frequency int     `json:"frequency"`
	Density   float64 `json:"density"`
}

// Table is a frequency/density table ranked by frequency, ties in first-seen order.
type Table struct {
	Kind  Kind  `json:"kind"`
	Total int   `json:"total"`
	Rows  []Row `json:"rows"`
}

func (table Table) Label() string {
	return table.Kind.Label()
}

func (table Table) FrequencyColumn() string {
	return table.Kind.ColumnPrefix() + "Frequency"
}

func (table Table) DensityColumn() string {
	return table.Kind.ColumnPrefix() + "Density"
}

func (table Table) Empty() bool {
	return len(table.Rows) == 0
}

// Top returns at most n leading rows; n <= 0 returns every row.
func (table Table) Top(n int) []Row {
	if n <= 0 || n >= len(table.Rows) {
		return table.Rows
	}
	return table.Rows[:n]
}

// Build counts units and derives densities. An empty input yields an empty
// table tagged with kind.
func Build(units []Unit, kind Kind) Table {
	table := Table{Kind: kind, Rows: []Row{}}
	if len(units) == 0 {
		return table
	}

	index := make(map[Unit]int, len(units))
	for _, unit := range units {
		position, ok := index[unit]
		if !ok {
			index[unit] = len(table.Rows)
			table.Rows = append(table.Rows, Row{Unit: unit, Frequency: 1})
			continue
		}
		table.Rows[position].Frequency++
	}

	table.Total = len(units)
	total := float64(table.Total)
	for position := range table.Rows {
		table.Rows[position].Density = float64(table.Rows[position].Frequency) / total * 100.0
	}

	sort.SliceStable(table.Rows, func(i, j int) bool {
		return table.Rows[i].Frequency > table.Rows[j].Frequency
	})
	return table
}
