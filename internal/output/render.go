package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"kratio/internal/analysis"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const emptyMessage = "No data to display for keywords."

// KeywordRecord is the console shape of one table row.
type KeywordRecord struct {
	Keyword   string  `json:"keyword"`
	Density   float64 `json:"density"`
	Frequency int     `json:"frequency"`
}

// TopRecords returns the leading topN rows as console records.
func TopRecords(source analysis.Table, topN int) []KeywordRecord {
	rows := source.Top(topN)
	records := make([]KeywordRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, KeywordRecord{
			Keyword:   string(row.Unit),
			Density:   row.Density,
			Frequency: row.Frequency,
		})
	}
	return records
}

// Renderer prints the top rows of a table to Out.
type Renderer struct {
	Out    io.Writer
	Format Format
	TopN   int
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

func (renderer Renderer) Render(source analysis.Table) error {
	records := TopRecords(source, renderer.TopN)
	if len(records) == 0 {
		_, err := fmt.Fprintln(renderer.Out, emptyMessage)
		return err
	}

	switch renderer.Format {
	case FormatJSON:
		payload, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(renderer.Out, string(payload))
		return err
	case FormatCSV:
		return writeRecordsCSV(renderer.Out, records)
	default:
		_, err := fmt.Fprintln(renderer.Out, renderTable(source.Label(), records))
		return err
	}
}

func renderTable(label string, records []KeywordRecord) string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			record.Keyword,
			strconv.FormatFloat(record.Density, 'f', 4, 64),
			strconv.Itoa(record.Frequency),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(label, "Density", "Frequency").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col > 0:
				return numberStyle
			default:
				return cellStyle
			}
		}).
		String()
}

func writeRecordsCSV(out io.Writer, records []KeywordRecord) error {
	writer := csv.NewWriter(out)
	if err := writer.Write([]string{"keyword", "density", "frequency"}); err != nil {
		return err
	}
	for _, record := range records {
		if err := writer.Write([]string{
			record.Keyword,
			strconv.FormatFloat(record.Density, 'f', -1, 64),
			strconv.Itoa(record.Frequency),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
