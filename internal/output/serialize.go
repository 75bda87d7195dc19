package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"kratio/internal/analysis"
	"kratio/internal/logging"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrUnsupportedFormat = errors.New("unsupported output format")

// Serializer writes full tables to disk, choosing the encoding from the file
// extension.
type Serializer struct {
	Logger *logging.Logger
}

// SupportedExtension reports whether path has an extension Serialize accepts.
func SupportedExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".json", ".pb":
		return true
	default:
		return false
	}
}

func (serializer Serializer) Serialize(source analysis.Table, path string) error {
	extension := strings.ToLower(filepath.Ext(path))
	var (
		payload []byte
		err     error
		name    string
	)
	switch extension {
	case ".csv":
		payload, err = encodeCSV(source)
		name = "CSV"
	case ".json":
		payload, err = encodeJSON(source)
		name = "JSON"
	case ".pb":
		payload, err = encodeProto(source)
		name = "protobuf"
	default:
		serializer.Logger.Error("unsupported output format", map[string]string{
			"path":      path,
			"extension": extension,
		})
		return fmt.Errorf("%w: %q (use .csv, .json or .pb)", ErrUnsupportedFormat, extension)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return err
	}
	serializer.Logger.Info("table written", map[string]string{
		"path":   path,
		"format": name,
		"rows":   strconv.Itoa(len(source.Rows)),
	})
	return nil
}

func encodeCSV(source analysis.Table) ([]byte, error) {
	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)
	if err := writer.Write([]string{source.Label(), source.FrequencyColumn(), source.DensityColumn()}); err != nil {
		return nil, err
	}
	for _, row := range source.Rows {
		if err := writer.Write([]string{
			string(row.Unit),
			strconv.Itoa(row.Frequency),
			strconv.FormatFloat(row.Density, 'f', -1, 64),
		}); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	return buffer.Bytes(), writer.Error()
}

func records(source analysis.Table) []map[string]any {
	list := make([]map[string]any, 0, len(source.Rows))
	for _, row := range source.Rows {
		list = append(list, map[string]any{
			source.Label():           string(row.Unit),
			source.FrequencyColumn(): row.Frequency,
			source.DensityColumn():   row.Density,
		})
	}
	return list
}

func encodeJSON(source analysis.Table) ([]byte, error) {
	payload, err := json.MarshalIndent(records(source), "", "    ")
	if err != nil {
		return nil, err
	}
	return append(payload, '\n'), nil
}

func encodeProto(source analysis.Table) ([]byte, error) {
	rows := records(source)
	values := make([]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, row)
	}
	list, err := structpb.NewList(values)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(list)
}
