package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	pkgerrors "github.com/absmach/asgd/pkg/errors"
)

// LoadCSV reads a headered CSV stream. The column named labelCol becomes the row
// label; every other column is parsed as a float and packed, in header order, into
// a vector stored under featuresCol.
func LoadCSV(r io.Reader, featuresCol, labelCol string) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	labelIdx := -1
	for i, h := range header {
		if h == labelCol {
			labelIdx = i
		}
	}
	if labelIdx < 0 {
		return nil, fmt.Errorf("%w: label column %q", pkgerrors.ErrNotFound, labelCol)
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		features := make([]float64, 0, len(rec)-1)
		var label float64
		for i, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %q: %w", pkgerrors.ErrInvalidData, line, header[i], err)
			}
			if i == labelIdx {
				label = v

				continue
			}
			features = append(features, v)
		}

		rows = append(rows, Row{
			featuresCol: features,
			labelCol:    label,
		})
	}

	return rows, nil
}
