package worker

import (
	"iter"

	"github.com/absmach/asgd/dataset"
	"github.com/absmach/asgd/model"
)

// batches groups rows into samples of at most size. A row that cannot be converted
// yields its error and ends the sequence.
func batches(rows iter.Seq[dataset.Row], featuresCol, labelCol string, size int) iter.Seq2[[]model.Sample, error] {
	return func(yield func([]model.Sample, error) bool) {
		batch := make([]model.Sample, 0, size)
		for row := range rows {
			features, err := dataset.Float64s(row, featuresCol)
			if err != nil {
				yield(nil, err)

				return
			}
			label, err := dataset.Float64(row, labelCol)
			if err != nil {
				yield(nil, err)

				return
			}

			batch = append(batch, model.Sample{Features: features, Label: label})
			if len(batch) == size {
				if !yield(batch, nil) {
					return
				}
				batch = make([]model.Sample, 0, size)
			}
		}
		if len(batch) > 0 {
			yield(batch, nil)
		}
	}
}
