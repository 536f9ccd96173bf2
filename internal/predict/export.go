package predict

import (
	"bytes"
	"encoding/csv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/yrfi-cli/internal/fetcher"
	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/table"
)

// ExportXLSX writes predictions as a workbook with the same columns as the
// CSV table.
func ExportXLSX(path string, preds []model.Prediction) error {
	var buf bytes.Buffer
	if err := table.Encode(&buf, preds); err != nil {
		return err
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		return eris.Wrap(err, "predict: re-read encoded predictions")
	}
	return fetcher.WriteXLSX(path, "predictions", records)
}
