package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportVersion is written into every JSON export.
const ExportVersion = "1.0"

// ExportJSON writes every record in the store as an indented JSON document.
func ExportJSON(ctx context.Context, store Store, writer io.Writer) error {
	all, err := store.List(ctx, Filter{Limit: maxExportLimit})
	if err != nil {
		return fmt.Errorf("failed to list assessments: %w", err)
	}

	export := &Export{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Records:    all,
	}
	if export.Records == nil {
		export.Records = []*Record{}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON loads records from a JSON export. Records whose ID already
// exists are skipped, never overwritten.
func ImportJSON(ctx context.Context, store Store, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rec := range export.Records {
		if rec == nil || rec.ID == "" {
			skipped++
			continue
		}

		_, err := store.Get(ctx, rec.ID)
		switch {
		case err == nil:
			skipped++
			continue
		case !errors.Is(err, ErrNotFound):
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if err := store.Save(ctx, rec); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

const xlsxSheet = "Assessments"

var xlsxHeader = []string{
	"ID",
	"Condition",
	"Risk %",
	"Risk Level",
	"Risk Color",
	"Confidence",
	"Source",
	"Model",
	"Assessed At",
	"Recorded At",
}

var xlsxColumnWidths = []float64{38, 14, 10, 12, 12, 12, 10, 18, 32, 22}

// ExportXLSX writes every record as an Excel workbook. Each record gets one
// row; feature values follow the fixed columns, one column per feature key.
func ExportXLSX(ctx context.Context, store Store, writer io.Writer) error {
	all, err := store.List(ctx, Filter{Limit: maxExportLimit})
	if err != nil {
		return fmt.Errorf("failed to list assessments: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	featureKeys := collectFeatureKeys(all)
	headers := append(append([]string{}, xlsxHeader...), featureKeys...)

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(xlsxSheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(xlsxSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, width := range xlsxColumnWidths {
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(xlsxSheet, colName, colName, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, rec := range all {
		row := []interface{}{
			rec.ID,
			rec.Condition.DisplayName(),
			rec.Result.RiskPercentage,
			string(rec.Result.RiskLevel),
			rec.Result.RiskColor,
			rec.Result.Confidence,
			string(rec.Result.Source),
			rec.Result.ModelUsed,
			rec.Result.Timestamp,
			rec.CreatedAt.UTC().Format(time.RFC3339),
		}
		for _, key := range featureKeys {
			if v, ok := rec.Features[key]; ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func collectFeatureKeys(records []*Record) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec.Features {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
