package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const chartSheet = "Chart of Accounts"

var chartHeaders = []string{"Code", "Name", "Type", "Parent Code", "Detail", "Active"}

// ImportXLSX loads accounts from the first sheet of a workbook. The first row
// is a header; rows are applied parents first in a single transaction.
func (s *Service) ImportXLSX(ctx context.Context, tenantID int64, r io.Reader) (int, error) {
	inputs, err := ParseChartXLSX(r)
	if err != nil {
		return 0, err
	}
	return s.Upsert(ctx, tenantID, inputs)
}

// ParseChartXLSX reads account rows from a workbook.
func ParseChartXLSX(r io.Reader) ([]CreateInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("accounts: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("accounts: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("accounts: read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("accounts: workbook must contain a header row and at least one account")
	}

	var inputs []CreateInput
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		code := cell(row, 0)
		if code == "" {
			continue
		}
		input := CreateInput{
			Code:     code,
			Name:     cell(row, 1),
			Type:     AccountType(strings.ToUpper(cell(row, 2))),
			IsDetail: parseFlag(cell(row, 4), true),
		}
		if parent := cell(row, 3); parent != "" {
			input.ParentCode = &parent
		}
		active := parseFlag(cell(row, 5), true)
		input.IsActive = &active
		inputs = append(inputs, input)
	}
	sort.SliceStable(inputs, func(i, j int) bool {
		return depth(inputs[i]) < depth(inputs[j])
	})
	return inputs, nil
}

// ExportXLSX writes the tenant chart as a workbook.
func (s *Service) ExportXLSX(ctx context.Context, tenantID int64, w io.Writer) error {
	list, err := s.List(ctx, tenantID)
	if err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(chartSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	for col, header := range chartHeaders {
		name, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(chartSheet, name, header)
		_ = f.SetCellStyle(chartSheet, name, name, headerStyle)
	}
	for i, acc := range list {
		parent := ""
		if acc.ParentCode != nil {
			parent = *acc.ParentCode
		}
		values := []any{acc.Code, acc.Name, string(acc.Type), parent, acc.IsDetail, acc.IsActive}
		cellName, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(chartSheet, cellName, &values); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(chartSheet, "B", "B", 48)
	return f.Write(w)
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseFlag(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "y", "yes", "x", "có":
		return true
	case "n", "no", "không":
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func depth(input CreateInput) int {
	if input.ParentCode == nil {
		return 0
	}
	return len(input.Code)
}
