package services

import (
	"strings"
	"time"

	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	"github.com/mohamedsillahkanu/icf-collect/pkg/fieldtypes"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
	"github.com/mohamedsillahkanu/icf-collect/pkg/utils"
)

// AggregationService regroups a flat record set into summary rows keyed by
// (group value, period). Numeric fields accumulate sums; categorical fields
// split into one counter per declared option, because the remote aggregate
// model only accepts strictly additive elements.
type AggregationService struct{}

// NewAggregationService creates a new AggregationService
func NewAggregationService() *AggregationService {
	return &AggregationService{}
}

// Aggregate computes the summary rows for a record set.
//
// groupCols and periodCol may both be empty: every record then falls into a
// single "All" group bucketed by its creation month. Group and period columns
// are keys, not measures, and never aggregate.
func (s *AggregationService) Aggregate(schema *models.FormSchema, records []models.Record, groupCols []string, periodCol string) []models.AggregateRow {
	if len(records) == 0 {
		return nil
	}

	skip := make(map[string]bool, len(groupCols)+1)
	if periodCol != "" {
		skip[periodCol] = true
	}
	for _, col := range groupCols {
		skip[col] = true
	}

	grouped := make(map[string]models.AggregateRow)
	var order []string

	for _, record := range records {
		period := s.resolvePeriod(record, periodCol)
		groupValue := s.resolveGroup(record, groupCols)
		key := groupValue + constants.GroupKeySeparator + period

		row, ok := grouped[key]
		if !ok {
			row = models.AggregateRow{
				constants.KeyGroup:  groupValue,
				constants.KeyPeriod: period,
				constants.KeyCount:  0,
			}
			for _, col := range groupCols {
				part := record.StringValue(col)
				if part == "" {
					part = constants.GroupValueUnknown
				}
				row[constants.GroupColumnPrefix+col] = part
			}
			grouped[key] = row
			order = append(order, key)
		}

		row[constants.KeyCount] = row.Count() + 1

		for i := range schema.Fields {
			field := &schema.Fields[i]
			if field.IsSection() || skip[field.Name] {
				continue
			}
			if fieldtypes.ExcludedFromAggregation(field.Type) {
				continue
			}

			switch {
			case fieldtypes.IsNumeric(field.Type):
				sum, _ := row[field.Name].(float64)
				row[field.Name] = sum + utils.ToFloat(record[field.Name])

			case fieldtypes.IsCategorical(field.Type):
				options := field.OptionValues()
				for _, opt := range options {
					colKey := models.ColumnKeyFor(field, opt)
					if _, ok := row[colKey]; !ok {
						row[colKey] = 0
					}
				}
				value := record.StringValue(field.Name)
				if value != "" && containsOption(options, value) {
					colKey := models.ColumnKeyFor(field, value)
					count, _ := row[colKey].(int)
					row[colKey] = count + 1
				}
			}
		}
	}

	rows := make([]models.AggregateRow, 0, len(order))
	for _, key := range order {
		rows = append(rows, grouped[key])
	}
	return rows
}

// NumericColumns lists the column keys a schema contributes to aggregate
// rows, in field order, one per numeric field and one per categorical option.
func (s *AggregationService) NumericColumns(schema *models.FormSchema, skip map[string]bool) []string {
	var cols []string
	for i := range schema.Fields {
		field := &schema.Fields[i]
		if field.IsSection() || skip[field.Name] || fieldtypes.ExcludedFromAggregation(field.Type) {
			continue
		}
		switch {
		case fieldtypes.IsNumeric(field.Type):
			cols = append(cols, models.ColumnKeyFor(field, ""))
		case fieldtypes.IsCategorical(field.Type):
			for _, opt := range field.OptionValues() {
				cols = append(cols, models.ColumnKeyFor(field, opt))
			}
		}
	}
	return cols
}

func (s *AggregationService) resolvePeriod(record models.Record, periodCol string) string {
	if periodCol != "" {
		if v := record.StringValue(periodCol); v != "" {
			return v
		}
	}
	ts := record.Timestamp()
	if ts.IsZero() {
		ts = time.Now()
	}
	return utils.MonthPeriod(ts)
}

func (s *AggregationService) resolveGroup(record models.Record, groupCols []string) string {
	if len(groupCols) == 0 {
		return constants.GroupValueAll
	}
	parts := make([]string, 0, len(groupCols))
	for _, col := range groupCols {
		part := record.StringValue(col)
		if part == "" {
			part = constants.GroupValueUnknown
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, constants.GroupValueSeparator)
}

func containsOption(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}
