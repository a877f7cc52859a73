package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Annany2002/nebula-uploads/internal/domain"
)

func fieldNames(s *Schema) []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

func TestSchemaFieldSets(t *testing.T) {
	schemas := NewSchemas(testUploadConfig())

	assert.Equal(t, []string{
		"name", "csv_file", "database", "schema", "delimiter", "if_exists", "header", "index_col",
		"mangle_dupe_cols", "use_cols", "skip_initial_space", "skip_rows", "nrows", "skip_blank_lines",
		"parse_dates", "infer_datetime_format", "decimal", "index", "index_label", "null_values",
	}, fieldNames(schemas[domain.FormatCSV]))

	assert.Equal(t, []string{
		"name", "excel_file", "sheet_name", "database", "schema", "if_exists", "header", "index_col",
		"mangle_dupe_cols", "use_cols", "skip_rows", "nrows", "parse_dates", "decimal", "index",
		"index_label", "null_values",
	}, fieldNames(schemas[domain.FormatExcel]))

	assert.Equal(t, []string{
		"name", "columnar_file", "database", "schema", "if_exists", "use_cols", "index", "index_label",
	}, fieldNames(schemas[domain.FormatColumnar]))
}

func TestDescribe(t *testing.T) {
	schemas := NewSchemas(testUploadConfig())
	fields := schemas[domain.FormatCSV].Describe(testDatabases)

	byName := map[string]FieldDescription{}
	for _, f := range fields {
		byName[f.Name] = f
	}

	db := byName["database"]
	assert.True(t, db.Required)
	assert.Equal(t, []Choice{{Value: "1", Label: "warehouse"}, {Value: "4", Label: "scratch"}}, db.Choices)

	ifExists := byName["if_exists"]
	require.Len(t, ifExists.Choices, 3)
	assert.Equal(t, "fail", ifExists.Choices[0].Value)

	assert.Equal(t, ".", byName["decimal"].Default)
	assert.Contains(t, byName["csv_file"].Description, "2 MB")
	assert.Contains(t, byName["nrows"].Description, "Minimum 1 and Maximum 1000")
	assert.Equal(t, KindInt, byName["nrows"].Kind)

	text, err := KindJSONList.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "json_list", string(text))
}

func TestTableNameDescriptionPerFormat(t *testing.T) {
	schemas := NewSchemas(testUploadConfig())

	want := map[domain.FileFormat]string{
		domain.FormatCSV:      "Name of table to be created from csv data. Must be alphanumeric and can contain only (_) in between",
		domain.FormatExcel:    "Name of table to be created from excel data.",
		domain.FormatColumnar: "Name of table to be created from columnar data.",
	}
	for format, description := range want {
		fields := schemas[format].Describe(nil)
		require.NotEmpty(t, fields)
		assert.Equal(t, "name", fields[0].Name, format)
		assert.Equal(t, description, fields[0].Description, format)
	}
}
