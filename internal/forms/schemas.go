package forms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Annany2002/nebula-uploads/config"
	"github.com/Annany2002/nebula-uploads/internal/core"
	"github.com/Annany2002/nebula-uploads/internal/domain"
)

// WhitespaceDelimiter is the delimiter value meaning "any run of whitespace".
const WhitespaceDelimiter = `\s+`

const bytesPerMB = 1048576

var (
	csvOnly      = []domain.FileFormat{domain.FormatCSV}
	excelOnly    = []domain.FileFormat{domain.FormatExcel}
	columnarOnly = []domain.FileFormat{domain.FormatColumnar}
	tabular      = []domain.FileFormat{domain.FormatCSV, domain.FormatExcel}
	allFormats   = []domain.FileFormat{domain.FormatCSV, domain.FormatExcel, domain.FormatColumnar}
)

// fieldRow places a field in the forms of the listed formats.
type fieldRow struct {
	formats []domain.FileFormat
	field   Field
}

// NewSchemas builds the CSV, Excel and columnar form schemas from one field table.
// Field order in the table is the order fields are rendered and validated.
func NewSchemas(cfg config.UploadConfig) map[domain.FileFormat]*Schema {
	schemas := map[domain.FileFormat]*Schema{}
	for _, format := range allFormats {
		schemas[format] = &Schema{Format: format}
	}

	for _, row := range fieldTable(cfg) {
		for _, format := range row.formats {
			schemas[format].Fields = append(schemas[format].Fields, row.field)
		}
	}
	return schemas
}

func fieldTable(cfg config.UploadConfig) []fieldRow {
	csvExts := core.IntersectExtensions(cfg.AllowedExtensions, cfg.CSVExtensions)
	excelExts := core.IntersectExtensions(cfg.AllowedExtensions, cfg.ExcelExtensions)
	columnarExts := core.IntersectExtensions(cfg.AllowedExtensions, cfg.ColumnarExtensions)
	maxMB := formatMB(cfg.CSVMaxSizeBytes)

	return []fieldRow{
		{csvOnly, Field{
			Name:        "name",
			Label:       "Table Name",
			Description: "Name of table to be created from csv data. Must be alphanumeric and can contain only (_) in between",
			Kind:        KindString,
			Required:    true,
			Rules: []Rule{{
				Tag:     "csv_table_name",
				Message: "Table name cannot contain a schema. Must be alphanumeric, should start with a letter, must be in lower case and can contain (_) in between",
			}},
			Bind: func(r *domain.UploadRequest, v any) { r.TableName = v.(string) },
		}},
		{excelOnly, unqualifiedTableName("Name of table to be created from excel data.")},
		{columnarOnly, unqualifiedTableName("Name of table to be created from columnar data.")},
		{csvOnly, Field{
			Name:  "csv_file",
			Label: "CSV File",
			Description: fmt.Sprintf("Select a CSV file to be uploaded to a database. Max Size of the file should be %s MB and the accepted extensions are: %s",
				maxMB, strings.Join(csvExts, ", ")),
			Kind:     KindFile,
			Required: true,
			Rules: []Rule{
				maxSizeRule(cfg.CSVMaxSizeBytes, maxMB),
				extensionRule(csvExts),
			},
			Bind: bindFiles,
		}},
		{excelOnly, Field{
			Name:        "excel_file",
			Label:       "Excel File",
			Description: "Select a Excel file to be uploaded to a database.",
			Kind:        KindFile,
			Required:    true,
			Rules:       []Rule{extensionRule(excelExts)},
			Bind:        bindFiles,
		}},
		{columnarOnly, Field{
			Name:        "columnar_file",
			Label:       "Columnar File",
			Description: "Select a Columnar file to be uploaded to a database.",
			Kind:        KindFiles,
			Required:    true,
			Rules:       []Rule{extensionRule(columnarExts)},
			Bind:        bindFiles,
		}},
		{excelOnly, Field{
			Name:        "sheet_name",
			Label:       "Sheet Name",
			Description: "Strings used for sheet names (default is the first sheet).",
			Kind:        KindString,
			Bind:        func(r *domain.UploadRequest, v any) { r.SheetName = v.(string) },
		}},
		{allFormats, Field{
			Name:     "database",
			Label:    "Database",
			Kind:     KindDatabase,
			Required: true,
			Bind: func(r *domain.UploadRequest, v any) {
				db := v.(domain.DatabaseTarget)
				r.DatabaseID = db.ID
				r.DatabaseName = db.Name
			},
		}},
		{allFormats, Field{
			Name:        "schema",
			Label:       "Schema",
			Description: "Specify a schema (if database flavor supports this).",
			Kind:        KindString,
			Bind:        func(r *domain.UploadRequest, v any) { r.Schema = strings.TrimSpace(v.(string)) },
		}},
		{csvOnly, Field{
			Name:        "delimiter",
			Label:       "Delimiter",
			Description: `Delimiter used by CSV file (for whitespace use \s+).`,
			Kind:        KindString,
			Required:    true,
			Bind: func(r *domain.UploadRequest, v any) {
				r.Delimiter = v.(string)
				r.DelimWhitespace = r.Delimiter == WhitespaceDelimiter
			},
		}},
		{allFormats, Field{
			Name:  "if_exists",
			Label: "Table Exists",
			Description: "If table exists do one of the following: " +
				"Fail (do nothing), Replace (drop and recreate table) or Append (insert data).",
			Kind:     KindChoice,
			Required: true,
			Choices: []Choice{
				{Value: string(domain.ConflictFail), Label: "Fail"},
				{Value: string(domain.ConflictReplace), Label: "Replace"},
				{Value: string(domain.ConflictAppend), Label: "Append"},
			},
			Bind: func(r *domain.UploadRequest, v any) { r.IfExists = domain.ConflictPolicy(v.(string)) },
		}},
		{tabular, nonNegativeInt("header", "Header Row",
			"Row containing the headers to use as column names (0 is first line of data). Leave empty if there is no header row.",
			func(r *domain.UploadRequest, n *int) { r.Header = n })},
		{tabular, nonNegativeInt("index_col", "Index Column",
			"Column to use as the row labels of the dataframe. Leave empty if no index column.",
			func(r *domain.UploadRequest, n *int) { r.IndexCol = n })},
		{tabular, Field{
			Name:        "mangle_dupe_cols",
			Label:       "Mangle Duplicate Columns",
			Description: `Specify duplicate columns as "X.0, X.1".`,
			Kind:        KindBool,
			Bind:        func(r *domain.UploadRequest, v any) { r.MangleDupeCols = v.(bool) },
		}},
		{allFormats, Field{
			Name:  "use_cols",
			Label: "Use Columns",
			Description: "Json list of the column names that should be read. " +
				"If not None, only these columns will be read from the file.",
			Kind: KindJSONList,
			Bind: func(r *domain.UploadRequest, v any) { r.UseCols = v.([]string) },
		}},
		{csvOnly, Field{
			Name:        "skip_initial_space",
			Label:       "Skip Initial Space",
			Description: "Skip spaces after delimiter.",
			Kind:        KindBool,
			Bind:        func(r *domain.UploadRequest, v any) { r.SkipInitialSpace = v.(bool) },
		}},
		{tabular, nonNegativeInt("skip_rows", "Skip Rows",
			"Number of rows to skip at start of file.",
			func(r *domain.UploadRequest, n *int) { r.SkipRows = n })},
		{csvOnly, Field{
			Name:  "nrows",
			Label: "Rows to Read",
			Description: fmt.Sprintf("Number of rows of file to read. Minimum %d and Maximum %d rows are allowed",
				cfg.CSVMinRows, cfg.CSVMaxRows),
			Kind:     KindInt,
			Required: true,
			Rules: []Rule{
				{Tag: "min=" + strconv.Itoa(cfg.CSVMinRows), Message: fmt.Sprintf("Number must be at least %d.", cfg.CSVMinRows)},
				{Tag: "max=" + strconv.Itoa(cfg.CSVMaxRows), Message: fmt.Sprintf("Number must be at most %d.", cfg.CSVMaxRows)},
			},
			Bind: bindInt(func(r *domain.UploadRequest, n *int) { r.NRows = n }),
		}},
		{excelOnly, nonNegativeInt("nrows", "Rows to Read",
			"Number of rows of file to read.",
			func(r *domain.UploadRequest, n *int) { r.NRows = n })},
		{csvOnly, Field{
			Name:        "skip_blank_lines",
			Label:       "Skip Blank Lines",
			Description: "Skip blank lines rather than interpreting them as NaN values.",
			Kind:        KindBool,
			Bind:        func(r *domain.UploadRequest, v any) { r.SkipBlankLines = v.(bool) },
		}},
		{tabular, Field{
			Name:        "parse_dates",
			Label:       "Parse Dates",
			Description: "A comma separated list of columns that should be parsed as dates.",
			Kind:        KindCommaList,
			Bind:        func(r *domain.UploadRequest, v any) { r.ParseDates = v.([]string) },
		}},
		{csvOnly, Field{
			Name:        "infer_datetime_format",
			Label:       "Infer Datetime Format",
			Description: "Use Pandas to interpret the datetime format automatically.",
			Kind:        KindBool,
			Bind:        func(r *domain.UploadRequest, v any) { r.InferDatetimeFormat = v.(bool) },
		}},
		{tabular, Field{
			Name:        "decimal",
			Label:       "Decimal Character",
			Description: "Character to interpret as decimal point.",
			Kind:        KindString,
			Default:     ".",
			Rules:       []Rule{{Tag: "len=1", Message: "Field must be exactly 1 character long."}},
			Bind:        func(r *domain.UploadRequest, v any) { r.Decimal = v.(string) },
		}},
		{allFormats, Field{
			Name:        "index",
			Label:       "Dataframe Index",
			Description: "Write dataframe index as a column.",
			Kind:        KindBool,
			Bind:        func(r *domain.UploadRequest, v any) { r.Index = v.(bool) },
		}},
		{allFormats, Field{
			Name:  "index_label",
			Label: "Column Label(s)",
			Description: "Column label for index column(s). If None is given " +
				"and Dataframe Index is True, Index Names are used.",
			Kind: KindString,
			Bind: func(r *domain.UploadRequest, v any) { r.IndexLabel = v.(string) },
		}},
		{tabular, Field{
			Name:  "null_values",
			Label: "Null values",
			Description: "Json list of the values that should be treated as null. " +
				`Examples: [""], ["None", "N/A"], ["nan", "null"]. ` +
				"Warning: Hive database supports only single value. " +
				`Use [""] for empty string.`,
			Kind:    KindJSONList,
			Default: append([]string(nil), cfg.CSVDefaultNANames...),
			Bind:    func(r *domain.UploadRequest, v any) { r.NullValues = v.([]string) },
		}},
	}
}

func unqualifiedTableName(description string) Field {
	return Field{
		Name:        "name",
		Label:       "Table Name",
		Description: description,
		Kind:        KindString,
		Required:    true,
		Rules:       []Rule{{Tag: "no_schema", Message: "Table name cannot contain a schema"}},
		Bind:        func(r *domain.UploadRequest, v any) { r.TableName = v.(string) },
	}
}

func nonNegativeInt(name, label, description string, set func(*domain.UploadRequest, *int)) Field {
	return Field{
		Name:        name,
		Label:       label,
		Description: description,
		Kind:        KindInt,
		Rules:       []Rule{{Tag: "min=0", Message: "Number must be at least 0."}},
		Bind:        bindInt(set),
	}
}

func bindInt(set func(*domain.UploadRequest, *int)) func(*domain.UploadRequest, any) {
	return func(r *domain.UploadRequest, v any) {
		n := v.(int)
		set(r, &n)
	}
}

func bindFiles(r *domain.UploadRequest, v any) {
	for _, f := range v.([]File) {
		r.Files = append(r.Files, domain.UploadedFile{Name: f.Name, Size: f.Size})
	}
}

func extensionRule(allowed []string) Rule {
	set := make(map[string]bool, len(allowed))
	for _, ext := range allowed {
		set[ext] = true
	}
	return Rule{
		Check: func(v any) bool {
			f, ok := v.(File)
			return ok && set[core.FileExtension(f.Name)]
		},
		Message: "Only the following file extensions are allowed: " + strings.Join(allowed, ", "),
	}
}

func maxSizeRule(maxBytes int64, maxMB string) Rule {
	return Rule{
		Check: func(v any) bool {
			f, ok := v.(File)
			return ok && f.Size <= maxBytes
		},
		Message: "File size must not exceed the limit: " + maxMB + "MB",
	}
}

func formatMB(bytes int64) string {
	return strconv.FormatFloat(float64(bytes)/bytesPerMB, 'f', -1, 64)
}
