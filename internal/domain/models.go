// internal/domain/models.go
package domain

import "time"

// User is the principal requesting an upload.
type User struct {
	ID                  int64     `json:"id"`
	Email               string    `json:"email"`
	IsAdmin             bool      `json:"is_admin"`
	AllDatasourceAccess bool      `json:"all_datasource_access"`
	CreatedAt           time.Time `json:"created_at"`
}

// EngineSpec describes what a database engine can do with uploaded files.
type EngineSpec struct {
	Name               string `json:"name"`
	SupportsFileUpload bool   `json:"supports_file_upload"`
	SupportsSchema     bool   `json:"supports_schema"`
}

// DatabaseTarget is a configured database connection that may receive uploads.
type DatabaseTarget struct {
	ID                          int64      `json:"id"`
	Name                        string     `json:"database_name"`
	Engine                      EngineSpec `json:"engine"`
	AllowFileUpload             bool       `json:"allow_file_upload"`
	SchemasAllowedForFileUpload []string   `json:"schemas_allowed_for_file_upload"`
	CreatedAt                   time.Time  `json:"created_at"`
}

// ConflictPolicy decides what happens when the destination table already exists.
type ConflictPolicy string

const (
	ConflictFail    ConflictPolicy = "fail"
	ConflictReplace ConflictPolicy = "replace"
	ConflictAppend  ConflictPolicy = "append"
)

// ConflictPolicies lists the accepted policies in display order.
var ConflictPolicies = []ConflictPolicy{ConflictFail, ConflictReplace, ConflictAppend}

// FileFormat identifies an upload form variant.
type FileFormat string

const (
	FormatCSV      FileFormat = "csv"
	FormatExcel    FileFormat = "excel"
	FormatColumnar FileFormat = "columnar"
)

// UploadedFile is the metadata of one submitted file.
type UploadedFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// UploadRequest is the validated configuration handed to the ingestion pipeline.
// It is only built from a submission that passed every field rule.
// ID is always minted server side; CorrelationID carries the caller's X-Request-ID.
type UploadRequest struct {
	ID            string         `json:"id"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Format        FileFormat     `json:"format"`
	RequestedBy   int64          `json:"requested_by"`
	TableName     string         `json:"table_name"`
	DatabaseID    int64          `json:"database_id"`
	DatabaseName  string         `json:"database_name"`
	Schema        string         `json:"schema,omitempty"`
	IfExists      ConflictPolicy `json:"if_exists"`
	Files         []UploadedFile `json:"files"`

	// CSV only
	Delimiter           string `json:"delimiter,omitempty"`
	DelimWhitespace     bool   `json:"delim_whitespace,omitempty"`
	SkipInitialSpace    bool   `json:"skip_initial_space,omitempty"`
	SkipBlankLines      bool   `json:"skip_blank_lines,omitempty"`
	InferDatetimeFormat bool   `json:"infer_datetime_format,omitempty"`

	// Excel only
	SheetName string `json:"sheet_name,omitempty"`

	// CSV and Excel
	Header         *int     `json:"header,omitempty"`
	IndexCol       *int     `json:"index_col,omitempty"`
	SkipRows       *int     `json:"skip_rows,omitempty"`
	NRows          *int     `json:"nrows,omitempty"`
	MangleDupeCols bool     `json:"mangle_dupe_cols,omitempty"`
	ParseDates     []string `json:"parse_dates,omitempty"`
	Decimal        string   `json:"decimal,omitempty"`
	NullValues     []string `json:"null_values"`

	// Shared by every format
	UseCols    []string `json:"use_cols,omitempty"`
	Index      bool     `json:"index"`
	IndexLabel string   `json:"index_label,omitempty"`
}
