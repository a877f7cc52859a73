// internal/core/engines.go
package core

import (
	"strings"

	"github.com/Annany2002/nebula-uploads/internal/domain"
)

// engineSpecs is the capability table for the engines the registry knows about.
// gsheets and clickhousedb used to accept uploads; connections created before that
// changed may still carry allow_file_upload.
var engineSpecs = map[string]domain.EngineSpec{
	"sqlite":       {Name: "sqlite", SupportsFileUpload: true, SupportsSchema: false},
	"duckdb":       {Name: "duckdb", SupportsFileUpload: true, SupportsSchema: true},
	"postgresql":   {Name: "postgresql", SupportsFileUpload: true, SupportsSchema: true},
	"mysql":        {Name: "mysql", SupportsFileUpload: true, SupportsSchema: true},
	"mssql":        {Name: "mssql", SupportsFileUpload: true, SupportsSchema: true},
	"hive":         {Name: "hive", SupportsFileUpload: true, SupportsSchema: true},
	"presto":       {Name: "presto", SupportsFileUpload: true, SupportsSchema: true},
	"trino":        {Name: "trino", SupportsFileUpload: true, SupportsSchema: true},
	"bigquery":     {Name: "bigquery", SupportsFileUpload: true, SupportsSchema: true},
	"snowflake":    {Name: "snowflake", SupportsFileUpload: true, SupportsSchema: true},
	"redshift":     {Name: "redshift", SupportsFileUpload: true, SupportsSchema: true},
	"gsheets":      {Name: "gsheets", SupportsFileUpload: false, SupportsSchema: false},
	"clickhousedb": {Name: "clickhousedb", SupportsFileUpload: false, SupportsSchema: true},
}

// LookupEngine returns the capability spec for an engine name.
// Unknown engines get a spec with every capability disabled.
func LookupEngine(name string) domain.EngineSpec {
	key := strings.ToLower(strings.TrimSpace(name))
	if spec, ok := engineSpecs[key]; ok {
		return spec
	}
	return domain.EngineSpec{Name: key}
}

// IsKnownEngine reports whether the engine name is in the capability table.
func IsKnownEngine(name string) bool {
	_, ok := engineSpecs[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
