package introspect

import (
	"sort"
	"strings"
	"sync"
)

// Qualifier says which placeholder the qualifier of "a.b" fills.
type Qualifier int

const (
	// QualifierSchema routes the qualifier to {schema}.
	QualifierSchema Qualifier = iota
	// QualifierDatabase routes the qualifier to {database}.
	QualifierDatabase
)

// Catalog is a dialect's existence query. Template may reference
// {schema}, {name} and {database}; substituted values have single quotes
// doubled.
type Catalog struct {
	Template  string
	Qualifier Qualifier
}

var (
	catalogMu sync.RWMutex
	catalogs  = map[string]Catalog{
		"postgres": {
			Template: `select table_name as name from information_schema.tables where table_schema = '{schema}' and table_name = '{name}'
union
select matviewname as name from pg_matviews where schemaname = '{schema}' and matviewname = '{name}'
union
select table_name as name from information_schema.views where table_schema = '{schema}' and table_name = '{name}'`,
			Qualifier: QualifierSchema,
		},
		"teradata": {
			Template:  `select tablename as name from dbc.tables where databasename = '{database}' and tablename = '{name}'`,
			Qualifier: QualifierDatabase,
		},
		"mssql": {
			Template: `select table_name as name from information_schema.tables where table_schema = '{schema}' and table_name = '{name}'
union
select table_name as name from information_schema.views where table_schema = '{schema}' and table_name = '{name}'`,
			Qualifier: QualifierSchema,
		},
		"mysql": {
			Template: `select table_name as name from information_schema.tables where table_schema = '{schema}' and table_name = '{name}'
union
select table_name as name from information_schema.views where table_schema = '{schema}' and table_name = '{name}'`,
			Qualifier: QualifierSchema,
		},
		"oracle": {
			Template:  `select table_name as name from all_all_tables where owner = upper('{database}') and table_name = upper('{name}')`,
			Qualifier: QualifierDatabase,
		},
		"sqlite": {
			Template:  `select tbl_name as name from sqlite_schema where tbl_name = '{name}'`,
			Qualifier: QualifierDatabase,
		},
		"duckdb": {
			Template:  `select table_name as name from information_schema.tables where table_schema = '{schema}' and table_name = '{name}'`,
			Qualifier: QualifierSchema,
		},
	}
)

// RegisterCatalog adds or replaces the existence query for a dialect.
func RegisterCatalog(dialect string, c Catalog) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	catalogs[strings.ToLower(dialect)] = c
}

// LookupCatalog returns the existence query registered for dialect.
func LookupCatalog(dialect string) (Catalog, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	c, ok := catalogs[strings.ToLower(dialect)]
	return c, ok
}

// Dialects lists dialects with a registered catalog, sorted.
func Dialects() []string {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	names := make([]string, 0, len(catalogs))
	for name := range catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// render fills the template placeholders.
func (c Catalog) render(schema, name, database string) string {
	r := strings.NewReplacer(
		"{schema}", quoteLiteral(schema),
		"{name}", quoteLiteral(name),
		"{database}", quoteLiteral(database),
	)
	return r.Replace(c.Template)
}

func quoteLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
