// Package querytext provides lexical rewriting of SQL query text and cache
// key construction.
//
// Rewriting is token-based rather than a plain string substitution so that
// keywords inside comments and string literals are never touched. It is not
// a SQL parser: the query is only scanned, never validated.
package querytext

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/mdecl/querycache/internal/param"
)

// Dialect selects how a first-row limit is expressed.
type Dialect string

const (
	// DialectTSQL injects TOP 1 after the first SELECT.
	DialectTSQL Dialect = "tsql"
	// DialectSQLite appends LIMIT 1.
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres appends LIMIT 1.
	DialectPostgres Dialect = "postgres"
)

// Key identifies one query execution for result caching. Equal query text
// with an equal serialized parameter set yields an equal key.
type Key struct {
	Query  string
	Params string
}

// NewKey builds the cache key for a query and its parameters.
func NewKey(query string, params ...param.Param) Key {
	return Key{Query: query, Params: param.Serialize(params...)}
}

// sqlLexer tokenizes query text far enough to tell keywords apart from
// comments and string literals.
var sqlLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		//nolint:govet // Participle DSL uses unkeyed fields
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`, Action: nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{Name: "Comment", Pattern: `--[^\n]*`, Action: nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{Name: "BlockComment", Pattern: `/\*[\s\S]*?\*/`, Action: nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{Name: "String", Pattern: `'[^']*'`, Action: nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{Name: "QuotedIdent", Pattern: `"[^"]*"|` + "`[^`]*`", Action: nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{Name: "Ident", Pattern: `[a-zA-Z_@][a-zA-Z0-9_@]*`, Action: nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{Name: "Number", Pattern: `[0-9]+(?:\.[0-9]+)?`, Action: nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{Name: "Symbol", Pattern: `[\(\)\[\]\{\},;:.?$]`, Action: nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{Name: "Operator", Pattern: `[\+\-\*/=<>!%]+`, Action: nil},
	},
})

// EnsureFirstRowLimit rewrites query so it returns at most one row, when it
// does not already. Single-row lookups run through it before execution; the
// result set is the same either way, fetching more rows is just wasted
// work. Queries without a SELECT, and queries the lexer cannot scan, pass
// through unchanged.
func EnsureFirstRowLimit(query string, dialect Dialect) string {
	toks, err := scan(query)
	if err != nil {
		return query
	}
	switch dialect {
	case DialectTSQL:
		return injectTop(query, toks)
	default:
		return appendLimit(query, toks)
	}
}

func scan(query string) ([]lexer.Token, error) {
	lx, err := sqlLexer.Lex("", strings.NewReader(query))
	if err != nil {
		return nil, err
	}
	var toks []lexer.Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF() {
			break
		}
		toks = append(toks, tok)
	}
	return toks, nil
}

var (
	symWhitespace   = sqlLexer.Symbols()["Whitespace"]
	symComment      = sqlLexer.Symbols()["Comment"]
	symBlockComment = sqlLexer.Symbols()["BlockComment"]
	symIdent        = sqlLexer.Symbols()["Ident"]
)

func isTrivia(tok lexer.Token) bool {
	return tok.Type == symWhitespace || tok.Type == symComment || tok.Type == symBlockComment
}

func isKeyword(tok lexer.Token, word string) bool {
	return tok.Type == symIdent && strings.EqualFold(tok.Value, word)
}

// injectTop inserts TOP 1 after the first SELECT, keeping an ALL or
// DISTINCT qualifier in front of it, unless a TOP clause already exists.
func injectTop(query string, toks []lexer.Token) string {
	selectAt := -1
	for i, tok := range toks {
		if isKeyword(tok, "SELECT") {
			selectAt = i
			break
		}
	}
	if selectAt == -1 {
		return query
	}

	// Insertion goes after SELECT and an optional ALL/DISTINCT.
	insertAfter := toks[selectAt]
	i := selectAt + 1
	for i < len(toks) && isTrivia(toks[i]) {
		i++
	}
	if i < len(toks) && (isKeyword(toks[i], "ALL") || isKeyword(toks[i], "DISTINCT")) {
		insertAfter = toks[i]
		i++
		for i < len(toks) && isTrivia(toks[i]) {
			i++
		}
	}
	if i < len(toks) && isKeyword(toks[i], "TOP") {
		return query
	}

	offset := insertAfter.Pos.Offset + len(insertAfter.Value)
	clause := " TOP 1"
	if offset < len(query) {
		rest := query[offset:]
		if !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") && !strings.HasPrefix(rest, "\n") {
			clause = " TOP 1 "
		}
	}
	return query[:offset] + clause + query[offset:]
}

// appendLimit adds LIMIT 1 at the end of the statement unless the query
// already carries a LIMIT clause.
func appendLimit(query string, toks []lexer.Token) string {
	hasSelect := false
	for _, tok := range toks {
		if isKeyword(tok, "SELECT") {
			hasSelect = true
		}
		if isKeyword(tok, "LIMIT") {
			return query
		}
	}
	if !hasSelect {
		return query
	}

	trimmed := strings.TrimRight(query, " \t\r\n")
	if strings.HasSuffix(trimmed, ";") {
		body := strings.TrimRight(trimmed[:len(trimmed)-1], " \t\r\n")
		return body + " LIMIT 1;"
	}
	return trimmed + " LIMIT 1"
}
