// Package query builds read queries as an ordered list of stages over a base table.
//
// A Pipeline is plain data until Apply compiles it onto a *gorm.DB, so the shape of a
// query (which tables are joined, what is projected, how it is paged) can be asserted
// without a database.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/videohub/internal/util"
)

type StageKind string

const (
	StageMatch     StageKind = "match"
	StageJoinRef   StageKind = "join_ref"
	StageCountRef  StageKind = "count_ref"
	StageExistsRef StageKind = "exists_ref"
	StageProject   StageKind = "project"
	StageSort      StageKind = "sort"
	StagePaginate  StageKind = "paginate"
)

type Stage struct {
	Kind StageKind
	// SQL is the rendered fragment: a predicate, a JOIN clause, a select expression or an ORDER BY term.
	SQL  string
	Args []any
	// Fields are the select expressions a join or projection contributes.
	Fields []string
	Page   int
	Limit  int
	Offset int
}

// Ref describes a reference from the current row to rows of another table.
type Ref struct {
	Table string
	// As aliases Table; defaults to Table.
	As string
	// LocalKey is the qualified column holding the reference, e.g. "videos.owner_id".
	LocalKey string
	// ForeignKey is the referenced column on Table, e.g. "id".
	ForeignKey string
	// Fields are projected as "<As>.<field> AS <Prefix><field>".
	Fields []string
	Prefix string
	// Inner drops rows with no match instead of projecting NULLs.
	Inner bool
}

func (r Ref) alias() string {
	if r.As != "" {
		return r.As
	}
	return r.Table
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type Pipeline struct {
	base   string
	stages []Stage
	err    error
}

func From(table string) *Pipeline {
	p := &Pipeline{base: table}
	p.check(table)
	return p
}

func (p *Pipeline) Base() string { return p.base }

func (p *Pipeline) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

func (p *Pipeline) Err() error { return p.err }

func (p *Pipeline) check(idents ...string) {
	for _, id := range idents {
		if p.err == nil && !identRe.MatchString(id) {
			p.err = fmt.Errorf("query: invalid identifier %q", id)
		}
	}
}

func (p *Pipeline) qualify(field string) string {
	if strings.Contains(field, ".") {
		return field
	}
	return p.base + "." + field
}

func (p *Pipeline) Match(cond string, args ...any) *Pipeline {
	p.stages = append(p.stages, Stage{Kind: StageMatch, SQL: cond, Args: args})
	return p
}

func (p *Pipeline) JoinRef(r Ref) *Pipeline {
	as := r.alias()
	p.check(r.Table, as, r.LocalKey, r.ForeignKey)
	p.check(r.Fields...)

	kind := "LEFT JOIN"
	if r.Inner {
		kind = "INNER JOIN"
	}
	join := fmt.Sprintf("%s %s AS %s ON %s.%s = %s", kind, r.Table, as, as, r.ForeignKey, r.LocalKey)

	fields := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		fields = append(fields, fmt.Sprintf("%s.%s AS %s%s", as, f, r.Prefix, f))
	}
	p.stages = append(p.stages, Stage{Kind: StageJoinRef, SQL: join, Fields: fields})
	return p
}

// CountRef projects the number of rows in r.Table referencing the current row.
func (p *Pipeline) CountRef(r Ref, as string) *Pipeline {
	alias := r.alias()
	p.check(r.Table, alias, r.LocalKey, r.ForeignKey, as)

	expr := fmt.Sprintf("(SELECT COUNT(*) FROM %s AS %s WHERE %s.%s = %s) AS %s",
		r.Table, alias, alias, r.ForeignKey, p.qualify(r.LocalKey), as)
	p.stages = append(p.stages, Stage{Kind: StageCountRef, SQL: expr})
	return p
}

// ExistsRef projects whether any row in r.Table references the current row and also satisfies cond.
// cond should refer to the referenced table by r.As.
func (p *Pipeline) ExistsRef(r Ref, cond string, args []any, as string) *Pipeline {
	alias := r.alias()
	p.check(r.Table, alias, r.LocalKey, r.ForeignKey, as)

	where := fmt.Sprintf("%s.%s = %s", alias, r.ForeignKey, p.qualify(r.LocalKey))
	if cond != "" {
		where += " AND " + cond
	}
	expr := fmt.Sprintf("EXISTS (SELECT 1 FROM %s AS %s WHERE %s) AS %s", r.Table, alias, where, as)
	p.stages = append(p.stages, Stage{Kind: StageExistsRef, SQL: expr, Args: args})
	return p
}

// Project selects base-table columns; unqualified names are qualified with the base table.
func (p *Pipeline) Project(fields ...string) *Pipeline {
	p.check(fields...)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		name := f
		if i := strings.LastIndex(f, "."); i >= 0 {
			name = f[i+1:]
		}
		out = append(out, fmt.Sprintf("%s AS %s", p.qualify(f), name))
	}
	p.stages = append(p.stages, Stage{Kind: StageProject, Fields: out})
	return p
}

// ProjectAs selects a single column under a different name.
func (p *Pipeline) ProjectAs(field, alias string) *Pipeline {
	p.check(field, alias)
	p.stages = append(p.stages, Stage{Kind: StageProject, Fields: []string{fmt.Sprintf("%s AS %s", p.qualify(field), alias)}})
	return p
}

func (p *Pipeline) Sort(field string, desc bool) *Pipeline {
	p.check(field)
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	p.stages = append(p.stages, Stage{Kind: StageSort, SQL: p.qualify(field) + " " + dir})
	return p
}

func (p *Pipeline) Paginate(page, limit int) *Pipeline {
	page, limit = util.Normalize(page, limit)
	offset, _ := util.Calculate(page, limit)
	p.stages = append(p.stages, Stage{Kind: StagePaginate, Page: page, Limit: limit, Offset: offset})
	return p
}

// Page reports the normalized page and limit of the paginate stage, or zeros when there is none.
func (p *Pipeline) Page() (page, limit int) {
	for _, st := range p.stages {
		if st.Kind == StagePaginate {
			return st.Page, st.Limit
		}
	}
	return 0, 0
}

// Apply compiles the pipeline onto db. The result is ready for Scan.
func (p *Pipeline) Apply(db *gorm.DB) *gorm.DB {
	tx := db.Table(p.base)
	if p.err != nil {
		_ = tx.AddError(p.err)
		return tx
	}

	var (
		selects []string
		selArgs []any
	)
	for _, st := range p.stages {
		switch st.Kind {
		case StageMatch:
			tx = tx.Where(st.SQL, st.Args...)
		case StageJoinRef:
			tx = tx.Joins(st.SQL)
			selects = append(selects, st.Fields...)
		case StageCountRef, StageExistsRef:
			selects = append(selects, st.SQL)
			selArgs = append(selArgs, st.Args...)
		case StageProject:
			selects = append(selects, st.Fields...)
		case StageSort:
			tx = tx.Order(st.SQL)
		case StagePaginate:
			tx = tx.Offset(st.Offset).Limit(st.Limit)
		}
	}

	if len(selects) > 0 {
		tx = tx.Clauses(clause.Select{Expression: clause.Expr{SQL: strings.Join(selects, ", "), Vars: selArgs}})
	}
	return tx
}

// Count returns the number of rows the pipeline matches, ignoring projection, sort and pagination.
func (p *Pipeline) Count(db *gorm.DB) (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	tx := db.Table(p.base)
	for _, st := range p.stages {
		switch st.Kind {
		case StageMatch:
			tx = tx.Where(st.SQL, st.Args...)
		case StageJoinRef:
			tx = tx.Joins(st.SQL)
		}
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
