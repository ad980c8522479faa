package query

import "gorm.io/gorm"

// cond is one SQL fragment with its bind arguments.
type cond struct {
	Expr string
	Args []any
}

// Plan is the rewritten shape of one user search: the index join plus the
// conditions replacing the platform's per-user attribute scan. A pass-through
// plan means the caller's original query runs unmodified.
type Plan struct {
	PassThrough bool

	// Join is the index join clause, empty when the caller's query already
	// joins the index or when the plan needs no join.
	Join string

	// Conds are ANDed WHERE fragments.
	Conds []cond

	// GroupBy collapses the join fan-out to one row per user.
	GroupBy string

	// Having carries the distinct-role count check for multi-role
	// conjunction searches.
	Having cond
}

// where appends one WHERE fragment.
func (p *Plan) where(expr string, args ...any) {
	p.Conds = append(p.Conds, cond{Expr: expr, Args: args})
}

// Apply attaches the plan's fragments to a query over the platform's user
// table. A pass-through plan returns the query unchanged.
func (p *Plan) Apply(db *gorm.DB) *gorm.DB {
	if p.PassThrough {
		return db
	}

	if p.Join != "" {
		db = db.Joins(p.Join)
	}
	for _, c := range p.Conds {
		db = db.Where(c.Expr, c.Args...)
	}
	if p.GroupBy != "" {
		db = db.Group(p.GroupBy)
	}
	if p.Having.Expr != "" {
		db = db.Having(p.Having.Expr, p.Having.Args...)
	}

	return db
}
