package postgres

import (
	"fmt"
	"strings"

	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage/query"
)

var userColumns = map[query.Field]string{
	query.FieldID:           "id",
	query.FieldEmail:        "email",
	query.FieldRole:         "role",
	query.FieldPremiumTaken: "premium_taken",
}

var articleColumns = map[query.Field]string{
	query.FieldID:          "id",
	query.FieldTitle:       "title",
	query.FieldPublisher:   "publisher",
	query.FieldTags:        "tags",
	query.FieldAuthorEmail: "author_email",
	query.FieldStatus:      "status",
	query.FieldIsPremium:   "is_premium",
	query.FieldViews:       "views",
	query.FieldPostedDate:  "posted_date",
}

// arrayColumns колонки типа text[]; для них In означает пересечение.
var arrayColumns = map[string]bool{"tags": true}

// sqlQuery результат трансляции query.Query.
type sqlQuery struct {
	where   string
	orderBy string
	limit   string
	args    []any
}

// translate переводит запрос в фрагменты SQL с позиционными параметрами.
func translate(columns map[query.Field]string, q query.Query) (sqlQuery, error) {
	if err := q.Validate(); err != nil {
		return sqlQuery{}, err
	}

	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, p := range q.Predicates {
		col, ok := columns[p.Field]
		if !ok {
			return sqlQuery{}, fmt.Errorf("query: unsupported field %q", p.Field)
		}
		switch p.Op {
		case query.OpEq:
			conds = append(conds, fmt.Sprintf("%s = %s", col, next(normalize(p.Value))))
		case query.OpContains:
			s, _ := p.Value.(string)
			conds = append(conds, fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", col, next(query.EscapeLike(s))))
		case query.OpIn:
			if arrayColumns[col] {
				conds = append(conds, fmt.Sprintf("%s && %s::text[]", col, next(p.Values)))
			} else {
				conds = append(conds, fmt.Sprintf("%s = ANY(%s::text[])", col, next(p.Values)))
			}
		case query.OpRange:
			if p.From != nil {
				conds = append(conds, fmt.Sprintf("%s >= %s", col, next(normalize(p.From))))
			}
			if p.To != nil {
				conds = append(conds, fmt.Sprintf("%s <= %s", col, next(normalize(p.To))))
			}
		}
	}

	var out sqlQuery
	out.args = args
	if len(conds) > 0 {
		out.where = " WHERE " + strings.Join(conds, " AND ")
	}
	if q.Sort != nil {
		col, ok := columns[q.Sort.Field]
		if !ok {
			return sqlQuery{}, fmt.Errorf("query: unsupported sort field %q", q.Sort.Field)
		}
		dir := "ASC"
		if q.Sort.Desc {
			dir = "DESC"
		}
		out.orderBy = fmt.Sprintf(" ORDER BY %s %s, id", col, dir)
	}
	if q.Limit > 0 {
		out.limit = fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	return out, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case models.ArticleStatus:
		return string(t)
	case models.Role:
		return string(t)
	default:
		return v
	}
}
