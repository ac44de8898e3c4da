// Package query реализует типизированный построитель запросов, общий для всех
// обработчиков чтения. Бэкенды хранилища транслируют Query в свой диалект.
package query

import (
	"fmt"
	"strings"
)

// Field поле, по которому можно фильтровать или сортировать.
type Field string

const (
	FieldID           Field = "_id"
	FieldEmail        Field = "email"
	FieldRole         Field = "role"
	FieldPremiumTaken Field = "premiumTaken"
	FieldTitle        Field = "title"
	FieldPublisher    Field = "publisher"
	FieldTags         Field = "tags"
	FieldAuthorEmail  Field = "authorEmail"
	FieldStatus       Field = "status"
	FieldIsPremium    Field = "isPremium"
	FieldViews        Field = "views"
	FieldPostedDate   Field = "postedDate"
)

// Op вид предиката.
type Op int

const (
	OpEq Op = iota
	OpContains
	OpIn
	OpRange
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpContains:
		return "contains"
	case OpIn:
		return "in"
	case OpRange:
		return "range"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Predicate одно условие фильтра.
//
// Для OpEq используется Value, для OpContains строка в Value,
// для OpIn список Values, для OpRange границы From и To (nil означает
// отсутствие границы, обе границы включительные).
type Predicate struct {
	Field  Field
	Op     Op
	Value  any
	Values []string
	From   any
	To     any
}

// Eq поле равно значению.
func Eq(field Field, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

// Contains поле содержит подстроку без учёта регистра.
func Contains(field Field, substr string) Predicate {
	return Predicate{Field: field, Op: OpContains, Value: substr}
}

// In поле совпадает с любым из значений. Для массивов (tags)
// достаточно пересечения хотя бы по одному элементу.
func In(field Field, values ...string) Predicate {
	return Predicate{Field: field, Op: OpIn, Values: values}
}

// Range поле лежит в [from, to].
func Range(field Field, from, to any) Predicate {
	return Predicate{Field: field, Op: OpRange, From: from, To: to}
}

// Sort порядок выдачи.
type Sort struct {
	Field Field
	Desc  bool
}

// Query фильтр, сортировка и лимит.
type Query struct {
	Predicates []Predicate
	Sort       *Sort
	Limit      int64
}

// New собирает запрос из предикатов. Все предикаты объединяются через AND.
func New(preds ...Predicate) Query {
	return Query{Predicates: preds}
}

// Where добавляет предикаты.
func (q Query) Where(preds ...Predicate) Query {
	q.Predicates = append(append([]Predicate(nil), q.Predicates...), preds...)
	return q
}

// SortBy задаёт сортировку.
func (q Query) SortBy(field Field, desc bool) Query {
	q.Sort = &Sort{Field: field, Desc: desc}
	return q
}

// WithLimit ограничивает выдачу; 0 означает без ограничения.
func (q Query) WithLimit(n int64) Query {
	q.Limit = n
	return q
}

// Validate проверяет запрос на очевидные ошибки построения.
func (q Query) Validate() error {
	if q.Limit < 0 {
		return fmt.Errorf("query: negative limit %d", q.Limit)
	}
	for _, p := range q.Predicates {
		if p.Field == "" {
			return fmt.Errorf("query: predicate %s without field", p.Op)
		}
		switch p.Op {
		case OpEq:
		case OpContains:
			if _, ok := p.Value.(string); !ok {
				return fmt.Errorf("query: contains on %s needs a string", p.Field)
			}
		case OpIn:
			if len(p.Values) == 0 {
				return fmt.Errorf("query: empty set for %s", p.Field)
			}
		case OpRange:
			if p.From == nil && p.To == nil {
				return fmt.Errorf("query: range on %s without bounds", p.Field)
			}
		default:
			return fmt.Errorf("query: unknown op %s", p.Op)
		}
	}
	return nil
}

// EscapeLike экранирует метасимволы LIKE, чтобы подстрока искалась буквально.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
