package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuilders(t *testing.T) {
	q := New(Eq(FieldStatus, "approved")).
		Where(In(FieldTags, "go", "db")).
		SortBy(FieldViews, true).
		WithLimit(6)

	require.Len(t, q.Predicates, 2)
	assert.Equal(t, OpEq, q.Predicates[0].Op)
	assert.Equal(t, OpIn, q.Predicates[1].Op)
	assert.Equal(t, []string{"go", "db"}, q.Predicates[1].Values)
	require.NotNil(t, q.Sort)
	assert.Equal(t, FieldViews, q.Sort.Field)
	assert.True(t, q.Sort.Desc)
	assert.EqualValues(t, 6, q.Limit)
	assert.NoError(t, q.Validate())
}

func TestWhereDoesNotAliasBase(t *testing.T) {
	base := New(Eq(FieldStatus, "approved"))
	base.Predicates = append(make([]Predicate, 0, 4), base.Predicates...)

	a := base.Where(Eq(FieldPublisher, "a"))
	b := base.Where(Eq(FieldPublisher, "b"))

	assert.Equal(t, "a", a.Predicates[1].Value)
	assert.Equal(t, "b", b.Predicates[1].Value)
	assert.Len(t, base.Predicates, 1)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Query
		wantErr bool
	}{
		{name: "empty query", q: New()},
		{name: "contains string", q: New(Contains(FieldTitle, "go"))},
		{name: "range one side", q: New(Range(FieldPostedDate, time.Now(), nil))},
		{name: "negative limit", q: New().WithLimit(-1), wantErr: true},
		{name: "contains non string", q: New(Predicate{Field: FieldTitle, Op: OpContains, Value: 1}), wantErr: true},
		{name: "empty in", q: New(In(FieldTags)), wantErr: true},
		{name: "range without bounds", q: New(Range(FieldViews, nil, nil)), wantErr: true},
		{name: "missing field", q: New(Eq("", 1)), wantErr: true},
		{name: "unknown op", q: New(Predicate{Field: FieldViews, Op: Op(42)}), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now`, EscapeLike("50% off_now"))
	assert.Equal(t, `a\\b`, EscapeLike(`a\b`))
	assert.Equal(t, "plain", EscapeLike("plain"))
}
