package mongo

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage/query"
)

var userFields = map[query.Field]string{
	query.FieldID:           "_id",
	query.FieldEmail:        "email",
	query.FieldRole:         "role",
	query.FieldPremiumTaken: "premiumTaken",
}

var articleFields = map[query.Field]string{
	query.FieldID:          "_id",
	query.FieldTitle:       "title",
	query.FieldPublisher:   "publisher",
	query.FieldTags:        "tags",
	query.FieldAuthorEmail: "authorEmail",
	query.FieldStatus:      "status",
	query.FieldIsPremium:   "isPremium",
	query.FieldViews:       "views",
	query.FieldPostedDate:  "postedDate",
}

// filter переводит предикаты в фильтр BSON. Несколько условий объединяются через $and.
func filter(fields map[query.Field]string, q query.Query) (bson.D, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	conds := make(bson.A, 0, len(q.Predicates))
	for _, p := range q.Predicates {
		key, ok := fields[p.Field]
		if !ok {
			return nil, fmt.Errorf("query: unsupported field %q", p.Field)
		}
		switch p.Op {
		case query.OpEq:
			v, err := normalize(key, p.Value)
			if err != nil {
				return nil, err
			}
			conds = append(conds, bson.D{{Key: key, Value: v}})
		case query.OpContains:
			s, _ := p.Value.(string)
			conds = append(conds, bson.D{{Key: key, Value: primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}}})
		case query.OpIn:
			conds = append(conds, bson.D{{Key: key, Value: bson.D{{Key: "$in", Value: p.Values}}}})
		case query.OpRange:
			bounds := bson.D{}
			if p.From != nil {
				bounds = append(bounds, bson.E{Key: "$gte", Value: p.From})
			}
			if p.To != nil {
				bounds = append(bounds, bson.E{Key: "$lte", Value: p.To})
			}
			conds = append(conds, bson.D{{Key: key, Value: bounds}})
		}
	}

	switch len(conds) {
	case 0:
		return bson.D{}, nil
	case 1:
		return conds[0].(bson.D), nil
	default:
		return bson.D{{Key: "$and", Value: conds}}, nil
	}
}

func findOptions(fields map[query.Field]string, q query.Query) (*options.FindOptions, error) {
	opts := options.Find()
	if q.Sort != nil {
		key, ok := fields[q.Sort.Field]
		if !ok {
			return nil, fmt.Errorf("query: unsupported sort field %q", q.Sort.Field)
		}
		dir := 1
		if q.Sort.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: key, Value: dir}, {Key: "_id", Value: 1}})
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return opts, nil
}

func normalize(key string, v any) (any, error) {
	switch t := v.(type) {
	case models.ArticleStatus:
		return string(t), nil
	case models.Role:
		return string(t), nil
	case string:
		if key == "_id" {
			oid, err := primitive.ObjectIDFromHex(t)
			if err != nil {
				return nil, models.ErrInvalidID
			}
			return oid, nil
		}
		return t, nil
	default:
		return v, nil
	}
}
