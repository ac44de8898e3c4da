package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage"
	"github.com/magabrotheeeer/storyflow/internal/storage/query"
)

const articleSelect = `SELECT id, title, description, publisher, tags, image, author_email,
	author_name, author_photo, posted_date, updated_at, status, declined_reason, is_premium, views
	FROM articles`

// InsertArticle сохраняет статью как есть; статус и дату выставляет сервис.
func (s *Storage) InsertArticle(ctx context.Context, a models.Article) (storage.InsertResult, error) {
	const op = "storage.postgres.InsertArticle"
	if err := checkCtx(ctx, op); err != nil {
		return storage.InsertResult{}, err
	}

	id := uuid.NewString()
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO articles (id, title, description, publisher, tags, image, author_email,
			author_name, author_photo, posted_date, status, declined_reason, is_premium, views)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		id, a.Title, a.Description, a.Publisher, tags, a.Image, a.AuthorEmail,
		a.AuthorName, a.AuthorPhoto, a.PostedDate, string(a.Status), nullString(a.DeclinedReason),
		a.IsPremium, a.Views)
	if err != nil {
		return storage.InsertResult{}, translateErr(op, err)
	}
	return storage.InsertResult{InsertedID: id}, nil
}

// FindArticleByID возвращает статью по идентификатору.
func (s *Storage) FindArticleByID(ctx context.Context, id string) (*models.Article, error) {
	const op = "storage.postgres.FindArticleByID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if err := parseID(op, id); err != nil {
		return nil, err
	}

	a, err := scanArticle(pgtype.NewMap(), s.DB.QueryRowContext(ctx, articleSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, translateErr(op, err)
	}
	return a, nil
}

// FindArticles возвращает статьи по фильтру.
func (s *Storage) FindArticles(ctx context.Context, q query.Query) ([]models.Article, error) {
	const op = "storage.postgres.FindArticles"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	sq, err := translate(articleColumns, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.DB.QueryContext(ctx, articleSelect+sq.where+sq.orderBy+sq.limit, sq.args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	m := pgtype.NewMap()
	articles := make([]models.Article, 0)
	for rows.Next() {
		a, err := scanArticle(m, rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		articles = append(articles, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return articles, nil
}

// CountArticles считает статьи по фильтру; сортировка и лимит игнорируются.
func (s *Storage) CountArticles(ctx context.Context, q query.Query) (int64, error) {
	const op = "storage.postgres.CountArticles"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	sq, err := translate(articleColumns, query.New(q.Predicates...))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	var n int64
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`+sq.where, sq.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// SetArticleStatus меняет статус. Причина сохраняется только для declined,
// при любом другом статусе она очищается.
func (s *Storage) SetArticleStatus(ctx context.Context, id string, status models.ArticleStatus, reason string) (storage.UpdateResult, error) {
	const op = "storage.postgres.SetArticleStatus"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}
	if err := parseID(op, id); err != nil {
		return storage.UpdateResult{}, err
	}
	if status != models.StatusDeclined {
		reason = ""
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE articles SET status = $2, declined_reason = $3 WHERE id = $1`,
		id, string(status), nullString(reason))
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(op, res)
}

// SetArticlePremium меняет признак премиум-статьи.
func (s *Storage) SetArticlePremium(ctx context.Context, id string, premium bool) (storage.UpdateResult, error) {
	const op = "storage.postgres.SetArticlePremium"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}
	if err := parseID(op, id); err != nil {
		return storage.UpdateResult{}, err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE articles SET is_premium = $2 WHERE id = $1`, id, premium)
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(op, res)
}

// IncrementArticleViews атомарно увеличивает счётчик просмотров на 1.
func (s *Storage) IncrementArticleViews(ctx context.Context, id string) (storage.UpdateResult, error) {
	const op = "storage.postgres.IncrementArticleViews"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}
	if err := parseID(op, id); err != nil {
		return storage.UpdateResult{}, err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE articles SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(op, res)
}

// ReplaceArticle заменяет редактируемые поля целиком и проставляет updated_at.
func (s *Storage) ReplaceArticle(ctx context.Context, id string, edit models.ArticleEdit, updatedAt time.Time) (storage.UpdateResult, error) {
	const op = "storage.postgres.ReplaceArticle"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}
	if err := parseID(op, id); err != nil {
		return storage.UpdateResult{}, err
	}

	tags := edit.Tags
	if tags == nil {
		tags = []string{}
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE articles
		 SET title = $2, description = $3, publisher = $4, tags = $5, image = $6, updated_at = $7
		 WHERE id = $1`,
		id, edit.Title, edit.Description, edit.Publisher, tags, edit.Image, updatedAt)
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(op, res)
}

// DeleteArticle удаляет статью.
func (s *Storage) DeleteArticle(ctx context.Context, id string) (storage.DeleteResult, error) {
	const op = "storage.postgres.DeleteArticle"
	if err := checkCtx(ctx, op); err != nil {
		return storage.DeleteResult{}, err
	}
	if err := parseID(op, id); err != nil {
		return storage.DeleteResult{}, err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return storage.DeleteResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return deleteResult(op, res)
}

func scanArticle(m *pgtype.Map, row rowScanner) (*models.Article, error) {
	var (
		a         models.Article
		status    string
		updatedAt sql.NullTime
		reason    sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Publisher, m.SQLScanner(&a.Tags), &a.Image,
		&a.AuthorEmail, &a.AuthorName, &a.AuthorPhoto, &a.PostedDate, &updatedAt, &status, &reason,
		&a.IsPremium, &a.Views); err != nil {
		return nil, err
	}
	a.Status = models.ArticleStatus(status)
	if updatedAt.Valid {
		t := updatedAt.Time
		a.UpdatedAt = &t
	}
	if reason.Valid {
		a.DeclinedReason = reason.String
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
