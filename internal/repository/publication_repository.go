package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/maheshrc27/social-publisher/internal/models"
)

// ErrStatusConflict is returned by UpdateIfStatus when the stored status no
// longer matches the expected one.
var ErrStatusConflict = errors.New("publication status changed concurrently")

type PublicationRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Publication, error)
	GetByPostAndPlatform(ctx context.Context, postID int64, platform models.SocialPlatform) (*models.Publication, error)
	ListByPost(ctx context.Context, postID int64) ([]*models.Publication, error)
	ListByStatus(ctx context.Context, status models.PublicationStatus, limit int) ([]*models.Publication, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]*models.Publication, error)
	Create(ctx context.Context, pub *models.Publication) (int64, error)
	Update(ctx context.Context, pub *models.Publication) error
	UpdateIfStatus(ctx context.Context, pub *models.Publication, expected models.PublicationStatus) error
}

const publicationTable = "posts.post_publication"

var publicationColumns = []string{
	"post_publication_id",
	"post_id",
	"platform",
	"target_account",
	"caption_override",
	"status",
	"scheduled_time",
	"published_at",
	"platform_post_id",
	"error_message",
	"last_attempt_at",
	"attempt_count",
}

type publicationRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func NewPublicationRepository(db *sql.DB) PublicationRepository {
	return &publicationRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *publicationRepository) GetByID(ctx context.Context, id int64) (*models.Publication, error) {
	const op = "repository.publicationRepository.GetByID"

	query, args, err := r.sb.Select(publicationColumns...).
		From(publicationTable).
		Where(sq.Eq{"post_publication_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r.getOne(ctx, op, query, args)
}

func (r *publicationRepository) GetByPostAndPlatform(ctx context.Context, postID int64, platform models.SocialPlatform) (*models.Publication, error) {
	const op = "repository.publicationRepository.GetByPostAndPlatform"

	query, args, err := r.sb.Select(publicationColumns...).
		From(publicationTable).
		Where(sq.Eq{"post_id": postID, "platform": string(platform)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r.getOne(ctx, op, query, args)
}

func (r *publicationRepository) ListByPost(ctx context.Context, postID int64) ([]*models.Publication, error) {
	const op = "repository.publicationRepository.ListByPost"

	query, args, err := r.sb.Select(publicationColumns...).
		From(publicationTable).
		Where(sq.Eq{"post_id": postID}).
		OrderBy("post_publication_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r.list(ctx, op, query, args)
}

func (r *publicationRepository) ListByStatus(ctx context.Context, status models.PublicationStatus, limit int) ([]*models.Publication, error) {
	const op = "repository.publicationRepository.ListByStatus"

	query, args, err := r.sb.Select(publicationColumns...).
		From(publicationTable).
		Where(sq.Eq{"status": string(status)}).
		OrderBy("post_publication_id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r.list(ctx, op, query, args)
}

// FindDue returns pending-like rows whose schedule is unset or not after now,
// unscheduled rows first, then by schedule, then by id.
func (r *publicationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*models.Publication, error) {
	const op = "repository.publicationRepository.FindDue"

	query, args, err := r.sb.Select(publicationColumns...).
		From(publicationTable).
		Where(sq.Eq{"status": []string{string(models.StatusPending), string(models.StatusQueued)}}).
		Where(sq.Or{
			sq.Eq{"scheduled_time": nil},
			sq.LtOrEq{"scheduled_time": now},
		}).
		OrderBy("scheduled_time ASC NULLS FIRST", "post_publication_id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r.list(ctx, op, query, args)
}

func (r *publicationRepository) Create(ctx context.Context, pub *models.Publication) (int64, error) {
	const op = "repository.publicationRepository.Create"

	query, args, err := r.sb.Insert(publicationTable).
		Columns(publicationColumns[1:]...).
		Values(
			pub.PostID,
			string(pub.Platform),
			pub.TargetAccount,
			pub.CaptionOverride,
			string(pub.Status),
			pub.ScheduledTime,
			pub.PublishedAt,
			pub.PlatformPostID,
			pub.ErrorMessage,
			pub.LastAttemptAt,
			pub.AttemptCount,
		).
		Suffix("RETURNING post_publication_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&pub.ID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return pub.ID, nil
}

func (r *publicationRepository) Update(ctx context.Context, pub *models.Publication) error {
	const op = "repository.publicationRepository.Update"

	query, args, err := r.updateBuilder(pub).
		Where(sq.Eq{"post_publication_id": pub.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateIfStatus writes pub only while the stored status still equals
// expected, returning ErrStatusConflict otherwise.
func (r *publicationRepository) UpdateIfStatus(ctx context.Context, pub *models.Publication, expected models.PublicationStatus) error {
	const op = "repository.publicationRepository.UpdateIfStatus"

	query, args, err := r.updateBuilder(pub).
		Where(sq.Eq{"post_publication_id": pub.ID, "status": string(expected)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: id=%d expected=%s: %w", op, pub.ID, expected, ErrStatusConflict)
	}
	return nil
}

func (r *publicationRepository) updateBuilder(pub *models.Publication) sq.UpdateBuilder {
	return r.sb.Update(publicationTable).
		Set("target_account", pub.TargetAccount).
		Set("caption_override", pub.CaptionOverride).
		Set("status", string(pub.Status)).
		Set("scheduled_time", pub.ScheduledTime).
		Set("published_at", pub.PublishedAt).
		Set("platform_post_id", pub.PlatformPostID).
		Set("error_message", pub.ErrorMessage).
		Set("last_attempt_at", pub.LastAttemptAt).
		Set("attempt_count", pub.AttemptCount)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPublication(row rowScanner) (*models.Publication, error) {
	var (
		pub      models.Publication
		platform string
		status   string
	)
	err := row.Scan(
		&pub.ID,
		&pub.PostID,
		&platform,
		&pub.TargetAccount,
		&pub.CaptionOverride,
		&status,
		&pub.ScheduledTime,
		&pub.PublishedAt,
		&pub.PlatformPostID,
		&pub.ErrorMessage,
		&pub.LastAttemptAt,
		&pub.AttemptCount,
	)
	if err != nil {
		return nil, err
	}
	pub.Platform = models.SocialPlatform(platform)
	pub.Status = models.PublicationStatus(status)
	return &pub, nil
}

func (r *publicationRepository) getOne(ctx context.Context, op, query string, args []any) (*models.Publication, error) {
	pub, err := scanPublication(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pub, nil
}

func (r *publicationRepository) list(ctx context.Context, op, query string, args []any) ([]*models.Publication, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var pubs []*models.Publication
	for rows.Next() {
		pub, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		pubs = append(pubs, pub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pubs, nil
}
