package repository

import (
	"context"
	"errors"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/repository/model"
	"gorm.io/gorm"
)

type PostgresSessionLogRepository struct {
	db *gorm.DB
}

func NewPostgresSessionLogRepository(db *gorm.DB) *PostgresSessionLogRepository {
	return &PostgresSessionLogRepository{db: db}
}

func (r *PostgresSessionLogRepository) Record(ctx context.Context, s *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return errors.New("session is nil")
	}

	return r.db.WithContext(ctx).Create(toModelSession(s)).Error
}

func (r *PostgresSessionLogRepository) Finish(ctx context.Context, s *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return errors.New("session is nil")
	}

	rec := toModelSession(s)
	res := r.db.WithContext(ctx).
		Model(&model.SessionRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{
			"connected": rec.Connected,
			"reason":    rec.Reason,
			"ended_at":  rec.EndedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordMissing
	}
	return nil
}

func (r *PostgresSessionLogRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec model.SessionRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordMissing
		}
		return nil, err
	}

	return toDomainSession(&rec), nil
}

func (r *PostgresSessionLogRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int64
	if err := r.db.WithContext(ctx).Model(&model.SessionRecord{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func toModelSession(s *domain.Session) *model.SessionRecord {
	rec := &model.SessionRecord{
		ID:           s.ID,
		ParticipantA: s.ParticipantA,
		ParticipantB: s.ParticipantB,
		Initiator:    s.Initiator,
		Mode:         string(s.Mode),
		Connected:    s.Connected,
		Reason:       string(s.Reason),
		CreatedAt:    s.CreatedAt.UTC(),
	}
	if !s.EndedAt.IsZero() {
		t := s.EndedAt.UTC()
		rec.EndedAt = &t
	}
	return rec
}

func toDomainSession(rec *model.SessionRecord) *domain.Session {
	s := &domain.Session{
		ID:           rec.ID,
		ParticipantA: rec.ParticipantA,
		ParticipantB: rec.ParticipantB,
		Initiator:    rec.Initiator,
		Mode:         domain.Mode(rec.Mode),
		Connected:    rec.Connected,
		Reason:       domain.EndReason(rec.Reason),
		CreatedAt:    rec.CreatedAt.UTC(),
	}
	if rec.EndedAt != nil {
		s.EndedAt = rec.EndedAt.UTC()
	}
	return s
}
