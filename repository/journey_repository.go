package repository

import (
	"context"
	"errors"
	"time"

	"ReadTune/model"

	"gorm.io/gorm"
)

// ErrJourneyAlreadyCompleted 旅程已完读，不能重复完读
var ErrJourneyAlreadyCompleted = errors.New("journey already completed")

// JourneyRepository 旅程数据访问接口
type JourneyRepository interface {
	Create(ctx context.Context, journey *model.Journey) error
	GetByID(ctx context.Context, id string) (*model.Journey, error)
	GetByUserID(ctx context.Context, userID int64) ([]*model.Journey, error)
	Complete(ctx context.Context, id string, completedAt time.Time) error
}

type gormJourneyRepository struct {
	db *gorm.DB
}

// NewGormJourneyRepository 创建基于GORM的旅程仓库
func NewGormJourneyRepository(db *gorm.DB) JourneyRepository {
	return &gormJourneyRepository{db: db}
}

// Create 创建旅程
func (r *gormJourneyRepository) Create(ctx context.Context, journey *model.Journey) error {
	return r.db.WithContext(ctx).Create(journey).Error
}

// GetByID 根据ID获取旅程，未找到返回 nil
func (r *gormJourneyRepository) GetByID(ctx context.Context, id string) (*model.Journey, error) {
	var journey model.Journey
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&journey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &journey, nil
}

// GetByUserID 获取用户的全部旅程，最近开始的在前
func (r *gormJourneyRepository) GetByUserID(ctx context.Context, userID int64) ([]*model.Journey, error) {
	var journeys []*model.Journey
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&journeys).Error
	if err != nil {
		return nil, err
	}
	return journeys, nil
}

// Complete 将旅程置为完读状态
// 条件更新保证只有 reading 状态能转入 completed
func (r *gormJourneyRepository) Complete(ctx context.Context, id string, completedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Journey{}).
		Where("id = ? AND status = ?", id, model.JourneyStatusReading).
		Updates(map[string]interface{}{
			"status":       model.JourneyStatusCompleted,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrJourneyAlreadyCompleted
	}
	return nil
}
