package repository

import (
	"context"
	"errors"
	"strings"

	"ReadTune/model"

	"gorm.io/gorm"
)

// ErrPostAlreadyExists 旅程已经分享过，journey_id 唯一约束触发
var ErrPostAlreadyExists = errors.New("journey already shared")

// PostRepository 信息流帖子数据访问接口
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByJourneyID(ctx context.Context, journeyID string) (*model.Post, error)
	List(ctx context.Context, limit int) ([]*model.PostWithJourney, error)
}

type gormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository 创建基于GORM的帖子仓库
func NewGormPostRepository(db *gorm.DB) PostRepository {
	return &gormPostRepository{db: db}
}

// Create 创建帖子，同一旅程重复分享返回 ErrPostAlreadyExists
func (r *gormPostRepository) Create(ctx context.Context, post *model.Post) error {
	err := r.db.WithContext(ctx).Create(post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "Duplicate entry") {
			return ErrPostAlreadyExists
		}
		return err
	}
	return nil
}

// GetByJourneyID 查询旅程对应的帖子，未找到返回 nil
func (r *gormPostRepository) GetByJourneyID(ctx context.Context, journeyID string) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).Where("journey_id = ?", journeyID).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// List 信息流列表，最新分享在前
func (r *gormPostRepository) List(ctx context.Context, limit int) ([]*model.PostWithJourney, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var posts []*model.Post
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	result := make([]*model.PostWithJourney, 0, len(posts))
	for _, p := range posts {
		var journey model.Journey
		if err := r.db.WithContext(ctx).Where("id = ?", p.JourneyID).First(&journey).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		result = append(result, &model.PostWithJourney{Post: *p, Journey: journey})
	}
	return result, nil
}
