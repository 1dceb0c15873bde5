package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Enzooo97/ai-trading-bot/internal/model"
)

type BacktestRunRepository interface {
	Create(ctx context.Context, run *model.BacktestRun) error
	GetByID(ctx context.Context, id uint) (*model.BacktestRun, error)
	GetLatest(ctx context.Context, param model.GetBacktestRunParam) ([]model.BacktestRun, error)
	DeleteOlderThan(ctx context.Context, date time.Time) (int64, error)
}

type backtestRunRepository struct {
	db *gorm.DB
}

func NewBacktestRunRepository(db *gorm.DB) BacktestRunRepository {
	return &backtestRunRepository{db: db}
}

func (r *backtestRunRepository) Create(ctx context.Context, run *model.BacktestRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *backtestRunRepository) GetByID(ctx context.Context, id uint) (*model.BacktestRun, error) {
	var run model.BacktestRun
	if err := r.db.WithContext(ctx).First(&run, id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *backtestRunRepository) GetLatest(ctx context.Context, param model.GetBacktestRunParam) ([]model.BacktestRun, error) {
	var runs []model.BacktestRun

	query := r.db.WithContext(ctx).Model(&model.BacktestRun{})
	if param.StrategyName != "" {
		query = query.Where("strategy_name = ?", param.StrategyName)
	}
	if param.Symbol != "" {
		query = query.Where("symbols @> ?", `["`+param.Symbol+`"]`)
	}

	limit := param.Limit
	if limit <= 0 {
		limit = 20
	}

	if err := query.Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *backtestRunRepository) DeleteOlderThan(ctx context.Context, date time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", date).Delete(&model.BacktestRun{})
	return result.RowsAffected, result.Error
}
