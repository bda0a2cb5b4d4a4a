package repository

import (
	"gorm.io/gorm"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// BaseRepository 基础仓储接口
type BaseRepository interface {
	GetDB() *gorm.DB
}

// Pagination 分页参数，查询后回填 Total
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// NewPagination 创建分页参数，页码从1开始，每页最多100条
func NewPagination(page, pageSize int) *Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return &Pagination{Page: page, PageSize: pageSize}
}

// Offset 计算偏移量
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Paginate 分页 scope
func Paginate(p *Pagination) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.PageSize)
	}
}

// findPage 先计数再取当前页
func findPage(query *gorm.DB, p *Pagination, order string, out interface{}) error {
	if err := query.Count(&p.Total).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	if err := query.Scopes(Paginate(p)).Order(order).Find(out).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return nil
}

// BaseRepo 基础仓储实现
type BaseRepo struct {
	db *gorm.DB
}

// GetDB 获取数据库实例
func (r *BaseRepo) GetDB() *gorm.DB {
	return r.db
}
