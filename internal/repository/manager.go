package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 仓储实例（使用懒加载）
	gameOnce sync.Once
	game     GameRepository

	playerOnce sync.Once
	player     PlayerRepository

	boardLogOnce sync.Once
	boardLog     *BoardLogRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Game 获取比赛仓储
func (m *Manager) Game() GameRepository {
	m.gameOnce.Do(func() {
		m.game = NewGameRepository(m.db)
	})
	return m.game
}

// Player 获取选手仓储
func (m *Manager) Player() PlayerRepository {
	m.playerOnce.Do(func() {
		m.player = NewPlayerRepository(m.db)
	})
	return m.player
}

// BoardLog 获取镖盘日志仓储
func (m *Manager) BoardLog() *BoardLogRepository {
	m.boardLogOnce.Do(func() {
		m.boardLog = NewBoardLogRepository(m.db)
	})
	return m.boardLog
}

// WithTransaction 在事务中执行操作，回调中的仓储共享同一事务
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *Manager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewManager(tx))
	})
}
