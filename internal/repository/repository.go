package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/config"
)

// Repository 目前只管理联系人目录，班次本身不落库
type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

// queryContext 返回带单次查询超时的 context
func (r *Repository) queryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}
