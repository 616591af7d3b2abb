package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var file string

	flag.StringVar(&file, "file", "", "联系人 CSV 文件路径 (默认使用 SEED_CONTACTS_FILE)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if file == "" {
		file = cfg.Seed.ContactsFile
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	f, err := os.Open(file)
	if err != nil {
		logger.Error("无法打开联系人文件", slog.String("file", file), slog.String("error", err.Error()))
		return
	}
	defer f.Close()

	res, err := seed.ImportContacts(f, repo)
	if err != nil {
		logger.Error("导入联系人失败", slog.Int("imported", res.Imported), slog.String("error", err.Error()))
		return
	}

	logger.Info("导入联系人完成", slog.String("file", file), slog.Int("imported", res.Imported), slog.Int("skipped", res.Skipped))
}
