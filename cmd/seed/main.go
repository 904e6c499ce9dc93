package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入演示岗位, 2: 插入随机员工, 3: 两者都执行)")
	flag.IntVar(&n, "n", 20, "要插入的员工数量")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
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

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 1:
		seed.SeedDemoPositions(repo)
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的员工数量")
			return
		}
		seed.SeedRandomStaff(repo, n, cfg.Seed.StaffDepartments)
	case 3:
		seed.SeedDemoPositions(repo)
		if n > 0 {
			seed.SeedRandomStaff(repo, n, cfg.Seed.StaffDepartments)
		}
	default:
		slog.Error("未指定操作")
	}
}
