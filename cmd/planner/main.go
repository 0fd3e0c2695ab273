package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"workbench/config"
	"workbench/internal/dto"
	"workbench/internal/planning"
	"workbench/internal/repository"
	"workbench/internal/service"
	"workbench/pkg/database"
	applogger "workbench/pkg/logger"
	"workbench/pkg/redis"
)

const usage = `用法:
  planner [-config path] report user <id> [from] [until]
  planner [-config path] report team <id> [from] [until]
  planner [-config path] report project <id>
  planner [-config path] report campaign <id>
  planner [-config path] import-holidays [file.ics|url]
`

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 3. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}()
	if err := database.Migrate(db, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：未配置或连接失败时不缓存报表）
	var cache service.ReportCache
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，报表缓存将不可用", zap.Error(err))
		} else {
			defer rdb.Close()
			cache = rdb
		}
	}

	// 5. 依赖注入: Repository → Service
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, cache, logger)

	// 6. 收到 SIGINT/SIGTERM 时取消正在进行的查询
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, svc, args); err != nil {
		logger.Error("命令执行失败", zap.Strings("args", args), zap.Error(err))
		fmt.Fprintf(os.Stderr, "%v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string) error {
	switch args[0] {
	case "report":
		if len(args) < 3 {
			return fmt.Errorf("缺少参数\n%s", usage)
		}
		rep, err := report(ctx, svc.Planning, args[1], args[2], args[3:])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)

	case "import-holidays":
		src := cfg.Planning.HolidayCalendarURL
		if len(args) > 1 {
			src = args[1]
		}
		if src == "" {
			return fmt.Errorf("未指定日历文件或 planning.holiday_calendar_url")
		}
		res, err := importHolidays(ctx, svc.Holiday, src)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "导入 %d 个假日，跳过 %d 个事件\n", res.Imported, res.Skipped)
		return nil

	default:
		return fmt.Errorf("未知命令 %q\n%s", args[0], usage)
	}
}

func report(ctx context.Context, svc service.PlanningService, kind, id string, bounds []string) (*planning.Report, error) {
	switch kind {
	case "user", "team":
		rng, err := parseRange(bounds)
		if err != nil {
			return nil, err
		}
		if kind == "user" {
			return svc.UserReport(ctx, id, rng)
		}
		return svc.TeamReport(ctx, id, rng)
	case "project":
		return svc.ProjectReport(ctx, id)
	case "campaign":
		return svc.CampaignReport(ctx, id)
	default:
		return nil, fmt.Errorf("未知报表类型 %q", kind)
	}
}

// parseRange 解析可选的 from/until（YYYY-MM-DD）
func parseRange(bounds []string) (dto.ReportRange, error) {
	var rng dto.ReportRange
	for i, s := range bounds {
		if i > 1 {
			break
		}
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return rng, fmt.Errorf("无效日期 %q: %w", s, err)
		}
		if i == 0 {
			rng.From = &d
		} else {
			rng.Until = &d
		}
	}
	return rng, nil
}

func importHolidays(ctx context.Context, svc service.HolidayService, src string) (*dto.HolidayImportResult, error) {
	if strings.Contains(src, "://") {
		return svc.ImportURL(ctx, src)
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("打开日历文件失败: %w", err)
	}
	defer f.Close()
	return svc.ImportICS(ctx, f)
}
