package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"workbench/internal/dto"
	"workbench/internal/model"
	"workbench/internal/repository"
	pkgerrors "workbench/pkg/errors"
)

// ── 公共假日 ICS 导入 ──────────────────────────────────────
//
// 每个全天 VEVENT 对应一个假日：
//   - DTSTART 取日期部分
//   - SUMMARY 为假日名称
//   - X-WORKBENCH-FRACTION 为当日减免比例（缺省 1）
//
// 同一日期重复出现时以最后一条为准；写入按日期 upsert。
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize      = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout     = 30 * time.Second
	icsFractionProperty = ics.ComponentProperty("X-WORKBENCH-FRACTION")
)

// HolidayService 公共假日导入接口
type HolidayService interface {
	ImportICS(ctx context.Context, r io.Reader) (*dto.HolidayImportResult, error)
	ImportURL(ctx context.Context, rawURL string) (*dto.HolidayImportResult, error)
}

type holidayService struct {
	repo   *repository.Repository
	cache  ReportCache
	client *http.Client
	logger *zap.Logger
}

// NewHolidayService 创建 HolidayService 实例
func NewHolidayService(repo *repository.Repository, cache ReportCache, logger *zap.Logger) HolidayService {
	return &holidayService{
		repo:   repo,
		cache:  cache,
		client: &http.Client{Timeout: icsFetchTimeout},
		logger: logger,
	}
}

func (s *holidayService) ImportURL(ctx context.Context, rawURL string) (*dto.HolidayImportResult, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: 无效的日历地址: %v", pkgerrors.ErrValidation, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}

	return s.ImportICS(ctx, io.LimitReader(resp.Body, icsMaxFileSize))
}

func (s *holidayService) ImportICS(ctx context.Context, r io.Reader) (*dto.HolidayImportResult, error) {
	holidays, skipped, err := ParseHolidays(r)
	if err != nil {
		return nil, err
	}

	if err := s.repo.PublicHoliday.Upsert(ctx, holidays); err != nil {
		s.logger.Error("写入公共假日失败", zap.Error(err))
		return nil, err
	}
	s.logger.Info("公共假日导入完成", zap.Int("imported", len(holidays)), zap.Int("skipped", skipped))

	invalidateReports(ctx, s.cache, s.logger)
	return &dto.HolidayImportResult{Imported: len(holidays), Skipped: skipped}, nil
}

// ParseHolidays 解析 ICS 内容，返回按日期排序的假日与被跳过的事件数
func ParseHolidays(r io.Reader) ([]model.PublicHoliday, int, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: ICS 格式解析失败: %v", pkgerrors.ErrValidation, err)
	}

	byDate := make(map[time.Time]model.PublicHoliday)
	skipped := 0
	for _, evt := range cal.Events() {
		h, ok := parseHolidayEvent(evt)
		if !ok {
			skipped++
			continue
		}
		byDate[h.Date] = h
	}

	holidays := make([]model.PublicHoliday, 0, len(byDate))
	for _, h := range byDate {
		holidays = append(holidays, h)
	}
	sort.Slice(holidays, func(i, j int) bool { return holidays[i].Date.Before(holidays[j].Date) })
	return holidays, skipped, nil
}

// parseHolidayEvent 缺少名称、日期或比例非法的事件被跳过
func parseHolidayEvent(evt *ics.VEvent) (model.PublicHoliday, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return model.PublicHoliday{}, false
	}

	date, err := parseICSDate(evt)
	if err != nil {
		return model.PublicHoliday{}, false
	}

	fraction := decimal.NewFromInt(1)
	if prop := evt.GetProperty(icsFractionProperty); prop != nil {
		f, err := decimal.NewFromString(strings.TrimSpace(prop.Value))
		if err != nil {
			return model.PublicHoliday{}, false
		}
		fraction = f
	}

	h := model.PublicHoliday{
		Date:     date,
		Name:     strings.TrimSpace(summary.Value),
		Fraction: fraction,
	}
	if h.Validate() != nil {
		return model.PublicHoliday{}, false
	}
	return h, true
}

// parseICSDate 取 DTSTART 的日历日期（UTC 零点），忽略时刻
func parseICSDate(evt *ics.VEvent) (time.Time, error) {
	prop := evt.GetProperty(ics.ComponentPropertyDtStart)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", ics.ComponentPropertyDtStart)
	}
	val := strings.TrimSpace(prop.Value)
	if len(val) < 8 {
		return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
	}
	t, err := time.Parse("20060102", val[:8])
	if err != nil {
		return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
	}
	return t, nil
}
