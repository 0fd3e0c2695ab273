package model

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	pkgerrors "workbench/pkg/errors"
)

// DateLayout 日期列的文本格式
const DateLayout = "2006-01-02"

// ── 日期数组自定义类型 ──

// DateArray 对应 PostgreSQL DATE[]，实现 GORM Scanner/Valuer 接口。
// 其他方言下以 {2024-01-01,2024-01-08} 文本存储。
type DateArray []time.Time

// GormDBDataType 按方言声明列类型
func (DateArray) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "date[]"
	}
	return "text"
}

// Scan 将 {2024-01-01,2024-01-08} 文本解析为日期切片。
func (a *DateArray) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("DateArray.Scan: unsupported type %T", src)
	}
	s = strings.Trim(s, "{}")
	if s == "" {
		*a = DateArray{}
		return nil
	}
	parts := strings.Split(s, ",")
	arr := make(DateArray, 0, len(parts))
	for _, p := range parts {
		d, err := time.Parse(DateLayout, strings.Trim(strings.TrimSpace(p), `"`))
		if err != nil {
			return fmt.Errorf("DateArray.Scan: invalid element %q: %w", p, err)
		}
		arr = append(arr, d)
	}
	*a = arr
	return nil
}

// Value 将日期切片序列化为 {2024-01-01,2024-01-08} 文本。
func (a DateArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	parts := make([]string, len(a))
	for i, d := range a {
		parts[i] = d.Format(DateLayout)
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// Sorted 返回升序副本
func (a DateArray) Sorted() DateArray {
	out := slices.Clone(a)
	slices.SortFunc(out, func(x, y time.Time) int { return x.Compare(y) })
	return out
}

// validateWeeks 周集合必须非空、互不重复且均为周一
func validateWeeks(weeks DateArray) error {
	if len(weeks) == 0 {
		return fmt.Errorf("%w: weeks 不能为空", pkgerrors.ErrValidation)
	}
	seen := make(map[string]struct{}, len(weeks))
	for _, w := range weeks {
		if w.Weekday() != time.Monday {
			return fmt.Errorf("%w: %s 不是周一", pkgerrors.ErrValidation, w.Format(DateLayout))
		}
		key := w.Format(DateLayout)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: 周 %s 重复", pkgerrors.ErrValidation, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// SoftDeleteModel 支持软删除的审计字段
// 软删除后的实体在预加载中缺失，报表按缺失引用处理
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"     json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:uuid" json:"deleted_by,omitempty"`
}

// ensureID 主键为空时生成 UUID（sqlite 无 gen_random_uuid）
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// All 返回全部模型，供 AutoMigrate 使用
func All() []interface{} {
	return []interface{}{
		&User{}, &Team{}, &TeamMember{}, &Employment{},
		&Absence{}, &PublicHoliday{},
		&Campaign{}, &Project{}, &Offer{}, &Milestone{}, &ServiceType{},
		&PlanningRequest{}, &PlannedWork{}, &ExternalWork{}, &LoggedHours{},
	}
}
