package planning

import (
	"time"

	"github.com/shopspring/decimal"
)

// 小时数统一保留两位小数
const precision = 2

var hundred = decimal.NewFromInt(100)

// 复合键
type (
	userWeek struct {
		userID string
		week   time.Time
	}
	projectWeek struct {
		projectID string
		week      time.Time
	}
)

// ledger 显式累加器：读取不存在的键时先写入零值
type ledger[K comparable] map[K]decimal.Decimal

// at 取值，不存在时插入零
func (l ledger[K]) at(k K) decimal.Decimal {
	v, ok := l[k]
	if !ok {
		v = decimal.Zero
		l[k] = v
	}
	return v
}

func (l ledger[K]) add(k K, v decimal.Decimal) {
	l[k] = l.at(k).Add(v)
}

// value 只读取值，不存在时返回零
func (l ledger[K]) value(k K) decimal.Decimal {
	if v, ok := l[k]; ok {
		return v
	}
	return decimal.Zero
}

// zeros 长度为 n 的零序列
func zeros(n int) []decimal.Decimal {
	s := make([]decimal.Decimal, n)
	for i := range s {
		s[i] = decimal.Zero
	}
	return s
}

// series 按周展开某个键族
func series[K comparable](l ledger[K], weeks []time.Time, key func(time.Time) K) []decimal.Decimal {
	s := make([]decimal.Decimal, len(weeks))
	for i, w := range weeks {
		s[i] = l.value(key(w))
	}
	return s
}
