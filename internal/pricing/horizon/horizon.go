// Package horizon 将绝对到期时间换算为以年为单位的剩余期限。
// 一年按 365.25 天计。
//
// 无法解析的到期时间不会返回错误，而是得到 0（视为已到期/未知），
// 概率模型在期限为 0 时退化为确定性结果，而不会放大风险。
package horizon

import (
	"fmt"
	"strings"
	"time"
)

// SecondsPerYear 365.25 天对应的秒数
const SecondsPerYear = 365.25 * 24 * 60 * 60

// Source 期限的来源
type Source string

const (
	// SourceParsed 正常解析并计算
	SourceParsed Source = "parsed"
	// SourceUnparsable 到期时间无法解析，回退为 0
	SourceUnparsable Source = "unparsable"
)

// Horizon 剩余期限（年）
type Horizon struct {
	// Years 非负年数，0 表示已到期或未知
	Years float64
	// Source 计算来源
	Source Source
}

// IsFallback 是否走了解析失败回退
func (h Horizon) IsFallback() bool {
	return h.Source == SourceUnparsable
}

// Expired 是否为 0 期限
func (h Horizon) Expired() bool {
	return h.Years <= 0
}

// layouts 支持的 ISO-8601 格式，必须带时区（Z 或偏移）
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
}

// ParseExpiry 解析到期时间并归一化为 UTC
// 参数 s: ISO-8601 字符串，如 2024-12-31T23:59:59Z；末尾 Z 视为 UTC
// 返回: 缺少时区信息或格式错误时返回错误
func ParseExpiry(s string) (time.Time, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return time.Time{}, fmt.Errorf("到期时间为空")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析到期时间 %q", s)
}

// Between 计算两个时刻之间的剩余年数，下限为 0
func Between(expiry, now time.Time) float64 {
	years := expiry.UTC().Sub(now.UTC()).Seconds() / SecondsPerYear
	if years < 0 {
		return 0
	}
	return years
}

// Resolve 计算剩余期限（带来源标记）
// 参数 expiry: ISO-8601 到期时间
// 参数 now: 当前时刻
func Resolve(expiry string, now time.Time) Horizon {
	t, err := ParseExpiry(expiry)
	if err != nil {
		return Horizon{Years: 0, Source: SourceUnparsable}
	}
	return Horizon{Years: Between(t, now), Source: SourceParsed}
}

// YearsUntil 计算剩余年数
// 等价于 Resolve(expiry, now).Years
func YearsUntil(expiry string, now time.Time) float64 {
	return Resolve(expiry, now).Years
}
