package model

import (
	"fmt"
	"strings"
	"time"
)

// 接受的无时区日期格式：带 Z 后缀的 ISO-8601 去掉 Z 后按 UTC 解析。
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp 解析 ISO-8601 时间戳并归一化为带时区的 UTC 时间。
// 兼容三类输入：标准 RFC3339（含数字时区偏移）、以字面 "Z" 结尾的 UTC 标记、
// 以及不带时区的裸时间（按 UTC 处理）。
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("时间戳为空")
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}

	// 去掉末尾的字面 UTC 标记后按无时区格式解析
	trimmed := strings.TrimSuffix(s, "Z")
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间戳: %q", s)
}

// FormatTimestamp 将时间序列化为 ISO-8601 UTC 字符串，用于响应与摘要元数据。
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
