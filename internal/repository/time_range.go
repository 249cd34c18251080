package repository

import (
	"fmt"
	"time"
)

// DayRange 将 YYYY-MM-DD 解析为本地日区间 [start, end)
func DayRange(date string) (start, end time.Time, err error) {
	t, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("解析日期失败: %w", err)
	}
	return t, t.AddDate(0, 0, 1), nil
}

// WeekRange 返回 t 所在 ISO 周的区间 [周一 00:00, 下周一 00:00)，按 t 的时区计算
func WeekRange(t time.Time) (start, end time.Time) {
	offset := (int(t.Weekday()) + 6) % 7 // 周一为 0
	y, m, d := t.Date()
	start = time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 7)
}
