package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"BlockScreener/internal/model"
)

// FormatTopRows renders the first n rows of a ranked view.
func FormatTopRows(block string, rows []model.RankedRow, generatedAt time.Time, n int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n\n", html.EscapeString(block), generatedAt.Format("15:04:05")))
	if len(rows) == 0 {
		b.WriteString("暂无数据\n")
		return b.String()
	}
	if n <= 0 || n > len(rows) {
		n = len(rows)
	}
	for i, r := range rows[:n] {
		pin := ""
		if r.Annotation.Pinned {
			pin = "📌"
		}
		b.WriteString(fmt.Sprintf("%d. %s%s %s  %.2f  %+.2f%%\n",
			i+1, pin, r.Code, html.EscapeString(r.Name), r.Quote.Price, r.Quote.ChangePct))
		b.WriteString(fmt.Sprintf("   5轮动量 %+.2f | MA5偏离 %s | 量比 %s | 振幅 %s\n",
			r.Momentum5, optional(r.MA5Distance, "%+.2f%%"), optional(r.MaxVolumeRatio10d, "%.2f"),
			optional(r.Amplitude10d, "%.2f%%")))
		if r.Annotation.Text != "" {
			b.WriteString(fmt.Sprintf("   📝 %s\n", html.EscapeString(r.Annotation.Text)))
		}
	}
	if n < len(rows) {
		b.WriteString(fmt.Sprintf("\n… 共 %d 只\n", len(rows)))
	}
	return b.String()
}

// FormatStatus renders the refresh loop status.
func FormatStatus(s model.Status) string {
	var b strings.Builder

	state := map[model.SchedulerState]string{
		model.StateIdle:       "🟢 运行中",
		model.StateRefreshing: "🔄 刷新中",
		model.StatePaused:     "⏸ 已暂停",
	}[s.State]

	b.WriteString(fmt.Sprintf("⚙️ <b>状态</b>: %s\n\n", state))
	b.WriteString(fmt.Sprintf("板块: %s\n", html.EscapeString(s.Block)))
	b.WriteString(fmt.Sprintf("刷新间隔: %s\n", s.Interval))
	if s.LastUpdate.IsZero() {
		b.WriteString("最后更新: -\n")
	} else {
		b.WriteString(fmt.Sprintf("最后更新: %s (耗时 %.2fs)\n", s.LastUpdate.Format("15:04:05"), s.LastElapsed.Seconds()))
	}
	b.WriteString(fmt.Sprintf("已完成周期: %d | 失败: %d\n", s.Cycles, s.Failures))
	b.WriteString(fmt.Sprintf("当前行数: %d | 历史缓存: %d\n", s.Rows, s.CachedSeries))
	if s.LastError != "" {
		b.WriteString(fmt.Sprintf("\n❌ 最近错误: %s\n", html.EscapeString(s.LastError)))
	}
	return b.String()
}

// FormatCycleFailure renders an alert for consecutive failed cycles.
func FormatCycleFailure(block string, failures int, err error) string {
	return fmt.Sprintf("❌ <b>%s</b> 连续 %d 次刷新失败: %s", html.EscapeString(block), failures, html.EscapeString(err.Error()))
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
