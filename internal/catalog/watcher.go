package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 监控目录文件，保存后重新校验并幂等写入新增的等级与徽章
// 已发布的条目不会被修改，等级表变化需要重启进程才会生效
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	levels   LevelSeeder
	badges   BadgeSeeder
	debounce time.Duration
	applied  chan error // 每次重新加载的结果，测试用
}

func NewWatcher(path string, levels LevelSeeder, badges BadgeSeeder, debounce time.Duration) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("目录文件路径不能为空")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("获取绝对路径失败: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}
	// 监控所在目录：编辑器常用 rename 方式保存，直接监控文件会丢失后续事件
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("添加监控目录失败: %w", err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		watcher:  w,
		path:     abs,
		levels:   levels,
		badges:   badges,
		debounce: debounce,
		applied:  make(chan error, 8),
	}, nil
}

// Run 阻塞直到 ctx 结束
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	slog.Info("目录监控启动", "path", w.path)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			slog.Info("目录监控已停止")
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			// 防抖：连续保存只处理最后一次
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.report(w.reload(ctx))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("文件监控错误", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) error {
	c, err := Load(w.path)
	if err != nil {
		slog.Warn("目录文件无效，忽略本次修改", "path", w.path, "error", err)
		return err
	}
	if err := c.Seed(ctx, w.levels, w.badges); err != nil {
		slog.Error("写入目录失败", "error", err)
		return err
	}
	return nil
}

func (w *Watcher) report(err error) {
	select {
	case w.applied <- err:
	default:
	}
}
