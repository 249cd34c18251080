package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yuqie6/SchoolQuest/internal/bootstrap"
	"github.com/yuqie6/SchoolQuest/internal/pkg/buildinfo"
	"github.com/yuqie6/SchoolQuest/internal/pkg/config"
)

var (
	cfgFile string
	core    *bootstrap.Core
)

// skipCore 标记不需要数据库的子命令
const skipCore = "skip-core"

func main() {
	rootCmd := &cobra.Command{
		Use:   "quest",
		Short: "SchoolQuest - 课堂游戏化成长引擎",
		Long:  `SchoolQuest 把作业成绩、课堂表现与考勤转化为经验、等级、货币、徽章和任务进度。`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cmd.Annotations[skipCore] == "true" {
				return
			}
			var err error
			core, err = bootstrap.NewCore(context.Background(), cfgFile)
			if err != nil {
				slog.Error("初始化失败", "error", err)
				os.Exit(1)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if core != nil {
				core.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(enrollCmd())
	rootCmd.AddCommand(gradeCmd())
	rootCmd.AddCommand(behaviorCmd())
	rootCmd.AddCommand(attendanceCmd())
	rootCmd.AddCommand(purchaseCmd())
	rootCmd.AddCommand(missionsCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(itemCmd())
	rootCmd.AddCommand(settingCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(badgesCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(metricsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// fail 打印错误并退出
func fail(action string, err error) {
	fmt.Printf("❌ %s失败: %v\n", action, err)
	if core != nil {
		core.Close()
	}
	os.Exit(1)
}

// writable 安全模式下拒绝写命令
func writable() {
	if err := core.RequireWritable(); err != nil {
		fail("写入", err)
	}
}

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "生成默认配置文件",
		Annotations: map[string]string{skipCore: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			path := cfgFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					fail("定位配置路径", err)
				}
			}
			if _, err := os.Stat(path); err == nil && !force {
				fmt.Printf("⚠️  配置文件已存在: %s（使用 --force 覆盖）\n", path)
				return
			}

			cfg, err := config.Load("")
			if err != nil {
				fail("生成默认配置", err)
			}
			cfg.Storage.DBPath = filepath.Join(filepath.Dir(path), "..", "data", "schoolquest.db")
			if err := config.WriteFile(path, cfg); err != nil {
				fail("写入配置", err)
			}
			fmt.Printf("✅ 已生成配置文件: %s\n", path)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "覆盖已有配置")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "显示版本信息",
		Annotations: map[string]string{skipCore: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("SchoolQuest", buildinfo.String())
		},
	}
}

func metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "以 Prometheus 文本格式输出本进程指标",
		Run: func(cmd *cobra.Command, args []string) {
			if err := core.Metrics.WriteText(os.Stdout); err != nil {
				fail("输出指标", err)
			}
		},
	}
}
