package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuqie6/SchoolQuest/internal/schema"
)

func statusCmd() *cobra.Command {
	var who studentFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "查看学生等级、经验、余额与徽章",
		Run: func(cmd *cobra.Command, args []string) {
			st, err := core.Services.Report.Status(context.Background(), who.student, who.class)
			if err != nil {
				fail("查询状态", err)
			}

			fmt.Printf("🎮 学生 %d @ 班级 %d", st.StudentID, st.ClassID)
			if st.Archetype != "" {
				fmt.Printf("（%s）", st.Archetype)
			}
			fmt.Println()
			fmt.Println("═══════════════════════════════════════")
			if st.NextThreshold != nil {
				fmt.Printf("  • 等级 %d，经验 %d / %d（本级进度 %.2f%%）\n", st.Level, st.TotalExperience, *st.NextThreshold, st.LevelProgress)
			} else {
				fmt.Printf("  • 等级 %d（满级），经验 %d\n", st.Level, st.TotalExperience)
			}
			fmt.Printf("  • 余额 %d\n", st.Balance)
			fmt.Printf("  • 徽章 %d 枚\n", len(st.Badges))
			for _, b := range st.Badges {
				fmt.Printf("    🏅 %s (%s) %s\n", b.Name, b.Code, b.AwardedAt.Format("2006-01-02"))
			}
		},
	}

	who.bind(cmd)
	return cmd
}

func badgesCmd() *cobra.Command {
	var who studentFlags

	cmd := &cobra.Command{
		Use:   "badges",
		Short: "评估并发放已达成的徽章",
		Run: func(cmd *cobra.Command, args []string) {
			writable()
			results, err := core.Services.Badges.EvaluateAndAward(context.Background(), who.student, who.class)
			if err != nil {
				fail("评估徽章", err)
			}
			if len(results) == 0 {
				fmt.Println("📚 暂无新达成的徽章")
				return
			}
			for _, r := range results {
				fmt.Printf("🏅 %s（经验 +%d）\n", r.Badge.Name, r.BonusExperience)
			}
		},
	}

	who.bind(cmd)
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "经验报告",
	}

	var who studentFlags
	var date string
	weekly := &cobra.Command{
		Use:   "weekly",
		Short: "本周经验与上周对比",
		Run: func(cmd *cobra.Command, args []string) {
			now := time.Now()
			if date != "" {
				t, err := time.ParseInLocation("2006-01-02", date, time.Local)
				if err != nil {
					fail("解析日期", err)
				}
				now = t
			}

			r, err := core.Services.Report.Weekly(context.Background(), who.student, who.class, now)
			if err != nil {
				fail("生成周报", err)
			}

			fmt.Printf("📅 经验周报 (%s ~ %s)\n", r.WeekStart, r.WeekEnd)
			fmt.Println("═══════════════════════════════════════")
			fmt.Printf("  • 本周 %d，上周 %d，增长 %.2f%%\n", r.ThisWeek, r.PreviousWeek, r.GrowthRate)
			fmt.Printf("  • 累计经验 %d\n", r.TotalExperience)
			if len(r.ByReason) > 0 {
				fmt.Printf("\n📊 来源分布\n")
				for _, s := range r.ByReason {
					fmt.Printf("  • %s: %+d（%d 次）\n", s.Reason, s.Total, s.Count)
				}
			}
			fmt.Println("\n═══════════════════════════════════════")
		},
	}
	who.bind(weekly)
	weekly.Flags().StringVar(&date, "date", "", "以该日期所在周为准 (YYYY-MM-DD)")

	cmd.AddCommand(weekly)
	return cmd
}

func historyCmd() *cobra.Command {
	var who studentFlags
	var limit int
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "查看货币流水",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			if rebuild {
				writable()
				bal, err := core.Services.Currency.Rebuild(ctx, who.student, who.class)
				if err != nil {
					fail("重建余额", err)
				}
				fmt.Printf("🔧 已按流水重建余额: %d\n", bal)
			}

			txs, err := core.Services.Currency.History(ctx, who.student, who.class, limit)
			if err != nil {
				fail("查询流水", err)
			}
			for _, tx := range txs {
				sign := "+"
				if tx.Direction == schema.CurrencyDebit {
					sign = "-"
				}
				fmt.Printf("  %s %s%d %s %s\n", tx.CreatedAt.Format("2006-01-02 15:04"), sign, tx.Amount, tx.Reason, tx.SourceRef)
			}
		},
	}

	who.bind(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "条数")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "先按流水重建物化余额")

	return cmd
}
