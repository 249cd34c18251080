package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuqie6/SchoolQuest/internal/schema"
	"github.com/yuqie6/SchoolQuest/internal/service"
)

// studentFlags 学生与班级是所有事件命令的公共参数
type studentFlags struct {
	student int64
	class   int64
}

func (f *studentFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Int64VarP(&f.student, "student", "s", 0, "学生 ID")
	cmd.Flags().Int64Var(&f.class, "class", 0, "班级 ID")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("class")
}

func enrollCmd() *cobra.Command {
	var who studentFlags
	var archetype string

	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "为学生在班级中创建角色",
		Run: func(cmd *cobra.Command, args []string) {
			writable()
			c, err := core.Services.Progression.Enroll(context.Background(), who.student, who.class, archetype)
			if err != nil {
				fail("创建角色", err)
			}
			fmt.Printf("✅ 角色就绪: 学生 %d / 班级 %d，等级 %d，经验 %d\n", c.StudentID, c.ClassID, c.Level, c.TotalExperience)
		},
	}

	who.bind(cmd)
	cmd.Flags().StringVar(&archetype, "archetype", "", "角色职业")

	return cmd
}

func gradeCmd() *cobra.Command {
	var who studentFlags
	var activity, submission int64
	var score, maxScore float64

	cmd := &cobra.Command{
		Use:   "grade",
		Short: "记录作业成绩并结算奖励",
		Run: func(cmd *cobra.Command, args []string) {
			writable()
			out, err := core.Services.Progression.OnSubmissionGraded(context.Background(), service.SubmissionGrade{
				SubmissionID: submission,
				ActivityID:   activity,
				StudentID:    who.student,
				ClassID:      who.class,
				Score:        score,
				MaxScore:     maxScore,
			})
			if err != nil {
				fail("记录成绩", err)
			}

			fmt.Printf("📝 成绩已记录: 提交 %d，得分 %.2f（%.2f%%）\n", out.Submission.ID, score, out.Reward.Percentage)
			if out.Rewarded {
				fmt.Printf("  • 经验 +%d，货币 +%d", out.Reward.Experience, out.Reward.Currency)
				if out.Reward.BonusApplied {
					fmt.Printf("（优秀加成 ×%.2f）", out.Reward.Multiplier)
				}
				fmt.Println()
			} else {
				fmt.Println("  • 该提交已结算过奖励，本次仅更新成绩")
			}
			printMissions(out.Missions)
			printNotifications(out.Notifications)
		},
	}

	who.bind(cmd)
	cmd.Flags().Int64Var(&activity, "activity", 0, "活动 ID")
	cmd.Flags().Int64Var(&submission, "submission", 0, "提交 ID（可选，重复批改时指定）")
	cmd.Flags().Float64Var(&score, "score", 0, "得分")
	cmd.Flags().Float64Var(&maxScore, "max", 0, "满分（默认取班级设置）")
	_ = cmd.MarkFlagRequired("activity")
	_ = cmd.MarkFlagRequired("score")

	return cmd
}

func behaviorCmd() *cobra.Command {
	var who studentFlags
	var category, note string
	var points int64

	cmd := &cobra.Command{
		Use:   "behavior",
		Short: "记录课堂表现",
		Run: func(cmd *cobra.Command, args []string) {
			writable()
			out, err := core.Services.Progression.OnBehaviorLogged(context.Background(), service.BehaviorEvent{
				StudentID:  who.student,
				ClassID:    who.class,
				Category:   schema.BehaviorCategory(category),
				Points:     points,
				Note:       note,
				RecordedAt: time.Now(),
			})
			if err != nil {
				fail("记录表现", err)
			}
			fmt.Printf("✅ 已记录 %s %+d，当前经验 %d\n", out.Record.Category, out.Record.Points, out.LevelChange.NewExperience)
			printNotifications(out.Notifications)
		},
	}

	who.bind(cmd)
	cmd.Flags().StringVar(&category, "category", string(schema.BehaviorParticipation), "类别 participation/conduct/teamwork/effort")
	cmd.Flags().Int64VarP(&points, "points", "p", 0, "分值，可为负")
	cmd.Flags().StringVar(&note, "note", "", "备注")
	_ = cmd.MarkFlagRequired("points")

	return cmd
}

func attendanceCmd() *cobra.Command {
	var who studentFlags
	var date, status string

	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "记录考勤",
		Run: func(cmd *cobra.Command, args []string) {
			writable()
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			out, err := core.Services.Progression.OnAttendanceRecorded(context.Background(), service.AttendanceEvent{
				StudentID: who.student,
				ClassID:   who.class,
				Date:      date,
				Status:    schema.AttendanceStatus(status),
			})
			if err != nil {
				fail("记录考勤", err)
			}
			fmt.Printf("✅ %s 考勤: %s\n", out.Record.Date, out.Record.Status)
			printNotifications(out.Notifications)
		},
	}

	who.bind(cmd)
	cmd.Flags().StringVar(&date, "date", "", "日期 (YYYY-MM-DD)，默认今天")
	cmd.Flags().StringVar(&status, "status", string(schema.AttendancePresent), "present/late/absent/excused")

	return cmd
}

func purchaseCmd() *cobra.Command {
	var who studentFlags
	var item int64

	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "用货币兑换商店物品",
		Run: func(cmd *cobra.Command, args []string) {
			writable()
			out, err := core.Services.Progression.OnPurchase(context.Background(), service.PurchaseRequest{
				StudentID: who.student,
				ClassID:   who.class,
				ItemID:    item,
			})
			if err != nil {
				fail("兑换", err)
			}
			fmt.Printf("🛒 已兑换 %s（-%d），余额 %d\n", out.Item.Name, out.Item.Price, out.Balance)
		},
	}

	who.bind(cmd)
	cmd.Flags().Int64Var(&item, "item", 0, "物品 ID")
	_ = cmd.MarkFlagRequired("item")

	return cmd
}

func missionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missions",
		Short: "任务管理",
	}

	var who studentFlags
	check := &cobra.Command{
		Use:   "check",
		Short: "重新计算学生在班级所有任务上的进度",
		Run: func(cmd *cobra.Command, args []string) {
			writable()
			out, err := core.Services.Progression.CheckMissions(context.Background(), who.student, who.class)
			if err != nil {
				fail("刷新任务", err)
			}
			if len(out.Missions) == 0 {
				fmt.Println("📚 班级暂无进行中的任务")
				return
			}
			printMissions(out.Missions)
			printNotifications(out.Notifications)
		},
	}
	who.bind(check)

	cmd.AddCommand(check, missionAddCmd())
	return cmd
}

func printMissions(results []service.MissionResult) {
	for _, r := range results {
		mark := "⏳"
		if r.Progress.Completed {
			mark = "✅"
		}
		fmt.Printf("  %s 任务「%s」%d/%d（%.2f%%）\n", mark, r.Mission.Title,
			r.Progress.CompletedActivityCount, r.Progress.TotalActivityCount, r.Progress.PercentComplete)
		if r.ExperienceBonus > 0 || r.CurrencyBonus > 0 {
			fmt.Printf("     奖励: 经验 +%d，货币 +%d\n", r.ExperienceBonus, r.CurrencyBonus)
		}
	}
}

func printNotifications(notes []schema.Notification) {
	for _, n := range notes {
		fmt.Printf("🔔 %s: %s\n", n.Title, n.Message)
	}
}
