package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuqie6/SchoolQuest/internal/catalog"
	"github.com/yuqie6/SchoolQuest/internal/schema"
)

func activityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "活动管理",
	}

	var class, mission, maxExp, maxCur int64
	var title, due string
	add := &cobra.Command{
		Use:   "add",
		Short: "创建活动",
		Run: func(cmd *cobra.Command, args []string) {
			writable()
			a := &schema.Activity{
				ClassID:   class,
				MissionID: mission,
				Title:     title,
			}
			if cmd.Flags().Changed("max-exp") {
				a.MaxExperience = &maxExp
			}
			if cmd.Flags().Changed("max-currency") {
				a.MaxCurrency = &maxCur
			}
			if due != "" {
				t, err := time.ParseInLocation("2006-01-02 15:04", due, time.Local)
				if err != nil {
					fail("解析截止时间", err)
				}
				a.DueAt = &t
			}
			if err := core.Repos.Classroom.CreateActivity(context.Background(), a); err != nil {
				fail("创建活动", err)
			}
			fmt.Printf("✅ 活动已创建: #%d %s\n", a.ID, a.Title)
		},
	}
	add.Flags().Int64Var(&class, "class", 0, "班级 ID")
	add.Flags().Int64Var(&mission, "mission", 0, "所属任务 ID")
	add.Flags().StringVar(&title, "title", "", "标题")
	add.Flags().Int64Var(&maxExp, "max-exp", 0, "满分经验（不指定时使用班级默认，0 不发放）")
	add.Flags().Int64Var(&maxCur, "max-currency", 0, "满分货币（不指定时使用班级默认，0 不发放）")
	add.Flags().StringVar(&due, "due", "", "截止时间 (YYYY-MM-DD HH:MM)")
	_ = add.MarkFlagRequired("class")

	cmd.AddCommand(add)
	return cmd
}

func missionAddCmd() *cobra.Command {
	var class, bonusExp, bonusCur int64
	var title string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "创建任务",
		Run: func(cmd *cobra.Command, args []string) {
			writable()
			m := &schema.Mission{
				ClassID:         class,
				Title:           title,
				BonusExperience: bonusExp,
				BonusCurrency:   bonusCur,
				Active:          true,
			}
			if err := core.Repos.Missions.Create(context.Background(), m); err != nil {
				fail("创建任务", err)
			}
			fmt.Printf("✅ 任务已创建: #%d %s\n", m.ID, m.Title)
		},
	}

	cmd.Flags().Int64Var(&class, "class", 0, "班级 ID")
	cmd.Flags().StringVar(&title, "title", "", "标题")
	cmd.Flags().Int64Var(&bonusExp, "bonus-exp", 0, "完成奖励经验")
	cmd.Flags().Int64Var(&bonusCur, "bonus-currency", 0, "完成奖励货币")
	_ = cmd.MarkFlagRequired("class")

	return cmd
}

func itemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "商店物品管理",
	}

	var class, price int64
	var name string
	add := &cobra.Command{
		Use:   "add",
		Short: "上架物品",
		Run: func(cmd *cobra.Command, args []string) {
			writable()
			item := &schema.StoreItem{ClassID: class, Name: name, Price: price, Active: true}
			if err := core.Repos.Classroom.CreateStoreItem(context.Background(), item); err != nil {
				fail("上架物品", err)
			}
			fmt.Printf("✅ 物品已上架: #%d %s（%d）\n", item.ID, item.Name, item.Price)
		},
	}
	add.Flags().Int64Var(&class, "class", 0, "班级 ID")
	add.Flags().StringVar(&name, "name", "", "名称")
	add.Flags().Int64Var(&price, "price", 0, "价格")
	_ = add.MarkFlagRequired("class")
	_ = add.MarkFlagRequired("price")

	cmd.AddCommand(add)
	return cmd
}

func settingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setting",
		Short: "班级设置",
	}

	var class int64
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "覆盖班级设置，例如 passing_score 12",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			writable()
			ctx := context.Background()
			if err := core.Repos.Settings.Set(ctx, class, args[0], args[1]); err != nil {
				fail("保存设置", err)
			}
			s, err := core.Services.Settings.For(ctx, class)
			if err != nil {
				fail("读取设置", err)
			}
			fmt.Printf("✅ 班级 %d 生效设置: 及格 %.2f / 满分 %.2f，默认经验 %d，默认货币 %d\n",
				class, s.PassingScore, s.MaxScore, s.DefaultExperience, s.DefaultCurrency)
		},
	}
	set.Flags().Int64Var(&class, "class", 0, "班级 ID")
	_ = set.MarkFlagRequired("class")

	cmd.AddCommand(set)
	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "等级与徽章目录",
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "监控目录文件，保存后写入新增的徽章与等级",
		Run: func(cmd *cobra.Command, args []string) {
			writable()
			path := core.Cfg.Catalog.Path
			if path == "" {
				fail("监控目录", fmt.Errorf("未配置 catalog.path，内置目录无需监控"))
			}
			w, err := catalog.NewWatcher(path, core.Repos.Levels, core.Repos.Badges, 0)
			if err != nil {
				fail("监控目录", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Printf("👀 正在监控 %s（Ctrl+C 退出）\n", path)
			if err := w.Run(ctx); err != nil {
				fail("监控目录", err)
			}
		},
	}

	cmd.AddCommand(watch)
	return cmd
}
