package service

import (
	"context"
	"time"

	"github.com/yuqie6/SchoolQuest/internal/repository"
	"github.com/yuqie6/SchoolQuest/internal/schema"
)

// 仓储/外部依赖的最小接口集合（ISP）

// Transactor 在一个事务中执行 fn，fn 收到的 ctx 携带事务
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type CharacterRepository interface {
	Get(ctx context.Context, studentID, classID int64) (*schema.Character, error)
	GetForUpdate(ctx context.Context, studentID, classID int64) (*schema.Character, error)
	CreateIfAbsent(ctx context.Context, c *schema.Character) (bool, error)
	CompareAndSwapExperience(ctx context.Context, id, version, totalExperience int64, level int) (bool, error)
}

type ExperienceEventRepository interface {
	Append(ctx context.Context, ev *schema.ExperienceEvent) error
	SumByTimeRange(ctx context.Context, studentID, classID int64, start, end time.Time) (int64, error)
	SumByReason(ctx context.Context, studentID, classID int64, start, end time.Time) ([]repository.ReasonSum, error)
}

type CurrencyRepository interface {
	AppendTransaction(ctx context.Context, tx *schema.CurrencyTransaction) error
	SumFromLog(ctx context.Context, studentID, classID int64) (int64, error)
	Credit(ctx context.Context, studentID, classID, amount int64) error
	TryDebit(ctx context.Context, studentID, classID, amount int64) (bool, error)
	GetBalance(ctx context.Context, studentID, classID int64) (*schema.CurrencyBalance, error)
	SetBalance(ctx context.Context, studentID, classID, balance int64) error
	ListTransactions(ctx context.Context, studentID, classID int64, limit int) ([]schema.CurrencyTransaction, error)
}

type BadgeRepository interface {
	ListActive(ctx context.Context, classID int64) ([]schema.BadgeDefinition, error)
	AwardedBadgeIDs(ctx context.Context, studentID, classID int64) (map[int64]struct{}, error)
	CreateAward(ctx context.Context, award *schema.BadgeAward) (bool, error)
	ListAwards(ctx context.Context, studentID, classID int64) ([]schema.BadgeAward, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]schema.BadgeDefinition, error)
}

type MissionRepository interface {
	GetByID(ctx context.Context, id int64) (*schema.Mission, error)
	ListActiveByClass(ctx context.Context, classID int64) ([]schema.Mission, error)
	CountActivities(ctx context.Context, missionID int64) (int64, error)
	CountPassedActivities(ctx context.Context, missionID, studentID int64, passingScore float64) (int64, error)
	GetProgress(ctx context.Context, missionID, studentID int64) (*schema.MissionProgress, error)
	EnsureProgress(ctx context.Context, missionID, studentID int64) (*schema.MissionProgress, error)
	UpdateCounts(ctx context.Context, id int64, completedCount, totalCount int, percent float64) error
	MarkCompleted(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkExperienceBonusGranted(ctx context.Context, id int64) (bool, error)
	MarkCurrencyBonusGranted(ctx context.Context, id int64) (bool, error)
}

// ActivityStatsRepository 徽章条件所需的聚合数据
type ActivityStatsRepository interface {
	CountPassedActivities(ctx context.Context, studentID, classID int64, passingScore float64) (int64, error)
	CountSubmissions(ctx context.Context, studentID, classID int64) (int64, error)
	ListSubmissionTimings(ctx context.Context, studentID, classID int64) ([]repository.SubmissionTiming, error)
	ListAttendanceStatuses(ctx context.Context, studentID, classID int64) ([]schema.AttendanceStatus, error)
	ListBehaviorPoints(ctx context.Context, studentID, classID int64) ([]int64, error)
	CountPositiveBehavior(ctx context.Context, studentID, classID int64, category schema.BehaviorCategory) (int64, error)
}

type ClassroomRepository interface {
	ActivityStatsRepository
	GetActivity(ctx context.Context, id int64) (*schema.Activity, error)
	RecordGrade(ctx context.Context, sub *schema.Submission) (*schema.Submission, error)
	UpsertAttendance(ctx context.Context, rec *schema.AttendanceRecord) error
	CreateBehavior(ctx context.Context, rec *schema.BehaviorRecord) error
	GetStoreItem(ctx context.Context, id int64) (*schema.StoreItem, error)
}

type RewardGrantRepository interface {
	TryCreate(ctx context.Context, g *schema.RewardGrant) (bool, error)
}

type ClassSettingRepository interface {
	GetAll(ctx context.Context, classID int64) (map[string]string, error)
}

type NotificationRepository interface {
	BatchInsert(ctx context.Context, items []schema.Notification) error
	MarkDelivered(ctx context.Context, ids []string, at time.Time) error
}

// Publisher 提交后的进程内通知分发
type Publisher interface {
	Publish(n schema.Notification)
}

// Locker 按 (student, class) 串行化写操作
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
