package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/yuqie6/SchoolQuest/internal/schema"
	"gorm.io/datatypes"
)

// 经验/货币流水的 reason
const (
	ReasonActivityGraded = "activity_graded"
	ReasonBehavior       = "behavior"
	ReasonBadgeBonus     = "badge_bonus"
	ReasonMissionBonus   = "mission_bonus"
	ReasonPurchase       = "purchase"
)

func newNotification(kind schema.NotificationKind, recipientID, classID int64, title, message string, meta datatypes.JSONMap) schema.Notification {
	return schema.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		ClassID:     classID,
		Kind:        kind,
		Title:       title,
		Message:     message,
		Metadata:    meta,
	}
}

func levelUpNotification(studentID, classID int64, from, to int) schema.Notification {
	return newNotification(schema.NotificationLevelUp, studentID, classID,
		"升级啦！",
		fmt.Sprintf("你的角色从 %d 级升到了 %d 级", from, to),
		datatypes.JSONMap{"previous_level": from, "new_level": to},
	)
}

func badgeAwardedNotification(studentID, classID int64, badge schema.BadgeDefinition, bonus int64) schema.Notification {
	return newNotification(schema.NotificationBadgeAwarded, studentID, classID,
		"获得新徽章",
		fmt.Sprintf("你获得了徽章「%s」，奖励 %d 经验", badge.Name, bonus),
		datatypes.JSONMap{"badge_id": badge.ID, "badge_code": badge.Code, "bonus_experience": bonus},
	)
}

func missionCompletedNotification(studentID int64, mission schema.Mission) schema.Notification {
	return newNotification(schema.NotificationMissionCompleted, studentID, mission.ClassID,
		"任务完成",
		fmt.Sprintf("你完成了任务「%s」", mission.Title),
		datatypes.JSONMap{
			"mission_id":       mission.ID,
			"bonus_experience": mission.BonusExperience,
			"bonus_currency":   mission.BonusCurrency,
		},
	)
}

func purchaseNotification(studentID int64, item schema.StoreItem, txID string, balance int64) schema.Notification {
	return newNotification(schema.NotificationPurchase, studentID, item.ClassID,
		"购买成功",
		fmt.Sprintf("你花费 %d 购买了「%s」", item.Price, item.Name),
		datatypes.JSONMap{"item_id": item.ID, "price": item.Price, "transaction_id": txID, "balance": balance},
	)
}
