package server

import "time"

// StartQuest 创建一条进行中的任务进度
func StartQuest(questID string, objectives []string) QuestProgress {
	now := nowMs()
	return QuestProgress{
		ID:                  questID,
		State:               QuestInProgress,
		CluesFound:          []string{},
		Objectives:          append([]string{}, objectives...),
		CompletedObjectives: []string{},
		StartTime:           now,
		LastUpdateTime:      now,
	}
}

// AddClueToQuest 记录线索；重复添加是幂等的
func AddClueToQuest(quest QuestProgress, clueID string) QuestProgress {
	if containsString(quest.CluesFound, clueID) {
		return quest
	}
	quest.CluesFound = append(append([]string{}, quest.CluesFound...), clueID)
	quest.LastUpdateTime = nowMs()
	return quest
}

// CompleteQuestObjective 完成一个目标；重复完成是幂等的。
// 全部目标完成后任务状态翻到 completed
func CompleteQuestObjective(quest QuestProgress, objectiveID string) QuestProgress {
	if IsObjectiveCompleted(quest, objectiveID) {
		return quest
	}
	quest.CompletedObjectives = append(append([]string{}, quest.CompletedObjectives...), objectiveID)
	if IsQuestCompleted(quest) {
		quest.State = QuestCompleted
	} else {
		quest.State = QuestInProgress
	}
	quest.LastUpdateTime = nowMs()
	return quest
}

// IsObjectiveCompleted 目标是否已完成
func IsObjectiveCompleted(quest QuestProgress, objectiveID string) bool {
	return containsString(quest.CompletedObjectives, objectiveID)
}

// IsQuestCompleted 当且仅当每个目标都出现在已完成集合中
func IsQuestCompleted(quest QuestProgress) bool {
	for _, obj := range quest.Objectives {
		if !containsString(quest.CompletedObjectives, obj) {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
