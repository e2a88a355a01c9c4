package service

import "strings"

// 判题逻辑集中在这里，纯函数，无 I/O，便于独立测试。

// JudgeSelection 选项题判题：所选集合与正确集合完全相等才算对。
// 少选、多选、错选都不对；正确集合为空时只有空选择算对。
func JudgeSelection(selected, correct []uint) bool {
	selSet := make(map[uint]struct{}, len(selected))
	for _, id := range selected {
		selSet[id] = struct{}{}
	}
	// selected 中的重复项会使集合缩小
	if len(selSet) != len(correct) {
		return false
	}
	for _, id := range correct {
		if _, ok := selSet[id]; !ok {
			return false
		}
	}
	return true
}

// JudgeText 文本题判题：去除首尾空白并忽略大小写后精确匹配。
// 标准答案缺失时永远判错。
func JudgeText(candidate string, canonical *string) bool {
	if canonical == nil {
		return false
	}
	return strings.EqualFold(
		strings.TrimSpace(candidate),
		strings.TrimSpace(*canonical),
	)
}
