package bdd

import "github.com/cucumber/godog"

// Feature: 通知徽章
//   In order to know what happened while I was away
//   As a logged in member
//   I want the unread badge to stay in sync with the server

//   Background:
//     Given "bob" 已登入並取得 Token "tokenB"

//   Scenario: 收到訊息產生未讀通知
//     When "ann" 發送訊息給離線的 "bob"
//     Then "bob" 的未讀數應該是 1

//   Scenario: 標記已讀後徽章歸零
//     Given "bob" 有 1 筆未讀通知
//     When "bob" 將通知標記為已讀
//     Then "bob" 的未讀數應該是 0

//   Scenario: 登出清空
//     Given "bob" 有 3 筆未讀通知
//     When "bob" 登出
//     Then 未讀數立即歸零且不發出網路請求

func sendToOffline(arg1, arg2 string) error {
	return godog.ErrPending
}

func unreadCountIs(arg1 string, arg2 int) error {
	return godog.ErrPending
}

func hasUnreadNotifications(arg1 string, arg2 int) error {
	return godog.ErrPending
}

func markNotificationRead(arg1 string) error {
	return godog.ErrPending
}

func logsOut(arg1 string) error {
	return godog.ErrPending
}

func badgeResetsWithoutNetwork() error {
	return godog.ErrPending
}

func InitializeNotificationScenario(ctx *godog.ScenarioContext) {
	ctx.Step(`^"([^"]*)" 發送訊息給離線的 "([^"]*)"$`, sendToOffline)
	ctx.Step(`^"([^"]*)" 的未讀數應該是 (\d+)$`, unreadCountIs)
	ctx.Step(`^"([^"]*)" 有 (\d+) 筆未讀通知$`, hasUnreadNotifications)
	ctx.Step(`^"([^"]*)" 將通知標記為已讀$`, markNotificationRead)
	ctx.Step(`^"([^"]*)" 登出$`, logsOut)
	ctx.Step(`^未讀數立即歸零且不發出網路請求$`, badgeResetsWithoutNetwork)
}
