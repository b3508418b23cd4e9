// Package migrations 随二进制发布 signet 的数据库结构
package migrations

import "embed"

// FS 包含按版本号排序的 up/down 迁移脚本
//
//go:embed *.sql
var FS embed.FS
