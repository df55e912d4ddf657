// Package errors 跨层共享的哨兵错误
package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：组卷规则已被其他请求修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
