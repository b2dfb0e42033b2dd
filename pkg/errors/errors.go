package errors

import "errors"

// ErrNoRowsAffected 条件更新未命中任何行：前置条件已不成立（余额不足、状态已变更等）
var ErrNoRowsAffected = errors.New("条件更新未命中任何行")
