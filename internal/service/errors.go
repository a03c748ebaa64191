// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 服务层的哨兵错误，处理器据此映射 HTTP 状态码。
var (
	// ErrValidation 表示请求缺少必需的范围字段或参数非法，直接拒绝，不重试。
	ErrValidation = errors.New("invalid request")
	// ErrNotFound 表示查询成功执行但没有匹配记录，是正常结果而非故障。
	ErrNotFound = errors.New("no records found")
	// ErrGenerationFailure 表示生成服务失败或超时；摘要侧路径就地恢复，绝不写入半成品。
	ErrGenerationFailure = errors.New("generation provider failed")
)
