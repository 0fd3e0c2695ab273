package errors

import "errors"

// 跨层通用错误，业务模块通过 fmt.Errorf("%w") 包装后向上传递
var (
	// ErrValidation 数据校验失败：在录入边界拒绝，聚合引擎不做修复
	ErrValidation = errors.New("数据校验失败")
	// ErrNotFound 请求的实体不存在
	ErrNotFound = errors.New("记录不存在")
)
