package core

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message），可选包装底层原因（Err）
//   - 支持错误检查函数（IsXXX），内部使用 errors.As，因此经 fmt.Errorf("%w") 包装后仍可识别
//
// 使用场景：
//   - 数据源缺失：SOURCE_NOT_FOUND
//   - 特征编码：ENCODING
//   - 模型拟合：FIT / SCHEMA_MISMATCH
//   - 查询：NOT_FOUND
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "FIT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "feature", "model"）
	Err     error  // 底层原因（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound       = "NOT_FOUND"        // 查询的客户不存在
	ErrorCodeSourceNotFound = "SOURCE_NOT_FOUND" // 原始数据表缺失
	ErrorCodeEncoding       = "ENCODING"         // 未知类别 / 缺失或非数值特征
	ErrorCodeFit            = "FIT"              // 优化器未收敛
	ErrorCodeSchemaMismatch = "SCHEMA_MISMATCH"  // 预测时设计矩阵与拟合时不一致
	ErrorCodeInvalidInput   = "INVALID_INPUT"    // 输入无效
	ErrorCodeKeyNotFound    = "KEY_NOT_FOUND"    // 存储层 key 不存在
)

// 模块名称常量
const (
	ModuleStore    = "store"
	ModuleFeature  = "feature"
	ModuleModel    = "model"
	ModulePipeline = "pipeline"
	ModuleQuery    = "query"
)

// ErrCustomerNotFound 表示查询的 CustomerId 不在评分表中。
// 消息文本被下游（dashboard、测试）直接依赖，不可修改。
var ErrCustomerNotFound = NewDomainError(ModuleQuery, ErrorCodeNotFound, "CustomerId not found in dataset.")

// NewSourceNotFoundError 原始数据表文件不存在
func NewSourceNotFoundError(path string, cause error) *DomainError {
	return &DomainError{
		Module:  ModuleStore,
		Code:    ErrorCodeSourceNotFound,
		Message: fmt.Sprintf("source table not found: %s", path),
		Err:     cause,
	}
}

// NewEncodingError 特征编码失败
func NewEncodingError(format string, args ...any) *DomainError {
	return NewDomainError(ModuleFeature, ErrorCodeEncoding, "encoding: "+fmt.Sprintf(format, args...))
}

// NewFitError 模型拟合失败（不收敛、奇异、完全可分等）
func NewFitError(message string, cause error) *DomainError {
	return &DomainError{
		Module:  ModuleModel,
		Code:    ErrorCodeFit,
		Message: "fit: " + message,
		Err:     cause,
	}
}

// NewSchemaMismatchError 预测时的列与拟合时的列不一致
func NewSchemaMismatchError(want, got []string) *DomainError {
	return NewDomainError(ModuleModel, ErrorCodeSchemaMismatch, fmt.Sprintf(
		"schema mismatch: model fitted on [%s], got [%s]",
		strings.Join(want, ", "), strings.Join(got, ", "),
	))
}

// NewInvalidInputError 调用方输入无效
func NewInvalidInputError(module, format string, args ...any) *DomainError {
	return NewDomainError(module, ErrorCodeInvalidInput, fmt.Sprintf(format, args...))
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsSourceNotFound 检查错误是否为 SOURCE_NOT_FOUND
func IsSourceNotFound(err error) bool { return hasCode(err, ErrorCodeSourceNotFound) }

// IsEncodingError 检查错误是否为 ENCODING
func IsEncodingError(err error) bool { return hasCode(err, ErrorCodeEncoding) }

// IsFitError 检查错误是否为 FIT
func IsFitError(err error) bool { return hasCode(err, ErrorCodeFit) }

// IsSchemaMismatch 检查错误是否为 SCHEMA_MISMATCH
func IsSchemaMismatch(err error) bool { return hasCode(err, ErrorCodeSchemaMismatch) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }
