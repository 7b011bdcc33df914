// Package repository 封装全部数据访问.
// 二维码的软删除过滤只在这里实现: 除了导出接口外, 所有读取都会排除已删除的二维码.
package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在、已删除或不属于当前用户
var ErrNotFound = errors.New("记录不存在")

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
