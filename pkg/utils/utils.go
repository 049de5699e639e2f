// Package utils 通用小工具，不依赖其他包
package utils

// Coalesce 返回第一个非零值，全部为零值时返回零值
func Coalesce[T comparable](vs ...T) T {
	var zero T
	for _, v := range vs {
		if v != zero {
			return v
		}
	}
	return zero
}
