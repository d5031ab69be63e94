package config

import (
	"fmt"
	"reflect"
)

// MergeConfig 合并配置
// - 如果 dst 和 src 都为 nil，返回错误
// - 如果 dst 为 nil，返回 src；如果 src 为 nil，返回 dst
// - 否则 src 中的非零值覆盖 dst 中的对应字段，返回合并后的 dst
//
// 各组件的构造函数统一使用该函数合并默认配置和用户配置，
// 用户只需要填写想要覆盖的字段。零值有业务含义的字段
// （如“显式关闭”）用标量指针声明，非 nil 指针整体覆盖默认值。
func MergeConfig[T any](dst, src *T) (*T, error) {
	if dst == nil && src == nil {
		return nil, fmt.Errorf("both dst and src cannot be nil")
	}
	if dst == nil {
		return src, nil
	}
	if src == nil {
		return dst, nil
	}

	if err := mergeValue(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem()); err != nil {
		return nil, err
	}
	return dst, nil
}

// mergeValue 递归合并两个 reflect.Value
func mergeValue(dst, src reflect.Value) error {
	// src 是零值时不覆盖
	if !src.IsValid() || src.IsZero() {
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		srcType := src.Type()
		for i := 0; i < src.NumField(); i++ {
			if !srcType.Field(i).IsExported() {
				continue
			}
			if err := mergeValue(dst.Field(i), src.Field(i)); err != nil {
				return fmt.Errorf("field %s: %w", srcType.Field(i).Name, err)
			}
		}
		return nil

	case reflect.Map:
		// 按 key 合并，src 中已有的 key 覆盖 dst
		if dst.IsNil() {
			dst.Set(reflect.MakeMapWithSize(dst.Type(), src.Len()))
		}
		iter := src.MapRange()
		for iter.Next() {
			dst.SetMapIndex(iter.Key(), iter.Value())
		}
		return nil

	case reflect.Slice:
		// 切片整体替换，不做逐元素合并
		if dst.CanSet() {
			dst.Set(src)
		}
		return nil

	case reflect.Ptr:
		if dst.IsNil() {
			if dst.CanSet() {
				dst.Set(src)
			}
			return nil
		}
		// 指向结构体时逐字段合并；指向标量时整体替换。
		// 标量指针的语义就是“显式设置”，指向的零值必须生效
		if dst.Elem().Kind() == reflect.Struct {
			return mergeValue(dst.Elem(), src.Elem())
		}
		if dst.CanSet() {
			dst.Set(src)
		}
		return nil

	default:
		// 基本类型直接覆盖
		if dst.CanSet() {
			dst.Set(src)
		}
		return nil
	}
}
