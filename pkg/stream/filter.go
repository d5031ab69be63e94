// pkg/stream/filter.go
package stream

import "slices"

// Filter 会话过滤器
// 空字段表示该维度不限制；各维度条件相互独立，按 AND 组合
type Filter struct {
	// Levels 接受的日志等级
	Levels []string `json:"levels,omitempty" mapstructure:"levels"`
	// Services 接受的服务名
	Services []string `json:"services,omitempty" mapstructure:"services"`
	// MinTimestamp 最小事件时间戳（epoch 毫秒）
	MinTimestamp int64 `json:"min_timestamp,omitempty" mapstructure:"min_timestamp"`
}

// Matches 判断事件是否通过过滤器
// nil 过滤器不限制任何事件
func (f *Filter) Matches(ev *Event) bool {
	if f == nil {
		return true
	}
	if len(f.Levels) > 0 && !slices.Contains(f.Levels, ev.Level) {
		return false
	}
	if len(f.Services) > 0 && !slices.Contains(f.Services, ev.Service) {
		return false
	}
	if f.MinTimestamp > 0 && ev.Timestamp < f.MinTimestamp {
		return false
	}
	return true
}

// Merge 字段级合并，返回新过滤器
// patch 中出现的字段整体替换对应维度，缺省字段保留原值
func (f *Filter) Merge(patch *Filter) *Filter {
	merged := f.Clone()
	if merged == nil {
		merged = &Filter{}
	}
	if patch == nil {
		return merged
	}
	if patch.Levels != nil {
		merged.Levels = slices.Clone(patch.Levels)
	}
	if patch.Services != nil {
		merged.Services = slices.Clone(patch.Services)
	}
	if patch.MinTimestamp != 0 {
		merged.MinTimestamp = patch.MinTimestamp
	}
	return merged
}

// Clone 深拷贝过滤器
func (f *Filter) Clone() *Filter {
	if f == nil {
		return nil
	}
	return &Filter{
		Levels:       slices.Clone(f.Levels),
		Services:     slices.Clone(f.Services),
		MinTimestamp: f.MinTimestamp,
	}
}
