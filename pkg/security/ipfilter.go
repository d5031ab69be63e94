package security

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/lk2023060901/logstream/pkg/config"
)

// IPFilterConfig IP 过滤配置
type IPFilterConfig struct {
	// 模式：allow（名单内放行）或 deny（名单内拒绝）
	Mode string `mapstructure:"mode" json:"mode"`

	// IP 列表（支持单个 IP 和 CIDR）
	// 如：["192.168.1.100", "10.0.0.0/8", "172.16.0.0/12"]
	IPs []string `mapstructure:"ips" json:"ips"`

	// 是否信任代理头
	TrustProxy bool `mapstructure:"trust_proxy" json:"trust_proxy"`

	// 代理头列表（按优先级顺序尝试）
	// 如：["X-Forwarded-For", "X-Real-IP", "CF-Connecting-IP"]
	ProxyHeaders []string `mapstructure:"proxy_headers" json:"proxy_headers"`
}

// IP 过滤模式
const (
	IPFilterModeAllow = "allow"
	IPFilterModeDeny  = "deny"
)

// DefaultIPFilterConfig 返回默认 IP 过滤配置
func DefaultIPFilterConfig() *IPFilterConfig {
	return &IPFilterConfig{
		Mode:       IPFilterModeAllow,
		TrustProxy: false,
	}
}

// IPFilter IP 过滤器
// 连接准入前按远程地址做名单检查，规则解析一次、判定多次
type IPFilter struct {
	config  *IPFilterConfig
	ipNets  []*net.IPNet
	ipAddrs []net.IP
	mu      sync.RWMutex
}

// NewIPFilter 创建 IP 过滤器
func NewIPFilter(cfg *IPFilterConfig) (*IPFilter, error) {
	merged, err := config.MergeConfig(DefaultIPFilterConfig(), cfg)
	if err != nil {
		return nil, err
	}

	if merged.Mode != IPFilterModeAllow && merged.Mode != IPFilterModeDeny {
		return nil, ErrModeInvalid
	}
	if len(merged.IPs) == 0 {
		return nil, ErrIPListEmpty
	}

	f := &IPFilter{config: merged}
	for _, ipStr := range merged.IPs {
		if err := f.addRule(ipStr); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// addRule 解析并追加一条规则，调用方持锁或在构造期调用
func (f *IPFilter) addRule(ipStr string) error {
	ipStr = strings.TrimSpace(ipStr)
	if ipStr == "" {
		return nil
	}

	if strings.Contains(ipStr, "/") {
		_, ipNet, err := net.ParseCIDR(ipStr)
		if err != nil {
			return ErrCIDRInvalid
		}
		f.ipNets = append(f.ipNets, ipNet)
		return nil
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ErrIPInvalid
	}
	f.ipAddrs = append(f.ipAddrs, ip)
	return nil
}

// Allow 检查 IP 是否允许接入
// 无法解析的 IP 一律拒绝
func (f *IPFilter) Allow(ip string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	matched := f.match(parsed)
	if f.config.Mode == IPFilterModeAllow {
		return matched
	}
	return !matched
}

// AllowRequest 从请求中提取客户端 IP 并检查
func (f *IPFilter) AllowRequest(r *http.Request) bool {
	return f.Allow(f.ClientIP(r))
}

// ClientIP 提取客户端 IP
// 信任代理头时按配置顺序尝试，否则取连接远程地址
func (f *IPFilter) ClientIP(r *http.Request) string {
	if f.config.TrustProxy {
		for _, header := range f.config.ProxyHeaders {
			if val := r.Header.Get(header); val != "" {
				return firstIP(val)
			}
		}
	}
	return ipFromAddr(r.RemoteAddr)
}

// AddIP 动态添加规则
func (f *IPFilter) AddIP(ipStr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addRule(ipStr)
}

// RemoveIP 动态移除规则
func (f *IPFilter) RemoveIP(ipStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ipStr = strings.TrimSpace(ipStr)
	if strings.Contains(ipStr, "/") {
		_, target, err := net.ParseCIDR(ipStr)
		if err != nil {
			return
		}
		for i, ipNet := range f.ipNets {
			if ipNet.String() == target.String() {
				f.ipNets = append(f.ipNets[:i], f.ipNets[i+1:]...)
				return
			}
		}
		return
	}

	target := net.ParseIP(ipStr)
	if target == nil {
		return
	}
	for i, ip := range f.ipAddrs {
		if ip.Equal(target) {
			f.ipAddrs = append(f.ipAddrs[:i], f.ipAddrs[i+1:]...)
			return
		}
	}
}

// Rules 返回当前规则列表
func (f *IPFilter) Rules() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rules := make([]string, 0, len(f.ipAddrs)+len(f.ipNets))
	for _, ip := range f.ipAddrs {
		rules = append(rules, ip.String())
	}
	for _, ipNet := range f.ipNets {
		rules = append(rules, ipNet.String())
	}
	return rules
}

// match 检查 IP 是否命中任一规则
func (f *IPFilter) match(ip net.IP) bool {
	for _, addr := range f.ipAddrs {
		if addr.Equal(ip) {
			return true
		}
	}
	for _, ipNet := range f.ipNets {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// ipFromAddr 从 "host:port" 形式的地址提取 IP
func ipFromAddr(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// firstIP 从逗号分隔的 IP 列表中取第一个
func firstIP(list string) string {
	if idx := strings.Index(list, ","); idx != -1 {
		list = list[:idx]
	}
	return strings.TrimSpace(list)
}
