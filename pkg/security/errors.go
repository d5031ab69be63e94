package security

import "errors"

// IP 过滤错误
var (
	ErrIPInvalid   = errors.New("security: invalid IP address")
	ErrCIDRInvalid = errors.New("security: invalid CIDR")
	ErrModeInvalid = errors.New("security: invalid mode, must be 'allow' or 'deny'")
	ErrIPListEmpty = errors.New("security: IP list is empty")
)
