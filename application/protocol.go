package application

import "fmt"

// Protocol is the Tuya wire dialect spoken by a device.
type Protocol int

const (
	V31 Protocol = iota
	V33
	V34
)

func (p Protocol) String() string {
	switch p {
	case V31:
		return "3.1"
	case V33:
		return "3.3"
	case V34:
		return "3.4"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParseProtocol maps the configured numeric protocol (31, 33, 34) to a
// Protocol value.
func ParseProtocol(n int) (Protocol, error) {
	switch n {
	case 31:
		return V31, nil
	case 33:
		return V33, nil
	case 34:
		return V34, nil
	default:
		return 0, fmt.Errorf("%w: unsupported protocol %d", ErrConfig, n)
	}
}
