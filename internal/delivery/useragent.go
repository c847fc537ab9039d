package delivery

import "regexp"

// UserAgentClass is a coarse device class used in failure reports.
type UserAgentClass string

const (
	UserAgentMobile  UserAgentClass = "mobile"
	UserAgentDesktop UserAgentClass = "desktop"
	UserAgentCLI     UserAgentClass = "cli"
	UserAgentUnknown UserAgentClass = "unknown"
)

var mobileUserAgent = regexp.MustCompile(`(?i)iPhone|iPad|iPod|Android`)

// opensTabs reports whether the new-tab fallback is worth trying for the
// class. Desktop browsers that failed a direct download go straight to a
// link; mobile, unknown and CLI clients get the tab first.
func (c UserAgentClass) opensTabs() bool {
	return c != UserAgentDesktop
}

// ClassifyUserAgent maps a User-Agent header to a device class.
func ClassifyUserAgent(ua string) UserAgentClass {
	switch {
	case ua == "":
		return UserAgentUnknown
	case mobileUserAgent.MatchString(ua):
		return UserAgentMobile
	default:
		return UserAgentDesktop
	}
}
