package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner. Banner output targets stderr
// so the MCP stdio framing on stdout stays untouched.
func PrintBanner() {
	banner.PrintSimple("Ordino", GetVersion())
}
