package oauth

import (
	"github.com/skratchdot/open-golang/open"
)

// OpenURL asks the desktop to open url in the default browser.
func OpenURL(url string) error {
	return open.Start(url)
}
