package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/lukman83/mhe-storefront/internal/cardsync"
)

// SystemBrowser opens URLs in the user's default browser.
type SystemBrowser struct{}

func (SystemBrowser) Navigate(url string) error {
	launcher.Open(url)
	return nil
}

// ChromeBrowser launches a visible Chromium window and leaves it open on
// the requested page. Bin overrides the browser binary; ROD_BROWSER_BIN is
// used otherwise.
type ChromeBrowser struct {
	Bin     string
	Timeout time.Duration
}

func (c ChromeBrowser) Navigate(pageURL string) error {
	l := launcher.New().Headless(false).Leakless(false).Logger(io.Discard)
	bin := c.Bin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		browser.Close()
		return fmt.Errorf("open page: %w", err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return fmt.Errorf("wait for %s: %w", pageURL, err)
	}
	return nil
}

// NewNavigator picks a navigator by name: "system" (default) or "chrome".
func NewNavigator(name string) (cardsync.Navigator, error) {
	switch name {
	case "", "system":
		return SystemBrowser{}, nil
	case "chrome":
		return ChromeBrowser{}, nil
	default:
		return nil, fmt.Errorf("unknown browser %q (want system or chrome)", name)
	}
}
