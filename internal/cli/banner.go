package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ternarybob/banner"
)

// Version is set at build time with -ldflags "-X finanzas/internal/cli.Version=...".
var Version = "dev"

// BannerInfo is the key/value block printed under the title.
type BannerInfo struct {
	Service string
	Backend string
	Address string
	AMQP    bool
	Zone    string
}

// PrintBanner writes the start-up banner to w.
func PrintBanner(w io.Writer, info BannerInfo) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 56) + banner.ColorReset

	amqp := "disabled"
	if info.AMQP {
		amqp = "enabled"
	}

	fmt.Fprintf(w, "\n%s\n\n", hr)
	fmt.Fprintf(w, "%s  finanzas · %s%s\n\n", textColor, info.Service, banner.ColorReset)
	for _, kv := range [][2]string{
		{"Version", Version},
		{"Backend", info.Backend},
		{"Address", info.Address},
		{"AMQP", amqp},
		{"Time zone", info.Zone},
	} {
		if kv[1] == "" {
			continue
		}
		fmt.Fprintf(w, "%s  %-12s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s\n\n", hr)
}
