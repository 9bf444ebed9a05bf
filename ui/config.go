package ui

import (
	"strings"

	"github.com/ftahirops/xwake/config"
)

// loadDefaultPage returns the page configured to open first.
func loadDefaultPage() Page {
	return pageByName(config.Load().UI.DefaultPage)
}

// saveDefaultPage persists the default page to disk.
func saveDefaultPage(p Page) error {
	cfg := config.Load()
	cfg.UI.DefaultPage = strings.ToLower(pageNames[p])
	return config.Save(cfg)
}

func pageByName(name string) Page {
	for i, n := range pageNames {
		if strings.EqualFold(n, name) {
			return Page(i)
		}
	}
	return PageOverview
}
