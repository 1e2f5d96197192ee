package browse

import (
	"time"

	"mldash/internal/config"
)

// Options tunes a browsing session
type Options struct {
	WindowSize       int  // rows added per load
	PageSize         int  // rows per page in search mode
	DefaultColumns   int  // columns visible before any toggle
	MaxPageLinks     int  // page-number buttons offered at once
	LegacyCSVQuoting bool // write CSV fields without escaping embedded quotes
	Now              func() time.Time
}

// DefaultOptions returns the dashboard defaults
func DefaultOptions() Options {
	return Options{
		WindowSize:     10,
		PageSize:       10,
		DefaultColumns: 5,
		MaxPageLinks:   5,
		Now:            time.Now,
	}
}

// OptionsFromConfig maps browse configuration onto session options
func OptionsFromConfig(cfg config.BrowseConfig) Options {
	opts := DefaultOptions()
	opts.WindowSize = cfg.WindowSize
	opts.PageSize = cfg.PageSize
	opts.DefaultColumns = cfg.DefaultColumns
	opts.LegacyCSVQuoting = cfg.LegacyCSVQuoting
	if cfg.MaxVisiblePageLink > 0 {
		opts.MaxPageLinks = cfg.MaxVisiblePageLink
	}
	return opts.withDefaults()
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WindowSize <= 0 {
		o.WindowSize = d.WindowSize
	}
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	if o.DefaultColumns <= 0 {
		o.DefaultColumns = d.DefaultColumns
	}
	if o.MaxPageLinks <= 0 {
		o.MaxPageLinks = d.MaxPageLinks
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}
