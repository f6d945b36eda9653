package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"prefsurvey/cmd/prefsurvey/survey"
	"prefsurvey/internal/config"
	"prefsurvey/internal/logging"
	"prefsurvey/internal/pool"
	"prefsurvey/internal/receiver"
	"prefsurvey/internal/session"
)

// loggingOptions maps the logging section onto logging.Options. The survey
// client owns the terminal, so only the server commands log to stderr.
func loggingOptions(c config.LoggingConfig, console, verbose bool) logging.Options {
	opts := logging.Options{
		Level:      c.Level,
		Console:    console,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Categories: c.Categories,
	}
	if c.DebugMode {
		opts.File = c.File
	}
	if verbose {
		opts.Level = "debug"
	}
	return opts
}

// sessionOptions builds the session configuration from the survey section.
func sessionOptions(c *config.Config) session.Options {
	forms := make([]session.Form, len(c.Survey.Forms))
	for i, f := range c.Survey.Forms {
		forms[i] = session.Form{Key: f.Key, Label: f.Label}
	}
	return session.Options{
		Flow: session.Flow{
			ChooseForm: c.Survey.Flow.ChooseForm,
			Confirm:    c.Survey.Flow.Confirm,
			AllowBack:  c.Survey.Flow.AllowBack,
			Delivery:   session.Delivery(c.Survey.Flow.Delivery),
		},
		EmailDomain: c.Survey.EmailDomain,
		Forms:       forms,
		DefaultForm: c.Survey.DefaultForm,
	}
}

// groupSources converts a form's groups into loader sources and the per-group
// sample sizes.
func groupSources(f config.FormConfig) ([]pool.GroupSource, map[string]int) {
	sources := make([]pool.GroupSource, len(f.Groups))
	sizes := make(map[string]int, len(f.Groups))
	for i, g := range f.Groups {
		src := pool.GroupSource{
			Group:          g.Name,
			Location:       g.Source,
			Format:         pool.Format(g.Format),
			QuestionColumn: g.QuestionColumn,
		}
		for j := 0; j < len(g.Models) && j < 2; j++ {
			src.Models[j] = pool.ModelColumn{Name: g.Models[j].Name, Column: g.Models[j].Column}
		}
		sources[i] = src
		if g.Sample > 0 {
			sizes[g.Name] = g.Sample
		}
	}
	return sources, sizes
}

const sourceFetchTimeout = time.Minute

// newPoolFunc returns the loader the survey client calls for a form. Relative
// sources resolve against baseDir. A zero seed draws a fresh random order.
func newPoolFunc(c *config.Config, baseDir string, seed uint64) survey.PoolFunc {
	rnd := pool.NewRandomizer()
	if seed != 0 {
		rnd = pool.NewSeededRandomizer(seed)
	}
	client := &http.Client{Timeout: sourceFetchTimeout}
	loader := pool.NewLoader(pool.NewSourceFetcher(baseDir, client), rnd)
	sampler := pool.NewSampler(rnd)

	return func(ctx context.Context, form string) ([]pool.Item, error) {
		f, ok := c.Form(form)
		if !ok {
			return nil, fmt.Errorf("%w: %q", session.ErrUnknownForm, form)
		}
		sources, sizes := groupSources(f)
		logging.Get(logging.CategoryPool).Info("building pool for form %q from %d groups", form, len(sources))
		return pool.Build(ctx, loader, sampler, sources, sizes)
	}
}

// receiverConfig builds the HTTP server configuration.
func receiverConfig(c *config.Config) receiver.Config {
	return receiver.Config{
		Addr:         c.Receiver.Addr,
		AllowOrigins: c.Receiver.AllowOrigins,
		BodyLimit:    c.Receiver.BodyLimitMB * 1024 * 1024,
		Routing: receiver.SheetRouting{
			ByForm:  c.Receiver.Sheets,
			Default: c.Receiver.DefaultSheet,
		},
	}
}

// configDir is where relative sources are resolved: the directory holding
// the config file.
func configDir(path string) string {
	if path == "" {
		return "."
	}
	return filepath.Dir(path)
}
