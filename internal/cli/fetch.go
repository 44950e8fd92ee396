// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/gogama/inflight"
	"github.com/gogama/inflight/internal/config"
	"github.com/gogama/inflight/request"
	"github.com/gogama/inflight/timeout"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/sync/errgroup"
)

type fetchOptions struct {
	timeout     time.Duration
	sync        bool
	data        string
	contentType string
}

func addFetchFlags(cmd *cobra.Command, opts *fetchOptions) {
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "bound every request by this duration, overriding the configured timeouts")
	cmd.Flags().BoolVar(&opts.sync, "sync", false, "issue blocking requests instead of waiting on completions")
}

func (a *app) newGetCommand() *cobra.Command {
	var opts fetchOptions
	cmd := &cobra.Command{
		Use:   "get URL...",
		Short: "Fetch URLs with GET",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fetch(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, args, opts)
		},
	}
	addFetchFlags(cmd, &opts)
	return cmd
}

func (a *app) newHeadCommand() *cobra.Command {
	var opts fetchOptions
	cmd := &cobra.Command{
		Use:   "head URL...",
		Short: "Fetch URLs with HEAD",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fetch(cmd.Context(), cmd.OutOrStdout(), http.MethodHead, args, opts)
		},
	}
	addFetchFlags(cmd, &opts)
	return cmd
}

func (a *app) newPostCommand() *cobra.Command {
	var opts fetchOptions
	cmd := &cobra.Command{
		Use:   "post URL",
		Short: "Send data to a URL with POST",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fetch(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, args, opts)
		},
	}
	addFetchFlags(cmd, &opts)
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "request body")
	cmd.Flags().StringVar(&opts.contentType, "content-type", "application/octet-stream", "request Content-Type")
	return cmd
}

// errFailed is returned when at least one request did not succeed.
var errFailed = errors.New("one or more requests failed")

func (a *app) fetch(ctx context.Context, out io.Writer, method string, urls []string, opts fetchOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := a.cfg

	client, err := newHTTPClient(cfg.HTTP)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	if cfg.Metrics.Addr != "" {
		stop, err := a.serveMetrics(cfg.Metrics.Addr, reg)
		if err != nil {
			return err
		}
		defer stop()
	}

	t := &inflight.Tracker{
		Transport: &inflight.HTTPTransport{HTTPDoer: client},
		Handlers:  a.handlers(),
		Logger:    a.logger,
		Metrics:   inflight.NewMetrics(reg, "inflight"),
	}
	defer func() {
		_ = t.Close()
		t.CloseIdleConnections()
	}()

	policy := cfg.TimeoutPolicy()
	if opts.timeout > 0 {
		policy = timeout.Fixed(opts.timeout)
	}

	plans := make([]*request.Plan, 0, len(urls))
	for _, u := range urls {
		p, err := request.NewPlanWithContext(ctx, method, u, []byte(opts.data))
		if err != nil {
			return fmt.Errorf("%s: %w", u, err)
		}
		if method == http.MethodPost {
			p.Header.Set("Content-Type", opts.contentType)
		}
		plans = append(plans, p)
	}

	pr := newPrinter(out)
	if opts.sync {
		err = a.fetchBlocking(t, policy, plans, cfg.Concurrency, pr)
	} else {
		err = a.fetchAsync(t, policy, plans, pr)
	}
	if err != nil {
		return err
	}
	if pr.failures() > 0 {
		return errFailed
	}
	return nil
}

func (a *app) fetchAsync(t *inflight.Tracker, policy timeout.Policy, plans []*request.Plan, pr *printer) error {
	var wg sync.WaitGroup
	for _, p := range plans {
		wg.Add(1)
		_, err := t.Issue(p, policy.Timeout(p), func(r *request.Result) {
			defer wg.Done()
			pr.print(r)
		}, func() {
			a.logger.Warnf("%s timed out after %s", p, policy.Timeout(p))
		})
		if err != nil {
			wg.Done()
			a.logger.Errorf("%s", err)
			pr.fail()
		}
	}
	wg.Wait()
	return nil
}

func (a *app) fetchBlocking(t *inflight.Tracker, policy timeout.Policy, plans []*request.Plan, limit int, pr *printer) error {
	var g errgroup.Group
	g.SetLimit(limit)
	for _, p := range plans {
		g.Go(func() error {
			r, err := t.IssueBlocking(p, policy.Timeout(p), func() {
				a.logger.Warnf("%s timed out after %s", p, policy.Timeout(p))
			})
			if r == nil {
				a.logger.Errorf("%s", err)
				pr.fail()
				return nil
			}
			defer r.Close()
			pr.print(r)
			return nil
		})
	}
	return g.Wait()
}

func (a *app) handlers() *inflight.HandlerGroup {
	var g inflight.HandlerGroup
	g.PushBack(inflight.BeforeStart, inflight.HandlerFunc(func(_ inflight.Event, r *request.Result) {
		a.logger.Debugf("starting %s", r.Plan)
	}))
	g.PushBack(inflight.AfterCancel, inflight.HandlerFunc(func(_ inflight.Event, r *request.Result) {
		a.logger.Infof("cancelled %s", r.Plan)
	}))
	g.PushBack(inflight.AfterComplete, inflight.HandlerFunc(func(_ inflight.Event, r *request.Result) {
		a.logger.Debugf("completed %s in %s: %s", r.Plan, r.Duration(), r.Outcome)
	}))
	return &g
}

func (a *app) serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warnf("metrics server: %s", err)
		}
	}()
	a.logger.Infof("serving metrics on http://%s/metrics", ln.Addr())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func newHTTPClient(cfg config.HTTPConfig) (*http.Client, error) {
	txp := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		IdleConnTimeout: cfg.IdleConnTimeout,
		MaxIdleConns:    cfg.MaxIdleConns,
	}
	if cfg.HTTP2 {
		if err := http2.ConfigureTransport(txp); err != nil {
			return nil, fmt.Errorf("failed to configure HTTP/2: %w", err)
		}
	}
	return &http.Client{Transport: txp}, nil
}

// printer writes one line per result. Results may arrive from several
// goroutines in blocking mode.
type printer struct {
	mu     sync.Mutex
	out    io.Writer
	failed int

	ok   func(a ...interface{}) string
	bad  func(a ...interface{}) string
	late func(a ...interface{}) string
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:  out,
		ok:   color.New(color.FgGreen).SprintFunc(),
		bad:  color.New(color.FgRed).SprintFunc(),
		late: color.New(color.FgYellow).SprintFunc(),
	}
}

func (p *printer) print(r *request.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var outcome string
	switch r.Outcome {
	case request.Success:
		outcome = p.ok(r.Outcome)
	case request.TimedOut, request.Cancelled:
		outcome = p.late(r.Outcome)
		p.failed++
	default:
		outcome = p.bad(r.Outcome)
		p.failed++
	}
	status := "-"
	if code := r.StatusCode(); code != 0 {
		status = fmt.Sprint(code)
	}
	fmt.Fprintf(p.out, "%s %s %s %s\n", status, outcome, r.Duration().Round(time.Millisecond), r.Plan.URL)
}

func (p *printer) fail() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed++
}

func (p *printer) failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}
