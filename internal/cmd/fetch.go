package cmd

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/xiaocaoooo/screenshot-lambda/internal/browser"
	"github.com/xiaocaoooo/screenshot-lambda/internal/scrape"
)

type fetchOptions struct {
	outputType  string
	selector    string
	waitFor     string
	waitTimeout float64
	viewport    string
	out         string
}

func newFetchCmd(a *app) *cobra.Command {
	opts := &fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Fetch one page locally and print the JSON response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// 标准输出只留给 JSON 结果
			a.logOut = cmd.ErrOrStderr()
			a.v.SetDefault("log_format", "console")
			return a.runFetch(cmd, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.outputType, "output-type", "text", "text, screenshot or both")
	f.StringVar(&opts.selector, "selector", "", "CSS selector, or XPath starting with //")
	f.StringVar(&opts.waitFor, "wait-for", "", "CSS selector to wait for")
	f.Float64Var(&opts.waitTimeout, "wait-timeout", 0, "seconds to wait for --wait-for")
	f.StringVar(&opts.viewport, "viewport", "", "viewport as WIDTHxHEIGHT, e.g. 1280x720")
	f.StringVarP(&opts.out, "out", "o", "", "write the decoded screenshot to this file")
	return cmd
}

func parseViewport(s string) (*browser.Viewport, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return nil, fmt.Errorf("viewport must be WIDTHxHEIGHT, got %q", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return nil, fmt.Errorf("invalid viewport width %q", w)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return nil, fmt.Errorf("invalid viewport height %q", h)
	}
	return &browser.Viewport{Width: width, Height: height}, nil
}

func (a *app) runFetch(cmd *cobra.Command, url string, opts *fetchOptions) error {
	viewport, err := parseViewport(opts.viewport)
	if err != nil {
		return err
	}
	cfg, log, err := a.load()
	if err != nil {
		return err
	}
	svc, err := a.newService(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}

	resp := svc.Fetch(cmd.Context(), scrape.Request{
		URL:         url,
		OutputType:  scrape.OutputType(opts.outputType),
		Selector:    opts.selector,
		WaitFor:     opts.waitFor,
		WaitTimeout: opts.waitTimeout,
		Viewport:    viewport,
	})

	if opts.out != "" && resp.Screenshot != "" {
		data, err := base64.StdEncoding.DecodeString(resp.Screenshot)
		if err != nil {
			return fmt.Errorf("failed to decode screenshot: %w", err)
		}
		if err := afero.WriteFile(a.fs, opts.out, data, 0o644); err != nil {
			return fmt.Errorf("failed to write screenshot: %w", err)
		}
		log.Info().Str("file", opts.out).Int("size", len(data)).Msg("screenshot written")
		// 已写入文件，不再打印 base64
		resp.Screenshot = ""
	}

	body, err := resp.Marshal()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))

	if !resp.Success {
		return errors.New(resp.Error)
	}
	return nil
}
