package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loykin/adorun"
	"github.com/loykin/adorun/internal/auth"
	"github.com/loykin/adorun/internal/constants"
	"github.com/loykin/adorun/internal/httpc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Poll the server until it answers authenticated requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		if err := doc.SetupLogging(); err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return doWait(ctx, doc)
	},
}

// waitParams holds the parsed and normalized parameters for waiting
type waitParams struct {
	url      string
	expected int
	timeout  time.Duration
	interval time.Duration
}

func parseWaitConfig(server string, wc WaitConfig) (waitParams, error) {
	server = strings.TrimSuffix(strings.TrimSpace(server), "/")
	if server == "" {
		return waitParams{}, errors.New("wait: server is required")
	}
	timeout, err := parseDuration("wait.timeout", wc.Timeout, constants.DefaultWaitTimeout)
	if err != nil {
		return waitParams{}, err
	}
	interval, err := parseDuration("wait.interval", wc.Interval, constants.DefaultWaitInterval)
	if err != nil {
		return waitParams{}, err
	}
	expected := wc.Status
	if expected == 0 {
		expected = constants.DefaultWaitStatus
	}
	return waitParams{url: server + constants.WaitProbePath, expected: expected, timeout: timeout, interval: interval}, nil
}

// performPolling repeatedly polls the endpoint until success, timeout or cancellation.
func performPolling(ctx context.Context, hcfg *httpc.Httpc, method auth.Method, p waitParams) error {
	logger := adorun.GetLogger().WithComponent("wait")
	deadline := time.Now().Add(p.timeout)
	client := hcfg.New()
	var lastStatus int
	var lastErr error

	for attempt := 1; ; attempt++ {
		req := client.R().SetContext(ctx)
		if method != nil {
			value, err := method.Acquire(auth.WithTLSConfig(ctx, hcfg.TlsConfig))
			if err != nil {
				return fmt.Errorf("wait: %w", err)
			}
			req.SetHeader("Authorization", value)
		}
		resp, err := req.Get(p.url)
		lastErr = err
		if resp != nil {
			lastStatus = resp.StatusCode()
		}
		if err == nil && lastStatus == p.expected {
			logger.Info("server is ready", "url", p.url, "attempts", attempt)
			return nil
		}
		logger.Debug("server not ready", "url", p.url, "status", lastStatus, "error", err, "attempt", attempt)

		if time.Now().Add(p.interval).After(deadline) {
			if lastErr != nil {
				return fmt.Errorf("wait: timeout waiting for %s to return %d: %w", p.url, p.expected, lastErr)
			}
			return fmt.Errorf("wait: timeout waiting for %s to return %d (last=%d)", p.url, p.expected, lastStatus)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait: %w", ctx.Err())
		case <-time.After(p.interval):
		}
	}
}

// doWait polls {server}/_apis/connectionData with the configured credentials.
func doWait(ctx context.Context, doc *ConfigDoc) error {
	p, err := parseWaitConfig(doc.Server, doc.Wait)
	if err != nil {
		return err
	}
	client, err := doc.ClientOptions()
	if err != nil {
		return err
	}
	method, err := doc.AuthMethod()
	if err != nil {
		return err
	}
	if method == nil {
		if cred := doc.Credential(); cred.PersonalAccessToken != "" {
			adorun.RegisterSecret(cred.PersonalAccessToken)
			method = auth.PATConfig{Token: cred.PersonalAccessToken}
		}
	}
	hcfg := &httpc.Httpc{
		Timeout:   client.Timeout,
		TlsConfig: httpc.TLSConfig(client.InsecureSkipVerify, client.MinTLSVersion, client.MaxTLSVersion),
	}
	return performPolling(ctx, hcfg, method, p)
}
