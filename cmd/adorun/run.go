package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/adorun"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the configured operation once per input item",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		doc, err := loadConfig(v)
		if err != nil {
			return err
		}
		if err := doc.SetupLogging(); err != nil {
			return err
		}
		inputs, err := readItems(cmd.InOrStdin(), v.GetString("items"))
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		out, err := runBatch(ctx, doc, inputs)
		if err != nil {
			return err
		}
		return writeOutputs(cmd.OutOrStdout(), v.GetString("output"), out)
	},
}

// runBatch renders the items, runs them and records the outcome in the
// journal when a store is configured. The run error wins over a journal error.
func runBatch(ctx context.Context, doc *ConfigDoc, inputs []map[string]any) ([]adorun.Output, error) {
	logger := adorun.GetLogger().WithComponent("run")
	key, err := adorun.ParseKey(doc.Resource, doc.Operation)
	if err != nil {
		return nil, err
	}
	opts, err := doc.Options()
	if err != nil {
		return nil, err
	}
	env, err := adorun.BuildEnv(doc.Env)
	if err != nil {
		return nil, err
	}
	items, err := adorun.RenderItems(doc.Parameters, env, inputs)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	out, runErr := adorun.Run(ctx, opts, key, items)
	finished := time.Now()

	if doc.Store.Enabled() {
		if err := record(ctx, doc.Store, adorun.JournalEntry(key, len(items), out, runErr, started, finished)); err != nil {
			logger.Warn("failed to record run history", "error", err)
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	return out, nil
}

func record(ctx context.Context, cfg adorun.StoreConfig, run adorun.StoreRun) error {
	// The journal is written even when the batch was cancelled.
	ctx = context.WithoutCancel(ctx)
	st, err := adorun.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	_, err = st.RecordRun(ctx, run)
	return err
}

// readItems loads the input objects. No source yields a single empty item so
// that the operation runs once.
func readItems(stdin io.Reader, src string) ([]map[string]any, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return []map[string]any{{}}, nil
	}
	var data []byte
	var err error
	if src == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		// #nosec G304 -- items path is provided intentionally by the user/CI
		data, err = os.ReadFile(filepath.Clean(src))
	}
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	return parseItems(data)
}

// parseItems accepts a JSON array of objects or a stream of objects (JSON Lines).
func parseItems(data []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("items: no input")
	}
	var raw []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		for {
			var m json.RawMessage
			if err := dec.Decode(&m); err == io.EOF {
				break
			} else if err != nil {
				return nil, fmt.Errorf("items: entry %d: %w", len(raw), err)
			}
			raw = append(raw, m)
		}
	}
	out := make([]map[string]any, 0, len(raw))
	for i, r := range raw {
		var obj map[string]any
		if err := json.Unmarshal(r, &obj); err != nil || obj == nil {
			return nil, fmt.Errorf("items: entry %d is not a JSON object", i)
		}
		out = append(out, obj)
	}
	return out, nil
}

func writeOutputs(stdout io.Writer, path string, out []adorun.Output) error {
	if out == nil {
		out = []adorun.Output{}
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if path = strings.TrimSpace(path); path != "" {
		return os.WriteFile(filepath.Clean(path), b, 0o600)
	}
	_, err = stdout.Write(b)
	return err
}
