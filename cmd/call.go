package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/audioquery/internal/formatter"
	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/permissions"
	"github.com/desertthunder/audioquery/internal/plugin"
	"github.com/desertthunder/audioquery/internal/shared"
	"github.com/urfave/cli/v3"
)

const localCallTimeout = 30 * time.Second

// Call invokes one plugin method, in process or against the running server, and prints the reply.
func (r *Runner) Call(ctx context.Context, cmd *cli.Command) error {
	call, err := buildCall(cmd.String("method"), cmd.String("source"), cmd.String("args"), cmd.StringSlice("arg"))
	if err != nil {
		return err
	}

	var resp plugin.Response
	if cmd.Bool("remote") {
		resp, err = r.client.Call(ctx, call)
	} else {
		resp, err = r.callLocal(ctx, call)
	}
	if err != nil {
		return err
	}

	if resp.NotImplemented {
		return fmt.Errorf("%w: %s", shared.ErrNotImplemented, call.Method)
	}
	if resp.Failed() {
		return resp.Err()
	}

	if out := cmd.String("output"); out != "" {
		return r.writeImage(resp.Value, out)
	}
	return r.writeResult(resp.Value, cmd.String("format"), cmd.Bool("pretty"))
}

// callLocal attaches a plugin to the media store for the duration of one call.
//
// Nobody can answer a held request in process, so the "prompt" policy is treated as "deny".
func (r *Runner) callLocal(ctx context.Context, call models.Call) (plugin.Response, error) {
	store, err := r.openStore()
	if err != nil {
		return plugin.Response{}, err
	}

	pc := r.config.Permissions
	if pc.OnRequest == shared.PolicyPrompt {
		r.logger.Debug("no operator for local calls, denying ungranted permissions")
		pc.OnRequest = shared.PolicyDeny
	}
	perms := permissions.NewManager(pc, r.logger)

	p := plugin.New(store, perms, r.config, r.logger)
	if err := p.Attach(ctx); err != nil {
		return plugin.Response{}, err
	}
	defer p.Detach()

	ctx, cancel := context.WithTimeout(ctx, localCallTimeout)
	defer cancel()
	return p.Call(ctx, call)
}

// buildCall assembles a call from the command line. JSON arguments are applied first and
// key=value pairs override them. Keys naming id lists take comma separated values.
func buildCall(method, source, argsJSON string, pairs []string) (models.Call, error) {
	args := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return models.Call{}, fmt.Errorf("%w: --args is not a JSON object: %v", shared.ErrInvalidFlag, err)
		}
	}

	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return models.Call{}, fmt.Errorf("%w: --arg %q is not key=value", shared.ErrInvalidFlag, pair)
		}
		if isListKey(k) {
			args[k] = splitList(v)
		} else {
			args[k] = v
		}
	}

	if source != "" {
		args[models.ArgSource] = source
	}
	return models.NewCall(method, args), nil
}

func isListKey(k string) bool {
	return strings.HasSuffix(k, "_ids") || k == models.ArgMemberIDs
}

func splitList(v string) []string {
	out := []string{}
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (r *Runner) writeResult(value any, format string, pretty bool) error {
	if format == "" || format == "json" {
		return r.writeJSON(value, pretty)
	}

	rows := formatter.Rows(value)
	data, err := formatter.Export(rows, formatter.Columns(rows), format)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// writeImage saves the "image" of an artwork reply. Remote replies carry it base64 encoded.
func (r *Runner) writeImage(value any, path string) error {
	rows := formatter.Rows(value)
	if len(rows) != 1 {
		return fmt.Errorf("%w: reply is not an artwork record", shared.ErrInvalidInput)
	}

	var data []byte
	switch img := rows[0][models.FieldImage].(type) {
	case []byte:
		data = img
	case string:
		decoded, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			return fmt.Errorf("%w: image is not base64: %v", shared.ErrInvalidInput, err)
		}
		data = decoded
	case nil:
		r.writePlain("No artwork available\n")
		return nil
	default:
		return fmt.Errorf("%w: unexpected image value %T", shared.ErrInvalidInput, img)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	r.writePlain("✓ Artwork written to %s (%d bytes)\n", path, len(data))
	return nil
}
