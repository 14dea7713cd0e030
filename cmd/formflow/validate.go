package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	formflow "github.com/reoring/formflow"
	g "github.com/reoring/formflow/dsl"
	"github.com/reoring/formflow/form"
)

var errInvalid = errors.New("form is invalid")

func (a *app) validateCmd() *cobra.Command {
	var formName, format string
	cmd := &cobra.Command{
		Use:   "validate [values-file|-]",
		Short: "Validate a values file against a built-in form",
		Long: `Reads a JSON or YAML object of field values, validates it against the
selected form and prints the form result as JSON. Exits non-zero when the
form is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			build, ok := builtinForms[formName]
			if !ok {
				return fmt.Errorf("unknown form %q (available: %s)", formName, strings.Join(formNames(), ", "))
			}
			values, err := readValues(cmd.InOrStdin(), args[0], format)
			if err != nil {
				return err
			}
			msgs, err := a.cfg.Messages()
			if err != nil {
				return err
			}
			mode, reValidate, err := a.cfg.Modes()
			if err != nil {
				return err
			}
			return a.runValidate(cmd.Context(), cmd.OutOrStdout(), build(g.NewKit(msgs)), values, mode, reValidate)
		},
	}
	cmd.Flags().StringVarP(&formName, "form", "f", "signup", "form to validate against")
	cmd.Flags().StringVar(&format, "format", "", "input format: json or yaml (default: from extension)")
	return cmd
}

func (a *app) runValidate(ctx context.Context, out io.Writer, schema form.Schema, values formflow.Values, mode, reValidate form.Mode) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var rejected map[string]string
	s := form.NewSession(schema, values, mode,
		form.WithLogger(a.log),
		form.WithReValidateMode(reValidate),
		form.WithErrorHandler(func(errs map[string]string) { rejected = errs }),
	)
	var submitted formflow.Values
	if err := s.Submit(ctx, func(_ context.Context, v formflow.Values) error {
		submitted = v
		return nil
	}); err != nil {
		return err
	}

	res := form.Result{Values: submitted, IsValid: rejected == nil, Errors: rejected}
	if res.Values == nil {
		res.Values = s.Values()
	}
	if res.Errors == nil {
		res.Errors = map[string]string{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	a.log.Debug("validate done", zap.Bool("valid", res.IsValid), zap.Int("errors", len(res.Errors)))
	if !res.IsValid {
		return errInvalid
	}
	return nil
}

func readValues(stdin io.Reader, path, format string) (formflow.Values, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "json"
		}
	}
	switch format {
	case "json":
		return formflow.DecodeValuesJSON(data)
	case "yaml":
		return formflow.DecodeValuesYAML(data)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}
