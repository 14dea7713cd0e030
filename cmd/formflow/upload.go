package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	formflow "github.com/reoring/formflow"
	g "github.com/reoring/formflow/dsl"
	"github.com/reoring/formflow/form"
	"github.com/reoring/formflow/upload"
	"github.com/reoring/formflow/upload/localfs"
)

var errUploadFailed = errors.New("one or more files were not uploaded")

type uploadReport struct {
	Files []upload.FileInfo `json:"files"`
	Value any               `json:"value,omitempty"`
}

func (a *app) uploadCmd() *cobra.Command {
	var dest, baseURL string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload files into a directory under the configured constraints",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dest == "" {
				dest = a.cfg.Upload.Dir
			}
			if baseURL == "" {
				baseURL = a.cfg.Upload.BaseURL
			}
			progress := cmd.ErrOrStderr()
			if quiet {
				progress = io.Discard
			}
			return a.runUpload(cmd.Context(), cmd.OutOrStdout(), progress, dest, baseURL, args)
		},
	}
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "target directory (default: upload.dir)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "URL prefix of stored files (default: file:// URL of dest)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print progress")
	return cmd
}

func (a *app) runUpload(ctx context.Context, out, progress io.Writer, dest, baseURL string, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	constraints, err := a.cfg.Constraints()
	if err != nil {
		return err
	}
	msgs, err := a.cfg.Messages()
	if err != nil {
		return err
	}
	opts := []localfs.Option{localfs.WithLogger(a.log), localfs.WithConcurrency(a.cfg.Upload.Concurrency)}
	if baseURL != "" {
		opts = append(opts, localfs.WithBaseURL(baseURL))
	}
	transport, err := localfs.New(dest, opts...)
	if err != nil {
		return err
	}

	// the uploaded URLs land in a one-field form, as they would in an app
	k := g.NewKit(msgs)
	var field formflow.AnySchema = k.String().URL()
	if constraints.Multiple {
		field = g.ArrayWith[string](k, k.String().URL()).Min(1)
	}
	session := form.NewSession(k.Object().Field("files", field), formflow.Values{}, form.OnChange, form.WithLogger(a.log))

	u := upload.New(constraints, transport,
		upload.WithLogger(a.log),
		upload.WithConfig(msgs),
		upload.WithBatchSize(a.cfg.Upload.BatchSize),
		upload.WithConcurrency(a.cfg.Upload.Concurrency),
	)
	u.Bind(session.MustBind("files"))

	events, cancel := u.Subscribe(64)
	defer cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range events {
			fmt.Fprintf(progress, "%-9s %-10s %3d%% %s\n", ev.Kind, ev.File.Status, ev.File.Progress, ev.File.File.Name)
		}
	}()

	var files []upload.RawFile
	for _, p := range paths {
		f, err := upload.OSFile(p)
		if err != nil {
			u.Close()
			wg.Wait()
			return err
		}
		files = append(files, f)
	}
	u.Select(files...)
	uploadErr := u.Upload(ctx)

	report := uploadReport{Files: u.Files(), Value: session.Values()["files"]}
	u.Close()
	wg.Wait()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if uploadErr != nil {
		return uploadErr
	}
	for _, f := range report.Files {
		if f.Status != upload.Success {
			return errUploadFailed
		}
	}
	return nil
}
