// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package storage contains a client for the benchmark-report storage
// server.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/oauth2"

	"golang.org/x/cachebench/benchjson"
)

// A Client issues uploads to a storage server.
type Client struct {
	// BaseURL is the base URL of the storage server.
	BaseURL string

	// TokenSource supplies the authentication token attached to
	// every upload. It may be nil for servers that do not require
	// authentication.
	TokenSource oauth2.TokenSource

	// SchemaVersion is the schema version tag declared to the
	// server. The zero value means benchjson.SchemaV3.
	SchemaVersion string

	// DryRun asks the server to validate the upload without
	// storing it.
	DryRun bool

	// HTTPClient is the HTTP client for sending requests. If nil,
	// an oauth2 client over http.DefaultClient is used.
	HTTPClient *http.Client
}

// UploadStatus is the server's response to a completed upload.
type UploadStatus struct {
	// UploadID is the upload ID assigned to the upload.
	UploadID string `json:"uploadid"`
	// FileIDs is the list of file IDs assigned to the files in the upload.
	FileIDs []string `json:"fileids"`
	// ViewURL is a server-supplied URL to view the results.
	ViewURL string `json:"viewurl"`
	// DryRun reports whether the server treated the upload as a dry run.
	DryRun bool `json:"dryrun"`
}

func (c *Client) httpClient(ctx context.Context) *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	if c.TokenSource != nil {
		return oauth2.NewClient(ctx, c.TokenSource)
	}
	return http.DefaultClient
}

func (c *Client) schema() string {
	if c.SchemaVersion == "" {
		return benchjson.SchemaV3
	}
	return c.SchemaVersion
}

// UploadDirectory uploads every report document (*.json) in dir as a
// single upload. It is the client half of the pipeline contract: the
// converter writes documents into a well-known directory and
// UploadDirectory ships whatever it finds there.
func (c *Client) UploadDirectory(ctx context.Context, dir string) (*UploadStatus, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return c.Upload(ctx, files)
}

// Upload uploads the named report documents as a single upload.
func (c *Client) Upload(ctx context.Context, files []string) (*UploadStatus, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to upload")
	}

	pr, pw := io.Pipe()
	mpw := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()
		defer mpw.Close()

		mpw.WriteField("schema", c.schema())
		if c.DryRun {
			mpw.WriteField("dryrun", "1")
		}
		for _, name := range files {
			if err := writeOneFile(mpw, name); err != nil {
				// Abandoning the pipe causes the POST
				// below to fail with this error.
				pw.CloseWithError(err)
				return
			}
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mpw.FormDataContentType())

	resp, err := c.httpClient(ctx).Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("upload failed: %v\n%s", resp.Status, body)
	}

	status := &UploadStatus{}
	if err := json.NewDecoder(resp.Body).Decode(status); err != nil {
		return nil, fmt.Errorf("cannot parse upload response: %v", err)
	}
	return status, nil
}

// writeOneFile reads name and writes it to mpw.
func writeOneFile(mpw *multipart.Writer, name string) error {
	w, err := mpw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return err
	}
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return err
	}
	return nil
}
