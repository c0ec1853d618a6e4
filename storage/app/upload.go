// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"golang.org/x/cachebench/benchjson"
	"golang.org/x/cachebench/storage/db"
)

// upload is the handler for the /upload endpoint. It processes a
// multipart/form-data POST whose parts are, in order: a "schema"
// field declaring the record schema version, an optional "dryrun"
// field, and one or more "file" parts each holding a report
// document.
func (a *App) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "/upload must be called as a POST request", http.StatusMethodNotAllowed)
		return
	}

	if a.Auth != nil {
		if _, err := a.Auth(w, r); err != nil {
			if err != ErrResponseWritten {
				log.Printf("upload auth: %v", err)
				http.Error(w, err.Error(), http.StatusUnauthorized)
			}
			return
		}
	}

	// We use r.MultipartReader instead of r.ParseForm to avoid
	// storing uploaded data in memory.
	mr, err := r.MultipartReader()
	if err != nil {
		log.Printf("upload: %v", err)
		http.Error(w, err.Error(), 500)
		return
	}

	result, err := a.processUpload(ctx, mr)
	if err != nil {
		log.Printf("upload: %v", err)
		status := 500
		if uerr, ok := err.(*uploadError); ok {
			status = uerr.status
		}
		http.Error(w, err.Error(), status)
		return
	}

	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("upload: %v", err)
		http.Error(w, err.Error(), 500)
		return
	}
}

// uploadStatus is the response to an /upload POST served as JSON.
type uploadStatus struct {
	// UploadID is the upload ID assigned to the upload.
	UploadID string `json:"uploadid"`
	// FileIDs is the list of file IDs assigned to the files in the upload.
	FileIDs []string `json:"fileids"`
	// ViewURL is a server-supplied URL to view the results.
	ViewURL string `json:"viewurl,omitempty"`
	// DryRun is set when the upload was validated but not stored.
	DryRun bool `json:"dryrun,omitempty"`
}

// uploadError carries an HTTP status for client-caused failures.
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

func errBadRequest(format string, args ...interface{}) error {
	return &uploadError{http.StatusBadRequest, fmt.Sprintf(format, args...)}
}

// processUpload takes the parts of a multipart.Reader, validates the
// report documents against the declared schema version, and (unless
// dry-run) stores them in the filesystem and indexes their records
// in the database.
func (a *App) processUpload(ctx context.Context, mr *multipart.Reader) (*uploadStatus, error) {
	var status uploadStatus
	var upload *db.Upload
	schema := ""
	dryRun := false
	fileNum := 0

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch name := p.FormName(); name {
		case "schema":
			v, err := readField(p)
			if err != nil {
				return nil, err
			}
			if v != benchjson.SchemaV3 {
				return nil, errBadRequest("unsupported schema version %q, want %q", v, benchjson.SchemaV3)
			}
			schema = v
		case "dryrun":
			v, err := readField(p)
			if err != nil {
				return nil, err
			}
			dryRun = v == "1" || v == "true"
			status.DryRun = dryRun
		case "file":
			if schema == "" {
				return nil, errBadRequest("file part received before schema field")
			}
			data, err := io.ReadAll(p)
			if err != nil {
				return nil, err
			}
			recs, err := benchjson.ReadAll(bytes.NewReader(data), p.FileName())
			if err != nil {
				return nil, errBadRequest("invalid report document %q: %v", p.FileName(), err)
			}

			if dryRun {
				status.FileIDs = append(status.FileIDs, fmt.Sprintf("dryrun/%d", fileNum))
				fileNum++
				continue
			}

			if upload == nil {
				upload, err = a.DB.NewUpload(ctx)
				if err != nil {
					return nil, err
				}
				status.UploadID = upload.ID
			}

			// Store the raw document, then index its records.
			// An invalid document was rejected above, so a
			// failure past this point is a server error.
			meta := fileMetadata(upload.ID, fileNum)
			fw, err := a.FS.NewWriter(ctx, fmt.Sprintf("uploads/%s.json", meta["fileid"]), meta)
			if err != nil {
				return nil, err
			}
			if _, err := fw.Write(data); err != nil {
				fw.CloseWithError(err)
				return nil, err
			}
			if err := fw.Close(); err != nil {
				return nil, err
			}

			for i := range recs {
				if err := upload.InsertRecord(ctx, &recs[i]); err != nil {
					return nil, err
				}
			}

			status.FileIDs = append(status.FileIDs, meta["fileid"])
			fileNum++
		default:
			return nil, errBadRequest("unexpected field %q", name)
		}
	}

	if schema == "" {
		return nil, errBadRequest("upload is missing the schema field")
	}
	if fileNum == 0 {
		return nil, errBadRequest("upload contains no files")
	}
	if status.UploadID != "" && a.ViewURLBase != "" {
		status.ViewURL = a.ViewURLBase + status.UploadID
	}
	return &status, nil
}

func readField(p *multipart.Part) (string, error) {
	v, err := io.ReadAll(io.LimitReader(p, 1024))
	return string(v), err
}

// fileMetadata returns the extra metadata fields associated with an
// uploaded file.
func fileMetadata(uploadID string, filenum int) map[string]string {
	return map[string]string{
		"uploadid": uploadID,
		"fileid":   fmt.Sprintf("%s/%d", uploadID, filenum),
		"schema":   benchjson.SchemaV3,
	}
}
