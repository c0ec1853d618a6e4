// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package artifact

import "testing"

func TestKeyPrefix(t *testing.T) {
	tests := []struct {
		repository string
		runID      string
		runAttempt int
		want       string
	}{
		{"golang/go", "8675309", 1, "golang/go/8675309/1/artifact"},
		{"golang/tools", "1", 3, "golang/tools/1/3/artifact"},
	}
	for _, test := range tests {
		if got := KeyPrefix(test.repository, test.runID, test.runAttempt); got != test.want {
			t.Errorf("KeyPrefix(%q, %q, %d) = %q, want %q", test.repository, test.runID, test.runAttempt, got, test.want)
		}
	}
}

func TestObjectMetadata(t *testing.T) {
	meta := objectMetadata("batch-1", 14)
	if meta["retention-days"] != "14" {
		t.Errorf("retention-days = %q, want 14", meta["retention-days"])
	}
	if meta["batch"] != "batch-1" {
		t.Errorf("batch = %q, want batch-1", meta["batch"])
	}
}

func TestRetentionDefault(t *testing.T) {
	u := &Uploader{}
	if got := u.retentionDays(); got != DefaultRetentionDays {
		t.Errorf("retentionDays() = %d, want %d", got, DefaultRetentionDays)
	}
	u.RetentionDays = 30
	if got := u.retentionDays(); got != 30 {
		t.Errorf("retentionDays() = %d, want 30", got)
	}
}
