package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DukeRupert/folio/internal/delivery"
	"github.com/DukeRupert/folio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"name":"Jane Doe","sections":[{"heading":"Experience"}]}`), 0o644))
	doc, err := loadDocument(good)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", doc.Name)
	require.Len(t, doc.Sections, 1)

	missingName := filepath.Join(dir, "noname.json")
	require.NoError(t, os.WriteFile(missingName, []byte(`{"summary":"x"}`), 0o644))
	_, err = loadDocument(missingName)
	assert.ErrorContains(t, err, "invalid document")

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{`), 0o644))
	_, err = loadDocument(broken)
	assert.ErrorContains(t, err, "failed to parse document")

	_, err = loadDocument(filepath.Join(dir, "absent.json"))
	assert.ErrorContains(t, err, "failed to open document")
}

func TestParseAccountID(t *testing.T) {
	_, err := parseAccountID("not-a-uuid")
	assert.Error(t, err)

	id, err := parseAccountID("6f1c2b3a-4d5e-4f60-8a7b-9c0d1e2f3a4b")
	require.NoError(t, err)
	assert.Equal(t, "6f1c2b3a-4d5e-4f60-8a7b-9c0d1e2f3a4b", id.String())
}

func TestPrintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "refusal shows kind",
			err:  domain.Refused("download", domain.KindQuotaExceeded),
			want: "(" + string(domain.KindQuotaExceeded) + ")",
		},
		{
			name: "plain error printed as is",
			err:  errors.New("database ping failed"),
			want: "Error: database ping failed\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printError(&buf, tt.err)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	printProgress(&buf, delivery.Progress{Stage: delivery.StageTriggering, Method: delivery.MethodDirect, Attempt: 2, MaxRetries: 3})
	printProgress(&buf, delivery.Progress{Stage: delivery.StageTriggering, Method: delivery.MethodLink, Attempt: 1, MaxRetries: 1})

	assert.Equal(t, "  triggering via direct (attempt 2/3)\n  triggering via link\n", buf.String())
}

func TestPrintNotice_WithoutLink(t *testing.T) {
	var buf bytes.Buffer
	printNotice(&buf, delivery.Notice{Level: delivery.NoticeSuccess, Message: "Saved"})
	assert.Equal(t, "Saved\n", buf.String())
}
