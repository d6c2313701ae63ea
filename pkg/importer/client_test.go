package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmit_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/stores/store-9/imports", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "true", r.FormValue("createCategories"))
		require.Equal(t, "false", r.FormValue("updateExisting"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "catalog.csv", header.Filename)

		w.WriteHeader(http.StatusCreated)
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"jobId":   "abc123",
		}))
	}))
	defer srv.Close()

	client := New(srv.URL, "test-token")
	outcome := client.Submit(context.Background(), "store-9", "catalog.csv",
		strings.NewReader("name,price\nCamiseta,49.90\n"),
		ImportConfig{CreateCategories: true})

	require.True(t, outcome.Success)
	require.Equal(t, "abc123", outcome.JobID)
	require.Empty(t, outcome.Error)
}

func TestSubmit_ServerRejection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"success":false,"error":"A spreadsheet file is required"}`)
	}))
	defer srv.Close()

	client := New(srv.URL, "test-token")
	outcome := client.Submit(context.Background(), "store-9", "catalog.csv",
		strings.NewReader(""), ImportConfig{})

	require.False(t, outcome.Success)
	require.Empty(t, outcome.JobID)
	require.Contains(t, outcome.Error, "spreadsheet file is required")
}

func TestSubmit_TransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from now on

	client := New(srv.URL, "test-token")
	outcome := client.Submit(context.Background(), "store-9", "catalog.csv",
		strings.NewReader("name\n"), ImportConfig{})

	require.False(t, outcome.Success)
	require.Contains(t, outcome.Error, "upload failed")
}

func TestListImports_ReturnsJobsNewestFirst(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/imports", r.URL.Path)
		require.Equal(t, "store-9", r.URL.Query().Get("storeId"))

		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"jobs": []map[string]any{
				{"id": "b", "status": "completed", "filename": "nov.csv"},
				{"id": "a", "status": "failed", "filename": "out.csv"},
			},
		}))
	}))
	defer srv.Close()

	client := New(srv.URL, "test-token")
	outcome := client.ListImports(context.Background(), "store-9")

	require.True(t, outcome.Success)
	require.Len(t, outcome.Jobs, 2)
	require.Equal(t, "b", outcome.Jobs[0].ID)
	require.Equal(t, "a", outcome.Jobs[1].ID)
}

func TestListImports_FailureIsAValue(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"success":false,"error":"listing unavailable"}`)
	}))
	defer srv.Close()

	client := New(srv.URL, "test-token")
	outcome := client.ListImports(context.Background(), "")

	require.False(t, outcome.Success)
	require.Contains(t, outcome.Error, "listing unavailable")
	require.Empty(t, outcome.Jobs)
}

func TestCancel_ReportsGuardOutcome(t *testing.T) {
	t.Parallel()

	cancelled := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/imports/job-1/cancel", r.URL.Path)

		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"cancelled": cancelled,
		}))
	}))
	defer srv.Close()

	client := New(srv.URL, "test-token")

	ok, err := client.Cancel(context.Background(), "job-1")
	require.NoError(t, err)
	require.True(t, ok)

	// Second attempt: the job already left pending; still no error
	cancelled = false
	ok, err = client.Cancel(context.Background(), "job-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDownloadTemplate_WritesFile(t *testing.T) {
	t.Parallel()

	const template = "name,sku,price\nCamiseta,SKU-1,49.90\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/imports/template", r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, template)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "template.csv")
	client := New(srv.URL, "test-token")

	require.NoError(t, client.DownloadTemplate(context.Background(), dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, template, string(data))
}
