// Package datasetagent implements the agent owning
// status = pending_dataset (spec.md §4.4): search for a matching dataset,
// download it, upload it to the object store, and record it.
package datasetagent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"automl-orchestrator/internal/errkind"
)

// Candidate is one dataset search result, grounded on the fields
// original_source/Dataset_Agent/agents/dataset/main.go's search_kaggle_dataset
// reads off the Kaggle API's dataset object (ref, totalBytes, downloadCount).
type Candidate struct {
	Ref         string
	DownloadURL string
	SizeGB      float64
	Downloads   int
}

// DatasetSource abstracts the external dataset-search provider. The wire
// format of any real provider is out of this system's scope (spec.md §1);
// this interface is the seam a fake can stand in for.
type DatasetSource interface {
	Search(ctx context.Context, keywords []string, maxSizeGB float64) ([]Candidate, error)
	Download(ctx context.Context, candidate Candidate, destPath string) error
}

// kaggleSource queries a configurable HTTP search endpoint standing in for
// the Kaggle API (no Go SDK exists; the original shells out to Kaggle's
// Python client). Search strategy mirrors the original: try the full
// keyword phrase, falling back to individual keywords if that yields
// nothing.
type kaggleSource struct {
	searchEndpoint string
	httpClient     *http.Client
}

func NewKaggleSource(searchEndpoint string) DatasetSource {
	return &kaggleSource{
		searchEndpoint: searchEndpoint,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}
}

type kaggleSearchResponse struct {
	Datasets []struct {
		Ref           string `json:"ref"`
		DownloadURL   string `json:"download_url"`
		TotalBytes    int64  `json:"total_bytes"`
		DownloadCount int    `json:"download_count"`
	} `json:"datasets"`
}

func (k *kaggleSource) Search(ctx context.Context, keywords []string, maxSizeGB float64) ([]Candidate, error) {
	queries := [][]string{keywords}
	for _, kw := range keywords {
		queries = append(queries, []string{kw})
	}

	for _, q := range queries {
		if len(q) == 0 {
			continue
		}
		candidates, err := k.searchOnce(ctx, strings.Join(q, " "))
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}
	return nil, nil
}

func (k *kaggleSource) searchOnce(ctx context.Context, query string) ([]Candidate, error) {
	endpoint := fmt.Sprintf("%s?search=%s", k.searchEndpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errkind.Wrap(errkind.Permanent, "build dataset search request", err)
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, errkind.Wrap(errkind.Transient, "dataset search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errkind.New(errkind.Dependency, fmt.Sprintf("dataset search returned status %d", resp.StatusCode))
	}

	var parsed kaggleSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errkind.Wrap(errkind.Dependency, "decode dataset search response", err)
	}

	candidates := make([]Candidate, 0, len(parsed.Datasets))
	for _, d := range parsed.Datasets {
		if d.TotalBytes <= 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			Ref:         d.Ref,
			DownloadURL: d.DownloadURL,
			SizeGB:      float64(d.TotalBytes) / (1024 * 1024 * 1024),
			Downloads:   d.DownloadCount,
		})
	}
	return candidates, nil
}

func (k *kaggleSource) Download(ctx context.Context, candidate Candidate, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate.DownloadURL, nil)
	if err != nil {
		return errkind.Wrap(errkind.Permanent, "build dataset download request", err)
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return errkind.Wrap(errkind.Transient, "dataset download request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errkind.New(errkind.Transient, fmt.Sprintf("dataset download returned status %d", resp.StatusCode))
	}

	out, err := os.Create(destPath)
	if err != nil {
		return errkind.Wrap(errkind.Permanent, "create download destination", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return errkind.Wrap(errkind.Transient, "write downloaded archive", err)
	}
	return nil
}
