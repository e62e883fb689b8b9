package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/MimeLyc/dataset-translator/internal/apperr"
	"github.com/MimeLyc/dataset-translator/pkg/log"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultDatasetsServerURL = "https://datasets-server.huggingface.co"

	// the datasets-server caps a /rows page at 100 rows
	hubPageSize = 100
)

// HubLoader pages through the Hugging Face datasets-server. Every split of the
// first config becomes a fold.
type HubLoader struct {
	client   *resty.Client
	pageSize int
}

type hubSplitsResponse struct {
	Splits []struct {
		Dataset string `json:"dataset"`
		Config  string `json:"config"`
		Split   string `json:"split"`
	} `json:"splits"`
}

type hubRowsResponse struct {
	Rows []struct {
		RowIdx int    `json:"row_idx"`
		Row    Record `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

func NewHubLoader(baseURL, token string) *HubLoader {
	if baseURL == "" {
		baseURL = DefaultDatasetsServerURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		})
	if token != "" {
		client.SetAuthToken(token)
	}
	return &HubLoader{client: client, pageSize: hubPageSize}
}

func (l *HubLoader) Load(ctx context.Context, name string) (*Dataset, error) {
	var splits hubSplitsResponse
	if err := l.get(ctx, "/splits", map[string]string{"dataset": name}, &splits); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrDataset, "list dataset splits").WithContext("dataset", name)
	}
	if len(splits.Splits) == 0 {
		return nil, apperr.New(apperr.ErrDataset, "dataset has no splits").WithContext("dataset", name)
	}

	config := splits.Splits[0].Config
	ds := &Dataset{Name: name}
	for _, s := range splits.Splits {
		if s.Config != config {
			continue
		}
		records, err := l.loadSplit(ctx, name, config, s.Split)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrDataset, "load split").
				WithContext("dataset", name).
				WithContext("split", s.Split)
		}
		log.Info("Loaded %d records for split %s of %s", len(records), s.Split, name)
		ds.Folds = append(ds.Folds, Fold{Name: s.Split, Records: records})
	}
	return ds, nil
}

func (l *HubLoader) loadSplit(ctx context.Context, dataset, config, split string) ([]Record, error) {
	var records []Record
	for offset := 0; ; offset += l.pageSize {
		var page hubRowsResponse
		err := l.get(ctx, "/rows", map[string]string{
			"dataset": dataset,
			"config":  config,
			"split":   split,
			"offset":  strconv.Itoa(offset),
			"length":  strconv.Itoa(l.pageSize),
		}, &page)
		if err != nil {
			return nil, err
		}
		for _, row := range page.Rows {
			records = append(records, row.Row)
		}
		if len(page.Rows) == 0 || offset+len(page.Rows) >= page.NumRowsTotal {
			return records, nil
		}
	}
}

func (l *HubLoader) get(ctx context.Context, path string, query map[string]string, out any) error {
	resp, err := l.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("request %s failed with status %d: %s", path, resp.StatusCode(), resp.String())
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
