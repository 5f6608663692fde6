/*
Copyright © 2026 the AgriField authors.
This file is part of AgriField.

AgriField is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

AgriField is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with AgriField.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package covariate retrieves external field and acre attributes—growing
// season rainfall and SSURGO soil map units—from public web APIs.
package covariate

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ctessum/requestcache"
	log "github.com/sirupsen/logrus"
)

// DefaultOpenMeteoURL is the Open-Meteo ERA5 reanalysis archive endpoint.
const DefaultOpenMeteoURL = "https://archive-api.open-meteo.com/v1/era5"

const defaultMaxRetries = 3

// httpClient returns c if it is non-nil, otherwise a client with a request
// timeout suitable for the covariate APIs.
func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// retryCount maps a client's MaxRetries field to the retry count to use:
// the default for the zero value, none when negative.
func retryCount(maxRetries int) uint64 {
	if maxRetries == 0 {
		return defaultMaxRetries
	}
	if maxRetries < 0 {
		return 0
	}
	return uint64(maxRetries)
}

// fetchWithRetry performs an HTTP request with exponential-backoff retries,
// returning the response body. Requests are rebuilt for each attempt.
func fetchWithRetry(ctx context.Context, client *http.Client, newRequest func() (*http.Request, error), maxRetries uint64) ([]byte, error) {
	var body []byte
	err := backoff.RetryNotify(
		func() error {
			req, err := newRequest()
			if err != nil {
				return backoff.Permanent(err)
			}
			resp, err := client.Do(req.WithContext(ctx))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, err = ioutil.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("covariate: HTTP %d from %s", resp.StatusCode, req.URL.Host)
			}
			return nil
		},
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx),
		func(err error, d time.Duration) {
			log.WithFields(log.Fields{
				"err":   err,
				"retry": d,
			}).Warn("covariate request failed; retrying")
		},
	)
	return body, err
}

// RainfallClient fetches growing-season precipitation totals from the
// Open-Meteo ERA5 archive. The zero value is ready to use. Responses are
// cached in memory and identical in-flight requests are deduplicated, so
// one field's rainfall is only fetched once no matter how many grids
// reference it.
type RainfallClient struct {
	// URL is the API endpoint; DefaultOpenMeteoURL if empty.
	URL string

	// Client is the HTTP client to use; a 30-second-timeout client if nil.
	Client *http.Client

	// MaxRetries is the number of retries after a failed request; 3 if
	// zero. Negative disables retries.
	MaxRetries int

	cache     *requestcache.Cache
	cacheOnce sync.Once
}

type rainfallRequest struct {
	lat, lon   float64
	start, end string
}

type openMeteoResponse struct {
	Daily struct {
		// Pointers: the API reports days with no data as JSON nulls.
		PrecipitationSum []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// SeasonRainfallIn returns the total precipitation in inches between the
// start and end dates (formatted YYYY-MM-DD) at the given location. Days
// the reanalysis has no data for are skipped.
func (c *RainfallClient) SeasonRainfallIn(ctx context.Context, lat, lon float64, start, end string) (float64, error) {
	c.cacheOnce.Do(func() {
		c.cache = requestcache.NewCache(c.fetch, 1,
			requestcache.Deduplicate(), requestcache.Memory(100))
	})
	req := c.cache.NewRequest(ctx,
		rainfallRequest{lat: lat, lon: lon, start: start, end: end},
		fmt.Sprintf("rain_%g_%g_%s_%s", lat, lon, start, end),
	)
	result, err := req.Result()
	if err != nil {
		return math.NaN(), err
	}
	return result.(float64), nil
}

func (c *RainfallClient) fetch(ctx context.Context, request interface{}) (interface{}, error) {
	r := request.(rainfallRequest)
	apiURL := c.URL
	if apiURL == "" {
		apiURL = DefaultOpenMeteoURL
	}
	log.WithFields(log.Fields{
		"lat":   r.lat,
		"lon":   r.lon,
		"start": r.start,
		"end":   r.end,
	}).Info("requesting rainfall")

	body, err := fetchWithRetry(ctx, httpClient(c.Client), func() (*http.Request, error) {
		v := url.Values{}
		v.Set("latitude", strconv.FormatFloat(r.lat, 'f', -1, 64))
		v.Set("longitude", strconv.FormatFloat(r.lon, 'f', -1, 64))
		v.Set("start_date", r.start)
		v.Set("end_date", r.end)
		v.Set("daily", "precipitation_sum")
		v.Set("timezone", "auto")
		return http.NewRequest("GET", apiURL+"?"+v.Encode(), nil)
	}, retryCount(c.MaxRetries))
	if err != nil {
		return nil, fmt.Errorf("covariate: fetching rainfall: %v", err)
	}

	var resp openMeteoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("covariate: parsing rainfall response: %v", err)
	}
	if resp.Daily.PrecipitationSum == nil {
		return nil, fmt.Errorf("covariate: no precipitation_sum in rainfall response")
	}
	var totalMM float64
	for _, day := range resp.Daily.PrecipitationSum {
		if day == nil || math.IsNaN(*day) {
			continue
		}
		totalMM += *day
	}
	totalIn := totalMM / 25.4 // mm to inches
	log.WithFields(log.Fields{
		"start":       r.start,
		"end":         r.end,
		"rainfall_in": totalIn,
	}).Info("fetched rainfall")
	return totalIn, nil
}
