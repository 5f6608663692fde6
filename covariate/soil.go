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

package covariate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ctessum/requestcache"
	log "github.com/sirupsen/logrus"

	"github.com/agrimodel/agrifield"
)

// DefaultSDAURL is the USDA Soil Data Access tabular query endpoint.
const DefaultSDAURL = "https://SDMDataAccess.sc.egov.usda.gov/Tabular/post.rest"

// DefaultSoilRateLimit is the pause between successive Soil Data Access
// queries, keeping per-acre annotation under the service's request-rate
// guidance.
const DefaultSoilRateLimit = 500 * time.Millisecond

// MapUnit is a SSURGO soil map unit. The zero value means the service had
// no soil survey information for the queried location.
type MapUnit struct {
	Musym  string // map unit symbol, e.g. "55B"
	Muname string // map unit name, e.g. "Port silt loam, 1 to 3 percent slopes"
}

// SoilClient queries USDA SSURGO soil map units through the Soil Data
// Access SQL service. The zero value is ready to use. Responses are cached
// in memory, so re-annotating a grid does not re-query unchanged locations.
type SoilClient struct {
	// URL is the API endpoint; DefaultSDAURL if empty.
	URL string

	// Client is the HTTP client to use; a 30-second-timeout client if nil.
	Client *http.Client

	// MaxRetries is the number of retries after a failed request; 3 if
	// zero. Negative disables retries.
	MaxRetries int

	// RateLimit is the pause between uncached queries during grid
	// annotation; DefaultSoilRateLimit if zero. Negative disables it.
	RateLimit time.Duration

	cache     *requestcache.Cache
	cacheOnce sync.Once
}

type soilRequest struct {
	lat, lon float64
}

type sdaResponse struct {
	Table [][]string `json:"Table"`
}

// MapUnitAt returns the soil map unit containing the given WGS84 location.
func (c *SoilClient) MapUnitAt(ctx context.Context, lat, lon float64) (MapUnit, error) {
	c.cacheOnce.Do(func() {
		c.cache = requestcache.NewCache(c.fetch, 1,
			requestcache.Deduplicate(), requestcache.Memory(10000))
	})
	req := c.cache.NewRequest(ctx,
		soilRequest{lat: lat, lon: lon},
		fmt.Sprintf("soil_%g_%g", lat, lon),
	)
	result, err := req.Result()
	if err != nil {
		return MapUnit{}, err
	}
	return result.(MapUnit), nil
}

func (c *SoilClient) fetch(ctx context.Context, request interface{}) (interface{}, error) {
	r := request.(soilRequest)
	apiURL := c.URL
	if apiURL == "" {
		apiURL = DefaultSDAURL
	}
	sql := fmt.Sprintf("SELECT TOP 1 mu.musym, mu.muname "+
		"FROM mapunit mu "+
		"WHERE mu.mukey IN ("+
		"SELECT mukey FROM SDA_Get_Mukey_from_intersection_with_WktWgs84('point (%g %g)')"+
		")", r.lon, r.lat)

	body, err := fetchWithRetry(ctx, httpClient(c.Client), func() (*http.Request, error) {
		form := url.Values{}
		form.Set("QUERY", sql)
		form.Set("FORMAT", "JSON")
		req, err := http.NewRequest("POST", apiURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, retryCount(c.MaxRetries))
	if err != nil {
		return nil, fmt.Errorf("covariate: querying soil map unit: %v", err)
	}

	var resp sdaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("covariate: parsing soil response: %v", err)
	}
	if len(resp.Table) == 0 || len(resp.Table[0]) < 2 {
		// No soil survey coverage at this location.
		return MapUnit{}, nil
	}
	return MapUnit{Musym: resp.Table[0][0], Muname: resp.Table[0][1]}, nil
}

// AnnotateGrid fills in the soil map unit of every cell in the grid,
// querying the Soil Data Access service at each cell's latitude/longitude.
// Cells whose queries fail keep empty soil attributes rather than aborting
// the annotation; the first error is returned after all cells have been
// attempted. AddLatLon must have been called on the grid first.
func (c *SoilClient) AnnotateGrid(ctx context.Context, g *agrifield.Grid) error {
	rateLimit := c.RateLimit
	if rateLimit == 0 {
		rateLimit = DefaultSoilRateLimit
	}
	var firstErr error
	for i, cell := range g.Cells {
		mu, err := c.MapUnitAt(ctx, cell.Lat, cell.Lon)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithFields(log.Fields{
				"acre_id": cell.AcreID,
				"err":     err,
			}).Warn("soil query failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		cell.SoilMusym = mu.Musym
		cell.SoilMuname = mu.Muname
		if (i+1)%50 == 0 || i+1 == len(g.Cells) {
			log.WithFields(log.Fields{
				"done":  i + 1,
				"total": len(g.Cells),
			}).Info("annotating soil map units")
		}
		if rateLimit > 0 && i+1 < len(g.Cells) {
			select {
			case <-time.After(rateLimit):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return firstErr
}
