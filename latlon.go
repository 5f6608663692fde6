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

package agrifield

import (
	"fmt"

	"github.com/ctessum/geom/proj"
)

// LongLatProj is the proj4 definition of the geodetic coordinate system
// used for latitude/longitude attributes and external covariate queries.
const LongLatProj = "+proj=longlat +datum=WGS84"

// AddLatLon fills in each cell's geodetic latitude and longitude by
// reprojecting its center coordinates from the grid's spatial reference.
func (g *Grid) AddLatLon() error {
	longlat, err := proj.Parse(LongLatProj)
	if err != nil {
		return fmt.Errorf("agrifield: parsing longlat projection: %v", err)
	}
	ct, err := g.SR.NewTransform(longlat)
	if err != nil {
		return fmt.Errorf("agrifield: creating grid-to-longlat transform: %v", err)
	}
	for _, c := range g.Cells {
		ctr := c.Center()
		lon, lat, err := ct(ctr.X, ctr.Y)
		if err != nil {
			return fmt.Errorf("agrifield: reprojecting cell %s center: %v", c.AcreID, err)
		}
		c.Lon = lon
		c.Lat = lat
	}
	return nil
}
