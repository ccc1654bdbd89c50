package domain

import "math"

const earthRadiusKm = 6371

// DistanceKm returns the great-circle distance between two points using the
// haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Direction returns the 8-point compass bearing from an observer to an event.
func Direction(fromLat, fromLon, toLat, toLon float64) string {
	angle := math.Atan2(toLon-fromLon, toLat-fromLat) * 180 / math.Pi
	index := int(math.Round(math.Mod(angle+360, 360)/45)) % 8
	return compassPoints[index]
}

// PointInPolygon reports whether (lat, lon) lies inside the polygon using
// ray casting. Vertices are (lat, lon) pairs; fewer than 3 vertices never
// contain anything.
func PointInPolygon(lat, lon float64, polygon [][2]float64) bool {
	if len(polygon) < 3 {
		return false
	}
	inside := false
	for i, j := 0, len(polygon)-1; i < len(polygon); j, i = i, i+1 {
		yi, xi := polygon[i][0], polygon[i][1]
		yj, xj := polygon[j][0], polygon[j][1]
		if (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// PolygonCentroid returns the arithmetic mean of the vertices, which is
// close enough to the true centroid for picking a representative point of a
// warning area.
func PolygonCentroid(polygon [][2]float64) (lat, lon float64, ok bool) {
	if len(polygon) == 0 {
		return 0, 0, false
	}
	for _, p := range polygon {
		lat += p[0]
		lon += p[1]
	}
	n := float64(len(polygon))
	return lat / n, lon / n, true
}

// LocalMMI estimates the Modified Mercalli Intensity felt at a site
// distanceKm away from an event of the given magnitude and depth, using an
// intensity-attenuation relation over the hypocentral distance. Depth floors
// to 10 km when missing. The result is clamped to the MMI scale [1, 12].
func LocalMMI(magnitude, depthKm, distanceKm float64) float64 {
	depth := depthKm
	if depth <= 0 {
		depth = 10
	}
	hypocentral := math.Sqrt(distanceKm*distanceKm + depth*depth)

	var mmi float64
	if hypocentral < 1 {
		mmi = math.Min(12, 5.07+1.09*magnitude)
	} else {
		mmi = 5.07 + 1.09*magnitude - 3.69*math.Log10(hypocentral)
	}
	return math.Max(1, math.Min(12, mmi))
}

// MMIDescription translates an MMI value into the conventional felt-shaking
// label.
func MMIDescription(mmi float64) string {
	switch {
	case mmi < 2:
		return "Not felt"
	case mmi < 3:
		return "Weak"
	case mmi < 4:
		return "Light"
	case mmi < 5:
		return "Moderate"
	case mmi < 6:
		return "Strong"
	case mmi < 7:
		return "Very Strong"
	case mmi < 8:
		return "Severe"
	case mmi < 9:
		return "Violent"
	default:
		return "Extreme"
	}
}
