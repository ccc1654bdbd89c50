package domain

// RegionKey identifies a named bounding-box region.
type RegionKey string

const (
	RegionUSA          RegionKey = "USA"
	RegionUSAAlaska    RegionKey = "USA_ALASKA"
	RegionUSAHawaii    RegionKey = "USA_HAWAII"
	RegionCanada       RegionKey = "CANADA"
	RegionNewZealand   RegionKey = "NEW_ZEALAND"
	RegionAustralia    RegionKey = "AUSTRALIA"
	RegionEurope       RegionKey = "EUROPE"
	RegionJapan        RegionKey = "JAPAN"
	RegionArgentina    RegionKey = "ARGENTINA"
	RegionBrazil       RegionKey = "BRAZIL"
	RegionChile        RegionKey = "CHILE"
	RegionSouthAmerica RegionKey = "SOUTH_AMERICA"
)

// regionBounds holds [minLat, maxLat, minLon, maxLon] per region. Boxes
// overlap on purpose; a point may belong to several regions at once.
var regionBounds = map[RegionKey][4]float64{
	RegionUSA:          {24, 50, -125, -66},
	RegionUSAAlaska:    {51, 72, -180, -130},
	RegionUSAHawaii:    {18, 23, -161, -154},
	RegionCanada:       {41, 84, -141, -52},
	RegionNewZealand:   {-48, -34, 166, 179},
	RegionAustralia:    {-45, -10, 112, 154},
	RegionEurope:       {35, 72, -25, 45},
	RegionJapan:        {24, 46, 122, 154},
	RegionArgentina:    {-56, -21, -74, -53},
	RegionBrazil:       {-34, 6, -74, -34},
	RegionChile:        {-56, -17, -76, -66},
	RegionSouthAmerica: {-56, 13, -82, -34},
}

// RegionsFor returns every region whose bounding box contains the point.
func RegionsFor(lat, lon float64) map[RegionKey]bool {
	regions := make(map[RegionKey]bool)
	for key, b := range regionBounds {
		if lat >= b[0] && lat <= b[1] && lon >= b[2] && lon <= b[3] {
			regions[key] = true
		}
	}
	return regions
}

// InRegion tests membership in a single named region.
func InRegion(lat, lon float64, key RegionKey) bool {
	b, ok := regionBounds[key]
	if !ok {
		return false
	}
	return lat >= b[0] && lat <= b[1] && lon >= b[2] && lon <= b[3]
}

// InUSA covers the mainland plus the Alaska and Hawaii boxes.
func InUSA(lat, lon float64) bool {
	return InRegion(lat, lon, RegionUSA) ||
		InRegion(lat, lon, RegionUSAAlaska) ||
		InRegion(lat, lon, RegionUSAHawaii)
}

// InHurricaneZone tests the Atlantic (incl. Caribbean and Gulf), eastern
// Pacific, and western Pacific tropical cyclone basins.
func InHurricaneZone(lat, lon float64) bool {
	atlantic := lat >= 8 && lat <= 45 && lon >= -100 && lon <= -15
	eastPacific := lat >= 8 && lat <= 30 && lon >= -140 && lon <= -100
	westPacific := lat >= 5 && lat <= 40 && lon >= 100 && lon <= 180
	return atlantic || eastPacific || westPacific
}

// FilterLocations returns the subset of locations matching the predicate,
// preserving order.
func FilterLocations(locations []Location, match func(lat, lon float64) bool) []Location {
	var out []Location
	for _, loc := range locations {
		if match(loc.Lat, loc.Lon) {
			out = append(out, loc)
		}
	}
	return out
}
