// Package domain models hazard alerts and the leaf math used to score them.
//
// # Sources and vocabularies
//
// Alerts are reconciled from heterogeneous feeds: point-feature GeoJSON
// (USGS, GeoNet), CAP-style RSS/Atom entries with free-text severity
// vocabularies (MetService, MeteoAlarm, NAAD, INMET, MeteoChile), CAP XML
// detail documents carrying explicit polygons (SMN Argentina), and the NHC
// active-storm list. Each feed's severity vocabulary is normalized to the
// canonical CAP scale (Extreme, Severe, Moderate, Minor) before mapping to
// an alert level.
//
// # Local intensity
//
// Earthquake relevance is physical, not just radial: the magnitude is
// attenuated to a site-local Modified Mercalli Intensity over the
// hypocentral distance,
//
//	MMI = 5.07 + 1.09*M - 3.69*log10(sqrt(d² + depth²))
//
// clamped to [1, 12], with a 10 km depth floor when the source omits depth.
// MMI >= 6 means structural damage is possible at the user's location;
// MMI >= 4 is widely felt. M7+ events always surface at moderate or above.
//
// # Regions
//
// Region membership is a coarse bounding-box test. Boxes overlap by design
// (mainland USA and the Atlantic hurricane basin, Argentina and South
// America), so a location can activate several feeds at once. Several CAP
// feeds publish no usable geometry; their alerts apply at country
// granularity to any in-region location.
//
// # Alert identity
//
// Alert IDs are source-qualified and stable across polling runs: the
// upstream event id where one exists (USGS id, GeoNet publicID, CAP guid),
// a synthesized phenomenon-severity-location key for polygon-detail feeds,
// and a storm-identity key for cyclones. Stable IDs make the merge step
// idempotent across runs and restarts.
package domain
