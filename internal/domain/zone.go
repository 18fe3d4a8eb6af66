package domain

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a coordinate resolves to a zone missing from the
// config, or when optional zone fields are absent. 15.0 m and 0.75 match the
// values the model was calibrated against.
const (
	DefaultReliability = 0.75
	DefaultAvgLevelM   = 15.0
)

// PhysicalProperties describe the hydrogeology of a zone. They are served
// verbatim on the zones endpoint and are not used in prediction math.
type PhysicalProperties struct {
	Permeability       float64 `json:"permeability" yaml:"permeability"`
	ExtractionRate     float64 `json:"extraction_rate" yaml:"extraction_rate"`
	RechargeEfficiency float64 `json:"recharge_efficiency" yaml:"recharge_efficiency"`
	SoilType           string  `json:"soil_type" yaml:"soil_type"`
	DepthMeters        float64 `json:"depth_meters" yaml:"depth_meters"`
}

// Zone is one rectangular aquifer zone: a bounding box, a monthly rainfall
// climatology keyed 1-12, and calibration metadata.
type Zone struct {
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	LatRange    [2]float64         `json:"lat_range"`
	LonRange    [2]float64         `json:"lon_range"`
	AvgRainfall map[int]float64    `json:"avg_rainfall"`
	AvgLevelM   float64            `json:"avg_level"`
	Reliability float64            `json:"reliability"`
	Properties  PhysicalProperties `json:"physical_properties"`
}

// Centroid returns the center of the zone's bounding box.
func (z Zone) Centroid() (lat, lon float64) {
	return (z.LatRange[0] + z.LatRange[1]) / 2, (z.LonRange[0] + z.LonRange[1]) / 2
}

// Contains reports whether the coordinate falls inside the zone's bounding
// box. Both edges are inclusive.
func (z Zone) Contains(lat, lon float64) bool {
	return lat >= z.LatRange[0] && lat <= z.LatRange[1] &&
		lon >= z.LonRange[0] && lon <= z.LonRange[1]
}

// ZoneSet is an ordered, immutable collection of zones. Order follows the
// config file so overlapping boxes resolve deterministically: first zone in
// file order wins.
type ZoneSet struct {
	codes []string
	zones map[string]Zone
}

// Len returns the number of zones in the set.
func (s *ZoneSet) Len() int { return len(s.codes) }

// Codes returns the zone codes in config order. The slice is a copy.
func (s *ZoneSet) Codes() []string {
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out
}

// Get returns the zone for a code.
func (s *ZoneSet) Get(code string) (Zone, bool) {
	z, ok := s.zones[code]
	return z, ok
}

// All returns the zones in config order.
func (s *ZoneSet) All() []Zone {
	out := make([]Zone, 0, len(s.codes))
	for _, code := range s.codes {
		out = append(out, s.zones[code])
	}
	return out
}

// Resolve maps a coordinate to a zone. It scans bounding boxes in config
// order and returns the first containing zone. Coordinates outside every box
// fall back to the zone with the nearest centroid, so Resolve always
// succeeds on a non-empty set. Centroid ties keep the earlier zone.
func (s *ZoneSet) Resolve(lat, lon float64) Zone {
	for _, code := range s.codes {
		if z := s.zones[code]; z.Contains(lat, lon) {
			return z
		}
	}

	var nearest Zone
	minDist := math.Inf(1)
	for _, code := range s.codes {
		z := s.zones[code]
		cLat, cLon := z.Centroid()
		if d := math.Hypot(lat-cLat, lon-cLon); d < minDist {
			minDist = d
			nearest = z
		}
	}
	return nearest
}

// ReliabilityOf returns the zone's reliability factor, or DefaultReliability
// for codes not in the set.
func (s *ZoneSet) ReliabilityOf(code string) float64 {
	if z, ok := s.zones[code]; ok {
		return z.Reliability
	}
	return DefaultReliability
}

// AvgLevelOf returns the zone's average groundwater level, or
// DefaultAvgLevelM for codes not in the set.
func (s *ZoneSet) AvgLevelOf(code string) float64 {
	if z, ok := s.zones[code]; ok {
		return z.AvgLevelM
	}
	return DefaultAvgLevelM
}

// zoneFile is the on-disk shape of a single zone entry. Reliability is a
// pointer to distinguish an absent field from an explicit zero.
type zoneFile struct {
	Name        string             `json:"name" yaml:"name"`
	LatRange    []float64          `json:"lat_range" yaml:"lat_range"`
	LonRange    []float64          `json:"lon_range" yaml:"lon_range"`
	AvgRainfall map[string]float64 `json:"avg_rainfall" yaml:"avg_rainfall"`
	AvgLevel    float64            `json:"avg_level" yaml:"avg_level"`
	Reliability *float64           `json:"reliability" yaml:"reliability"`
	Properties  PhysicalProperties `json:"physical_properties" yaml:"physical_properties"`
}

// LoadZones reads a zone config file, dispatching on extension:
// .json, .yaml, or .yml.
func LoadZones(path string) (*ZoneSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open zone config: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return ParseZonesJSON(f)
	case ".yaml", ".yml":
		return ParseZonesYAML(f)
	default:
		return nil, fmt.Errorf("unsupported zone config extension %q", ext)
	}
}

// ParseZonesJSON decodes a JSON zone config. The document is an object of
// code -> zone entries. Decoding walks tokens instead of unmarshalling into
// a map so the file's key order survives into the ZoneSet.
func ParseZonesJSON(r io.Reader) (*ZoneSet, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read zone config: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("zone config must be a JSON object, got %v", tok)
	}

	set := &ZoneSet{zones: make(map[string]Zone)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read zone code: %w", err)
		}
		code := keyTok.(string)

		var entry zoneFile
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("decode zone %q: %w", code, err)
		}
		if err := set.add(code, entry); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read zone config: %w", err)
	}

	return set.validate()
}

// ParseZonesYAML decodes a YAML zone config with the same shape and ordering
// guarantees as ParseZonesJSON. yaml.Node preserves mapping order; a plain
// map would not.
func ParseZonesYAML(r io.Reader) (*ZoneSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read zone config: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse zone config: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) != 1 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("zone config must be a YAML mapping")
	}

	set := &ZoneSet{zones: make(map[string]Zone)}
	mapping := root.Content[0]
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		code := mapping.Content[i].Value

		var entry zoneFile
		if err := mapping.Content[i+1].Decode(&entry); err != nil {
			return nil, fmt.Errorf("decode zone %q: %w", code, err)
		}
		if err := set.add(code, entry); err != nil {
			return nil, err
		}
	}

	return set.validate()
}

// add validates one file entry and appends it to the set.
func (s *ZoneSet) add(code string, entry zoneFile) error {
	if code == "" {
		return fmt.Errorf("zone with empty code")
	}
	if _, dup := s.zones[code]; dup {
		return fmt.Errorf("duplicate zone code %q", code)
	}
	if entry.Name == "" {
		return fmt.Errorf("zone %q: name is required", code)
	}

	latRange, err := parseRange(entry.LatRange, -90, 90)
	if err != nil {
		return fmt.Errorf("zone %q: lat_range %v", code, err)
	}
	lonRange, err := parseRange(entry.LonRange, -180, 180)
	if err != nil {
		return fmt.Errorf("zone %q: lon_range %v", code, err)
	}

	climatology := make(map[int]float64, len(entry.AvgRainfall))
	for key, mm := range entry.AvgRainfall {
		month, err := strconv.Atoi(key)
		if err != nil || month < 1 || month > 12 {
			return fmt.Errorf("zone %q: avg_rainfall month %q must be 1-12", code, key)
		}
		if mm < 0 {
			return fmt.Errorf("zone %q: avg_rainfall[%d] must be >= 0, got %v", code, month, mm)
		}
		climatology[month] = mm
	}

	reliability := DefaultReliability
	if entry.Reliability != nil {
		reliability = *entry.Reliability
		if reliability <= 0 || reliability > 1 {
			return fmt.Errorf("zone %q: reliability must be in (0, 1], got %v", code, reliability)
		}
	}

	s.codes = append(s.codes, code)
	s.zones[code] = Zone{
		Code:        code,
		Name:        entry.Name,
		LatRange:    latRange,
		LonRange:    lonRange,
		AvgRainfall: climatology,
		AvgLevelM:   entry.AvgLevel,
		Reliability: reliability,
		Properties:  entry.Properties,
	}
	return nil
}

// validate applies set-level checks after all entries are added.
func (s *ZoneSet) validate() (*ZoneSet, error) {
	if len(s.codes) == 0 {
		return nil, fmt.Errorf("zone config contains no zones")
	}
	return s, nil
}

// parseRange checks a two-element [min, max] range against outer bounds.
func parseRange(vals []float64, lo, hi float64) ([2]float64, error) {
	if len(vals) != 2 {
		return [2]float64{}, fmt.Errorf("must have exactly 2 elements, got %d", len(vals))
	}
	if vals[0] > vals[1] {
		return [2]float64{}, fmt.Errorf("min %v exceeds max %v", vals[0], vals[1])
	}
	if vals[0] < lo || vals[1] > hi {
		return [2]float64{}, fmt.Errorf("must lie within [%g, %g]", lo, hi)
	}
	return [2]float64{vals[0], vals[1]}, nil
}
