// Command genzones writes the sample aquifer zone configuration fixture.
// The four zones mirror the regions the regression model was trained on;
// monthly climatology follows the Indian monsoon pattern scaled by a
// per-zone rainfall factor. The output is validated by loading it back
// through the domain parser, so the fixture can never drift from what the
// service accepts.
//
// Usage:
//
//	go run ./cmd/genzones -out data/sample/zone_config.json
//	go run ./cmd/genzones -out deploy/zone_config.yaml
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hydrotech/groundwater-serve/internal/domain"
)

// monsoonPattern is the subcontinental monthly rainfall baseline in mm:
// dry winter, June-September peak, post-monsoon decline.
var monsoonPattern = map[int]float64{
	1: 15, 2: 20, 3: 25, 4: 30, 5: 55,
	6: 185, 7: 260, 8: 235, 9: 175,
	10: 95, 11: 40, 12: 20,
}

type zoneDef struct {
	code        string
	name        string
	latRange    [2]float64
	lonRange    [2]float64
	rainFactor  float64
	avgLevel    float64
	reliability float64
	properties  domain.PhysicalProperties
}

// The sample zones. Rainfall factors capture urban heat island suppression
// (A), irrigation-friendly plains (B), heavy coastal rainfall (C), and the
// arid west (D).
var zoneDefs = []zoneDef{
	{
		code: "A", name: "Urban",
		latRange: [2]float64{28.6, 28.8}, lonRange: [2]float64{77.1, 77.3},
		rainFactor: 0.85, avgLevel: 11.8, reliability: 0.85,
		properties: domain.PhysicalProperties{
			Permeability: 0.3, ExtractionRate: 0.8, RechargeEfficiency: 0.2,
			SoilType: "clay-sand", DepthMeters: 45,
		},
	},
	{
		code: "B", name: "Agricultural",
		latRange: [2]float64{26.4, 26.6}, lonRange: [2]float64{80.3, 80.5},
		rainFactor: 1.15, avgLevel: 26.6, reliability: 0.92,
		properties: domain.PhysicalProperties{
			Permeability: 0.7, ExtractionRate: 0.5, RechargeEfficiency: 0.75,
			SoilType: "sandy-loam", DepthMeters: 60,
		},
	},
	{
		code: "C", name: "Coastal",
		latRange: [2]float64{12.9, 13.1}, lonRange: [2]float64{80.1, 80.3},
		rainFactor: 1.35, avgLevel: 6.9, reliability: 0.72,
		properties: domain.PhysicalProperties{
			Permeability: 0.6, ExtractionRate: 0.6, RechargeEfficiency: 0.4,
			SoilType: "sandy", DepthMeters: 30,
		},
	},
	{
		code: "D", name: "Arid",
		latRange: [2]float64{26.8, 27.0}, lonRange: [2]float64{75.7, 75.9},
		rainFactor: 0.55, avgLevel: 8.8, reliability: 0.78,
		properties: domain.PhysicalProperties{
			Permeability: 0.2, ExtractionRate: 0.7, RechargeEfficiency: 0.15,
			SoilType: "rocky", DepthMeters: 50,
		},
	},
}

// zoneEntry is the on-disk shape of one zone.
type zoneEntry struct {
	Name        string                    `json:"name" yaml:"name"`
	LatRange    [2]float64                `json:"lat_range" yaml:"lat_range,flow"`
	LonRange    [2]float64                `json:"lon_range" yaml:"lon_range,flow"`
	AvgRainfall map[string]float64        `json:"avg_rainfall" yaml:"avg_rainfall"`
	AvgLevel    float64                   `json:"avg_level" yaml:"avg_level"`
	Reliability float64                   `json:"reliability" yaml:"reliability"`
	Properties  domain.PhysicalProperties `json:"physical_properties" yaml:"physical_properties"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/sample/zone_config.json", "output path (.json, .yaml, or .yml)")
	flag.Parse()

	var data []byte
	var err error
	switch ext := strings.ToLower(filepath.Ext(*out)); ext {
	case ".json":
		data, err = renderJSON()
	case ".yaml", ".yml":
		data, err = renderYAML()
	default:
		return fmt.Errorf("unsupported output extension %q", ext)
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}

	// Round-trip through the real parser so a fixture the service cannot
	// load never lands on disk.
	set, err := domain.LoadZones(*out)
	if err != nil {
		return fmt.Errorf("fixture failed validation: %w", err)
	}

	log.Printf("wrote %s: %d zones (%s)", *out, set.Len(), strings.Join(set.Codes(), ", "))
	return nil
}

func entryFor(def zoneDef) zoneEntry {
	rainfall := make(map[string]float64, 12)
	for month := 1; month <= 12; month++ {
		mm := monsoonPattern[month] * def.rainFactor
		rainfall[strconv.Itoa(month)] = roundTo1(mm)
	}
	return zoneEntry{
		Name:        def.name,
		LatRange:    def.latRange,
		LonRange:    def.lonRange,
		AvgRainfall: rainfall,
		AvgLevel:    def.avgLevel,
		Reliability: def.reliability,
		Properties:  def.properties,
	}
}

// renderJSON emits the zones as a JSON object in definition order. Entries
// are marshalled one at a time because encoding a Go map would scramble the
// zone order the resolver depends on.
func renderJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, def := range zoneDefs {
		entry, err := json.MarshalIndent(entryFor(def), "  ", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode zone %s: %w", def.code, err)
		}
		fmt.Fprintf(&buf, "  %q: %s", def.code, entry)
		if i < len(zoneDefs)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func renderYAML() ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, def := range zoneDefs {
		var key, value yaml.Node
		key.SetString(def.code)
		if err := value.Encode(entryFor(def)); err != nil {
			return nil, fmt.Errorf("encode zone %s: %w", def.code, err)
		}
		root.Content = append(root.Content, &key, &value)
	}
	return yaml.Marshal(root)
}

func roundTo1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
