// Package scenarios runs YAML-defined planning scenarios end to end through
// the pipeline. Each .yaml file in this directory describes a station layout,
// a request and the expected decision.
package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/chargeplan/core/model"
)

type ConnectorDef struct {
	ID     string `yaml:"id"`
	Type   string `yaml:"type"`
	Status string `yaml:"status"`
	Badge  string `yaml:"badge"`
	KW     int    `yaml:"kw"`
}

type StationDef struct {
	ID         string         `yaml:"id"`
	Name       string         `yaml:"name"`
	Lat        float64        `yaml:"lat"`
	Lon        float64        `yaml:"lon"`
	Connectors []ConnectorDef `yaml:"connectors"`
}

func (s StationDef) ToModel() model.Station {
	st := model.Station{ID: s.ID, Name: s.Name, Lat: s.Lat, Lon: s.Lon}
	for _, c := range s.Connectors {
		st.Connectors = append(st.Connectors, model.Connector{
			ID:         c.ID,
			StationID:  s.ID,
			Type:       model.ConnectorType(c.Type),
			PowerKW:    c.KW,
			Status:     model.ConnectorStatus(c.Status),
			TrustBadge: model.TrustBadge(c.Badge),
		})
	}
	return st
}

type RequestDef struct {
	OriginLat float64 `yaml:"origin_lat"`
	OriginLon float64 `yaml:"origin_lon"`
	DestLat   float64 `yaml:"dest_lat"`
	DestLon   float64 `yaml:"dest_lon"`
	SoC       float64 `yaml:"soc"`
}

func (r RequestDef) ToModel() model.PlanRequest {
	return model.PlanRequest{
		Origin:      model.Coordinate{Lat: r.OriginLat, Lon: r.OriginLon},
		Destination: model.Coordinate{Lat: r.DestLat, Lon: r.DestLon},
		SoC:         r.SoC,
		UserID:      "scenario",
	}
}

type Expected struct {
	Action       string `yaml:"action"`
	Reason       string `yaml:"reason"`
	StationID    string `yaml:"station_id"`
	Reservations int    `yaml:"reservations"`
}

type Scenario struct {
	Name     string       `yaml:"name"`
	Stations []StationDef `yaml:"stations"`
	Request  RequestDef   `yaml:"request"`
	Expected Expected     `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
